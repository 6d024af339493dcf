package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/almutairi-dev/tawseel-backend/internal/links"
	"github.com/almutairi-dev/tawseel-backend/internal/orders"
	pkgauth "github.com/almutairi-dev/tawseel-backend/pkg/auth"
	"github.com/almutairi-dev/tawseel-backend/pkg/config"
	"github.com/almutairi-dev/tawseel-backend/pkg/db/models"
	"github.com/almutairi-dev/tawseel-backend/pkg/enums"
	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
	"github.com/almutairi-dev/tawseel-backend/pkg/logger"
	"github.com/almutairi-dev/tawseel-backend/pkg/pagination"
	"github.com/almutairi-dev/tawseel-backend/pkg/visibility"
)

type routedOrders struct {
	order *models.Order
}

func (s *routedOrders) Create(ctx context.Context, scope visibility.Scope, input orders.CreateOrderInput) (*models.Order, error) {
	return s.order, nil
}

func (s *routedOrders) Get(ctx context.Context, scope visibility.Scope, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return s.order, nil
}

func (s *routedOrders) List(ctx context.Context, scope visibility.Scope, filter orders.ListFilter, params pagination.Params) (*orders.OrderList, error) {
	return &orders.OrderList{Orders: []models.Order{*s.order}}, nil
}

func (s *routedOrders) AssignDriver(ctx context.Context, scope visibility.Scope, orderID, driverID uuid.UUID) (*models.Order, error) {
	return s.order, nil
}

func (s *routedOrders) Confirm(ctx context.Context, orderID uuid.UUID, date time.Time) (*models.Order, error) {
	return s.order, nil
}

func (s *routedOrders) Complete(ctx context.Context, orderID uuid.UUID, input orders.CompleteInput) (*models.Order, error) {
	return s.order, nil
}

func (s *routedOrders) Archive(ctx context.Context, scope visibility.Scope, orderID uuid.UUID) (*models.Order, error) {
	return s.order, nil
}

type noopIdempotency struct{}

func (noopIdempotency) Get(ctx context.Context, key string) (string, error) {
	return "", nil
}

func (noopIdempotency) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	return true, nil
}

func (noopIdempotency) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func (noopIdempotency) Del(ctx context.Context, keys ...string) error { return nil }

func testRouter(t *testing.T, order *models.Order) (http.Handler, config.JWTConfig) {
	t.Helper()

	jwtCfg := config.JWTConfig{Secret: "router-secret", Issuer: "tawseel-test", ExpirationMinutes: 30}
	cfg := &config.Config{JWT: jwtCfg}
	cfg.Media = config.MediaConfig{SignedProofMaxMB: 5, PhotoMaxMB: 10}

	generator, err := links.NewGenerator(config.LinksConfig{BaseURL: "https://links.tawseel.example.com", TTL: time.Hour})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "router-test", Level: zerolog.ErrorLevel, Output: io.Discard})

	router := New(Deps{
		Config:      cfg,
		Logger:      logg,
		Orders:      &routedOrders{order: order},
		Links:       generator,
		Idempotency: noopIdempotency{},
	})
	return router, jwtCfg
}

func bearerToken(t *testing.T, cfg config.JWTConfig, role enums.ActorRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}
	return "Bearer " + token
}

func TestRouterHealthIsPublic(t *testing.T) {
	router, _ := testRouter(t, &models.Order{ID: uuid.New()})

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRouterStaffAPIRequiresAuth(t *testing.T) {
	router, cfg := testRouter(t, &models.Order{ID: uuid.New()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", bearerToken(t, cfg, enums.ActorRoleStaff))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouterPurgeIsAdminOnly(t *testing.T) {
	router, cfg := testRouter(t, &models.Order{ID: uuid.New()})

	body := `{"order_ids":["` + uuid.NewString() + `"],"confirm":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/purge", strings.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, cfg, enums.ActorRoleStaff))
	req.Header.Set("Idempotency-Key", uuid.NewString())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff, got %d", rec.Code)
	}
}

func TestRouterPublicLinkSurface(t *testing.T) {
	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   77,
		Kind:          enums.OrderKindDelivery,
		Status:        enums.OrderStatusPending,
		CustomerName:  "Noura",
		CustomerPhone: "0500000000",
	}
	router, _ := testRouter(t, order)

	// unsigned generator produces bare id links
	req := httptest.NewRequest(http.MethodGet, "/o/view?id="+order.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"order_number":77`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
