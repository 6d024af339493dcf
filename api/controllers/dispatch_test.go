package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/almutairi-dev/tawseel-backend/internal/dispatch"
	"github.com/almutairi-dev/tawseel-backend/internal/links"
	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
	"github.com/almutairi-dev/tawseel-backend/pkg/visibility"
)

type stubDispatchService struct {
	batch    *dispatch.Batch
	err      error
	received []uuid.UUID
}

func (s *stubDispatchService) BuildBatch(ctx context.Context, scope visibility.Scope, orderIDs []uuid.UUID) (*dispatch.Batch, error) {
	s.received = orderIDs
	return s.batch, s.err
}

func TestDispatchOrdersReturnsBatch(t *testing.T) {
	orderID := uuid.New()
	svc := &stubDispatchService{batch: &dispatch.Batch{
		DriverID:    uuid.New(),
		DriverName:  "Fahad",
		Phone:       "966501234567",
		WhatsAppURL: "https://wa.me/966501234567?text=x",
		OrderIDs:    []uuid.UUID{orderID},
	}}

	body, _ := json.Marshal(map[string]any{"order_ids": []string{orderID.String()}})
	req := staffContext(httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", bytes.NewReader(body)))
	rec := httptest.NewRecorder()
	DispatchOrders(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.received) != 1 || svc.received[0] != orderID {
		t.Fatalf("order ids not forwarded: %v", svc.received)
	}
	if !strings.Contains(rec.Body.String(), "whatsapp_url") {
		t.Fatal("batch payload missing whatsapp_url")
	}
}

func TestDispatchOrdersRejectsEmptySelection(t *testing.T) {
	svc := &stubDispatchService{}
	req := staffContext(httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", strings.NewReader(`{"order_ids":[]}`)))
	rec := httptest.NewRecorder()
	DispatchOrders(svc, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDispatchOrdersMultipleDriversConflict(t *testing.T) {
	svc := &stubDispatchService{err: pkgerrors.New(pkgerrors.CodeMultipleDrivers, "selection spans multiple drivers")}
	body := `{"order_ids":["` + uuid.NewString() + `"]}`
	req := staffContext(httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	DispatchOrders(svc, nil)(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestDispatchQRServesPNG(t *testing.T) {
	generator := testGenerator(t, "qr-secret")
	orderID := uuid.New()

	target := "/api/v1/dispatch/qr?order_id=" + orderID.String() + "&action=" + string(links.ActionComplete)
	req := staffContext(httptest.NewRequest(http.MethodGet, target, nil))
	rec := httptest.NewRecorder()
	DispatchQR(generator, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatal("body is not a PNG")
	}
}

func TestDispatchQRRejectsUnknownAction(t *testing.T) {
	generator := testGenerator(t, "qr-secret")
	target := "/api/v1/dispatch/qr?order_id=" + uuid.NewString() + "&action=teleport"
	req := staffContext(httptest.NewRequest(http.MethodGet, target, nil))
	rec := httptest.NewRecorder()
	DispatchQR(generator, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDispatchQRRequiresOrderID(t *testing.T) {
	generator := testGenerator(t, "qr-secret")
	req := staffContext(httptest.NewRequest(http.MethodGet, "/api/v1/dispatch/qr?action=view", nil))
	rec := httptest.NewRecorder()
	DispatchQR(generator, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
