package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/almutairi-dev/tawseel-backend/pkg/auth"
	"github.com/almutairi-dev/tawseel-backend/pkg/config"
	"github.com/almutairi-dev/tawseel-backend/pkg/enums"
)

func jwtConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "tawseel-test", ExpirationMinutes: 60}
}

func TestAuthSeedsActorContext(t *testing.T) {
	cfg := jwtConfig()
	branchID := uuid.New()
	token, err := pkgauth.MintAccessToken(cfg, time.Now(), pkgauth.AccessTokenPayload{
		UserID:   uuid.New(),
		Role:     enums.ActorRoleBranchManager,
		BranchID: &branchID,
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	var seenRole, seenBranch string
	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenRole = RoleFromContext(r.Context())
		seenBranch = BranchIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seenRole != string(enums.ActorRoleBranchManager) {
		t.Fatalf("role not seeded: %q", seenRole)
	}
	if seenBranch != branchID.String() {
		t.Fatalf("branch not seeded: %q", seenBranch)
	}
}

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	handler := Auth(jwtConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token: expected 401, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(string(enums.ActorRoleAdmin), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/purge", nil)
	req = req.WithContext(WithRole(req.Context(), string(enums.ActorRoleStaff)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/purge", nil)
	req = req.WithContext(WithRole(req.Context(), string(enums.ActorRoleAdmin)))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for admin, got %d", rec.Code)
	}
}

func TestScopeFromContext(t *testing.T) {
	branchID := uuid.New()
	ctx := WithRole(WithBranchID(context.Background(), branchID.String()), string(enums.ActorRoleBranchManager))
	scope, err := ScopeFromContext(ctx)
	if err != nil {
		t.Fatalf("ScopeFromContext: %v", err)
	}
	if scope.BranchID == nil || *scope.BranchID != branchID {
		t.Fatalf("manager scope not pinned: %+v", scope)
	}

	ctx = WithRole(context.Background(), string(enums.ActorRoleAdmin))
	scope, err = ScopeFromContext(ctx)
	if err != nil {
		t.Fatalf("ScopeFromContext: %v", err)
	}
	if !scope.Unrestricted() {
		t.Fatalf("admin scope must be unrestricted: %+v", scope)
	}

	if _, err := ScopeFromContext(context.Background()); err == nil {
		t.Fatal("missing role must fail")
	}
}
