package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/almutairi-dev/tawseel-backend/pkg/enums"
	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
	"github.com/almutairi-dev/tawseel-backend/pkg/visibility"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxRole     contextKey = "actor_role"
	ctxBranchID contextKey = "branch_id"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func BranchIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxBranchID).(string); ok {
		return v
	}
	return ""
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithRole injects the actor role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}

// WithBranchID injects the branch identifier into the context.
func WithBranchID(ctx context.Context, branchID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxBranchID, branchID)
}

// ScopeFromContext derives the branch visibility scope for the
// authenticated actor carried in the request context.
func ScopeFromContext(ctx context.Context) (visibility.Scope, error) {
	role, err := enums.ParseActorRole(RoleFromContext(ctx))
	if err != nil {
		return visibility.Scope{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor role missing")
	}
	var branchID *uuid.UUID
	if raw := BranchIDFromContext(ctx); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return visibility.Scope{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid branch claim")
		}
		branchID = &id
	}
	return visibility.ScopeFor(role, branchID)
}
