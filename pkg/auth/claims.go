package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/almutairi-dev/tawseel-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Role     enums.ActorRole
	BranchID *uuid.UUID
}

// AccessTokenClaims represents the typed JWT issued to staff clients.
// Drivers and customers never receive tokens; they act through
// capability links instead.
type AccessTokenClaims struct {
	UserID   uuid.UUID       `json:"user_id"`
	Role     enums.ActorRole `json:"role"`
	BranchID *uuid.UUID      `json:"branch_id,omitempty"`
	jwt.RegisteredClaims
}
