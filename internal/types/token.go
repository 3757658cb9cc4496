package types

import (
	"github.com/google/uuid"
)

// TokenClaims is the authenticated identity carried by a JWT.
type TokenClaims struct {
	UserID uuid.UUID `json:"user_id"`
}
