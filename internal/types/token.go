package types

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClaims represents the claims in a JWT token.
// ScopeID is the partition (a user or a shared household) whose plans the
// bearer may read and edit.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID  uuid.UUID `json:"user_id"`
	ScopeID uuid.UUID `json:"scope_id"`
}
