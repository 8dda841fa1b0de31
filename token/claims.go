package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the session claims carried by a local session token. UserID and
// Hash together form the asserted identity; once a token verifies, they are
// trusted as-is and never re-derived.
type Claims struct {
	UserID string `json:"user_id"`        // External user identifier
	Hash   string `json:"hash"`           // Credential hash issued by the identity system
	Name   string `json:"name,omitempty"` // Display name
	jwt.RegisteredClaims
}

// IssuedAtTime returns the iat claim, or the zero time when absent.
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// ExpiresAtTime returns the exp claim, or the zero time when absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// HasIdentity reports whether both identity claims are present.
func (c *Claims) HasIdentity() bool {
	return c.UserID != "" && c.Hash != ""
}
