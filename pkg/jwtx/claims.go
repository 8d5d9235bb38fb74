package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the token_type claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Default token TTL constants.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// Claims are the claims carried by both access and refresh tokens. Refresh
// tokens never carry scopes; the scope set is re-read from the user on every
// refresh.
type Claims struct {
	jwt.RegisteredClaims

	// Permission Scopes "docs:search docs:read"
	Scopes []string `json:"scopes,omitempty"`

	// Type is either TokenTypeAccess or TokenTypeRefresh.
	Type string `json:"token_type"`
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf
// at the given instant. A token observed at exactly exp is expired.
func (c *Claims) ValidateExpiry(now time.Time) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}

	if !now.Before(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}
