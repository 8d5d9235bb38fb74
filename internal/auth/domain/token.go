package domain

import "time"

// TokenPair is what a successful exchange or refresh hands back.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string        // always "Bearer"
	ExpiresIn    time.Duration // access token lifetime
	Scope        string        // space-delimited
}

// RefreshToken models the stored refresh token record. Only the fingerprint
// of the token is kept, never the token itself.
type RefreshToken struct {
	ID         string
	TokenHash  string // deterministic fingerprint (base64url SHA-256)
	UserID     string
	DeviceCode string // device code that started this lineage, if any
	ExpiresAt  time.Time
	CreatedAt  time.Time
	LastUsedAt *time.Time
}
