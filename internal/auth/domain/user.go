package domain

import "time"

// Well known scopes.
const (
	ScopeDocsSearch = "docs:search"
	ScopeDocsRead   = "docs:read"
	ScopeAdminRead  = "admin:read"
	ScopeAdminWrite = "admin:write"
)

// AdminScopes is granted to the bootstrap admin.
var AdminScopes = []string{ScopeDocsSearch, ScopeDocsRead, ScopeAdminRead, ScopeAdminWrite}

type User struct {
	ID           string
	Username     string
	PasswordHash string   // argon2 encoded
	Scopes       []string // granted scope set, copied into every access token
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
