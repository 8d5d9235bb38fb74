package authsdk

// ============================================================================
// Internal Response Types (used for JSON unmarshaling)
// ============================================================================

// ErrorResponse represents a standard OAuth2 error response per RFC 6749.
// Client code should use the OAuth2Error type from errors.go instead.
type ErrorResponse struct {
	// Error is the OAuth2 error code (e.g., "invalid_request", "invalid_grant")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// ValidationErrorResponse is returned when request validation fails, from
// the bootstrap and admin user endpoints.
type ValidationErrorResponse struct {
	// Code is the error code (e.g., "validation_error")
	Code string `json:"code"`

	// Message is a human-readable error message
	Message string `json:"message"`

	// Details contains field-specific validation errors (field name: error message)
	Details map[string]string `json:"details,omitempty"`
}

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse represents the OAuth2 token endpoint response per RFC 6749.
// Returned by the device token endpoint and by POST /v1/oauth2/token.
type TokenResponse struct {
	// AccessToken is the JWT access token used to authenticate API requests
	AccessToken string `json:"access_token"`

	// RefreshToken is single use; every refresh returns a new one
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is always "Bearer" per RFC 6749
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in"`

	// Scope is the space-delimited list of scopes granted to this token
	Scope string `json:"scope,omitempty"`
}

// ============================================================================
// Device Flow Types
// ============================================================================

// DeviceCodeResponse is the device authorization response (RFC 8628 section 3.2).
type DeviceCodeResponse struct {
	// DeviceCode is the machine code the agent polls with. Never show it to a human.
	DeviceCode string `json:"device_code"`

	// UserCode is the short code the human types on the verification page
	UserCode string `json:"user_code" example:"WDJB-MJHT"`

	// VerificationURI is where the human approves the request
	VerificationURI string `json:"verification_uri"`

	// VerificationURIComplete has the user code pre-filled
	VerificationURIComplete string `json:"verification_uri_complete,omitempty"`

	// ExpiresIn is the lifetime in seconds of both codes
	ExpiresIn int `json:"expires_in"`

	// Interval is the minimum number of seconds between polls
	Interval int `json:"interval"`
}

// DeviceAuthorizeRequest approves a pending device request on behalf of a user.
type DeviceAuthorizeRequest struct {
	UserCode string `json:"user_code"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// DeviceAuthorizeResponse is returned when approval succeeds.
type DeviceAuthorizeResponse struct {
	Status string `json:"status" example:"authorized"`
}

// Device request states reported by the status endpoint.
const (
	DeviceStatusPending    = "pending"
	DeviceStatusAuthorized = "authorized"
	DeviceStatusNotFound   = "not_found"
)

// DeviceStatusResponse reports the state of a user code for the verification page.
type DeviceStatusResponse struct {
	Status    string `json:"status" example:"pending"`
	ExpiresIn int    `json:"expires_in,omitempty"`
}

// ============================================================================
// Bootstrap and User Types
// ============================================================================

// BootstrapRequest creates the first admin user. An empty password makes the
// server generate one and return it once.
type BootstrapRequest struct {
	// AdminUsername is the username for the initial admin user (3-32 chars, alphanumeric with _ or -)
	AdminUsername string `json:"admin_username"`

	// AdminPassword is the password for the admin user (8-128 chars), optional
	AdminPassword string `json:"admin_password,omitempty"`
}

// BootstrapResponse contains the created admin user.
type BootstrapResponse struct {
	AdminUserID string   `json:"admin_user_id"`
	Scopes      []string `json:"scopes"`

	// GeneratedPassword is only set when the request had no password
	GeneratedPassword string `json:"generated_password,omitempty"`
}

// CreateUserRequest provisions a user who can approve device requests.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`

	// Scopes defaults to the server's default scope set when empty
	Scopes []string `json:"scopes,omitempty"`
}

// UserResponse describes a user account.
type UserResponse struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Scopes   []string `json:"scopes"`
	Active   bool     `json:"active"`
}

// DeactivateUserResponse reports how many refresh tokens were revoked.
type DeactivateUserResponse struct {
	UserID        string `json:"user_id"`
	RevokedTokens int64  `json:"revoked_tokens"`
}

// UserInfoResponse is returned from GET /v1/userinfo. Requires docs:read.
type UserInfoResponse struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Scopes   []string `json:"scopes"`
}

// ============================================================================
// Audit Types
// ============================================================================

// AuditEvent is one recorded state transition.
type AuditEvent struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id,omitempty"`
	EventType    string `json:"event_type" example:"token_refreshed"`
	Action       string `json:"action"`
	EventData    string `json:"event_data,omitempty"`
	Status       string `json:"status" example:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
	DurationMS   int64  `json:"duration_ms"`
	RequestID    string `json:"request_id,omitempty"`
	IPAddress    string `json:"ip_address,omitempty"`
	CreatedAt    string `json:"created_at"` // RFC3339
}

// ListAuditEventsResponse is one page of audit events, newest first.
type ListAuditEventsResponse struct {
	Events []AuditEvent `json:"events"`
	Page   int          `json:"page"`
	Size   int          `json:"size"`
	Total  int64        `json:"total"`
}

// AuditStatsResponse counts events in the trailing window.
type AuditStatsResponse struct {
	Since    string           `json:"since"` // RFC3339
	Total    int64            `json:"total"`
	ByType   map[string]int64 `json:"by_type"`
	ByStatus map[string]int64 `json:"by_status"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the database connection status
	Database string `json:"database"`

	// Signer indicates the token codec can mint and verify
	Signer string `json:"signer"`
}
