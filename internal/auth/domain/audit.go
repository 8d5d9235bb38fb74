package domain

import "time"

// Audit event types.
const (
	AuditDeviceCodeIssued          = "device_code_issued"
	AuditDeviceAuthorized          = "device_authorized"
	AuditDeviceAuthorizationFailed = "device_authorization_failed"
	AuditTokenIssued               = "token_issued"
	AuditTokenRefreshed            = "token_refreshed"
	AuditTokenRefreshRejected      = "token_refresh_rejected"
	AuditTokenRevoked              = "token_revoked"
	AuditUserCreated               = "user_created"
	AuditUserDeactivated           = "user_deactivated"
)

// Audit statuses.
const (
	AuditStatusSuccess = "success"
	AuditStatusFailure = "failure"
)

// AuditEvent records one state transition of the auth subsystem. It never
// carries secrets: token values appear only as redacted fingerprints.
type AuditEvent struct {
	ID           string
	UserID       string
	EventType    string
	Action       string
	EventData    string // JSON object
	Status       string
	ErrorMessage string
	DurationMS   int64
	RequestID    string
	IPAddress    string // masked
	CreatedAt    time.Time
}

// AuditFilter selects audit events. Zero values do not filter.
type AuditFilter struct {
	UserID    string
	EventType string
	Status    string
	Since     time.Time
	Limit     int
	Offset    int
}

// AuditStats are counts over a window.
type AuditStats struct {
	Since    time.Time
	Total    int64
	ByType   map[string]int64
	ByStatus map[string]int64
}
