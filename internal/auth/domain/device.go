package domain

import "time"

// DeviceAuthorization is one pending device authorization request. The
// record is deleted when the agent exchanges it for tokens.
type DeviceAuthorization struct {
	DeviceCode      string // machine code, UUIDv4, polled by the agent
	UserCode        string // human code, XXXX-XXXX
	VerificationURI string
	Interval        time.Duration
	Scopes          []string

	AuthorizedUserID string // empty while pending
	AuthorizedAt     *time.Time

	CreatedAt time.Time
	ExpiresAt time.Time
}

// Authorized reports whether a user approved the request.
func (d DeviceAuthorization) Authorized() bool {
	return d.AuthorizedUserID != ""
}

// ExpiredAt reports whether the request is expired at now. A request observed
// at exactly ExpiresAt is expired.
func (d DeviceAuthorization) ExpiredAt(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}

// VerificationURIComplete is the verification URI with the user code filled in.
func (d DeviceAuthorization) VerificationURIComplete() string {
	return d.VerificationURI + "?user_code=" + d.UserCode
}
