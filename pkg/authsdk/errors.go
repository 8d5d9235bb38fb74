package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/searchlab/pkg/httpx"
)

// ============================================================================
// OAuth2 Error Codes (RFC 6749, RFC 8628)
// ============================================================================

const (
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeInvalidGrant         = "invalid_grant"
	ErrorCodeUnsupportedGrantType = "unsupported_grant_type"
	ErrorCodeServerError          = "server_error"
	ErrorCodeInvalidToken         = "invalid_token"
	ErrorCodeInsufficientScope    = "insufficient_scope"
	ErrorCodeAccessDenied         = "access_denied"

	// Device flow codes (RFC 8628 section 3.5)
	ErrorCodeAuthorizationPending = "authorization_pending"
	ErrorCodeSlowDown             = "slow_down"
	ErrorCodeExpiredToken         = "expired_token"

	ErrorCodeAlreadyAuthorized = "already_authorized"
	ErrorCodeValidation        = "validation_error"
	ErrorCodeConflict          = "conflict"
	ErrorCodeNotFound          = "not_found"
)

// ============================================================================
// OAuth2Error - Standard OAuth2 error type
// ============================================================================

// OAuth2Error represents a standard OAuth2 error response per RFC 6749.
// It is used both by the server (to write HTTP responses) and by the SDK
// client (to represent errors).
type OAuth2Error struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the OAuth2 error code (e.g., "invalid_request", "invalid_grant")
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches any OAuth2Error carrying the same code, so
// errors.Is(err, ErrInvalidGrant) works on decoded responses.
func (e *OAuth2Error) Is(target error) bool {
	t, ok := target.(*OAuth2Error)
	return ok && t.Code == e.Code
}

// WriteError writes this OAuth2Error to an HTTP response writer.
func (e *OAuth2Error) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

// HasErrorCode reports whether err is an OAuth2Error with the given code.
func HasErrorCode(err error, code string) bool {
	var oe *OAuth2Error
	return errors.As(err, &oe) && oe.Code == code
}

// ============================================================================
// Predefined OAuth2 Errors
// ============================================================================

var (
	// ErrInvalidRequest is returned when the request is missing a required
	// parameter or is otherwise malformed.
	ErrInvalidRequest = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidGrant is returned when a refresh token or device code is
	// invalid, expired, revoked or already used. Which one is never disclosed.
	ErrInvalidGrant = &OAuth2Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidGrant,
		Description: "the provided grant is invalid",
	}

	// ErrUnsupportedGrantType is returned for grant types other than
	// refresh_token and the device code grant.
	ErrUnsupportedGrantType = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUnsupportedGrantType,
		Description: "grant type not supported",
	}

	// ErrServerError is returned when the server hit an unexpected condition.
	ErrServerError = &OAuth2Error{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}

	// ErrMethodNotAllowed is returned when the HTTP method is not allowed.
	ErrMethodNotAllowed = &OAuth2Error{
		StatusCode:  http.StatusMethodNotAllowed,
		Code:        ErrorCodeInvalidRequest,
		Description: "method not allowed",
	}

	// ErrInvalidContentType is returned when a form endpoint receives a body
	// that is not application/x-www-form-urlencoded.
	ErrInvalidContentType = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "content-type must be application/x-www-form-urlencoded",
	}

	// ErrInvalidFormBody is returned when the form body cannot be parsed.
	ErrInvalidFormBody = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "invalid form body",
	}

	// ErrInvalidToken is returned when a presented token is structurally invalid.
	ErrInvalidToken = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the token is malformed or its signature is invalid",
	}

	// ErrAccessDenied is returned when device authorization fails. It never
	// says whether the code, the username or the password was wrong.
	ErrAccessDenied = &OAuth2Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeAccessDenied,
		Description: "invalid code or credentials",
	}

	// ErrAlreadyAuthorized is returned when a user code was already approved.
	ErrAlreadyAuthorized = &OAuth2Error{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeAlreadyAuthorized,
		Description: "this code has already been authorized",
	}

	// ErrAuthorizationPending tells a polling agent the user has not acted yet.
	ErrAuthorizationPending = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeAuthorizationPending,
		Description: "the user has not yet approved this device",
	}

	// ErrSlowDown tells a polling agent to add 5 seconds to its interval.
	ErrSlowDown = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeSlowDown,
		Description: "polling too frequently",
	}

	// ErrExpiredToken tells a polling agent to restart the device flow.
	ErrExpiredToken = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeExpiredToken,
		Description: "the device code has expired",
	}

	// ErrNotFound is returned by admin endpoints for unknown resources.
	ErrNotFound = &OAuth2Error{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "resource not found",
	}

	// ErrConflict is returned when a resource already exists.
	ErrConflict = &OAuth2Error{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeConflict,
		Description: "resource already exists",
	}
)

// NewOAuth2Error creates a new OAuth2Error with the given status code, error code, and description.
func NewOAuth2Error(statusCode int, code, description string) *OAuth2Error {
	return &OAuth2Error{
		StatusCode:  statusCode,
		Code:        code,
		Description: description,
	}
}

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// parseErrorResponse attempts to parse an HTTP error response into a typed error.
// Returns nil if the response indicates success (2xx status code).
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Try parsing as standard OAuth2 error
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &OAuth2Error{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	// Try parsing as validation error
	var valErr ValidationErrorResponse
	if err := json.Unmarshal(body, &valErr); err == nil && valErr.Code != "" {
		return &OAuth2Error{
			StatusCode:  resp.StatusCode,
			Code:        valErr.Code,
			Description: valErr.Message,
		}
	}

	// Fallback: create generic error from status code
	return &OAuth2Error{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
