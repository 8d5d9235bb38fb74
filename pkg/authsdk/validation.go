package authsdk

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	requiredReason = "required"
	onlyAlphanum   = "must only contain a-z, A-Z, 0-9, _ or -"
)

var (
	reUsername = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	reScope    = regexp.MustCompile(`^[a-z][a-z0-9._-]*:[a-z][a-z0-9._-]*$`)
)

// Validate checks if the bootstrap request fields are valid.
// Returns a map of field names to error messages, or nil if all fields are valid.
func (b BootstrapRequest) Validate() map[string]string {
	errs := make(map[string]string)

	validateUsername(errs, "admin_username", b.AdminUsername)
	if b.AdminPassword != "" {
		validatePassword(errs, "admin_password", b.AdminPassword)
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Validate checks the admin create-user request.
func (c CreateUserRequest) Validate() map[string]string {
	errs := make(map[string]string)

	validateUsername(errs, "username", c.Username)
	validatePassword(errs, "password", c.Password)
	validateScopes(errs, "scopes", c.Scopes)

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateUsername(errs map[string]string, field, v string) {
	username := strings.TrimSpace(v)
	switch {
	case username == "":
		errs[field] = requiredReason
	case len(username) < 3 || len(username) > 32:
		errs[field] = "must be 3-32 characters"
	case !reUsername.MatchString(username):
		errs[field] = onlyAlphanum
	}
}

func validatePassword(errs map[string]string, field, pw string) {
	switch {
	case pw == "":
		errs[field] = requiredReason
	case len(pw) < 8:
		errs[field] = "too short (min 8)"
	case len(pw) > 128:
		errs[field] = "too long (max 128)"
	}
}

func validateScopes(errs map[string]string, field string, scopes []string) {
	seen := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		if !reScope.MatchString(s) {
			errs[field] = fmt.Sprintf("invalid scope: %q", s)
			return
		}
		if _, dup := seen[s]; dup {
			errs[field] = "duplicate scopes"
			return
		}
		seen[s] = struct{}{}
	}
}
