package httpx

import (
	"net/http"
	"slices"
	"strings"
)

// RequireAnyScope lets the request through when the caller holds at least
// one of required. Must run after AuthnMiddleware.
func RequireAnyScope(required ...string) Middleware {
	return scopeGuard(required, func(have []string) bool {
		return slices.ContainsFunc(required, func(s string) bool { return slices.Contains(have, s) })
	})
}

// RequireAllScopes lets the request through only when the caller holds every
// scope in required.
func RequireAllScopes(required ...string) Middleware {
	return scopeGuard(required, func(have []string) bool {
		for _, s := range required {
			if !slices.Contains(have, s) {
				return false
			}
		}
		return true
	})
}

func scopeGuard(required []string, allowed func(have []string) bool) Middleware {
	scope := strings.Join(required, " ")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed(scopesFromCtx(r.Context())) {
				writeBearerScopeError(w, scope)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeBearerScopeError is the RFC 6750 section 3.1 insufficient_scope response.
func writeBearerScopeError(w http.ResponseWriter, scope string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+scope+`"`)
	WriteJSON(w, http.StatusForbidden, map[string]string{
		"error":             "insufficient_scope",
		"error_description": "requires scope: " + scope,
	})
}
