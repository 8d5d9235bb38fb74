package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/searchlab/internal/auth/service"
	"github.com/aussiebroadwan/searchlab/pkg/authsdk"
	"github.com/aussiebroadwan/searchlab/pkg/httpx"
	"github.com/aussiebroadwan/searchlab/pkg/slogx"
)

// RevokeHandler serves POST /v1/oauth2/revoke following RFC 7009. Refresh
// tokens lose their stored record. Access tokens cannot be recalled, so
// revoking one removes every refresh token of its subject and the access
// token itself lives until it expires. Any structurally valid token gets
// 200 OK, known or not, to prevent token scanning.
type RevokeHandler struct {
	DeviceAuthService *service.DeviceAuthService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Revocation Endpoint
//	@Description	Revokes a previously issued token (RFC 7009).
//	@Description	The token may be sent as the token form field or as a Bearer Authorization header.
//	@Description	The endpoint is idempotent and returns 200 OK for every well-formed token.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			token			formData	string	false	"The token to revoke"
//	@Param			token_type_hint	formData	string	false	"Ignored; the token type is read from the token"	Enums(access_token, refresh_token)
//	@Success		200				"Token revoked successfully (or was already revoked)"
//	@Failure		400				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Header			200				{string}	Pragma					"no-cache"
//	@Router			/v1/oauth2/revoke [post].
func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// 1. Ensure the right content-type
	if ct := r.Header.Get("Content-Type"); ct != "" && !httpx.IsFormRequest(r) {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}

	// 2. Parse the form body
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	token := r.Form.Get("token")
	if token == "" {
		token, _ = httpx.BearerToken(r)
	}
	if token == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	// 3. Revoke
	if _, err := h.DeviceAuthService.Revoke(ctx, token); err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			authsdk.ErrInvalidToken.WriteError(w)
			return
		}
		log.Error("revoke failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	// 4. Return 200 OK with an empty object per RFC 7009
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{}"))
}
