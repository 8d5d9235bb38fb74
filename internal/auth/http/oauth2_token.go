package http

import (
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/searchlab/internal/auth/service"
	"github.com/aussiebroadwan/searchlab/pkg/authsdk"
	"github.com/aussiebroadwan/searchlab/pkg/httpx"
	"github.com/aussiebroadwan/searchlab/pkg/slogx"
)

// TokenHandler serves POST /v1/oauth2/token
// Accepts application/x-www-form-urlencoded per the RFC 6749 framework.
type TokenHandler struct {
	DeviceAuthService *service.DeviceAuthService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Endpoint
//	@Description	Issues tokens for the refresh_token grant and the RFC 8628 device_code grant.
//	@Description	Refresh tokens are single use: a successful refresh returns a new one and the old one stops working.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type		formData	string					true	"Grant type"	Enums(refresh_token, urn:ietf:params:oauth:grant-type:device_code)
//	@Param			refresh_token	formData	string					false	"Refresh token (required for refresh_token grant)"
//	@Param			device_code		formData	string					false	"Device code (required for device_code grant)"
//	@Success		200				{object}	authsdk.TokenResponse	"access_token, refresh_token, token_type, expires_in, scope"
//	@Failure		400				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401				{object}	authsdk.ErrorResponse	"invalid_grant"
//	@Failure		500				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Header			200				{string}	Pragma					"no-cache"
//	@Router			/v1/oauth2/token [post].
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	// 3. Handle the grant type
	switch r.Form.Get("grant_type") {
	case "refresh_token":
		h.handleRefreshGrant(w, r, r.Form)
	case authsdk.GrantTypeDeviceCode:
		deviceCodeGrant(w, r, h.DeviceAuthService, r.Form.Get("device_code"))
	default:
		authsdk.ErrUnsupportedGrantType.WriteError(w)
	}
}

func (h *TokenHandler) handleRefreshGrant(w http.ResponseWriter, r *http.Request, form url.Values) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	refresh := form.Get("refresh_token")
	if refresh == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.DeviceAuthService.Refresh(ctx, refresh)
	if err != nil {
		log.Error("refresh grant failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}
	if res.Outcome != service.OutcomeSuccess {
		authsdk.ErrInvalidGrant.WriteError(w)
		return
	}
	writeTokenPair(w, res)
}
