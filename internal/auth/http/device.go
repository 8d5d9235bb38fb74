package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/searchlab/internal/auth/service"
	"github.com/aussiebroadwan/searchlab/pkg/authsdk"
	"github.com/aussiebroadwan/searchlab/pkg/httpx"
	"github.com/aussiebroadwan/searchlab/pkg/slogx"
)

// DeviceHandler serves the RFC 8628 device authorization endpoints.
type DeviceHandler struct {
	DeviceAuthService *service.DeviceAuthService
}

// HandleCode godoc
//
//	@Summary		Device Authorization Endpoint
//	@Description	Starts a device flow. Returns a device code for the agent to poll with and a user code for the human to approve.
//	@Tags			Device
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			scope	formData	string						false	"Space-delimited scopes to narrow the issued token"
//	@Success		200		{object}	authsdk.DeviceCodeResponse	"device_code, user_code, verification_uri, expires_in, interval"
//	@Failure		400		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		429		{object}	authsdk.ErrorResponse		"rate limited"
//	@Failure		500		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Router			/v1/device/code [post].
func (h *DeviceHandler) HandleCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// 1. Parse the optional form body
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}
	scopes := httpx.ParseSpaceDelimitedFields(r.Form.Get("scope"))

	// 2. Create the request
	d, err := h.DeviceAuthService.IssueDeviceCode(ctx, scopes...)
	if err != nil {
		log.Error("device code issuance failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.DeviceCodeResponse{
		DeviceCode:              d.DeviceCode,
		UserCode:                d.UserCode,
		VerificationURI:         d.VerificationURI,
		VerificationURIComplete: d.VerificationURIComplete(),
		ExpiresIn:               int(d.ExpiresAt.Sub(d.CreatedAt).Seconds()),
		Interval:                int(d.Interval.Seconds()),
	})
}

// HandleAuthorize godoc
//
//	@Summary		Approve a device
//	@Description	The human step of the device flow. Checks username and password and binds the user code to that user.
//	@Description	Every failure other than a repeated approval returns the same 401 so usernames and codes cannot be probed.
//	@Tags			Device
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.DeviceAuthorizeRequest	true	"user_code, username, password"
//	@Success		200		{object}	authsdk.DeviceAuthorizeResponse	"status"
//	@Failure		400		{object}	authsdk.ErrorResponse			"malformed request"
//	@Failure		401		{object}	authsdk.ErrorResponse			"access_denied"
//	@Failure		409		{object}	authsdk.ErrorResponse			"already_authorized"
//	@Failure		429		{object}	authsdk.ErrorResponse			"rate limited"
//	@Router			/v1/device/authorize [post].
func (h *DeviceHandler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// 1. Decode the body
	var req authsdk.DeviceAuthorizeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, err.Error()).WriteError(w)
		return
	}
	if strings.TrimSpace(req.UserCode) == "" || strings.TrimSpace(req.Username) == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	// 2. Approve
	err := h.DeviceAuthService.Authorize(ctx, req.UserCode, strings.TrimSpace(req.Username), req.Password)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, authsdk.DeviceAuthorizeResponse{Status: authsdk.DeviceStatusAuthorized})
	case errors.Is(err, service.ErrAlreadyAuthorized):
		authsdk.ErrAlreadyAuthorized.WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrAccessDenied.WriteError(w)
	default:
		log.Error("device authorization failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}

// HandleStatus godoc
//
//	@Summary		Device request status
//	@Description	Lets the verification page show whether a user code is still waiting. Expired and unknown codes both read as not_found.
//	@Tags			Device
//	@Produce		json
//	@Param			user_code	query		string							true	"User code"
//	@Success		200			{object}	authsdk.DeviceStatusResponse	"status, expires_in"
//	@Failure		400			{object}	authsdk.ErrorResponse			"missing user_code"
//	@Router			/v1/device/status [get].
func (h *DeviceHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	code := strings.TrimSpace(r.URL.Query().Get("user_code"))
	if code == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	registry := h.DeviceAuthService.Registry
	d, err := registry.FindByHumanCode(ctx, code)
	switch {
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteJSON(w, http.StatusOK, authsdk.DeviceStatusResponse{Status: authsdk.DeviceStatusNotFound})
		return
	case err != nil:
		log.Error("device status lookup failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	status := authsdk.DeviceStatusPending
	if d.Authorized() {
		status = authsdk.DeviceStatusAuthorized
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.DeviceStatusResponse{
		Status:    status,
		ExpiresIn: int(registry.ExpiresIn(d).Seconds()),
	})
}

// HandleToken godoc
//
//	@Summary		Device Access Token Endpoint
//	@Description	Polled by the agent with its device code. Returns authorization_pending until the human approves, then a token pair exactly once.
//	@Tags			Device
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			device_code	formData	string					true	"Device code"
//	@Success		200			{object}	authsdk.TokenResponse	"access_token, refresh_token, token_type, expires_in, scope"
//	@Failure		400			{object}	authsdk.ErrorResponse	"authorization_pending, expired_token, access_denied"
//	@Failure		429			{object}	authsdk.ErrorResponse	"rate limited"
//	@Header			200			{string}	Cache-Control			"no-store"
//	@Router			/v1/device/token [post].
func (h *DeviceHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
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

	deviceCodeGrant(w, r, h.DeviceAuthService, r.Form.Get("device_code"))
}

var errDeviceAccessDenied = authsdk.NewOAuth2Error(
	http.StatusBadRequest,
	authsdk.ErrorCodeAccessDenied,
	"the approving user can no longer sign in",
)

// deviceCodeGrant polls for a token and writes the outcome. Shared by the
// device token endpoint and the device_code grant of the token endpoint.
func deviceCodeGrant(w http.ResponseWriter, r *http.Request, svc *service.DeviceAuthService, deviceCode string) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	deviceCode = strings.TrimSpace(deviceCode)
	if deviceCode == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := svc.PollForToken(ctx, deviceCode)
	if err != nil {
		log.Error("device_code grant failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	switch res.Outcome {
	case service.OutcomeSuccess:
		writeTokenPair(w, res)
	case service.OutcomePending:
		authsdk.ErrAuthorizationPending.WriteError(w)
	case service.OutcomeExpired:
		authsdk.ErrExpiredToken.WriteError(w)
	default:
		errDeviceAccessDenied.WriteError(w)
	}
}

func writeTokenPair(w http.ResponseWriter, res service.TokenResult) {
	pair := res.Pair
	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
		Scope:        strings.TrimSpace(pair.Scope),
	})
}
