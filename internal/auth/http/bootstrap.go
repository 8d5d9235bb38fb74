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

type BootstrapHandler struct {
	BootstrapService *service.BootstrapService
}

// ServeHTTP handles the bootstrap endpoint for initial system setup.
//
//	@Summary		Bootstrap the authentication system
//	@Description	Creates the first admin user with every admin scope. Only available when a bootstrap token is configured and only while no user exists.
//	@Description	When admin_password is omitted a password is generated and returned once.
//	@Tags			Bootstrap
//	@Accept			json
//	@Produce		json
//	@Param			X-Bootstrap-Token	header		string							true	"Bootstrap token for authorization"
//	@Param			request				body		authsdk.BootstrapRequest		true	"Bootstrap configuration"
//	@Success		201					{object}	authsdk.BootstrapResponse		"Admin user created"
//	@Failure		400					{object}	authsdk.ValidationErrorResponse	"Invalid request body or validation failed"
//	@Failure		401					{object}	authsdk.ErrorResponse			"Missing or invalid bootstrap token, or system already bootstrapped"
//	@Failure		404					{object}	authsdk.ErrorResponse			"Bootstrap not enabled (no token configured)"
//	@Failure		500					{object}	authsdk.ErrorResponse			"Failed to create admin user"
//	@Router			/v1/bootstrap [post].
func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l := slogx.FromContext(r.Context())
	l.Info("Starting to bootstrap")

	// 1. Check if enabled
	if h.BootstrapService.Token == "" {
		httpx.WriteJSON(w, http.StatusNotFound, authsdk.ErrorResponse{
			Error:            "not_found",
			ErrorDescription: "Bootstrap endpoint is not enabled",
		})
		return
	}

	// 2. Require bootstrap token header
	token := r.Header.Get("X-Bootstrap-Token")
	if token == "" {
		httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.ErrorResponse{
			Error:            "unauthorized",
			ErrorDescription: "Bootstrap token is required in X-Bootstrap-Token header",
		})
		return
	}

	// 3. Parse request body and validate
	var req authsdk.BootstrapRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Request body must be valid JSON",
		})
		return
	}
	if errs := req.Validate(); errs != nil {
		writeValidationError(w, errs)
		return
	}

	// 4. Perform bootstrap
	res, err := h.BootstrapService.Bootstrap(
		r.Context(),
		token,
		strings.TrimSpace(req.AdminUsername),
		req.AdminPassword,
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBootstrapAlready):
			httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.ErrorResponse{
				Error:            "unauthorized",
				ErrorDescription: "System has already been bootstrapped",
			})
		case errors.Is(err, service.ErrBootstrapUnauthorized):
			httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.ErrorResponse{
				Error:            "unauthorized",
				ErrorDescription: "Invalid bootstrap token",
			})
		case errors.Is(err, service.ErrBootstrapFailedToCreateAdmin):
			httpx.WriteJSON(w, http.StatusInternalServerError, authsdk.ErrorResponse{
				Error:            "server_error",
				ErrorDescription: "Failed to create admin user",
			})
		default:
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	// 5. Respond with the admin (generated password is only shown once)
	httpx.WriteJSON(w, http.StatusCreated, authsdk.BootstrapResponse{
		AdminUserID:       res.UserID,
		Scopes:            res.Scopes,
		GeneratedPassword: res.GeneratedPassword,
	})
}

func writeValidationError(w http.ResponseWriter, errs map[string]string) {
	httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ValidationErrorResponse{
		Code:    authsdk.ErrorCodeValidation,
		Message: "validation failed for some fields",
		Details: errs,
	})
}
