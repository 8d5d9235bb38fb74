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

type AdminUsersHandler struct {
	UserService *service.UserService
}

// HandleCreate godoc
//
//	@Summary		Create a user
//	@Description	Provisions a user who can approve device requests. Requires 'admin:write' scope.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CreateUserRequest		true	"username, password, scopes"
//	@Success		201		{object}	authsdk.UserResponse			"Created user"
//	@Failure		400		{object}	authsdk.ValidationErrorResponse	"Validation failed"
//	@Failure		401		{object}	authsdk.ErrorResponse			"Invalid or missing access token"
//	@Failure		403		{object}	authsdk.ErrorResponse			"Insufficient scope"
//	@Failure		409		{object}	authsdk.ErrorResponse			"Username taken"
//	@Router			/v1/admin/users [post].
func (h *AdminUsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.CreateUserRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, err.Error()).WriteError(w)
		return
	}
	if errs := req.Validate(); errs != nil {
		writeValidationError(w, errs)
		return
	}

	u, err := h.UserService.CreateUser(
		ctx,
		httpx.UserIDFromContext(ctx),
		strings.TrimSpace(req.Username),
		req.Password,
		req.Scopes,
	)
	switch {
	case errors.Is(err, service.ErrUsernameTaken):
		authsdk.ErrConflict.WriteError(w)
		return
	case err != nil:
		log.Error("create user failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.UserResponse{
		UserID:   u.ID,
		Username: u.Username,
		Scopes:   u.Scopes,
		Active:   u.Active,
	})
}

// HandleDeactivate godoc
//
//	@Summary		Deactivate a user
//	@Description	Blocks the user from approving devices and deletes all of their refresh tokens. Requires 'admin:write' scope.
//	@Description	Access tokens already issued stay valid until they expire.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string							true	"User ID"
//	@Success		200	{object}	authsdk.DeactivateUserResponse	"user_id, revoked_tokens"
//	@Failure		401	{object}	authsdk.ErrorResponse			"Invalid or missing access token"
//	@Failure		403	{object}	authsdk.ErrorResponse			"Insufficient scope"
//	@Failure		404	{object}	authsdk.ErrorResponse			"Unknown user"
//	@Router			/v1/admin/users/{id}/deactivate [post].
func (h *AdminUsersHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := strings.TrimSpace(r.PathValue("id"))
	if userID == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	n, err := h.UserService.Deactivate(ctx, httpx.UserIDFromContext(ctx), userID)
	switch {
	case errors.Is(err, service.ErrNotFound):
		authsdk.ErrNotFound.WriteError(w)
		return
	case err != nil:
		log.Error("deactivate user failed", "user_id", userID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.DeactivateUserResponse{
		UserID:        userID,
		RevokedTokens: n,
	})
}
