package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/searchlab/internal/auth/service"
	"github.com/aussiebroadwan/searchlab/pkg/authsdk"
	"github.com/aussiebroadwan/searchlab/pkg/httpx"
	"github.com/aussiebroadwan/searchlab/pkg/slogx"
)

type UserInfoHandler struct {
	UserService *service.UserService
}

// ServeHTTP handles the OAuth2 UserInfo endpoint.
//
//	@Summary		Get user information
//	@Description	Returns information about the authenticated user. Requires 'docs:read' scope.
//	@Description	The scopes are the ones carried by the presented token, which may be narrower than the user's.
//	@Tags			OAuth2
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserInfoResponse	"user_id, username, scopes"
//	@Failure		401	{object}	authsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		403	{object}	authsdk.ErrorResponse		"Insufficient scope"
//	@Failure		500	{object}	authsdk.ErrorResponse		"Internal server error"
//	@Router			/v1/userinfo [get].
func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// Get subject (user ID) from request context.
	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	user, err := h.UserService.GetUserByID(ctx, userID)
	if errors.Is(err, service.ErrNotFound) {
		authsdk.ErrNotFound.WriteError(w)
		return
	}
	if err != nil {
		log.Warn("failed to load user", "user_id", userID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	scopes := []string{}
	if claims, ok := httpx.ClaimsFromContext(ctx); ok {
		scopes = claims.Scopes
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.UserInfoResponse{
		UserID:   user.ID,
		Username: user.Username,
		Scopes:   scopes,
	})
}
