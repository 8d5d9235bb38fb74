package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/searchlab/internal/auth/store"
	"github.com/aussiebroadwan/searchlab/pkg/cryptox"
	"github.com/aussiebroadwan/searchlab/pkg/slogx"
)

// CredentialService checks a username and password against the user table.
type CredentialService struct {
	Store store.Store
}

// Verify returns the user id when password matches. It fails with ErrNotFound,
// ErrMismatch or ErrInactive. The password hash is always computed, even for
// unknown users, so timing does not reveal which usernames exist.
func (s *CredentialService) Verify(ctx context.Context, username, password string) (string, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = cryptox.VerifyDummy(password)
			return "", ErrNotFound
		}
		return "", err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return "", ErrMismatch
		}
		l.Error("password verification failed",
			slog.String("user_id", u.ID),
			slog.Any("error", err),
		)
		return "", err
	}

	if !u.Active {
		return "", ErrInactive
	}
	return u.ID, nil
}
