package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/searchlab/internal/auth/domain"
	"github.com/aussiebroadwan/searchlab/internal/auth/store"
	"github.com/aussiebroadwan/searchlab/pkg/cryptox"
	"github.com/aussiebroadwan/searchlab/pkg/idx"
	"github.com/aussiebroadwan/searchlab/pkg/slogx"
)

type UserService struct {
	Store         store.Store
	Auditor       *Auditor
	DefaultScopes []string
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrNotFound
	}
	return u, err
}

// CreateUser provisions a user. Empty scopes fall back to the defaults.
func (s *UserService) CreateUser(
	ctx context.Context,
	actorID, username, password string,
	scopes []string,
) (domain.User, error) {
	started := time.Now()
	l := slogx.FromContext(ctx)

	if len(scopes) == 0 {
		scopes = s.DefaultScopes
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now()
	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: hash,
		Scopes:       scopes,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUsernameTaken
		}
		l.Error("failed to create user", slog.Any("error", err))
		return domain.User{}, err
	}

	s.Auditor.Record(ctx, AuditRecord{
		UserID:    u.ID,
		EventType: domain.AuditUserCreated,
		Action:    "create",
		Data:      map[string]any{"username": username, "actor": actorID},
		Started:   started,
	})
	l.Info("user created", slog.String("user_id", u.ID), slog.String("actor", actorID))
	return u, nil
}

// Deactivate blocks a user from logging in and removes all their refresh
// tokens. Access tokens already issued stay valid until they expire.
func (s *UserService) Deactivate(ctx context.Context, actorID, userID string) (int64, error) {
	started := time.Now()
	l := slogx.FromContext(ctx)

	var revoked int64
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SetActive(ctx, userID, false); err != nil {
			return err
		}
		n, err := tx.RefreshTokens().DeleteAllForUser(ctx, userID)
		revoked = n
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		l.Error("failed to deactivate user", slog.String("user_id", userID), slog.Any("error", err))
		return 0, err
	}

	s.Auditor.Record(ctx, AuditRecord{
		UserID:    userID,
		EventType: domain.AuditUserDeactivated,
		Action:    "deactivate",
		Data:      map[string]any{"actor": actorID, "revoked_tokens": revoked},
		Started:   started,
	})
	l.Info("user deactivated", slog.String("user_id", userID), slog.Int64("revoked_tokens", revoked))
	return revoked, nil
}
