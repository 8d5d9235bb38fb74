package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/searchlab/internal/auth/domain"
	"github.com/aussiebroadwan/searchlab/internal/auth/store"
	"github.com/aussiebroadwan/searchlab/pkg/cryptox"
	"github.com/aussiebroadwan/searchlab/pkg/idx"
	"github.com/aussiebroadwan/searchlab/pkg/slogx"
)

var (
	ErrBootstrapDisabled            = errors.New("bootstrap disabled")
	ErrBootstrapAlready             = errors.New("system already bootstrapped")
	ErrBootstrapUnauthorized        = errors.New("unauthorized bootstrap attempt")
	ErrBootstrapFailedToCreateAdmin = errors.New("failed to create admin user")
)

// BootstrapResult is the admin created by Bootstrap. GeneratedPassword is set
// only when the caller did not supply one.
type BootstrapResult struct {
	UserID            string
	Scopes            []string
	GeneratedPassword string
}

type BootstrapService struct {
	Store   store.Store
	Token   string // Pre-configured bootstrap token; empty disables bootstrap
	Auditor *Auditor
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// Bootstrap creates the first admin user. It only works while the user table
// is empty and the presented token matches the configured one.
func (s *BootstrapService) Bootstrap(ctx context.Context, token, username, password string) (BootstrapResult, error) {
	started := time.Now()
	l := slogx.FromContext(ctx)

	// 1. Validate provided token
	if s.Token == "" {
		return BootstrapResult{}, ErrBootstrapDisabled
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.Token)) != 1 {
		l.Warn("unauthorized bootstrap attempt")
		return BootstrapResult{}, ErrBootstrapUnauthorized
	}

	// 2. Generate a password if none was given
	var generated string
	if password == "" {
		p, err := cryptox.GeneratePassword()
		if err != nil {
			return BootstrapResult{}, err
		}
		password, generated = p, p
	}

	passHash, err := cryptox.HashPassword(password)
	if err != nil {
		l.Error("failed to hash admin password", slog.Any("error", err))
		return BootstrapResult{}, ErrBootstrapFailedToCreateAdmin
	}

	// 3. Check emptiness and insert in one transaction
	adminUserID := idx.New().String()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		empty, err := tx.Users().IsEmpty(ctx)
		if err != nil {
			return err
		}
		if !empty {
			return ErrBootstrapAlready
		}

		now := time.Now()
		err = tx.Users().CreateUser(ctx, domain.User{
			ID:           adminUserID,
			Username:     username,
			PasswordHash: passHash,
			Scopes:       domain.AdminScopes,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			l.Error("failed to create admin user",
				slog.String("admin_user_id", adminUserID),
				slog.Any("error", err),
			)
			return ErrBootstrapFailedToCreateAdmin
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrBootstrapAlready) {
			l.Warn("attempted bootstrap on already-bootstrapped system")
		}
		return BootstrapResult{}, err
	}

	s.Auditor.Record(ctx, AuditRecord{
		UserID:    adminUserID,
		EventType: domain.AuditUserCreated,
		Action:    "bootstrap",
		Data:      map[string]any{"username": username},
		Started:   started,
	})
	l.Info("successfully bootstrapped system", slog.String("admin_user_id", adminUserID))
	return BootstrapResult{
		UserID:            adminUserID,
		Scopes:            domain.AdminScopes,
		GeneratedPassword: generated,
	}, nil
}
