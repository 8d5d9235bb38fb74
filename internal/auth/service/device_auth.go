package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/searchlab/internal/auth/domain"
	"github.com/aussiebroadwan/searchlab/internal/auth/metrics"
	"github.com/aussiebroadwan/searchlab/internal/auth/store"
	"github.com/aussiebroadwan/searchlab/pkg/cryptox"
	"github.com/aussiebroadwan/searchlab/pkg/idx"
	"github.com/aussiebroadwan/searchlab/pkg/jwtx"
	"github.com/aussiebroadwan/searchlab/pkg/slogx"
)

// Outcome is the expected result of a poll or refresh. Faults are reported
// through the error return instead.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomePending
	OutcomeExpired
	OutcomeInvalid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePending:
		return "pending"
	case OutcomeExpired:
		return "expired"
	case OutcomeInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// TokenResult carries the pair when Outcome is OutcomeSuccess.
type TokenResult struct {
	Outcome Outcome
	Pair    *domain.TokenPair
}

// RevokeResult describes what a revocation removed.
type RevokeResult struct {
	Subject   string
	TokenType string
	Deleted   int64
}

// DeviceAuthService runs the device authorization state machine:
// pending, authorized, consumed, with expiry reachable from the first two.
type DeviceAuthService struct {
	Store       store.Store
	Registry    *DeviceRegistry
	Credentials *CredentialService
	Codec       *jwtx.Codec
	Auditor     *Auditor
	Metrics     *metrics.Metrics
	Now         func() time.Time
}

func (s *DeviceAuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// IssueDeviceCode starts a new flow. Requested scopes narrow the scopes the
// approving user's token will carry.
func (s *DeviceAuthService) IssueDeviceCode(ctx context.Context, scopes ...string) (domain.DeviceAuthorization, error) {
	started := s.now()
	l := slogx.FromContext(ctx)

	d, err := s.Registry.Create(ctx, scopes...)
	if err != nil {
		l.Error("failed to create device code", slog.Any("error", err))
		return domain.DeviceAuthorization{}, err
	}

	s.Metrics.DeviceCodeIssued()
	s.Auditor.Record(ctx, AuditRecord{
		EventType: domain.AuditDeviceCodeIssued,
		Action:    "issue",
		Data: map[string]any{
			"user_code":   d.UserCode,
			"device_code": slogx.Redact(cryptox.FingerprintToken(d.DeviceCode)),
			"expires_at":  d.ExpiresAt.UTC().Format(time.RFC3339),
		},
		Started: started,
	})
	l.Info("device code issued", slog.String("user_code", d.UserCode))
	return d, nil
}

// Authorize verifies the user's credentials and approves the request. Every
// failure other than a second approval collapses to ErrInvalidCredentials.
func (s *DeviceAuthService) Authorize(ctx context.Context, humanCode, username, password string) error {
	started := s.now()
	l := slogx.FromContext(ctx)
	code := cryptox.NormalizeUserCode(humanCode)

	fail := func(userID string, reason error, result error) error {
		s.Metrics.DeviceAuthorization(reason.Error())
		s.Auditor.Record(ctx, AuditRecord{
			UserID:    userID,
			EventType: domain.AuditDeviceAuthorizationFailed,
			Action:    "authorize",
			Data:      map[string]any{"user_code": code},
			Err:       reason,
			Started:   started,
		})
		l.Info("device authorization rejected",
			slog.String("user_code", code),
			slog.String("reason", reason.Error()),
		)
		return result
	}

	// 1. Credentials first, so codes cannot be probed without a valid login.
	userID, err := s.Credentials.Verify(ctx, username, password)
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrMismatch), errors.Is(err, ErrInactive):
		return fail("", err, ErrInvalidCredentials)
	case err != nil:
		return err
	}

	// 2. Approve the request.
	err = s.Registry.Authorize(ctx, code, userID)
	switch {
	case errors.Is(err, ErrAlreadyAuthorized):
		return fail(userID, err, ErrAlreadyAuthorized)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrExpired):
		return fail(userID, err, ErrInvalidCredentials)
	case err != nil:
		return err
	}

	s.Metrics.DeviceAuthorization("authorized")
	s.Auditor.Record(ctx, AuditRecord{
		UserID:    userID,
		EventType: domain.AuditDeviceAuthorized,
		Action:    "authorize",
		Data:      map[string]any{"user_code": code},
		Started:   started,
	})
	l.Info("device authorized", slog.String("user_code", code), slog.String("user_id", userID))
	return nil
}

// PollForToken exchanges an authorized device code for a token pair. The
// device code is deleted by the same statement that reads it, so concurrent
// polls mint at most one pair.
func (s *DeviceAuthService) PollForToken(ctx context.Context, machineCode string) (TokenResult, error) {
	started := s.now()
	l := slogx.FromContext(ctx)
	machineCode = strings.TrimSpace(machineCode)

	if machineCode == "" {
		s.Metrics.TokenPoll(OutcomeExpired.String())
		return TokenResult{Outcome: OutcomeExpired}, nil
	}

	var (
		result TokenResult
		userID string
	)
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		now := s.now()

		// 1. Atomic read-and-delete of an authorized live request.
		d, err := s.Registry.consume(ctx, tx, machineCode, now)
		if errors.Is(err, ErrNotFound) {
			// 2. Still live means still waiting for the human.
			_, err := tx.DeviceCodes().GetByDeviceCode(ctx, machineCode, now)
			switch {
			case err == nil:
				result = TokenResult{Outcome: OutcomePending}
			case errors.Is(err, store.ErrNotFound):
				result = TokenResult{Outcome: OutcomeExpired}
			default:
				return err
			}
			return nil
		}
		if err != nil {
			return err
		}
		userID = d.AuthorizedUserID

		// 3. The approving user must still be allowed in.
		u, err := tx.Users().GetUserByID(ctx, userID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && !u.Active) {
			result = TokenResult{Outcome: OutcomeInvalid}
			return nil
		}
		if err != nil {
			return err
		}

		// 4. Mint and persist.
		pair, err := s.issuePair(ctx, tx, u, grantedScopes(d.Scopes, u.Scopes), d.DeviceCode, now)
		if err != nil {
			return err
		}
		result = TokenResult{Outcome: OutcomeSuccess, Pair: pair}
		return nil
	})
	if err != nil {
		l.Error("device token exchange failed", slog.Any("error", err))
		return TokenResult{}, err
	}

	s.Metrics.TokenPoll(result.Outcome.String())
	switch result.Outcome {
	case OutcomeSuccess:
		s.Auditor.Record(ctx, AuditRecord{
			UserID:    userID,
			EventType: domain.AuditTokenIssued,
			Action:    "device_code",
			Data:      map[string]any{"scope": result.Pair.Scope},
			Started:   started,
		})
		l.Info("device token issued", slog.String("user_id", userID))
	case OutcomeInvalid:
		s.Auditor.Record(ctx, AuditRecord{
			UserID:    userID,
			EventType: domain.AuditTokenIssued,
			Action:    "device_code",
			Err:       ErrInactive,
			Started:   started,
		})
	}
	return result, nil
}

// Refresh rotates a refresh token. The stored record is deleted before the
// new pair is minted and only a delete that removed exactly one row may
// proceed, so a token replayed concurrently succeeds once.
func (s *DeviceAuthService) Refresh(ctx context.Context, refreshToken string) (TokenResult, error) {
	started := s.now()
	l := slogx.FromContext(ctx)

	reject := func(userID, reason string) (TokenResult, error) {
		s.Metrics.TokenRefresh(OutcomeInvalid.String())
		s.Auditor.Record(ctx, AuditRecord{
			UserID:    userID,
			EventType: domain.AuditTokenRefreshRejected,
			Action:    "refresh",
			Err:       errors.New(reason),
			Started:   started,
		})
		l.Info("refresh rejected", slog.String("reason", reason))
		return TokenResult{Outcome: OutcomeInvalid}, nil
	}

	// 1. Cheap checks on the token itself.
	claims, err := s.Codec.Validate(refreshToken)
	if err != nil {
		return reject("", "malformed")
	}
	if s.Codec.IsExpired(refreshToken) {
		return reject(claims.Subject, "expired")
	}
	if !s.Codec.IsRefreshType(refreshToken) {
		return reject(claims.Subject, "wrong_type")
	}

	hash := cryptox.FingerprintToken(refreshToken)

	var (
		pair   *domain.TokenPair
		reason string
	)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		now := s.now()

		// 2. Lineage is informational; a missing row is caught by the gate.
		var deviceCode string
		if prev, err := tx.RefreshTokens().GetByHash(ctx, hash); err == nil {
			deviceCode = prev.DeviceCode
		}

		// 3. The gate.
		n, err := tx.RefreshTokens().ConsumeByHash(ctx, hash)
		if err != nil {
			return err
		}
		if n != 1 {
			if n > 1 {
				l.Error("refresh token hash matched several records",
					slog.String("token", slogx.Redact(hash)),
					slog.Int64("rows", n),
				)
			}
			reason = "not_found"
			return nil
		}

		// 4. Re-check the subject; deleting the record still commits.
		u, err := tx.Users().GetUserByID(ctx, claims.Subject)
		if errors.Is(err, store.ErrNotFound) || (err == nil && !u.Active) {
			reason = "inactive_user"
			return nil
		}
		if err != nil {
			return err
		}

		// 5. Rotate.
		pair, err = s.issuePair(ctx, tx, u, u.Scopes, deviceCode, now)
		return err
	})
	if err != nil {
		l.Error("refresh failed", slog.Any("error", err))
		return TokenResult{}, err
	}
	if reason != "" {
		return reject(claims.Subject, reason)
	}

	s.Metrics.TokenRefresh(OutcomeSuccess.String())
	s.Auditor.Record(ctx, AuditRecord{
		UserID:    claims.Subject,
		EventType: domain.AuditTokenRefreshed,
		Action:    "refresh",
		Data:      map[string]any{"previous": slogx.Redact(hash)},
		Started:   started,
	})
	return TokenResult{Outcome: OutcomeSuccess, Pair: pair}, nil
}

// Revoke removes server-side state for a token. A refresh token loses its
// record. An access token cannot be recalled, so every refresh record of its
// subject is removed instead and the access token lives until it expires.
// Only a structurally invalid token is an error (ErrInvalidToken).
func (s *DeviceAuthService) Revoke(ctx context.Context, token string) (RevokeResult, error) {
	started := s.now()
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.Validate(token)
	if err != nil {
		return RevokeResult{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	res := RevokeResult{Subject: claims.Subject, TokenType: claims.Type}
	if claims.Type == jwtx.TokenTypeRefresh {
		res.Deleted, err = s.Store.RefreshTokens().DeleteByHash(ctx, cryptox.FingerprintToken(token))
	} else {
		res.Deleted, err = s.Store.RefreshTokens().DeleteAllForUser(ctx, claims.Subject)
	}
	if err != nil {
		l.Error("revoke failed", slog.Any("error", err))
		return RevokeResult{}, err
	}

	s.Metrics.TokenRevoked(claims.Type)
	s.Auditor.Record(ctx, AuditRecord{
		UserID:    claims.Subject,
		EventType: domain.AuditTokenRevoked,
		Action:    "revoke",
		Data: map[string]any{
			"token_type": claims.Type,
			"deleted":    res.Deleted,
		},
		Started: started,
	})
	l.Info("token revoked",
		slog.String("user_id", claims.Subject),
		slog.String("token_type", claims.Type),
		slog.Int64("deleted", res.Deleted),
	)
	return res, nil
}

// issuePair mints an access and refresh token for u and stores the refresh
// fingerprint through st.
func (s *DeviceAuthService) issuePair(
	ctx context.Context,
	st store.Store,
	u domain.User,
	scopes []string,
	deviceCode string,
	now time.Time,
) (*domain.TokenPair, error) {
	access, _, err := s.Codec.MintAccess(u.ID, scopes)
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}
	refresh, refreshClaims, err := s.Codec.MintRefresh(u.ID)
	if err != nil {
		return nil, fmt.Errorf("mint refresh token: %w", err)
	}

	err = st.RefreshTokens().Create(ctx, domain.RefreshToken{
		ID:         idx.NewAt(now).String(),
		TokenHash:  cryptox.FingerprintToken(refresh),
		UserID:     u.ID,
		DeviceCode: deviceCode,
		ExpiresAt:  refreshClaims.ExpiresAt.Time,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    s.Codec.AccessTTL(),
		Scope:        strings.Join(scopes, " "),
	}, nil
}

// grantedScopes narrows the user's scopes to those requested. No request
// means everything the user holds.
func grantedScopes(requested, held []string) []string {
	if len(requested) == 0 {
		return held
	}
	out := make([]string, 0, len(requested))
	for _, s := range requested {
		if slices.Contains(held, s) && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
