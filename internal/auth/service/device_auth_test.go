package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/searchlab/internal/auth/domain"
	"github.com/aussiebroadwan/searchlab/pkg/jwtx"
)

func TestDeviceFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.createUser(t, "alice")

	d, err := env.svc.IssueDeviceCode(ctx)
	require.NoError(t, err)
	require.Len(t, d.UserCode, 9)
	require.Equal(t, "http://localhost:8080/device?user_code="+d.UserCode, d.VerificationURIComplete())

	t.Run("poll before approval is pending", func(t *testing.T) {
		res, err := env.svc.PollForToken(ctx, d.DeviceCode)
		require.NoError(t, err)
		require.Equal(t, OutcomePending, res.Outcome)
		require.Nil(t, res.Pair)
	})

	t.Run("approve with lower-case code", func(t *testing.T) {
		require.NoError(t, env.svc.Authorize(ctx, strings.ToLower(d.UserCode), "alice", testPassword))
	})

	t.Run("second approval is rejected", func(t *testing.T) {
		err := env.svc.Authorize(ctx, d.UserCode, "alice", testPassword)
		require.ErrorIs(t, err, ErrAlreadyAuthorized)
	})

	var pair *domain.TokenPair
	t.Run("poll after approval returns tokens", func(t *testing.T) {
		res, err := env.svc.PollForToken(ctx, d.DeviceCode)
		require.NoError(t, err)
		require.Equal(t, OutcomeSuccess, res.Outcome)
		pair = res.Pair
		require.Equal(t, "Bearer", pair.TokenType)
		require.Equal(t, 15*time.Minute, pair.ExpiresIn)
		require.Equal(t, "docs:search docs:read", pair.Scope)

		claims, err := env.codec.Verify(pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, u.ID, claims.Subject)
		require.Equal(t, []string{domain.ScopeDocsSearch, domain.ScopeDocsRead}, claims.Scopes)

		n, err := env.store.RefreshTokens().CountForUser(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, int64(1), n)
	})

	t.Run("consumed code reads as expired", func(t *testing.T) {
		res, err := env.svc.PollForToken(ctx, d.DeviceCode)
		require.NoError(t, err)
		require.Equal(t, OutcomeExpired, res.Outcome)
	})

	t.Run("unknown and empty codes read as expired", func(t *testing.T) {
		res, err := env.svc.PollForToken(ctx, "no-such-code")
		require.NoError(t, err)
		require.Equal(t, OutcomeExpired, res.Outcome)

		res, err = env.svc.PollForToken(ctx, "  ")
		require.NoError(t, err)
		require.Equal(t, OutcomeExpired, res.Outcome)
	})

	t.Run("audit trail", func(t *testing.T) {
		stats, err := env.svc.Auditor.Stats(ctx, time.Hour)
		require.NoError(t, err)
		require.Equal(t, int64(1), stats.ByType[domain.AuditDeviceCodeIssued])
		require.Equal(t, int64(1), stats.ByType[domain.AuditDeviceAuthorized])
		require.Equal(t, int64(1), stats.ByType[domain.AuditDeviceAuthorizationFailed])
		require.Equal(t, int64(1), stats.ByType[domain.AuditTokenIssued])
	})
}

func TestAuthorizeFailuresAreGeneric(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	env.createUser(t, "bob")
	carol := env.createUser(t, "carol")
	_, err := env.users.Deactivate(ctx, "", carol.ID)
	require.NoError(t, err)

	d, err := env.svc.IssueDeviceCode(ctx)
	require.NoError(t, err)

	cases := []struct {
		name, code, username, password string
	}{
		{"wrong password", d.UserCode, "bob", "wrong-password"},
		{"unknown user", d.UserCode, "nobody", testPassword},
		{"inactive user", d.UserCode, "carol", testPassword},
		{"unknown code", "ZZZZ-ZZZZ", "bob", testPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := env.svc.Authorize(ctx, tc.code, tc.username, tc.password)
			require.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}

	events, total, err := env.svc.Auditor.List(ctx, domain.AuditFilter{EventType: domain.AuditDeviceAuthorizationFailed})
	require.NoError(t, err)
	require.Equal(t, int64(len(cases)), total)
	for _, e := range events {
		require.Equal(t, domain.AuditStatusFailure, e.Status)
		require.NotContains(t, e.EventData, testPassword)
		require.NotContains(t, e.EventData, "wrong-password")
	}

	res, err := env.svc.PollForToken(ctx, d.DeviceCode)
	require.NoError(t, err)
	require.Equal(t, OutcomePending, res.Outcome)
}

func TestDeviceCodeExpiryBoundary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	env.createUser(t, "dave")

	t.Run("pending code at expiry", func(t *testing.T) {
		d, err := env.svc.IssueDeviceCode(ctx)
		require.NoError(t, err)

		env.clock.Set(d.ExpiresAt.Add(-time.Millisecond))
		res, err := env.svc.PollForToken(ctx, d.DeviceCode)
		require.NoError(t, err)
		require.Equal(t, OutcomePending, res.Outcome)

		env.clock.Set(d.ExpiresAt)
		res, err = env.svc.PollForToken(ctx, d.DeviceCode)
		require.NoError(t, err)
		require.Equal(t, OutcomeExpired, res.Outcome)

		err = env.svc.Authorize(ctx, d.UserCode, "dave", testPassword)
		require.ErrorIs(t, err, ErrInvalidCredentials)

		err = env.svc.Registry.Authorize(ctx, d.UserCode, "someone")
		require.ErrorIs(t, err, ErrExpired)
	})

	t.Run("authorized code at expiry", func(t *testing.T) {
		d, err := env.svc.IssueDeviceCode(ctx)
		require.NoError(t, err)
		require.NoError(t, env.svc.Authorize(ctx, d.UserCode, "dave", testPassword))

		env.clock.Set(d.ExpiresAt)
		res, err := env.svc.PollForToken(ctx, d.DeviceCode)
		require.NoError(t, err)
		require.Equal(t, OutcomeExpired, res.Outcome)
	})
}

func TestConcurrentPollMintsOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.createUser(t, "erin")

	d, err := env.svc.IssueDeviceCode(ctx)
	require.NoError(t, err)
	require.NoError(t, env.svc.Authorize(ctx, d.UserCode, "erin", testPassword))

	outcomes := runConcurrently(t, 8, func() (TokenResult, error) {
		return env.svc.PollForToken(ctx, d.DeviceCode)
	})
	require.Equal(t, 1, outcomes[OutcomeSuccess])
	require.Equal(t, 7, outcomes[OutcomeExpired])

	n, err := env.store.RefreshTokens().CountForUser(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestRefreshRotation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.createUser(t, "frank")
	pair := env.login(t, "frank")

	env.clock.Advance(2 * time.Second)
	res, err := env.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, res.Outcome)
	require.NotEqual(t, pair.RefreshToken, res.Pair.RefreshToken)

	t.Run("old token is single use", func(t *testing.T) {
		again, err := env.svc.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, OutcomeInvalid, again.Outcome)
	})

	t.Run("new token works", func(t *testing.T) {
		next, err := env.svc.Refresh(ctx, res.Pair.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, OutcomeSuccess, next.Outcome)
	})

	t.Run("one live record after rotation", func(t *testing.T) {
		n, err := env.store.RefreshTokens().CountForUser(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, int64(1), n)
	})

	t.Run("access and malformed tokens rejected", func(t *testing.T) {
		bad, err := env.svc.Refresh(ctx, pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, OutcomeInvalid, bad.Outcome)

		bad, err = env.svc.Refresh(ctx, "not-a-token")
		require.NoError(t, err)
		require.Equal(t, OutcomeInvalid, bad.Outcome)
	})

	t.Run("expired refresh token rejected", func(t *testing.T) {
		fresh := env.login(t, "frank")
		env.clock.Advance(721 * time.Hour)
		bad, err := env.svc.Refresh(ctx, fresh.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, OutcomeInvalid, bad.Outcome)
	})
}

func TestConcurrentRefreshSucceedsOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.createUser(t, "grace")
	pair := env.login(t, "grace")

	outcomes := runConcurrently(t, 10, func() (TokenResult, error) {
		return env.svc.Refresh(ctx, pair.RefreshToken)
	})
	require.Equal(t, 1, outcomes[OutcomeSuccess])
	require.Equal(t, 9, outcomes[OutcomeInvalid])

	n, err := env.store.RefreshTokens().CountForUser(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

// Whichever of refresh and revoke lands first, no session survives both.
func TestRevokeDuringRefresh(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.createUser(t, "kate")

	for range 20 {
		pair := env.login(t, "kate")

		var (
			wg        sync.WaitGroup
			refreshed TokenResult
			refErr    error
			revErr    error
		)
		start := make(chan struct{})
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			refreshed, refErr = env.svc.Refresh(ctx, pair.RefreshToken)
		}()
		go func() {
			defer wg.Done()
			<-start
			_, revErr = env.svc.Revoke(ctx, pair.AccessToken)
		}()
		close(start)
		wg.Wait()

		require.NoError(t, refErr)
		require.NoError(t, revErr)
		require.Contains(t, []Outcome{OutcomeSuccess, OutcomeInvalid}, refreshed.Outcome)

		n, err := env.store.RefreshTokens().CountForUser(ctx, u.ID)
		require.NoError(t, err)
		require.Zero(t, n)
	}
}

func TestRefreshAfterDeactivation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.createUser(t, "heidi")
	pair := env.login(t, "heidi")

	// Flip the flag directly so the record survives and the user check is hit.
	require.NoError(t, env.store.Users().SetActive(ctx, u.ID, false))

	res, err := env.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, OutcomeInvalid, res.Outcome)

	n, err := env.store.RefreshTokens().CountForUser(ctx, u.ID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRevoke(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.createUser(t, "ivan")

	t.Run("refresh token twice", func(t *testing.T) {
		pair := env.login(t, "ivan")

		res, err := env.svc.Revoke(ctx, pair.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, jwtx.TokenTypeRefresh, res.TokenType)
		require.Equal(t, int64(1), res.Deleted)

		res, err = env.svc.Revoke(ctx, pair.RefreshToken)
		require.NoError(t, err)
		require.Zero(t, res.Deleted)

		refreshed, err := env.svc.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, OutcomeInvalid, refreshed.Outcome)

		// The access token cannot be recalled.
		_, err = env.codec.Verify(pair.AccessToken)
		require.NoError(t, err)
	})

	t.Run("access token ends every session", func(t *testing.T) {
		first := env.login(t, "ivan")
		second := env.login(t, "ivan")

		res, err := env.svc.Revoke(ctx, first.AccessToken)
		require.NoError(t, err)
		require.Equal(t, jwtx.TokenTypeAccess, res.TokenType)
		require.Equal(t, u.ID, res.Subject)
		require.Equal(t, int64(2), res.Deleted)

		refreshed, err := env.svc.Refresh(ctx, second.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, OutcomeInvalid, refreshed.Outcome)
	})

	t.Run("malformed token", func(t *testing.T) {
		_, err := env.svc.Revoke(ctx, "garbage")
		require.ErrorIs(t, err, ErrInvalidToken)
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}

func TestScopeNarrowing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	env.createUser(t, "judy")

	d, err := env.svc.IssueDeviceCode(ctx, domain.ScopeDocsRead, domain.ScopeAdminWrite)
	require.NoError(t, err)
	require.NoError(t, env.svc.Authorize(ctx, d.UserCode, "judy", testPassword))

	res, err := env.svc.PollForToken(ctx, d.DeviceCode)
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, res.Outcome)
	require.Equal(t, domain.ScopeDocsRead, res.Pair.Scope)
}

func TestGrantedScopes(t *testing.T) {
	t.Parallel()

	held := []string{"a", "b", "c"}
	require.Equal(t, held, grantedScopes(nil, held))
	require.Equal(t, []string{"b"}, grantedScopes([]string{"b", "b", "z"}, held))
	require.Empty(t, grantedScopes([]string{"z"}, held))
}

func runConcurrently(t *testing.T, n int, fn func() (TokenResult, error)) map[Outcome]int {
	t.Helper()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		errs  []error
		count = map[Outcome]int{}
	)
	start := make(chan struct{})
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := fn()
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			count[res.Outcome]++
		}()
	}
	close(start)
	wg.Wait()

	require.Empty(t, errs)
	return count
}
