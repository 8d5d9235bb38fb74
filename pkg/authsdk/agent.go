package authsdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"
)

const (
	// expiryBuffer refreshes access tokens a little before they expire.
	expiryBuffer = 30 * time.Second

	// maxPollDuration is the hard ceiling on one blocking device flow.
	maxPollDuration = 10 * time.Minute

	defaultPollInterval = 5 * time.Second
	defaultSlowDownStep = 5 * time.Second
)

var (
	// ErrPollTimeout is returned when nobody approved the device request in time.
	ErrPollTimeout = errors.New("authsdk: device authorization timed out")

	// ErrDeviceCodeExpired is returned when the server reports the pending
	// request as expired or already used. The next EnsureToken starts over.
	ErrDeviceCodeExpired = errors.New("authsdk: device code expired")
)

// AuthRequiredError tells the caller a human has to approve this agent.
// Surface Error() to the user as is; it says where to go and what to type.
type AuthRequiredError struct {
	UserCode                string
	VerificationURI         string
	VerificationURIComplete string
	ExpiresIn               time.Duration
}

func (e *AuthRequiredError) Error() string {
	mins := int(math.Ceil(e.ExpiresIn.Minutes()))
	if mins < 1 {
		mins = 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "authorization required: visit %s and enter code %s", e.VerificationURI, e.UserCode)
	if e.VerificationURIComplete != "" {
		fmt.Fprintf(&b, " (or open %s)", e.VerificationURIComplete)
	}
	fmt.Fprintf(&b, "; the code expires in %d minute(s)", mins)
	return b.String()
}

// Agent keeps a valid access token on hand. It loads persisted tokens,
// refreshes them before expiry and falls back to the device flow when no
// usable refresh token exists. It is safe for concurrent use.
type Agent struct {
	client *SDKClient
	store  TokenStore

	// PollInterval overrides the server's poll interval when set.
	PollInterval time.Duration
	// SlowDownStep is added to the interval on slow_down. Defaults to 5s.
	SlowDownStep time.Duration
	// OnPrompt is called with the approval details when a blocking
	// EnsureToken starts waiting for a human.
	OnPrompt func(*AuthRequiredError)
	// Now is the clock; tests replace it.
	Now func() time.Time
	// Logger receives debug output about refreshes and polling. Nil is silent.
	Logger *slog.Logger

	// flow serialises refreshes and device flows. A channel instead of a
	// mutex so waiters can give up when their context ends.
	flow chan struct{}

	mu      sync.RWMutex
	tokens  *StoredTokens
	loaded  bool
	pending *pendingDevice
}

type pendingDevice struct {
	resp      DeviceCodeResponse
	interval  time.Duration
	expiresAt time.Time
}

// NewAgent builds an agent backed by store.
func NewAgent(client *SDKClient, store TokenStore) *Agent {
	return &Agent{
		client:       client,
		store:        store,
		SlowDownStep: defaultSlowDownStep,
		Now:          time.Now,
		flow:         make(chan struct{}, 1),
	}
}

// EnsureToken returns a valid access token.
//
// In non-blocking mode it never waits on a human: if approval is needed it
// returns an *AuthRequiredError right away (re-checking an already pending
// request once). In blocking mode it polls until the request is approved,
// the context ends, or the poll ceiling is hit.
func (a *Agent) EnsureToken(ctx context.Context, nonBlocking bool) (string, error) {
	if tok, ok := a.cachedAccessToken(); ok {
		return tok, nil
	}

	select {
	case a.flow <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-a.flow }()

	// 1. Load persisted tokens on first use.
	if err := a.load(); err != nil {
		return "", err
	}

	// 2. Double-check: another caller may have refreshed while we waited.
	if tok, ok := a.cachedAccessToken(); ok {
		return tok, nil
	}

	// 3. Rotate the refresh token if we have one.
	if refresh := a.refreshToken(); refresh != "" {
		resp, err := a.client.RefreshGrant(ctx, refresh)
		switch {
		case err == nil:
			a.log().Debug("access token refreshed", "expires_in", resp.ExpiresIn)
			return a.accept(resp)
		case HasErrorCode(err, ErrorCodeInvalidGrant):
			// The server says the token is dead. Never keep it around.
			a.log().Debug("refresh token rejected, starting device flow")
			if err := a.discard(); err != nil {
				return "", err
			}
		default:
			return "", fmt.Errorf("failed to refresh token: %w", err)
		}
	}

	// 4. Device flow.
	if nonBlocking {
		return a.checkDevice(ctx)
	}
	return a.waitDevice(ctx)
}

// Logout revokes the refresh token server side and forgets all local token
// material. Local state is cleared even when the revoke call fails.
func (a *Agent) Logout(ctx context.Context) error {
	select {
	case a.flow <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-a.flow }()

	if err := a.load(); err != nil {
		return err
	}

	var revokeErr error
	if refresh := a.refreshToken(); refresh != "" {
		revokeErr = a.client.RevokeToken(ctx, refresh)
	}

	a.mu.Lock()
	a.pending = nil
	a.mu.Unlock()

	return errors.Join(revokeErr, a.discard())
}

// Scope returns the scope string of the current token, if any.
func (a *Agent) Scope() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.tokens == nil {
		return ""
	}
	return a.tokens.Scope
}

func (a *Agent) log() *slog.Logger {
	if a.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.Logger
}

func (a *Agent) cachedAccessToken() (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	t := a.tokens
	if t == nil || t.AccessToken == "" {
		return "", false
	}
	if !a.Now().Before(t.ExpiresAt.Add(-expiryBuffer)) {
		return "", false
	}
	return t.AccessToken, true
}

func (a *Agent) refreshToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.tokens == nil {
		return ""
	}
	return a.tokens.RefreshToken
}

func (a *Agent) load() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.loaded {
		return nil
	}
	t, err := a.store.Load()
	if err != nil {
		return err
	}
	if t != nil && t.Device != nil {
		a.pending = a.restoreDevice(t.Device)
		t.Device = nil
	}
	if t != nil && t.AccessToken == "" && t.RefreshToken == "" {
		t = nil
	}
	a.tokens = t
	a.loaded = true
	return nil
}

// persist writes the current tokens and pending request. An agent holding
// neither clears the store.
func (a *Agent) persist() error {
	a.mu.RLock()
	var t *StoredTokens
	if a.tokens != nil {
		c := *a.tokens
		t = &c
	}
	p := a.pending
	a.mu.RUnlock()

	if p != nil {
		if t == nil {
			t = &StoredTokens{}
		}
		t.Device = &StoredDevice{
			DeviceCode:              p.resp.DeviceCode,
			UserCode:                p.resp.UserCode,
			VerificationURI:         p.resp.VerificationURI,
			VerificationURIComplete: p.resp.VerificationURIComplete,
			Interval:                p.resp.Interval,
			ExpiresAt:               p.expiresAt,
		}
	}
	if t == nil {
		return a.store.Clear()
	}
	return a.store.Save(t)
}

func (a *Agent) restoreDevice(d *StoredDevice) *pendingDevice {
	return &pendingDevice{
		resp: DeviceCodeResponse{
			DeviceCode:              d.DeviceCode,
			UserCode:                d.UserCode,
			VerificationURI:         d.VerificationURI,
			VerificationURIComplete: d.VerificationURIComplete,
			Interval:                d.Interval,
		},
		interval:  a.pollInterval(d.Interval),
		expiresAt: d.ExpiresAt,
	}
}

func (a *Agent) pollInterval(serverSeconds int) time.Duration {
	if a.PollInterval > 0 {
		return a.PollInterval
	}
	if serverSeconds <= 0 {
		return defaultPollInterval
	}
	return time.Duration(serverSeconds) * time.Second
}

// accept stores a fresh token pair in memory and on disk.
func (a *Agent) accept(resp *TokenResponse) (string, error) {
	t := &StoredTokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Scope:        resp.Scope,
		ExpiresAt:    a.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}

	a.mu.Lock()
	a.tokens = t
	a.pending = nil
	a.mu.Unlock()

	if err := a.persist(); err != nil {
		return "", fmt.Errorf("failed to persist tokens: %w", err)
	}
	return t.AccessToken, nil
}

func (a *Agent) discard() error {
	a.mu.Lock()
	a.tokens = nil
	a.mu.Unlock()

	return a.persist()
}

// currentDevice returns the outstanding request, starting a new one when
// none is pending or the old one expired.
func (a *Agent) currentDevice(ctx context.Context) (*pendingDevice, bool, error) {
	a.mu.RLock()
	p := a.pending
	a.mu.RUnlock()

	if p != nil && a.Now().Before(p.expiresAt) {
		return p, false, nil
	}

	resp, err := a.client.RequestDeviceCode(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to request device code: %w", err)
	}

	a.log().Debug("device code issued",
		"user_code", resp.UserCode,
		"interval", resp.Interval,
		"expires_in", resp.ExpiresIn,
	)
	p = &pendingDevice{
		resp:      *resp,
		interval:  a.pollInterval(resp.Interval),
		expiresAt: a.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}

	a.mu.Lock()
	a.pending = p
	a.mu.Unlock()

	// Persist so the next process resumes this request instead of
	// showing the human a second code.
	if err := a.persist(); err != nil {
		return nil, false, fmt.Errorf("failed to persist device request: %w", err)
	}
	return p, true, nil
}

func (a *Agent) forgetDevice(p *pendingDevice) error {
	a.mu.Lock()
	if a.pending != p {
		a.mu.Unlock()
		return nil
	}
	a.pending = nil
	a.mu.Unlock()

	return a.persist()
}

func (a *Agent) authRequired(p *pendingDevice) *AuthRequiredError {
	return &AuthRequiredError{
		UserCode:                p.resp.UserCode,
		VerificationURI:         p.resp.VerificationURI,
		VerificationURIComplete: p.resp.VerificationURIComplete,
		ExpiresIn:               max(p.expiresAt.Sub(a.Now()), 0),
	}
}

// checkDevice is the non-blocking path.
func (a *Agent) checkDevice(ctx context.Context) (string, error) {
	p, fresh, err := a.currentDevice(ctx)
	if err != nil {
		return "", err
	}
	if fresh {
		return "", a.authRequired(p)
	}

	// Re-poll the request the human may have approved in the meantime.
	resp, err := a.client.PollDeviceToken(ctx, p.resp.DeviceCode)
	switch {
	case err == nil:
		return a.accept(resp)
	case HasErrorCode(err, ErrorCodeAuthorizationPending), HasErrorCode(err, ErrorCodeSlowDown):
		return "", a.authRequired(p)
	case HasErrorCode(err, ErrorCodeExpiredToken):
		if err := a.forgetDevice(p); err != nil {
			return "", err
		}
		p, _, err = a.currentDevice(ctx)
		if err != nil {
			return "", err
		}
		return "", a.authRequired(p)
	default:
		return "", fmt.Errorf("failed to poll device token: %w", err)
	}
}

// waitDevice is the blocking path.
func (a *Agent) waitDevice(ctx context.Context) (string, error) {
	p, _, err := a.currentDevice(ctx)
	if err != nil {
		return "", err
	}
	if a.OnPrompt != nil {
		a.OnPrompt(a.authRequired(p))
	}

	deadline := p.expiresAt
	if ceiling := a.Now().Add(maxPollDuration); ceiling.Before(deadline) {
		deadline = ceiling
	}
	interval := p.interval

	for {
		remaining := deadline.Sub(a.Now())
		if remaining <= 0 {
			return "", errors.Join(ErrPollTimeout, a.forgetDevice(p))
		}

		timer := time.NewTimer(min(interval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}

		resp, err := a.client.PollDeviceToken(ctx, p.resp.DeviceCode)
		switch {
		case err == nil:
			return a.accept(resp)
		case HasErrorCode(err, ErrorCodeAuthorizationPending):
			a.log().Debug("authorization pending", "next_poll", interval)
		case HasErrorCode(err, ErrorCodeSlowDown):
			interval += a.SlowDownStep
			a.log().Debug("server asked to slow down", "next_poll", interval)
		case HasErrorCode(err, ErrorCodeExpiredToken):
			return "", errors.Join(ErrDeviceCodeExpired, a.forgetDevice(p))
		default:
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("failed to poll device token: %w", err)
		}
	}
}
