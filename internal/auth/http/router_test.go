package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/searchlab/internal/auth/domain"
	"github.com/aussiebroadwan/searchlab/internal/auth/metrics"
	"github.com/aussiebroadwan/searchlab/internal/auth/service"
	"github.com/aussiebroadwan/searchlab/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/searchlab/pkg/authsdk"
	"github.com/aussiebroadwan/searchlab/pkg/cryptox"
	"github.com/aussiebroadwan/searchlab/pkg/httpx"
	"github.com/aussiebroadwan/searchlab/pkg/jwtx"
)

const (
	testPassword       = "correct horse battery"
	testBootstrapToken = "bootstrap-secret"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "http-pepper")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))
	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// testClock runs on wall time shifted by whatever Advance has added.
type testClock struct {
	mu   sync.Mutex
	skew time.Duration
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.skew)
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skew += d
}

type testServer struct {
	*httptest.Server
	users *service.UserService
	clock *testClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	wide := httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}
	return newTestServerWithLimits(t, httpx.RateLimitProfiles{Strict: wide, Moderate: wide, Lenient: wide, Public: wide})
}

func newTestServerWithLimits(t *testing.T, limits httpx.RateLimitProfiles) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec, err := jwtx.NewCodec([]byte("0123456789abcdef0123456789abcdef"), "test-issuer", 15*time.Minute, 720*time.Hour)
	require.NoError(t, err)
	clock := &testClock{}
	codec.Now = clock.Now

	m := metrics.New(nil, metrics.Config{Service: "auth", Environment: "test"})
	auditor := &service.Auditor{Store: st}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := NewRouter(codec, limits, "test", st, m, logger)
	r.DeviceAuthService = &service.DeviceAuthService{
		Store: st,
		Registry: &service.DeviceRegistry{
			Store:           st,
			VerificationURI: "http://localhost/device",
			Now:             clock.Now,
		},
		Credentials: &service.CredentialService{Store: st},
		Codec:       codec,
		Auditor:     auditor,
		Metrics:     m,
		Now:         clock.Now,
	}
	r.UserService = &service.UserService{
		Store:         st,
		Auditor:       auditor,
		DefaultScopes: []string{domain.ScopeDocsSearch, domain.ScopeDocsRead},
	}
	r.BootstrapService = &service.BootstrapService{Store: st, Token: testBootstrapToken, Auditor: auditor}
	r.Auditor = auditor
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, users: r.UserService, clock: clock}
}

func (s *testServer) createUser(t *testing.T, username string, scopes ...string) domain.User {
	t.Helper()
	u, err := s.users.CreateUser(context.Background(), "", username, testPassword, scopes)
	require.NoError(t, err)
	return u
}

func (s *testServer) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := s.Client().PostForm(s.URL+path, form)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = strings.NewReader(string(b))
	}
	req, err := http.NewRequest(method, s.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func requireOAuthError(t *testing.T, resp *http.Response, status int, code string) {
	t.Helper()
	require.Equal(t, status, resp.StatusCode)
	body := decode[authsdk.ErrorResponse](t, resp)
	require.Equal(t, code, body.Error)
}

func (s *testServer) requestCode(t *testing.T, scope string) authsdk.DeviceCodeResponse {
	t.Helper()
	form := url.Values{}
	if scope != "" {
		form.Set("scope", scope)
	}
	resp := s.postForm(t, "/v1/device/code", form)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[authsdk.DeviceCodeResponse](t, resp)
}

func (s *testServer) approve(t *testing.T, userCode, username, password string) *http.Response {
	t.Helper()
	return s.do(t, http.MethodPost, "/v1/device/authorize", "", authsdk.DeviceAuthorizeRequest{
		UserCode: userCode,
		Username: username,
		Password: password,
	})
}

// login drives the whole device flow over HTTP.
func (s *testServer) login(t *testing.T, username string) authsdk.TokenResponse {
	t.Helper()
	dc := s.requestCode(t, "")
	require.Equal(t, http.StatusOK, s.approve(t, dc.UserCode, username, testPassword).StatusCode)

	resp := s.postForm(t, "/v1/device/token", url.Values{"device_code": {dc.DeviceCode}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[authsdk.TokenResponse](t, resp)
}

func TestDeviceFlowHTTP(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.createUser(t, "alice")

	dc := s.requestCode(t, "")
	require.NotEmpty(t, dc.DeviceCode)
	require.Regexp(t, `^[A-Z0-9]{4}-[A-Z0-9]{4}$`, dc.UserCode)
	require.Equal(t, "http://localhost/device", dc.VerificationURI)
	require.Equal(t, "http://localhost/device?user_code="+dc.UserCode, dc.VerificationURIComplete)
	require.Equal(t, 600, dc.ExpiresIn)
	require.Equal(t, 5, dc.Interval)

	t.Run("pending before approval", func(t *testing.T) {
		resp := s.postForm(t, "/v1/device/token", url.Values{"device_code": {dc.DeviceCode}})
		requireOAuthError(t, resp, http.StatusBadRequest, authsdk.ErrorCodeAuthorizationPending)

		st := decode[authsdk.DeviceStatusResponse](t, s.do(t, http.MethodGet, "/v1/device/status?user_code="+dc.UserCode, "", nil))
		require.Equal(t, authsdk.DeviceStatusPending, st.Status)
	})

	t.Run("approve", func(t *testing.T) {
		resp := s.approve(t, strings.ToLower(dc.UserCode), "alice", testPassword)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = s.approve(t, dc.UserCode, "alice", testPassword)
		requireOAuthError(t, resp, http.StatusConflict, authsdk.ErrorCodeAlreadyAuthorized)
	})

	t.Run("exchange once", func(t *testing.T) {
		resp := s.postForm(t, "/v1/device/token", url.Values{"device_code": {dc.DeviceCode}})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

		tok := decode[authsdk.TokenResponse](t, resp)
		require.NotEmpty(t, tok.AccessToken)
		require.NotEmpty(t, tok.RefreshToken)
		require.Equal(t, "Bearer", tok.TokenType)
		require.Equal(t, 900, tok.ExpiresIn)

		resp = s.postForm(t, "/v1/device/token", url.Values{"device_code": {dc.DeviceCode}})
		requireOAuthError(t, resp, http.StatusBadRequest, authsdk.ErrorCodeExpiredToken)
	})
}

func TestDeviceCodeGrantOnTokenEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.createUser(t, "alice")

	dc := s.requestCode(t, domain.ScopeDocsRead)
	require.Equal(t, http.StatusOK, s.approve(t, dc.UserCode, "alice", testPassword).StatusCode)

	resp := s.postForm(t, "/v1/oauth2/token", url.Values{
		"grant_type":  {authsdk.GrantTypeDeviceCode},
		"device_code": {dc.DeviceCode},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tok := decode[authsdk.TokenResponse](t, resp)
	require.Equal(t, domain.ScopeDocsRead, tok.Scope)
}

func TestDeviceAuthorizeFailuresLookTheSame(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.createUser(t, "alice")
	dc := s.requestCode(t, "")

	cases := []struct {
		name               string
		code, user, passwd string
	}{
		{"wrong password", dc.UserCode, "alice", "not the password"},
		{"unknown user", dc.UserCode, "mallory", testPassword},
		{"unknown code", "ZZZZ-ZZZZ", "alice", testPassword},
	}
	var bodies []authsdk.ErrorResponse
	for _, tc := range cases {
		resp := s.approve(t, tc.code, tc.user, tc.passwd)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, tc.name)
		bodies = append(bodies, decode[authsdk.ErrorResponse](t, resp))
	}
	for _, b := range bodies[1:] {
		require.Equal(t, bodies[0], b)
	}

	t.Run("malformed body", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/v1/device/authorize", "", map[string]string{"user_code": dc.UserCode})
		requireOAuthError(t, resp, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
	})
}

func TestDeviceAuthorizeLimitedPerUsername(t *testing.T) {
	t.Parallel()
	wide := httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}
	strict := httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	s := newTestServerWithLimits(t, httpx.RateLimitProfiles{Strict: strict, Moderate: wide, Lenient: wide, Public: wide})
	s.createUser(t, "alice")

	// A fresh user code per attempt shares the username's budget.
	for range 2 {
		dc := s.requestCode(t, "")
		require.Equal(t, http.StatusUnauthorized, s.approve(t, dc.UserCode, "alice", "wrong-password").StatusCode)
	}
	dc := s.requestCode(t, "")
	resp := s.approve(t, dc.UserCode, "alice", testPassword)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))

	// Another username from the same address has its own budget.
	require.Equal(t, http.StatusUnauthorized, s.approve(t, dc.UserCode, "mallory", testPassword).StatusCode)
}

func TestRefreshAndRevokeHTTP(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.createUser(t, "alice")
	first := s.login(t, "alice")

	refresh := func(token string) *http.Response {
		return s.postForm(t, "/v1/oauth2/token", url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {token},
		})
	}

	resp := refresh(first.RefreshToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decode[authsdk.TokenResponse](t, resp)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The consumed token is dead.
	requireOAuthError(t, refresh(first.RefreshToken), http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)

	// Access tokens are not refresh tokens.
	requireOAuthError(t, refresh(second.AccessToken), http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)

	t.Run("revoke", func(t *testing.T) {
		resp := s.postForm(t, "/v1/oauth2/revoke", url.Values{"token": {second.RefreshToken}})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{}`, string(body))

		// Idempotent.
		resp = s.postForm(t, "/v1/oauth2/revoke", url.Values{"token": {second.RefreshToken}})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		requireOAuthError(t, refresh(second.RefreshToken), http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)
	})

	t.Run("access token outlives revoke", func(t *testing.T) {
		resp := s.postForm(t, "/v1/oauth2/revoke", url.Values{"token": {second.AccessToken}})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		// Stateless until exp.
		require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/v1/userinfo", second.AccessToken, nil).StatusCode)

		s.clock.Advance(16 * time.Minute)
		resp = s.do(t, http.MethodGet, "/v1/userinfo", second.AccessToken, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Contains(t, resp.Header.Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("revoke garbage", func(t *testing.T) {
		resp := s.postForm(t, "/v1/oauth2/revoke", url.Values{"token": {"not-a-jwt"}})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unsupported grant", func(t *testing.T) {
		resp := s.postForm(t, "/v1/oauth2/token", url.Values{"grant_type": {"password"}})
		requireOAuthError(t, resp, http.StatusBadRequest, authsdk.ErrorCodeUnsupportedGrantType)
	})
}

func TestDeviceStatusExpiresIn(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	dc := s.requestCode(t, "")

	status := func() authsdk.DeviceStatusResponse {
		return decode[authsdk.DeviceStatusResponse](t, s.do(t, http.MethodGet, "/v1/device/status?user_code="+dc.UserCode, "", nil))
	}

	st := status()
	require.Equal(t, authsdk.DeviceStatusPending, st.Status)
	require.InDelta(t, dc.ExpiresIn, st.ExpiresIn, 2)

	s.clock.Advance(4 * time.Minute)
	st = status()
	require.Equal(t, authsdk.DeviceStatusPending, st.Status)
	require.InDelta(t, dc.ExpiresIn-240, st.ExpiresIn, 2)

	s.clock.Advance(7 * time.Minute)
	require.Equal(t, authsdk.DeviceStatusNotFound, status().Status)
}

func TestUserInfoHTTP(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	u := s.createUser(t, "alice")
	tok := s.login(t, "alice")

	resp := s.do(t, http.MethodGet, "/v1/userinfo", tok.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	info := decode[authsdk.UserInfoResponse](t, resp)
	require.Equal(t, u.ID, info.UserID)
	require.Equal(t, "alice", info.Username)
	require.ElementsMatch(t, u.Scopes, info.Scopes)

	require.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/v1/userinfo", "", nil).StatusCode)
	require.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/v1/userinfo", tok.RefreshToken, nil).StatusCode)

	s.createUser(t, "bob", domain.ScopeDocsSearch)
	narrow := s.login(t, "bob")
	require.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/v1/userinfo", narrow.AccessToken, nil).StatusCode)
}

func TestBootstrapAndAdminHTTP(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	bootstrap := func(token string, body authsdk.BootstrapRequest) *http.Response {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodPost, s.URL+"/v1/bootstrap", strings.NewReader(string(b)))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("X-Bootstrap-Token", token)
		}
		resp, err := s.Client().Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	require.Equal(t, http.StatusUnauthorized, bootstrap("", authsdk.BootstrapRequest{AdminUsername: "admin"}).StatusCode)
	require.Equal(t, http.StatusUnauthorized, bootstrap("wrong", authsdk.BootstrapRequest{AdminUsername: "admin"}).StatusCode)
	require.Equal(t, http.StatusBadRequest, bootstrap(testBootstrapToken, authsdk.BootstrapRequest{AdminUsername: "a"}).StatusCode)

	resp := bootstrap(testBootstrapToken, authsdk.BootstrapRequest{AdminUsername: "admin", AdminPassword: testPassword})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	boot := decode[authsdk.BootstrapResponse](t, resp)
	require.ElementsMatch(t, domain.AdminScopes, boot.Scopes)
	require.Empty(t, boot.GeneratedPassword)

	require.Equal(t, http.StatusUnauthorized,
		bootstrap(testBootstrapToken, authsdk.BootstrapRequest{AdminUsername: "admin2"}).StatusCode)

	admin := s.login(t, "admin")

	t.Run("create user", func(t *testing.T) {
		req := authsdk.CreateUserRequest{Username: "carol", Password: testPassword}
		resp := s.do(t, http.MethodPost, "/v1/admin/users", admin.AccessToken, req)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		created := decode[authsdk.UserResponse](t, resp)
		require.True(t, created.Active)
		require.ElementsMatch(t, []string{domain.ScopeDocsSearch, domain.ScopeDocsRead}, created.Scopes)

		resp = s.do(t, http.MethodPost, "/v1/admin/users", admin.AccessToken, req)
		requireOAuthError(t, resp, http.StatusConflict, authsdk.ErrorCodeConflict)

		resp = s.do(t, http.MethodPost, "/v1/admin/users", admin.AccessToken, authsdk.CreateUserRequest{Username: "x"})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, authsdk.ErrorCodeValidation, decode[authsdk.ValidationErrorResponse](t, resp).Code)

		carol := s.login(t, "carol")
		resp = s.do(t, http.MethodPost, "/v1/admin/users", carol.AccessToken, req)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)

		// Deactivation kills carol's refresh token.
		resp = s.do(t, http.MethodPost, "/v1/admin/users/"+created.UserID+"/deactivate", admin.AccessToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.EqualValues(t, 1, decode[authsdk.DeactivateUserResponse](t, resp).RevokedTokens)

		resp = s.postForm(t, "/v1/oauth2/token", url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {carol.RefreshToken},
		})
		requireOAuthError(t, resp, http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)

		resp = s.do(t, http.MethodPost, "/v1/admin/users/nope/deactivate", admin.AccessToken, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("audit", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/v1/admin/audit/events?size=2&event_type="+domain.AuditUserCreated, admin.AccessToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		page := decode[authsdk.ListAuditEventsResponse](t, resp)
		require.Equal(t, 1, page.Page)
		require.Equal(t, 2, page.Size)
		require.EqualValues(t, 2, page.Total) // admin and carol
		for _, e := range page.Events {
			require.Equal(t, domain.AuditUserCreated, e.EventType)
		}

		resp = s.do(t, http.MethodGet, "/v1/admin/audit/events?page=0", admin.AccessToken, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		for _, page := range []string{"9223372036854775807", strconv.Itoa(math.MaxInt32/100 + 1)} {
			resp = s.do(t, http.MethodGet, "/v1/admin/audit/events?size=100&page="+page, admin.AccessToken, nil)
			requireOAuthError(t, resp, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
		}

		resp = s.do(t, http.MethodGet, "/v1/admin/audit/events?page="+strconv.Itoa(math.MaxInt32/100), admin.AccessToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = s.do(t, http.MethodGet, "/v1/admin/audit/stats", admin.AccessToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		stats := decode[authsdk.AuditStatsResponse](t, resp)
		require.Positive(t, stats.Total)
		require.EqualValues(t, 2, stats.ByType[domain.AuditUserCreated])
	})
}

func TestHealthAndMetricsHTTP(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", decode[authsdk.HealthResponse](t, resp).Status)

	resp = s.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ready := decode[authsdk.HealthResponse](t, resp)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Signer)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `searchlab_auth_http_requests_total{code="200"`)
}
