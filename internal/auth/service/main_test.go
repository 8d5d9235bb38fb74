package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/searchlab/internal/auth/domain"
	"github.com/aussiebroadwan/searchlab/internal/auth/metrics"
	"github.com/aussiebroadwan/searchlab/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/searchlab/pkg/cryptox"
	"github.com/aussiebroadwan/searchlab/pkg/jwtx"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "service-pepper")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))
	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(time.Now().UnixMilli()).UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	store *sqlite.Store
	clock *fakeClock
	codec *jwtx.Codec
	svc   *DeviceAuthService
	users *UserService
}

const testPassword = "correct horse battery"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clock := newFakeClock()
	codec, err := jwtx.NewCodec([]byte("0123456789abcdef0123456789abcdef"), "test-issuer", 15*time.Minute, 720*time.Hour)
	require.NoError(t, err)
	codec.Now = clock.Now

	auditor := &Auditor{Store: st, Now: clock.Now}
	svc := &DeviceAuthService{
		Store: st,
		Registry: &DeviceRegistry{
			Store:           st,
			VerificationURI: "http://localhost:8080/device",
			TTL:             10 * time.Minute,
			Interval:        5 * time.Second,
			Now:             clock.Now,
		},
		Credentials: &CredentialService{Store: st},
		Codec:       codec,
		Auditor:     auditor,
		Metrics:     metrics.New(nil, metrics.Config{Environment: "test"}),
		Now:         clock.Now,
	}
	users := &UserService{
		Store:         st,
		Auditor:       auditor,
		DefaultScopes: []string{domain.ScopeDocsSearch, domain.ScopeDocsRead},
	}
	return &testEnv{store: st, clock: clock, codec: codec, svc: svc, users: users}
}

func (e *testEnv) createUser(t *testing.T, username string, scopes ...string) domain.User {
	t.Helper()
	u, err := e.users.CreateUser(context.Background(), "", username, testPassword, scopes)
	require.NoError(t, err)
	return u
}

// login drives a full device flow for username and returns the pair.
func (e *testEnv) login(t *testing.T, username string) *domain.TokenPair {
	t.Helper()
	ctx := context.Background()

	d, err := e.svc.IssueDeviceCode(ctx)
	require.NoError(t, err)
	require.NoError(t, e.svc.Authorize(ctx, d.UserCode, username, testPassword))

	res, err := e.svc.PollForToken(ctx, d.DeviceCode)
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, res.Outcome)
	return res.Pair
}
