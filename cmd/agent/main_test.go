package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	httpapi "github.com/aussiebroadwan/searchlab/internal/auth/http"
	"github.com/aussiebroadwan/searchlab/internal/auth/metrics"
	"github.com/aussiebroadwan/searchlab/internal/auth/service"
	"github.com/aussiebroadwan/searchlab/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/searchlab/pkg/authsdk"
	"github.com/aussiebroadwan/searchlab/pkg/cryptox"
	"github.com/aussiebroadwan/searchlab/pkg/httpx"
	"github.com/aussiebroadwan/searchlab/pkg/jwtx"
)

const testPassword = "correct horse battery"

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "agent-pepper")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))
	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// newAuthServer runs the real router on a temp database with one user.
func newAuthServer(t *testing.T) string {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec, err := jwtx.NewCodec([]byte("0123456789abcdef0123456789abcdef"), "test-issuer", 15*time.Minute, 720*time.Hour)
	require.NoError(t, err)

	m := metrics.New(nil, metrics.Config{Environment: "test"})
	auditor := &service.Auditor{Store: st}
	r := httpapi.NewRouter(codec, httpx.DefaultRateLimitProfiles(), "test", st, m,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.DeviceAuthService = &service.DeviceAuthService{
		Store:       st,
		Registry:    &service.DeviceRegistry{Store: st, VerificationURI: "http://auth.test/device"},
		Credentials: &service.CredentialService{Store: st},
		Codec:       codec,
		Auditor:     auditor,
		Metrics:     m,
	}
	r.UserService = &service.UserService{Store: st, Auditor: auditor, DefaultScopes: []string{"docs:search", "docs:read"}}
	r.BootstrapService = &service.BootstrapService{Store: st, Auditor: auditor}
	r.Auditor = auditor
	r.ApplyRoutes()

	_, err = r.UserService.CreateUser(context.Background(), "", "alice", testPassword, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv.URL
}

type result struct {
	stdout, stderr string
	err            error
}

func runAgent(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func exitCode(err error) int {
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	if err != nil {
		return 1
	}
	return 0
}

func TestUsage(t *testing.T) {
	t.Parallel()

	res := runAgent(t, "")
	require.Equal(t, 2, exitCode(res.err))
	require.Contains(t, res.stderr, "usage: agent")

	res = runAgent(t, "", "frobnicate")
	require.Equal(t, 2, exitCode(res.err))
	require.ErrorContains(t, res.err, `unknown command "frobnicate"`)

	res = runAgent(t, "", "approve", "--code", "ABCD-EFGH")
	require.Equal(t, 2, exitCode(res.err))

	res = runAgent(t, "", "token", "extra")
	require.Equal(t, 2, exitCode(res.err))
}

func TestDeviceLoginThroughCLI(t *testing.T) {
	t.Parallel()
	url := newAuthServer(t)
	conn := []string{"--auth-url", url, "--token-file", filepath.Join(t.TempDir(), "tokens.json")}

	// 1. No tokens yet: the agent asks for approval and exits.
	res := runAgent(t, "", append([]string{"token", "--non-blocking", "-v"}, conn...)...)
	require.Equal(t, exitAuthRequired, exitCode(res.err))
	require.Contains(t, res.stderr, "device code issued")
	var authErr *authsdk.AuthRequiredError
	require.ErrorAs(t, res.err, &authErr)
	require.Contains(t, authErr.Error(), "http://auth.test/device")

	// 2. Asking again shows the same code.
	res = runAgent(t, "", append([]string{"token", "--non-blocking", "-v"}, conn...)...)
	var again *authsdk.AuthRequiredError
	require.ErrorAs(t, res.err, &again)
	require.Equal(t, authErr.UserCode, again.UserCode)
	require.NotContains(t, res.stderr, "device code issued", "pending request is resumed, not reissued")

	// 3. Wrong password is refused.
	res = runAgent(t, "wrong password\n", "approve", "--auth-url", url,
		"--code", authErr.UserCode, "--user", "alice", "--password-file", "-")
	require.ErrorContains(t, res.err, "invalid code or credentials")

	// 4. The human approves.
	res = runAgent(t, testPassword+"\n", "approve", "--auth-url", url,
		"--code", strings.ToLower(authErr.UserCode), "--user", "alice", "--password-file", "-")
	require.NoError(t, res.err)
	require.Contains(t, res.stderr, "device approved")

	// 5. Now a token comes out.
	res = runAgent(t, "", append([]string{"token", "--non-blocking"}, conn...)...)
	require.NoError(t, res.err)
	token := strings.TrimSpace(res.stdout)
	require.Len(t, strings.Split(token, "."), 3)

	res = runAgent(t, "", append([]string{"whoami"}, conn...)...)
	require.NoError(t, res.err)
	require.Contains(t, res.stdout, "alice")
	require.Contains(t, res.stdout, "docs:read")

	// 6. Logout forgets everything; the next call needs approval again.
	res = runAgent(t, "", append([]string{"logout"}, conn...)...)
	require.NoError(t, res.err)

	res = runAgent(t, "", append([]string{"token", "--non-blocking"}, conn...)...)
	require.Equal(t, exitAuthRequired, exitCode(res.err))
}

func TestReadFirstLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"secret\n", "secret", false},
		{"secret\r\nignored\n", "secret", false},
		{"no newline", "no newline", false},
		{"\n", "", true},
		{"", "", true},
	}
	for _, tc := range tests {
		got, err := readFirstLine(strings.NewReader(tc.in))
		if tc.wantErr {
			require.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}
}
