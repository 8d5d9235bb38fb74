package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/searchlab/pkg/jwtx"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"AUTH_JWT_SECRET", "AUTH_PUBLIC_URL", "AUTH_DEFAULT_SCOPES", "ENV"} {
		t.Setenv(k, "")
	}
	t.Setenv("PORT", "9090")

	cfg := LoadConfig()
	require.Equal(t, "searchlab-auth", cfg.Issuer)
	require.Equal(t, "http://localhost:9090", cfg.PublicURL)
	require.Equal(t, "http://localhost:9090/device", cfg.VerificationURI())
	require.Equal(t, 15*time.Minute, cfg.AccessTTL)
	require.Equal(t, jwtx.DefaultRefreshTokenTTL, cfg.RefreshTTL)
	require.Equal(t, 10*time.Minute, cfg.DeviceCodeTTL)
	require.Equal(t, 5*time.Second, cfg.DevicePollInterval)
	require.Equal(t, []string{"docs:search", "docs:read"}, cfg.DefaultScopes)
	require.Equal(t, 24*time.Hour, cfg.Retention.Interval)
	require.Equal(t, 90*24*time.Hour, cfg.Retention.AuditRetention)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("AUTH_PUBLIC_URL", "https://auth.example.com/")
	t.Setenv("AUTH_DEVICE_CODE_TTL", "2m")
	t.Setenv("AUTH_DEVICE_POLL_INTERVAL", "1")
	t.Setenv("RETENTION_GRACE", "bogus")
	t.Setenv("RATELIMIT_STRICT_REQUESTS", "7")

	cfg := LoadConfig()
	require.Equal(t, "https://auth.example.com/device", cfg.VerificationURI())
	require.Equal(t, 2*time.Minute, cfg.DeviceCodeTTL)
	require.Equal(t, time.Minute, cfg.DevicePollInterval) // bare integers are minutes
	require.Equal(t, 24*time.Hour, cfg.Retention.Grace)
	require.Equal(t, 7, cfg.RateLimits.Strict.RequestsPerWindow)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := Config{
		Env:                "prod",
		JWTSecret:          "0123456789abcdef0123456789abcdef",
		AccessTTL:          15 * time.Minute,
		RefreshTTL:         720 * time.Hour,
		DeviceCodeTTL:      10 * time.Minute,
		DevicePollInterval: 5 * time.Second,
		Port:               8080,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing secret in prod", func(c *Config) { c.JWTSecret = "" }, "AUTH_JWT_SECRET is required"},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "at least 32 bytes"},
		{"refresh shorter than access", func(c *Config) { c.RefreshTTL = time.Minute }, "longer than AUTH_ACCESS_TTL"},
		{"zero poll interval", func(c *Config) { c.DevicePollInterval = 0 }, "poll interval"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "PORT out of range"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			tc.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tc.want)
		})
	}

	t.Run("dev may omit the secret", func(t *testing.T) {
		t.Parallel()
		cfg := valid
		cfg.Env = "dev"
		cfg.JWTSecret = ""
		require.NoError(t, cfg.Validate())
	})
}

func TestLoadConfigEnvFile(t *testing.T) {
	// Registers a restore, then leaves the variable unset for godotenv.
	t.Setenv("AUTH_ISSUER", "")
	require.NoError(t, os.Unsetenv("AUTH_ISSUER"))
	t.Setenv("AUTH_ACCESS_TTL", "5m")

	path := filepath.Join(t.TempDir(), "auth.env")
	require.NoError(t, os.WriteFile(path, []byte("AUTH_ISSUER=from-file\nAUTH_ACCESS_TTL=1m\n"), 0o600))

	cfg := LoadConfig(filepath.Join(t.TempDir(), "missing.env"), path)
	require.Equal(t, "from-file", cfg.Issuer)
	require.Equal(t, 5*time.Minute, cfg.AccessTTL, "process environment wins over the file")
}
