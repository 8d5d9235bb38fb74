package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/searchlab/internal/auth/service"
	"github.com/aussiebroadwan/searchlab/pkg/httpx"
	"github.com/aussiebroadwan/searchlab/pkg/jwtx"
	"github.com/aussiebroadwan/searchlab/pkg/slogx"
)

type Config struct {
	Issuer         string // Optional: issuer claim for tokens (default: searchlab-auth)
	JWTSecret      string // Required outside dev/test: HMAC secret, at least 32 bytes
	BootstrapToken string // Optional: token required to perform bootstrap
	PublicURL      string // Optional: externally visible base URL (default: http://localhost:<PORT>)

	AccessTTL          time.Duration // Access token lifetime (default: 15m)
	RefreshTTL         time.Duration // Refresh token lifetime (default: 720h)
	DeviceCodeTTL      time.Duration // Device code lifetime (default: 10m)
	DevicePollInterval time.Duration // Advertised poll interval (default: 5s)
	DefaultScopes      []string      // Scopes for users created without any (default: docs:search docs:read)

	DatabaseFile        string        // Optional: path to SQLite database file (default: ./auth.db)
	PepperFile          string        // Optional: path to file containing pepper for password hashing (default: ./pepper)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	Retention  service.RetentionConfig
	RateLimits httpx.RateLimitProfiles
}

// LoadConfig reads the configuration from the environment. The given env
// files (default: .env in the working directory) are loaded first; variables
// already set win and missing files are ignored.
func LoadConfig(envFiles ...string) Config {
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	}

	port := getEnvIntOrDefault("PORT", 8080)
	cfg := Config{
		Issuer:         getEnvOrDefault("AUTH_ISSUER", "searchlab-auth"),
		JWTSecret:      os.Getenv("AUTH_JWT_SECRET"),
		BootstrapToken: os.Getenv("BOOTSTRAP_TOKEN"), // Optional: if set, required to perform bootstrap
		PublicURL: getEnvOrDefault(
			"AUTH_PUBLIC_URL",
			fmt.Sprintf("http://localhost:%d", port),
		),

		AccessTTL:          getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:         getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		DeviceCodeTTL:      getEnvDurationOrDefault("AUTH_DEVICE_CODE_TTL", service.DefaultDeviceCodeTTL),
		DevicePollInterval: getEnvDurationOrDefault("AUTH_DEVICE_POLL_INTERVAL", service.DefaultDevicePollInterval),
		DefaultScopes:      strings.Fields(getEnvOrDefault("AUTH_DEFAULT_SCOPES", "docs:search docs:read")),

		DatabaseFile:        getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:          getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"), // Default to ./pepper
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                port,
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		Retention: service.RetentionConfig{
			Interval:       getEnvDurationOrDefault("RETENTION_INTERVAL", service.DefaultRetentionInterval),
			Grace:          getEnvDurationOrDefault("RETENTION_GRACE", service.DefaultRetentionGrace),
			AuditRetention: getEnvDurationOrDefault("AUDIT_RETENTION", service.DefaultAuditRetention),
		},
		RateLimits: httpx.RateLimitProfilesFromEnv(),
	}

	return cfg
}

// AllowsGeneratedSecret reports whether a missing JWT secret may be replaced
// by a random one. Tokens then die with the process.
func (c Config) AllowsGeneratedSecret() bool {
	return c.Env == "dev" || c.Env == "test"
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" && !c.AllowsGeneratedSecret() {
		errs = append(errs, fmt.Errorf("AUTH_JWT_SECRET is required when ENV=%s", c.Env))
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < jwtx.MinSecretLength {
		errs = append(errs, fmt.Errorf("AUTH_JWT_SECRET must be at least %d bytes", jwtx.MinSecretLength))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.RefreshTTL <= c.AccessTTL {
		errs = append(errs, errors.New("AUTH_REFRESH_TTL must be longer than AUTH_ACCESS_TTL"))
	}
	if c.DeviceCodeTTL <= 0 || c.DevicePollInterval <= 0 {
		errs = append(errs, errors.New("device code lifetime and poll interval must be positive"))
	}
	if _, err := slogx.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if !slogx.ValidFormat(c.LogFormat) {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}

	return errors.Join(errs...)
}

// VerificationURI is the page a human visits to approve a device.
func (c Config) VerificationURI() string {
	return strings.TrimRight(c.PublicURL, "/") + "/device"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
