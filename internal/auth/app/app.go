package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "github.com/aussiebroadwan/searchlab/internal/auth/http"
	"github.com/aussiebroadwan/searchlab/internal/auth/metrics"
	"github.com/aussiebroadwan/searchlab/internal/auth/service"
	"github.com/aussiebroadwan/searchlab/internal/auth/store"
	"github.com/aussiebroadwan/searchlab/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/searchlab/pkg/cryptox"
	"github.com/aussiebroadwan/searchlab/pkg/jwtx"
	"github.com/aussiebroadwan/searchlab/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags "-X ...app.BuildVersion=".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	codec    *jwtx.Codec
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	// Services
	auditor           *service.Auditor
	deviceAuthService *service.DeviceAuthService
	userService       *service.UserService
	bootstrapService  *service.BootstrapService
	sweeper           *service.RetentionSweeper

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing and fail early if it is unusable
	cryptox.SetPepperPath(app.cfg.PepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	if err := app.initCodec(); err != nil {
		return nil, err
	}
	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initMetrics()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start retention sweeper
	app.sweeper.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.sweeper.Stop()
			_ = app.db.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the retention sweeper
	app.sweeper.Stop()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initCodec builds the token codec, generating a throwaway secret in dev.
func (app *Application) initCodec() error {
	secret := app.cfg.JWTSecret
	if secret == "" {
		generated, err := cryptox.RandomToken(cryptox.SigningSecretSize)
		if err != nil {
			return fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		secret = generated
		app.logger.Warn("AUTH_JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}

	codec, err := jwtx.NewCodec([]byte(secret), app.cfg.Issuer, app.cfg.AccessTTL, app.cfg.RefreshTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}
	app.codec = codec
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(app.cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	version, _, err := db.SchemaVersion()
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	app.logger.Info("database migrations applied successfully",
		"path", app.cfg.DatabaseFile,
		"schema_version", version,
	)
	return nil
}

// initMetrics creates the registry served at /metrics
func (app *Application) initMetrics() {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.New(app.registry, metrics.Config{
		Service:     "auth-service",
		Environment: app.cfg.Env,
	})
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.auditor = &service.Auditor{Store: app.db}

	app.deviceAuthService = &service.DeviceAuthService{
		Store: app.db,
		Registry: &service.DeviceRegistry{
			Store:           app.db,
			VerificationURI: app.cfg.VerificationURI(),
			TTL:             app.cfg.DeviceCodeTTL,
			Interval:        app.cfg.DevicePollInterval,
		},
		Credentials: &service.CredentialService{Store: app.db},
		Codec:       app.codec,
		Auditor:     app.auditor,
		Metrics:     app.metrics,
	}

	app.userService = &service.UserService{
		Store:         app.db,
		Auditor:       app.auditor,
		DefaultScopes: app.cfg.DefaultScopes,
	}
	app.bootstrapService = &service.BootstrapService{
		Store:   app.db,
		Token:   app.cfg.BootstrapToken,
		Auditor: app.auditor,
	}

	app.sweeper = service.NewRetentionSweeper(
		app.db,
		app.logger,
		app.metrics,
		app.cfg.Retention,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.codec,
		app.cfg.RateLimits,
		BuildVersion,
		app.db,
		app.metrics,
		app.logger,
	)

	// Wire services to router
	router.DeviceAuthService = app.deviceAuthService
	router.UserService = app.userService
	router.BootstrapService = app.bootstrapService
	router.Auditor = app.auditor
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
