package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/searchlab/internal/auth/metrics"
	"github.com/aussiebroadwan/searchlab/internal/auth/store"
)

const (
	DefaultRetentionInterval = 24 * time.Hour
	DefaultRetentionGrace    = 24 * time.Hour
	DefaultAuditRetention    = 90 * 24 * time.Hour
)

// RetentionConfig tunes the sweeper. Zero values take the defaults.
type RetentionConfig struct {
	Interval       time.Duration
	Grace          time.Duration // refresh tokens are kept this long past expiry
	AuditRetention time.Duration
}

// SweepReport counts what one run removed. A step that failed has its error
// recorded and a zero count.
type SweepReport struct {
	RefreshTokens int64
	DeviceCodes   int64
	AuditEvents   int64
	Errors        []error
}

// RetentionSweeper periodically deletes expired refresh tokens, expired device
// codes and old audit events to keep the tables bounded.
type RetentionSweeper struct {
	Store   store.Store
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Config  RetentionConfig
	Now     func() time.Time

	// Internal channels for lifecycle management
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewRetentionSweeper creates a sweeper; missing config values are defaulted.
func NewRetentionSweeper(st store.Store, logger *slog.Logger, m *metrics.Metrics, cfg RetentionConfig) *RetentionSweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRetentionInterval
	}
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultRetentionGrace
	}
	if cfg.AuditRetention <= 0 {
		cfg.AuditRetention = DefaultAuditRetention
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RetentionSweeper{
		Store:   st,
		Logger:  logger,
		Metrics: m,
		Config:  cfg,
		Now:     time.Now,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins the background worker. It runs one sweep immediately and then
// one per interval. Call Stop() to shut it down.
func (s *RetentionSweeper) Start() {
	go s.run()
	s.Logger.Info("retention sweeper started",
		slog.Duration("interval", s.Config.Interval),
		slog.Duration("grace", s.Config.Grace),
	)
}

// Stop shuts the worker down and waits for an in-progress sweep to finish.
// Safe to call more than once.
func (s *RetentionSweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh
		s.Logger.Info("retention sweeper stopped")
	})
}

func (s *RetentionSweeper) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Config.Interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs a single sweep. Each deletion is independent; a failure or
// panic in one does not stop the others or later runs.
func (s *RetentionSweeper) RunOnce(ctx context.Context) SweepReport {
	start := time.Now()
	now := s.Now()
	var report SweepReport

	report.RefreshTokens = s.step(ctx, "refresh_tokens", &report, func() (int64, error) {
		return s.Store.RefreshTokens().DeleteExpiredBefore(ctx, now.Add(-s.Config.Grace))
	})
	report.DeviceCodes = s.step(ctx, "device_codes", &report, func() (int64, error) {
		return s.Store.DeviceCodes().DeleteExpiredBefore(ctx, now)
	})
	report.AuditEvents = s.step(ctx, "audit_events", &report, func() (int64, error) {
		return s.Store.AuditEvents().DeleteBefore(ctx, now.Add(-s.Config.AuditRetention))
	})

	s.Metrics.SweepDuration(time.Since(start))
	s.Logger.Info("retention sweep completed",
		slog.Int64("refresh_tokens", report.RefreshTokens),
		slog.Int64("device_codes", report.DeviceCodes),
		slog.Int64("audit_events", report.AuditEvents),
		slog.Int("failures", len(report.Errors)),
	)
	return report
}

func (s *RetentionSweeper) step(
	ctx context.Context,
	table string,
	report *SweepReport,
	fn func() (int64, error),
) (n int64) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("sweep %s: panic: %v", table, r)
			s.Logger.Error("retention step panicked", slog.String("table", table), slog.Any("panic", r))
			s.Metrics.SweepStep(table, 0, err)
			report.Errors = append(report.Errors, err)
			n = 0
		}
	}()

	n, err := fn()
	s.Metrics.SweepStep(table, n, err)
	if err != nil {
		s.Logger.ErrorContext(ctx, "retention step failed", slog.String("table", table), slog.Any("error", err))
		report.Errors = append(report.Errors, fmt.Errorf("sweep %s: %w", table, err))
		return 0
	}
	return n
}
