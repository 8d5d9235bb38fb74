package slogx

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Service string
	Version string
	Env     string // e.g. "dev", "prod"
	Level   string // e.g. "debug", "info", "warn", "error"
	Format  string // e.g. "json", "text"

	// Output defaults to stdout. The agent CLI logs to stderr so stdout
	// stays clean for the printed token.
	Output io.Writer
}

// New returns a configured slog.Logger instance and makes it the default.
func New(cfg Config) *slog.Logger {
	logger := NewLogger(cfg)
	slog.SetDefault(logger)
	return logger
}

// NewLogger is New without touching slog.Default.
func NewLogger(cfg Config) *slog.Logger {
	logger := slog.New(newHandler(cfg))

	attrs := []any{"service", cfg.Service}
	if cfg.Version != "" {
		attrs = append(attrs, "version", cfg.Version)
	}
	if cfg.Env != "" {
		attrs = append(attrs, "env", cfg.Env)
	}
	return logger.With(attrs...)
}

func newHandler(cfg Config) slog.Handler {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{
		AddSource: cfg.Env == "dev", // Add source info in dev mode
		Level:     level,
	}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(out, opts)
	}
	return slog.NewJSONHandler(out, opts)
}

// ParseLevel maps LOG_LEVEL style strings to a slog.Level. The empty string
// is info.
func ParseLevel(lvl string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", lvl)
	}
}

// ValidFormat reports whether f is a LOG_FORMAT New understands.
func ValidFormat(f string) bool {
	switch strings.ToLower(f) {
	case "", "json", "text":
		return true
	}
	return false
}
