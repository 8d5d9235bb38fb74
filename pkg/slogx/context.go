package slogx

import (
	"context"
	"log/slog"
)

type (
	ctxKey       struct{}
	requestIDKey struct{}
)

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithRequestID records the request id on the context and tags the contextual
// logger with it.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey{}, reqID)
	return WithContext(ctx, FromContext(ctx).With("req_id", reqID))
}

// RequestID returns the request id set by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Redact shortens a secret-derived value (token fingerprint, device code) to
// a prefix that is still useful for correlating log lines.
func Redact(v string) string {
	const keep = 8
	if len(v) <= keep {
		return v
	}
	return v[:keep] + "…"
}
