package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/netip"
	"time"

	"github.com/aussiebroadwan/searchlab/internal/auth/domain"
	"github.com/aussiebroadwan/searchlab/internal/auth/store"
	"github.com/aussiebroadwan/searchlab/pkg/idx"
	"github.com/aussiebroadwan/searchlab/pkg/slogx"
)

type clientIPKey struct{}

// WithClientIP records the caller's address for audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func clientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// MaskIP zeroes the host part of an address: the last octet of IPv4, and
// everything past the /48 prefix of IPv6. Unparseable input yields "".
func MaskIP(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ""
	}
	addr = addr.Unmap()
	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return ""
	}
	return prefix.Addr().String()
}

// AuditRecord is one state transition to persist.
type AuditRecord struct {
	UserID    string
	EventType string
	Action    string
	Data      map[string]any
	Err       error     // non-nil marks the event as a failure
	Started   time.Time // zero means no duration
}

// Auditor persists audit events. Failures to write are logged and never
// returned, so auditing cannot break the flow being audited. A nil Auditor
// discards everything.
type Auditor struct {
	Store store.Store
	Now   func() time.Time
}

func (a *Auditor) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Auditor) Record(ctx context.Context, rec AuditRecord) {
	if a == nil || a.Store == nil {
		return
	}
	l := slogx.FromContext(ctx)
	now := a.now()

	data := "{}"
	if len(rec.Data) > 0 {
		b, err := json.Marshal(rec.Data)
		if err != nil {
			l.Warn("audit data not serialisable", slog.String("event_type", rec.EventType), slog.Any("error", err))
		} else {
			data = string(b)
		}
	}

	e := domain.AuditEvent{
		ID:        idx.NewAt(now).String(),
		UserID:    rec.UserID,
		EventType: rec.EventType,
		Action:    rec.Action,
		EventData: data,
		Status:    domain.AuditStatusSuccess,
		RequestID: slogx.RequestID(ctx),
		IPAddress: MaskIP(clientIPFromContext(ctx)),
		CreatedAt: now,
	}
	if rec.Err != nil {
		e.Status = domain.AuditStatusFailure
		e.ErrorMessage = rec.Err.Error()
	}
	if !rec.Started.IsZero() {
		e.DurationMS = now.Sub(rec.Started).Milliseconds()
	}

	// Detached from cancellation so a client hanging up mid-request does
	// not lose the event.
	if err := a.Store.AuditEvents().Create(context.WithoutCancel(ctx), e); err != nil {
		l.Error("failed to write audit event",
			slog.String("event_type", rec.EventType),
			slog.Any("error", err),
		)
	}
}

// List pages through events matching f, newest first.
func (a *Auditor) List(ctx context.Context, f domain.AuditFilter) ([]domain.AuditEvent, int64, error) {
	return a.Store.AuditEvents().List(ctx, f)
}

// Stats summarises events recorded in the window ending now.
func (a *Auditor) Stats(ctx context.Context, window time.Duration) (domain.AuditStats, error) {
	return a.Store.AuditEvents().Stats(ctx, a.now().Add(-window))
}
