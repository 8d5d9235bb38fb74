package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aussiebroadwan/searchlab/internal/auth/domain"
)

type auditEventsRepo struct {
	q querier
}

const auditEventColumns = `id, user_id, event_type, action, event_data, status, error_message,
	duration_ms, request_id, ip_address, created_at`

func scanAuditEvent(row rowScanner) (domain.AuditEvent, error) {
	var (
		e         domain.AuditEvent
		userID    sql.NullString
		errMsg    sql.NullString
		requestID sql.NullString
		ip        sql.NullString
		createdAt int64
	)
	err := row.Scan(&e.ID, &userID, &e.EventType, &e.Action, &e.EventData, &e.Status, &errMsg,
		&e.DurationMS, &requestID, &ip, &createdAt)
	if err != nil {
		return domain.AuditEvent{}, mapNotFound(err)
	}
	e.UserID = mapNullString(userID)
	e.ErrorMessage = mapNullString(errMsg)
	e.RequestID = mapNullString(requestID)
	e.IPAddress = mapNullString(ip)
	e.CreatedAt = fromMillis(createdAt)
	return e, nil
}

func (r *auditEventsRepo) Create(ctx context.Context, e domain.AuditEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.EventData == "" {
		e.EventData = "{}"
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO audit_events (`+auditEventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, mapStringNull(e.UserID), e.EventType, e.Action, e.EventData, e.Status,
		mapStringNull(e.ErrorMessage), e.DurationMS, mapStringNull(e.RequestID),
		mapStringNull(e.IPAddress), toMillis(e.CreatedAt),
	)
	return mapConflict(err)
}

// auditWhere renders the filter as a WHERE clause. Zero fields are skipped.
func auditWhere(f domain.AuditFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.EventType != "" {
		conds = append(conds, "event_type = ?")
		args = append(args, f.EventType)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if !f.Since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, toMillis(f.Since))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *auditEventsRepo) List(ctx context.Context, f domain.AuditFilter) ([]domain.AuditEvent, int64, error) {
	where, args := auditWhere(f)

	var total int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_events`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(f.Offset, 0)

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+auditEventColumns+` FROM audit_events`+where+
			` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := make([]domain.AuditEvent, 0, limit)
	for rows.Next() {
		e, err := scanAuditEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}

func (r *auditEventsRepo) Stats(ctx context.Context, since time.Time) (domain.AuditStats, error) {
	stats := domain.AuditStats{
		Since:    since,
		ByType:   map[string]int64{},
		ByStatus: map[string]int64{},
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT event_type, status, COUNT(*) FROM audit_events
		  WHERE created_at >= ?
		  GROUP BY event_type, status`,
		toMillis(since))
	if err != nil {
		return domain.AuditStats{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			eventType, status string
			n                 int64
		)
		if err := rows.Scan(&eventType, &status, &n); err != nil {
			return domain.AuditStats{}, err
		}
		stats.ByType[eventType] += n
		stats.ByStatus[status] += n
		stats.Total += n
	}
	return stats, rows.Err()
}

func (r *auditEventsRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return rowsAffected(r.q.ExecContext(ctx,
		`DELETE FROM audit_events WHERE created_at < ?`, toMillis(cutoff)))
}
