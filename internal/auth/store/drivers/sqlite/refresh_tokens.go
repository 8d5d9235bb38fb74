package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/searchlab/internal/auth/domain"
)

type refreshTokensRepo struct {
	q querier
}

const refreshTokenColumns = `id, token_hash, user_id, device_code, expires_at, created_at, last_used_at`

func scanRefreshToken(row rowScanner) (domain.RefreshToken, error) {
	var (
		t          domain.RefreshToken
		deviceCode sql.NullString
		expiresAt  int64
		createdAt  int64
		lastUsedAt sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.TokenHash, &t.UserID, &deviceCode, &expiresAt, &createdAt, &lastUsedAt); err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.DeviceCode = mapNullString(deviceCode)
	t.ExpiresAt = fromMillis(expiresAt)
	t.CreatedAt = fromMillis(createdAt)
	t.LastUsedAt = mapNullMillisPtr(lastUsedAt)
	return t, nil
}

func (r *refreshTokensRepo) Create(ctx context.Context, t domain.RefreshToken) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO refresh_tokens (`+refreshTokenColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TokenHash, t.UserID, mapStringNull(t.DeviceCode),
		toMillis(t.ExpiresAt), toMillis(t.CreatedAt), mapOptionalMillis(t.LastUsedAt),
	)
	return mapConflict(err)
}

func (r *refreshTokensRepo) GetByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	return scanRefreshToken(r.q.QueryRowContext(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token_hash = ?`, hash))
}

func (r *refreshTokensRepo) ConsumeByHash(ctx context.Context, hash string) (int64, error) {
	return rowsAffected(r.q.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE token_hash = ?`, hash))
}

func (r *refreshTokensRepo) DeleteByHash(ctx context.Context, hash string) (int64, error) {
	return rowsAffected(r.q.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE token_hash = ?`, hash))
}

func (r *refreshTokensRepo) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	return rowsAffected(r.q.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE user_id = ?`, userID))
}

func (r *refreshTokensRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return rowsAffected(r.q.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < ?`, toMillis(cutoff)))
}

func (r *refreshTokensRepo) CountForUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM refresh_tokens WHERE user_id = ? AND expires_at > ?`,
		userID, toMillis(time.Now())).Scan(&n)
	return n, err
}
