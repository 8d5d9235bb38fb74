package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/searchlab/internal/auth/domain"
)

type deviceCodesRepo struct {
	q querier
}

const deviceCodeColumns = `device_code, user_code, verification_uri, interval_seconds, scopes,
	authorized_user_id, authorized_at, created_at, expires_at`

func scanDeviceCode(row rowScanner) (domain.DeviceAuthorization, error) {
	var (
		d            domain.DeviceAuthorization
		interval     int64
		scopes       string
		authorizedBy sql.NullString
		authorizedAt sql.NullInt64
		createdAt    int64
		expiresAt    int64
	)
	err := row.Scan(&d.DeviceCode, &d.UserCode, &d.VerificationURI, &interval, &scopes,
		&authorizedBy, &authorizedAt, &createdAt, &expiresAt)
	if err != nil {
		return domain.DeviceAuthorization{}, mapNotFound(err)
	}
	d.Interval = time.Duration(interval) * time.Second
	d.Scopes = splitAndFilter(scopes)
	d.AuthorizedUserID = mapNullString(authorizedBy)
	d.AuthorizedAt = mapNullMillisPtr(authorizedAt)
	d.CreatedAt = fromMillis(createdAt)
	d.ExpiresAt = fromMillis(expiresAt)
	return d, nil
}

func (r *deviceCodesRepo) Create(ctx context.Context, d domain.DeviceAuthorization) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO device_codes (`+deviceCodeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.DeviceCode, d.UserCode, d.VerificationURI, int64(d.Interval/time.Second), joinScopes(d.Scopes),
		mapStringNull(d.AuthorizedUserID), mapOptionalMillis(d.AuthorizedAt),
		toMillis(d.CreatedAt), toMillis(d.ExpiresAt),
	)
	return mapConflict(err)
}

func (r *deviceCodesRepo) GetByUserCode(
	ctx context.Context,
	userCode string,
	now time.Time,
) (domain.DeviceAuthorization, error) {
	return scanDeviceCode(r.q.QueryRowContext(ctx,
		`SELECT `+deviceCodeColumns+` FROM device_codes WHERE user_code = ? AND expires_at > ?`,
		userCode, toMillis(now)))
}

func (r *deviceCodesRepo) GetByDeviceCode(
	ctx context.Context,
	deviceCode string,
	now time.Time,
) (domain.DeviceAuthorization, error) {
	return scanDeviceCode(r.q.QueryRowContext(ctx,
		`SELECT `+deviceCodeColumns+` FROM device_codes WHERE device_code = ? AND expires_at > ?`,
		deviceCode, toMillis(now)))
}

func (r *deviceCodesRepo) GetByUserCodeAnyState(
	ctx context.Context,
	userCode string,
) (domain.DeviceAuthorization, error) {
	return scanDeviceCode(r.q.QueryRowContext(ctx,
		`SELECT `+deviceCodeColumns+` FROM device_codes WHERE user_code = ?`, userCode))
}

func (r *deviceCodesRepo) Authorize(ctx context.Context, userCode, userID string, now time.Time) (bool, error) {
	n, err := rowsAffected(r.q.ExecContext(ctx,
		`UPDATE device_codes
		    SET authorized_user_id = ?, authorized_at = ?
		  WHERE user_code = ?
		    AND authorized_user_id IS NULL
		    AND expires_at > ?`,
		userID, toMillis(now), userCode, toMillis(now),
	))
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *deviceCodesRepo) Consume(
	ctx context.Context,
	deviceCode string,
	now time.Time,
) (domain.DeviceAuthorization, error) {
	return scanDeviceCode(r.q.QueryRowContext(ctx,
		`DELETE FROM device_codes
		  WHERE device_code = ?
		    AND authorized_user_id IS NOT NULL
		    AND expires_at > ?
		RETURNING `+deviceCodeColumns,
		deviceCode, toMillis(now)))
}

func (r *deviceCodesRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return rowsAffected(r.q.ExecContext(ctx,
		`DELETE FROM device_codes WHERE expires_at < ?`, toMillis(cutoff)))
}
