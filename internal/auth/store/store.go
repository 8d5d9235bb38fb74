package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/searchlab/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and a Tx-scoped Store cannot open another transaction.
type Store interface {
	Users() Users
	DeviceCodes() DeviceCodes
	RefreshTokens() RefreshTokens
	AuditEvents() AuditEvents

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns nil
	// and rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used by the credential check.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the username is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// SetActive flips the active flag and bumps updated_at.
	SetActive(ctx context.Context, userID string, active bool) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

// DeviceCodes stores pending device authorization requests. Every lookup
// treats rows with expires_at <= now as absent.
type DeviceCodes interface {
	// Create inserts a request. Returns ErrAlreadyExists on a device or user
	// code collision so the caller can retry with fresh codes.
	Create(ctx context.Context, d domain.DeviceAuthorization) error

	// GetByUserCode returns the unexpired request with this user code.
	GetByUserCode(ctx context.Context, userCode string, now time.Time) (domain.DeviceAuthorization, error)

	// GetByDeviceCode returns the unexpired request with this device code.
	GetByDeviceCode(ctx context.Context, deviceCode string, now time.Time) (domain.DeviceAuthorization, error)

	// GetByUserCodeAnyState returns the request even if expired. Used only to
	// classify a failed authorization.
	GetByUserCodeAnyState(ctx context.Context, userCode string) (domain.DeviceAuthorization, error)

	// Authorize marks a pending, unexpired request as approved by userID in
	// one conditional update. It reports whether a row changed.
	Authorize(ctx context.Context, userCode, userID string, now time.Time) (bool, error)

	// Consume deletes and returns an authorized, unexpired request in one
	// statement. Returns ErrNotFound when no such row exists.
	Consume(ctx context.Context, deviceCode string, now time.Time) (domain.DeviceAuthorization, error)

	// DeleteExpiredBefore removes requests that expired before cutoff.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type RefreshTokens interface {
	// Create stores a new refresh token record. Returns ErrAlreadyExists when
	// the hash is already present.
	Create(ctx context.Context, t domain.RefreshToken) error

	// GetByHash returns the record with this token hash.
	GetByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// ConsumeByHash deletes the record with this hash and returns the number
	// of rows removed. Only a result of exactly 1 means the caller owns it.
	ConsumeByHash(ctx context.Context, hash string) (int64, error)

	// DeleteByHash removes one record; missing records are not an error.
	DeleteByHash(ctx context.Context, hash string) (int64, error)

	// DeleteAllForUser removes every record of a user.
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)

	// DeleteExpiredBefore removes records that expired before cutoff.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// CountForUser returns how many live records a user has.
	CountForUser(ctx context.Context, userID string) (int64, error)
}

type AuditEvents interface {
	// Create appends an event.
	Create(ctx context.Context, e domain.AuditEvent) error

	// List returns matching events newest first, plus the total match count.
	List(ctx context.Context, f domain.AuditFilter) ([]domain.AuditEvent, int64, error)

	// Stats counts events created at or after since.
	Stats(ctx context.Context, since time.Time) (domain.AuditStats, error)

	// DeleteBefore removes events created before cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
