package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aussiebroadwan/searchlab/internal/auth/domain"
	"github.com/aussiebroadwan/searchlab/internal/auth/store"
	"github.com/aussiebroadwan/searchlab/pkg/cryptox"
)

const (
	DefaultDeviceCodeTTL      = 10 * time.Minute
	DefaultDevicePollInterval = 5 * time.Second

	// maxCodeAttempts bounds retries on a user code collision.
	maxCodeAttempts = 5
)

// DeviceRegistry creates and resolves device authorization requests. Expired
// requests are treated as absent by every lookup.
type DeviceRegistry struct {
	Store           store.Store
	VerificationURI string
	TTL             time.Duration
	Interval        time.Duration
	Now             func() time.Time
}

func (r *DeviceRegistry) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// ExpiresIn is how long d has left on the registry clock, floored at zero.
func (r *DeviceRegistry) ExpiresIn(d domain.DeviceAuthorization) time.Duration {
	return max(d.ExpiresAt.Sub(r.now()), 0)
}

func (r *DeviceRegistry) ttl() time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return DefaultDeviceCodeTTL
}

func (r *DeviceRegistry) interval() time.Duration {
	if r.Interval > 0 {
		return r.Interval
	}
	return DefaultDevicePollInterval
}

// Create persists a new pending request. The device code is a random UUID and
// the user code is drawn from an alphabet without look-alike characters.
func (r *DeviceRegistry) Create(ctx context.Context, scopes ...string) (domain.DeviceAuthorization, error) {
	now := r.now()

	for range maxCodeAttempts {
		userCode, err := cryptox.GenerateUserCode()
		if err != nil {
			return domain.DeviceAuthorization{}, fmt.Errorf("generate user code: %w", err)
		}
		d := domain.DeviceAuthorization{
			DeviceCode:      uuid.NewString(),
			UserCode:        userCode,
			VerificationURI: r.VerificationURI,
			Interval:        r.interval(),
			Scopes:          scopes,
			CreatedAt:       now,
			ExpiresAt:       now.Add(r.ttl()),
		}

		err = r.Store.DeviceCodes().Create(ctx, d)
		if errors.Is(err, store.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return domain.DeviceAuthorization{}, err
		}
		return d, nil
	}
	return domain.DeviceAuthorization{}, fmt.Errorf("device code: %d collisions in a row", maxCodeAttempts)
}

// FindByHumanCode returns the unexpired request for a user code.
func (r *DeviceRegistry) FindByHumanCode(ctx context.Context, code string) (domain.DeviceAuthorization, error) {
	d, err := r.Store.DeviceCodes().GetByUserCode(ctx, cryptox.NormalizeUserCode(code), r.now())
	if errors.Is(err, store.ErrNotFound) {
		return domain.DeviceAuthorization{}, ErrNotFound
	}
	return d, err
}

// FindByMachineCode returns the unexpired request for a device code.
func (r *DeviceRegistry) FindByMachineCode(ctx context.Context, code string) (domain.DeviceAuthorization, error) {
	d, err := r.Store.DeviceCodes().GetByDeviceCode(ctx, code, r.now())
	if errors.Is(err, store.ErrNotFound) {
		return domain.DeviceAuthorization{}, ErrNotFound
	}
	return d, err
}

// Authorize records userID as the approver of the request. A request can be
// authorized once. It fails with ErrNotFound, ErrExpired or
// ErrAlreadyAuthorized.
func (r *DeviceRegistry) Authorize(ctx context.Context, humanCode, userID string) error {
	now := r.now()
	code := cryptox.NormalizeUserCode(humanCode)

	// 1. Conditional update is the guard; it only touches a pending live row.
	ok, err := r.Store.DeviceCodes().Authorize(ctx, code, userID, now)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	// 2. Nothing changed, work out why for the caller.
	d, err := r.Store.DeviceCodes().GetByUserCodeAnyState(ctx, code)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case err != nil:
		return err
	case d.ExpiredAt(now):
		return ErrExpired
	case d.Authorized():
		return ErrAlreadyAuthorized
	default:
		return ErrNotFound
	}
}

// Consume deletes and returns an authorized, unexpired request. Pending,
// expired and unknown codes all yield ErrNotFound.
func (r *DeviceRegistry) Consume(ctx context.Context, machineCode string) (domain.DeviceAuthorization, error) {
	return r.consume(ctx, r.Store, machineCode, r.now())
}

func (r *DeviceRegistry) consume(
	ctx context.Context,
	st store.Store,
	machineCode string,
	now time.Time,
) (domain.DeviceAuthorization, error) {
	d, err := st.DeviceCodes().Consume(ctx, machineCode, now)
	if errors.Is(err, store.ErrNotFound) {
		return domain.DeviceAuthorization{}, ErrNotFound
	}
	return d, err
}
