// Package idx mints the sortable identifiers used for users, refresh token
// records, audit events and token ids.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type ID string

// Zero represents the zero value ID, don't use this unless its a placeholder.
const Zero ID = ""

// ErrInvalid reports a malformed ULID string.
var ErrInvalid = errors.New("idx: invalid ulid")

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a new lexicographically sortable ID for the current time.
func New() ID {
	return NewAt(time.Now().UTC())
}

// NewAt generates an ID at the provided time. IDs minted within the same
// millisecond stay strictly increasing.
func NewAt(t time.Time) ID {
	mu.Lock()
	defer mu.Unlock()

	return ID(ulid.MustNew(ulid.Timestamp(t), entropy).String())
}

// Parse parses a ULID string into an ID and validates its form.
func Parse(s string) (ID, error) {
	u, err := ulid.ParseStrict(strings.TrimSpace(s))
	if err != nil {
		return Zero, ErrInvalid
	}
	return ID(u.String()), nil
}

func (id ID) String() string { return string(id) }

func (id ID) IsZero() bool { return id == Zero }

// Time returns the millisecond timestamp embedded in the ID.
func (id ID) Time() (time.Time, error) {
	u, err := ulid.ParseStrict(string(id))
	if err != nil {
		return time.Time{}, ErrInvalid
	}
	return ulid.Time(u.Time()).UTC(), nil
}
