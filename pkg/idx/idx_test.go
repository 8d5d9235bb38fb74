package idx

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewAndParse(t *testing.T) {
	id := New()
	require.False(t, id.IsZero())

	parsed, err := Parse(" " + id.String() + " ")
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = Parse("not-a-ulid")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestOrdering(t *testing.T) {
	at := time.Now()
	prev := NewAt(at)
	for range 1000 {
		next := NewAt(at)
		require.Less(t, prev.String(), next.String())
		prev = next
	}
}

func TestConcurrentUnique(t *testing.T) {
	t.Parallel()

	const n = 64
	var (
		wg   sync.WaitGroup
		lock sync.Mutex
		seen = make(map[ID]struct{}, n)
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := New()
			lock.Lock()
			seen[id] = struct{}{}
			lock.Unlock()
		}()
	}
	wg.Wait()
	require.Len(t, seen, n)
}

func TestTimeExtraction(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	got, err := NewAt(at).Time()
	require.NoError(t, err)
	require.Equal(t, at, got)

	_, err = Zero.Time()
	require.ErrorIs(t, err, ErrInvalid)
}
