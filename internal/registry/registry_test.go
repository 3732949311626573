package registry

import (
	"math/rand/v2"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
)

var epoch = time.Unix(1_700_000_000, 0)

func ids(views []alarm.View) []int {
	out := make([]int, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}

	return out
}

// TestInsert_KeepsIDOrder inserts out of order and observes ascending ids.
func TestInsert_KeepsIDOrder(t *testing.T) {
	t.Parallel()

	r := New()
	for _, id := range []int{5, 1, 3, 9, 2} {
		require.NoError(t, r.Insert(alarm.New(id, "A", time.Minute, "m", epoch)))
	}

	require.Equal(t, []int{1, 2, 3, 5, 9}, ids(r.Snapshot()))
	require.ErrorIs(t, r.Insert(nil), ErrNilAlarm)
}

// TestInsert_OrderInvariantUnderConcurrency observes a sorted registry at every point.
func TestInsert_OrderInvariantUnderConcurrency(t *testing.T) {
	t.Parallel()

	r := New()

	var wg sync.WaitGroup

	for g := range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			rng := rand.New(rand.NewPCG(uint64(g), 7))
			for range 50 {
				id := rng.IntN(100)
				_ = r.Insert(alarm.New(id, "A", time.Minute, "m", epoch))

				got := ids(r.Snapshot())
				if !sort.IntsAreSorted(got) {
					t.Errorf("registry out of order: %v", got)
				}
			}
		}()
	}

	wg.Wait()
	require.Equal(t, 200, r.Len())
	require.True(t, sort.IntsAreSorted(ids(r.Snapshot())))
}

// TestDuplicates_FirstMatchWins checks change and cancel hit the earliest duplicate.
func TestDuplicates_FirstMatchWins(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.Insert(alarm.New(1, "A", time.Minute, "first", epoch)))
	require.NoError(t, r.Insert(alarm.New(1, "A", time.Minute, "second", epoch)))

	upd, err := r.Update(1, "B", time.Minute, "changed", epoch)
	require.NoError(t, err)
	require.Equal(t, "changed", upd.View.Message)

	views := r.Snapshot()
	require.Equal(t, "changed", views[0].Message)
	require.Equal(t, "second", views[1].Message)

	view, err := r.Cancel(1)
	require.NoError(t, err)
	require.Equal(t, "changed", view.Message)
	require.Equal(t, alarm.StatusCancelled, view.Status)

	views = r.Snapshot()
	require.Len(t, views, 1)
	require.Equal(t, "second", views[0].Message)
}

// TestUpdate_RecomputesExpiry uses the change time as the new base.
func TestUpdate_RecomputesExpiry(t *testing.T) {
	t.Parallel()

	r := New()
	a := alarm.New(4, "A", time.Second, "m", epoch)
	require.NoError(t, r.Insert(a))
	require.True(t, a.Claim(a.Generation(), epoch))

	later := epoch.Add(30 * time.Second)

	upd, err := r.Update(4, "A", 10*time.Second, "n", later)
	require.NoError(t, err)
	require.Same(t, a, upd.Alarm)
	require.Equal(t, later.Add(10*time.Second), upd.View.ExpiresAt)
	require.False(t, upd.Redispatch)

	upd, err = r.Update(4, "B", 10*time.Second, "n", later)
	require.NoError(t, err)
	require.True(t, upd.Redispatch)
	require.Equal(t, a.Generation(), upd.Generation)
}

// TestNotFound reports explicit errors for unknown ids.
func TestNotFound(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.Insert(alarm.New(2, "A", time.Minute, "m", epoch)))

	_, err := r.Update(1, "A", time.Second, "m", epoch)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = r.Cancel(3)
	require.ErrorIs(t, err, ErrNotFound)

	// Idempotent cancellation: the second cancel misses and leaves others untouched.
	_, err = r.Cancel(2)
	require.NoError(t, err)

	_, err = r.Cancel(2)
	require.ErrorIs(t, err, ErrNotFound)
	require.Zero(t, r.Len())
}

// TestSweepExpired removes due alarms and flags them.
func TestSweepExpired(t *testing.T) {
	t.Parallel()

	r := New()
	short := alarm.New(1, "A", time.Second, "short", epoch)
	long := alarm.New(2, "A", time.Hour, "long", epoch)
	zero := alarm.New(3, "B", 0, "zero", epoch)

	for _, a := range []*alarm.Alarm{short, long, zero} {
		require.NoError(t, r.Insert(a))
	}

	removed := r.SweepExpired(epoch)
	require.Equal(t, []int{3}, ids(removed))
	require.True(t, removed[0].Expired)

	removed = r.SweepExpired(epoch.Add(time.Second))
	require.Equal(t, []int{1}, ids(removed))
	require.True(t, short.View().Expired)
	require.False(t, long.View().Expired)

	require.Equal(t, []int{2}, ids(r.Snapshot()))
	require.Empty(t, r.SweepExpired(epoch.Add(time.Minute)))
}
