package scheduler

import (
	"context"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-scheduler/internal/config"
	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/event"
	"github.com/oshokin/alarm-scheduler/internal/registry"
)

// startScheduler runs a scheduler inside the current bubble with sequential worker handles.
func startScheduler(t *testing.T, mutate func(*config.Config)) (*Scheduler, *event.Recorder) {
	t.Helper()

	cfg := config.Default()
	cfg.TickInterval = time.Second
	cfg.DisplayInterval = 5 * time.Second
	cfg.SweepInterval = 500 * time.Millisecond
	cfg.RetryDelay = time.Second

	if mutate != nil {
		mutate(cfg)
	}

	rec := event.NewRecorder()

	s, err := New(cfg, WithEmitter(rec), WithHandleFunc(sequentialHandles()))
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	return s, rec
}

func startReq(id int, alarmType string, seconds int, message string) alarm.Request {
	return alarm.Request{Kind: alarm.KindStart, ID: id, Type: alarmType, DurationSeconds: seconds, Message: message}
}

func changeReq(id int, alarmType string, seconds int, message string) alarm.Request {
	return alarm.Request{Kind: alarm.KindChange, ID: id, Type: alarmType, DurationSeconds: seconds, Message: message}
}

func cancelReq(id int) alarm.Request {
	return alarm.Request{Kind: alarm.KindCancel, ID: id}
}

func submit(t *testing.T, s *Scheduler, req alarm.Request) alarm.Outcome {
	t.Helper()

	out, err := s.Submit(context.Background(), req)
	require.NoError(t, err)

	return out
}

// holders returns the handles of the live workers holding alarm id.
func holders(snapshot alarm.Snapshot, id int) []string {
	var handles []string

	for _, w := range snapshot.Workers {
		for _, a := range w.Alarms {
			if a.ID == id {
				handles = append(handles, w.Handle)
			}
		}
	}

	return handles
}

func TestScheduler_Lifecycle(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()

		s, rec := startScheduler(t, nil)
		defer s.Stop()

		require.ErrorIs(t, s.Start(ctx), ErrAlreadyStarted)

		out := submit(t, s, startReq(1, "A", 10, "hello"))
		require.Equal(t, alarm.KindStart, out.Kind)
		require.Equal(t, 1, out.Alarm.ID)

		inserted, ok := rec.Find(event.KindInserted, 1)
		require.True(t, ok)
		require.Equal(t, ActorControl, inserted.Actor)

		synctest.Wait()

		created, ok := rec.Find(event.KindWorkerCreatedFirst, 1)
		require.True(t, ok)
		require.Equal(t, "w1", created.Worker)

		time.Sleep(5500 * time.Millisecond)
		synctest.Wait()

		require.Equal(t, 1, rec.Count(event.KindDisplayed))

		time.Sleep(5 * time.Second)
		synctest.Wait()

		require.Equal(t, 1, rec.Count(event.KindDisplayed))
		require.Equal(t, 1, rec.Count(event.KindExpiredRemoved))
		require.Equal(t, 1, rec.Count(event.KindDetachedExpired))
		require.Equal(t, 1, rec.Count(event.KindWorkerTerminated))

		require.Empty(t, s.Alarms())
		require.Empty(t, s.Snapshot(ctx).Workers)
	})
}

func TestScheduler_SlotFillAndAdditionalWorkers(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()

		s, rec := startScheduler(t, nil)
		defer s.Stop()

		submit(t, s, startReq(1, "A", 100, "one"))
		submit(t, s, startReq(2, "A", 100, "two"))
		submit(t, s, startReq(3, "A", 100, "three"))
		submit(t, s, startReq(4, "B", 100, "four"))

		synctest.Wait()

		require.Equal(t, 2, rec.Count(event.KindWorkerCreatedFirst))
		require.Equal(t, 1, rec.Count(event.KindWorkerCreatedAdditional))
		require.Equal(t, 1, rec.Count(event.KindAssigned))

		out := submit(t, s, alarm.Request{Kind: alarm.KindView})
		require.NotNil(t, out.Snapshot)

		snapshot := *out.Snapshot
		require.Len(t, snapshot.Workers, 3)
		require.Equal(t, 4, snapshot.AlarmCount())

		require.Equal(t, "w1", snapshot.Workers[0].Handle)
		require.Equal(t, "A", snapshot.Workers[0].Type)
		require.Len(t, snapshot.Workers[0].Alarms, 2)
		require.Equal(t, 1, snapshot.Workers[0].Alarms[0].ID)
		require.Equal(t, 2, snapshot.Workers[0].Alarms[1].ID)

		require.Equal(t, "w2", snapshot.Workers[1].Handle)
		require.Equal(t, []string{"w2"}, holders(snapshot, 3))

		require.Equal(t, "w3", snapshot.Workers[2].Handle)
		require.Equal(t, "B", snapshot.Workers[2].Type)

		for _, w := range s.Snapshot(ctx).Workers {
			require.LessOrEqual(t, len(w.Alarms), slotCount)

			for _, a := range w.Alarms {
				require.Equal(t, w.Type, a.Type)
			}
		}
	})
}

func TestScheduler_CancelDetachesAndRetires(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()

		s, rec := startScheduler(t, nil)
		defer s.Stop()

		submit(t, s, startReq(1, "A", 100, "hello"))
		synctest.Wait()

		out := submit(t, s, cancelReq(1))
		require.Equal(t, alarm.StatusCancelled, out.Alarm.Status)

		synctest.Wait()

		detached, ok := rec.Find(event.KindDetachedCancelled, 1)
		require.True(t, ok)
		require.Equal(t, "w1", detached.Worker)
		require.Equal(t, 1, rec.Count(event.KindWorkerTerminated))

		require.Empty(t, s.Alarms())
		require.Empty(t, s.Snapshot(ctx).Workers)

		_, err := s.Submit(ctx, cancelReq(1))
		require.ErrorIs(t, err, registry.ErrNotFound)
		require.Equal(t, 1, rec.Count(event.KindCancelled))
	})
}

func TestScheduler_ChangeType(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()

		s, rec := startScheduler(t, nil)
		defer s.Stop()

		submit(t, s, startReq(1, "A", 100, "hello"))
		synctest.Wait()

		out := submit(t, s, changeReq(1, "B", 100, "moved"))
		require.Equal(t, "B", out.Alarm.Type)

		synctest.Wait()

		_, ok := rec.Find(event.KindDetachedTypeChanged, 1)
		require.True(t, ok)

		snapshot := s.Snapshot(ctx)
		require.Len(t, snapshot.Workers, 1)
		require.Equal(t, "B", snapshot.Workers[0].Type)
		require.Equal(t, []string{"w2"}, holders(snapshot, 1))
		require.Equal(t, "moved", snapshot.Workers[0].Alarms[0].Message)
	})
}

func TestScheduler_ChangeTypeRoundTripKeepsOneHolder(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()

		s, rec := startScheduler(t, nil)
		defer s.Stop()

		submit(t, s, startReq(1, "A", 100, "hello"))
		synctest.Wait()

		submit(t, s, changeReq(1, "B", 100, "hello"))
		submit(t, s, changeReq(1, "A", 100, "hello"))
		synctest.Wait()

		_, ok := rec.Find(event.KindDetachedTypeChanged, 1)
		require.True(t, ok, "the original holder drops the stale generation")

		snapshot := s.Snapshot(ctx)
		require.Len(t, holders(snapshot, 1), 1)

		for _, w := range snapshot.Workers {
			require.Equal(t, "A", w.Type)
		}
	})
}

func TestScheduler_ChangeSameTypeExtendsExpiry(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()

		s, rec := startScheduler(t, nil)
		defer s.Stop()

		submit(t, s, startReq(1, "A", 5, "short"))
		synctest.Wait()

		time.Sleep(2500 * time.Millisecond)

		out := submit(t, s, changeReq(1, "A", 20, "longer"))
		require.Equal(t, 20*time.Second, out.Alarm.Duration)

		time.Sleep(8 * time.Second)
		synctest.Wait()

		require.Zero(t, rec.Count(event.KindExpiredRemoved))
		require.Zero(t, rec.Count(event.KindDetachedTypeChanged))
		require.Equal(t, 1, rec.Count(event.KindWorkerCreatedFirst))

		snapshot := s.Snapshot(ctx)
		require.Equal(t, []string{"w1"}, holders(snapshot, 1))
		require.Equal(t, "longer", snapshot.Workers[0].Alarms[0].Message)
	})
}

func TestScheduler_UnknownIDs(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()

		s, rec := startScheduler(t, nil)
		defer s.Stop()

		_, err := s.Submit(ctx, changeReq(99, "A", 5, "x"))
		require.ErrorIs(t, err, registry.ErrNotFound)

		_, err = s.Submit(ctx, cancelReq(99))
		require.ErrorIs(t, err, registry.ErrNotFound)

		_, err = s.Submit(ctx, startReq(1, "", 5, "x"))
		require.ErrorIs(t, err, alarm.ErrInvalidRequest)

		require.Empty(t, rec.Events())
	})
}

func TestScheduler_RejectsOverflowingDuration(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()

		s, rec := startScheduler(t, nil)
		defer s.Stop()

		_, err := s.Submit(ctx, startReq(1, "A", 10_000_000_000, "hello"))
		require.ErrorIs(t, err, alarm.ErrInvalidRequest)

		submit(t, s, startReq(2, "A", 60, "hello"))

		_, err = s.Submit(ctx, changeReq(2, "A", 10_000_000_000, "hello"))
		require.ErrorIs(t, err, alarm.ErrInvalidRequest)

		time.Sleep(1500 * time.Millisecond)

		alarms := s.Alarms()
		require.Len(t, alarms, 1)
		require.Equal(t, 2, alarms[0].ID)
		require.Equal(t, time.Minute, alarms[0].Duration)
		require.Zero(t, rec.Count(event.KindExpiredRemoved))
	})
}

func TestScheduler_RetriesWhenWorkerCapReached(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()

		s, rec := startScheduler(t, func(cfg *config.Config) {
			cfg.MaxWorkers = 1
		})
		defer s.Stop()

		submit(t, s, startReq(1, "A", 3, "first"))
		submit(t, s, startReq(2, "B", 100, "waiting"))

		time.Sleep(1500 * time.Millisecond)
		synctest.Wait()

		_, ok := rec.Find(event.KindWorkerCreatedFirst, 2)
		require.False(t, ok)
		require.Len(t, s.Alarms(), 2)

		time.Sleep(4 * time.Second)
		synctest.Wait()

		created, ok := rec.Find(event.KindWorkerCreatedFirst, 2)
		require.True(t, ok)
		require.Equal(t, "w2", created.Worker)

		snapshot := s.Snapshot(ctx)
		require.Len(t, snapshot.Workers, 1)
		require.Equal(t, []string{"w2"}, holders(snapshot, 2))
	})
}

func TestScheduler_DuplicateIDsTargetFirst(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()

		s, _ := startScheduler(t, nil)
		defer s.Stop()

		submit(t, s, startReq(5, "A", 100, "older"))
		submit(t, s, startReq(5, "A", 100, "newer"))
		submit(t, s, startReq(2, "A", 100, "smaller"))

		alarms := s.Alarms()
		require.Len(t, alarms, 3)
		require.Equal(t, 2, alarms[0].ID)
		require.Equal(t, "older", alarms[1].Message)
		require.Equal(t, "newer", alarms[2].Message)

		out := submit(t, s, cancelReq(5))
		require.Equal(t, "older", out.Alarm.Message)

		alarms = s.Alarms()
		require.Len(t, alarms, 2)
		require.Equal(t, "newer", alarms[1].Message)

		synctest.Wait()
		require.Equal(t, 2, s.Snapshot(ctx).AlarmCount())
	})
}

func TestScheduler_NotRunning(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()

		s, err := New(nil)
		require.NoError(t, err)

		_, err = s.Submit(ctx, startReq(1, "A", 5, "x"))
		require.ErrorIs(t, err, ErrNotRunning)

		require.NoError(t, s.Start(ctx))
		s.Stop()
		s.Stop()

		_, err = s.Submit(ctx, startReq(1, "A", 5, "x"))
		require.ErrorIs(t, err, ErrNotRunning)
	})
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.MaxWorkers = -1

	_, err := New(cfg)
	require.Error(t, err)
}
