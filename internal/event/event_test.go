package event

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/logger"
)

func sampleView() alarm.View {
	return alarm.View{
		ID:       7,
		Type:     "A",
		Duration: 5 * time.Second,
		Message:  "hello",
	}
}

// TestEvent_String renders the status lines with id, actor, time and details.
func TestEvent_String(t *testing.T) {
	t.Parallel()

	at := time.Unix(1_700_000_000, 0)

	cases := map[Kind]string{
		KindInserted:                "Alarm(7) Inserted by Main Thread (main) Into Alarm List at 1700000000: A 5 hello",
		KindChanged:                 "Alarm(7) Changed at 1700000000: A 5 hello",
		KindCancelled:               "Alarm(7) Cancelled at 1700000000: A 5 hello",
		KindExpiredRemoved:          "Alarm(7): Alarm Expired at 1700000000: Alarm Removed From Alarm List",
		KindWorkerCreatedFirst:      "First New Display Thread(w1) Created at 1700000000: A 5 hello",
		KindWorkerCreatedAdditional: "Additional New Display Thread(w1) Created at 1700000000: A 5 hello",
		KindAssigned:                "Alarm(7) Assigned to Display Thread(w1) Slot 1 at 1700000000: A 5 hello",
		KindWorkerTerminated:        "Display Thread Terminated (w1) at 1700000000",
		KindDisplayed:               "Alarm(7) Message PERIODICALLY PRINTED BY Display Thread (w1) at 1700000000: A 5 hello",
		KindDetachedTypeChanged:     "Alarm(7) Changed Type; Display Thread (w1) Stopped Printing Alarm Message at 1700000000: A 5 hello",
		KindDetachedCancelled:       "Alarm(7) Cancelled; Display Thread (w1) Stopped Printing Alarm Message at 1700000000: A 5 hello",
		KindDetachedExpired:         "Alarm(7) Expired; Display Thread (w1) Stopped Printing Alarm Message at 1700000000: A 5 hello",
	}

	for kind, want := range cases {
		e := Event{Kind: kind, At: at, Actor: "main", Worker: "w1", Slot: 1, Alarm: sampleView()}
		require.Equal(t, want, e.String(), kind.String())
	}
}

// TestDetachKind maps verdicts to detach events.
func TestDetachKind(t *testing.T) {
	t.Parallel()

	k, ok := DetachKind(alarm.VerdictExpired)
	require.True(t, ok)
	require.Equal(t, KindDetachedExpired, k)

	k, ok = DetachKind(alarm.VerdictTypeChanged)
	require.True(t, ok)
	require.Equal(t, KindDetachedTypeChanged, k)

	k, ok = DetachKind(alarm.VerdictCancelled)
	require.True(t, ok)
	require.Equal(t, KindDetachedCancelled, k)

	_, ok = DetachKind(alarm.VerdictKeep)
	require.False(t, ok)
}

// TestRecorder_And_Multi fans out to several emitters and queries the recording.
func TestRecorder_And_Multi(t *testing.T) {
	t.Parallel()

	first, second := NewRecorder(), NewRecorder()
	em := Multi(first, nil, second)

	em.Emit(context.Background(), Event{Kind: KindInserted, Alarm: sampleView(), Slot: -1})
	em.Emit(context.Background(), Event{Kind: KindDisplayed, Alarm: sampleView(), Slot: -1})
	em.Emit(context.Background(), Event{Kind: KindDisplayed, Alarm: sampleView(), Slot: -1})

	for _, r := range []*Recorder{first, second} {
		require.Len(t, r.Events(), 3)
		require.Equal(t, 2, r.Count(KindDisplayed))
		require.Len(t, r.Filter(KindDisplayed), 2)

		e, ok := r.Find(KindInserted, 7)
		require.True(t, ok)
		require.Equal(t, "hello", e.Alarm.Message)

		_, ok = r.Find(KindCancelled, 7)
		require.False(t, ok)
	}
}

// TestLogEmitter writes the status line and structured fields.
func TestLogEmitter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	ctx := logger.ToContext(context.Background(), logger.NewWithSink(zapcore.AddSync(&buf), zapcore.InfoLevel))

	LogEmitter{}.Emit(ctx, Event{
		Kind:   KindDisplayed,
		At:     time.Unix(10, 0),
		Actor:  "w1",
		Worker: "w1",
		Slot:   -1,
		Alarm:  sampleView(),
	})

	out := buf.String()
	require.Contains(t, out, "Alarm(7) Message PERIODICALLY PRINTED BY Display Thread (w1) at 10: A 5 hello")
	require.Contains(t, out, "alarm_id")
	require.Contains(t, out, "displayed")
	require.NotContains(t, out, "slot")
}
