package event

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
)

// Kind enumerates status transitions.
type Kind int

const (
	// KindInserted is emitted when a start request adds an alarm to the registry.
	KindInserted Kind = iota + 1
	// KindChanged is emitted when a change request updates an alarm.
	KindChanged
	// KindCancelled is emitted when a cancel request removes an alarm.
	KindCancelled
	// KindExpiredRemoved is emitted when the sweep removes an expired alarm.
	KindExpiredRemoved
	// KindWorkerCreatedFirst is emitted when the first worker for a type starts.
	KindWorkerCreatedFirst
	// KindWorkerCreatedAdditional is emitted when another worker for a busy type starts.
	KindWorkerCreatedAdditional
	// KindAssigned is emitted when an alarm lands in a free slot of an existing worker.
	KindAssigned
	// KindWorkerTerminated is emitted when a worker retires.
	KindWorkerTerminated
	// KindDisplayed is emitted on every periodic display.
	KindDisplayed
	// KindDetachedTypeChanged is emitted when a worker drops an alarm that changed type.
	KindDetachedTypeChanged
	// KindDetachedCancelled is emitted when a worker drops a cancelled alarm.
	KindDetachedCancelled
	// KindDetachedExpired is emitted when a worker drops an expired alarm.
	KindDetachedExpired
)

// kindNames holds short names used as the structured "event" field.
//
//nolint:gochecknoglobals // Read-only lookup table.
var kindNames = map[Kind]string{
	KindInserted:                "inserted",
	KindChanged:                 "changed",
	KindCancelled:               "cancelled",
	KindExpiredRemoved:          "expired_removed",
	KindWorkerCreatedFirst:      "worker_created_first",
	KindWorkerCreatedAdditional: "worker_created_additional",
	KindAssigned:                "assigned",
	KindWorkerTerminated:        "worker_terminated",
	KindDisplayed:               "displayed",
	KindDetachedTypeChanged:     "detached_type_changed",
	KindDetachedCancelled:       "detached_cancelled",
	KindDetachedExpired:         "detached_expired",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "unknown"
}

// DetachKind maps a worker verdict to the matching detach event.
func DetachKind(v alarm.Verdict) (Kind, bool) {
	switch v {
	case alarm.VerdictTypeChanged:
		return KindDetachedTypeChanged, true
	case alarm.VerdictCancelled:
		return KindDetachedCancelled, true
	case alarm.VerdictExpired:
		return KindDetachedExpired, true
	case alarm.VerdictKeep:
		return 0, false
	default:
		return 0, false
	}
}

// Event is one status transition.
type Event struct {
	// Kind is the transition.
	Kind Kind
	// At is when the transition happened.
	At time.Time
	// Actor identifies the goroutine that acted: "main", "dispatcher" or a worker handle.
	Actor string
	// Worker is the worker handle involved, if any.
	Worker string
	// Slot is the worker slot involved, or -1.
	Slot int
	// Alarm is the alarm involved. Zero for worker-only events.
	Alarm alarm.View
}

// String renders the status line.
//
//nolint:cyclop // One case per transition.
func (e Event) String() string {
	ts := e.At.Unix()
	details := fmt.Sprintf("%s %d %s", e.Alarm.Type, e.Alarm.DurationSeconds(), e.Alarm.Message)

	switch e.Kind {
	case KindInserted:
		return fmt.Sprintf("Alarm(%d) Inserted by Main Thread (%s) Into Alarm List at %d: %s",
			e.Alarm.ID, e.Actor, ts, details)
	case KindChanged:
		return fmt.Sprintf("Alarm(%d) Changed at %d: %s", e.Alarm.ID, ts, details)
	case KindCancelled:
		return fmt.Sprintf("Alarm(%d) Cancelled at %d: %s", e.Alarm.ID, ts, details)
	case KindExpiredRemoved:
		return fmt.Sprintf("Alarm(%d): Alarm Expired at %d: Alarm Removed From Alarm List", e.Alarm.ID, ts)
	case KindWorkerCreatedFirst:
		return fmt.Sprintf("First New Display Thread(%s) Created at %d: %s", e.Worker, ts, details)
	case KindWorkerCreatedAdditional:
		return fmt.Sprintf("Additional New Display Thread(%s) Created at %d: %s", e.Worker, ts, details)
	case KindAssigned:
		return fmt.Sprintf("Alarm(%d) Assigned to Display Thread(%s) Slot %d at %d: %s",
			e.Alarm.ID, e.Worker, e.Slot, ts, details)
	case KindWorkerTerminated:
		return fmt.Sprintf("Display Thread Terminated (%s) at %d", e.Worker, ts)
	case KindDisplayed:
		return fmt.Sprintf("Alarm(%d) Message PERIODICALLY PRINTED BY Display Thread (%s) at %d: %s",
			e.Alarm.ID, e.Worker, ts, details)
	case KindDetachedTypeChanged:
		return fmt.Sprintf("Alarm(%d) Changed Type; Display Thread (%s) Stopped Printing Alarm Message at %d: %s",
			e.Alarm.ID, e.Worker, ts, details)
	case KindDetachedCancelled:
		return fmt.Sprintf("Alarm(%d) Cancelled; Display Thread (%s) Stopped Printing Alarm Message at %d: %s",
			e.Alarm.ID, e.Worker, ts, details)
	case KindDetachedExpired:
		return fmt.Sprintf("Alarm(%d) Expired; Display Thread (%s) Stopped Printing Alarm Message at %d: %s",
			e.Alarm.ID, e.Worker, ts, details)
	default:
		return fmt.Sprintf("Unknown event %d for alarm(%d)", e.Kind, e.Alarm.ID)
	}
}

// Emitter publishes status transitions. Implementations must be safe for
// concurrent use and must not block for long: workers call Emit from their loop.
type Emitter interface {
	Emit(ctx context.Context, e Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, e Event)

// Emit implements Emitter.
func (f EmitterFunc) Emit(ctx context.Context, e Event) { f(ctx, e) }

// multi fans out to several emitters.
type multi []Emitter

// Emit implements Emitter.
func (m multi) Emit(ctx context.Context, e Event) {
	for _, em := range m {
		em.Emit(ctx, e)
	}
}

// Multi returns an emitter forwarding to every non-nil emitter in order.
func Multi(emitters ...Emitter) Emitter {
	out := make(multi, 0, len(emitters))
	for _, em := range emitters {
		if em != nil {
			out = append(out, em)
		}
	}

	return out
}
