package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/alarm-scheduler/internal/clock"
	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/event"
	"github.com/oshokin/alarm-scheduler/internal/logger"
	"github.com/oshokin/alarm-scheduler/internal/queue"
)

// ActorDispatcher identifies the dispatcher in events.
const ActorDispatcher = "dispatcher"

// ticket asks the dispatcher to place an alarm at a given generation.
type ticket struct {
	// alarm is the shared handle.
	alarm *alarm.Alarm
	// generation is the alarm generation when the ticket was published.
	generation uint64
}

// dispatcher assigns alarms from the queue to workers.
type dispatcher struct {
	// queue delivers tickets from the control path.
	queue *queue.Queue[ticket]
	// pool owns the workers.
	pool *pool
	// clock supplies now.
	clock clock.Clock
	// emitter publishes assignment events.
	emitter event.Emitter
}

// run consumes tickets until the queue closes or ctx ends.
func (d *dispatcher) run(ctx context.Context) {
	ctx = logger.WithName(ctx, ActorDispatcher)

	logger.Debug(ctx, "Dispatcher started")

	for {
		msg, err := d.queue.Consume(ctx)
		if err != nil {
			if !errors.Is(err, queue.ErrClosed) && !errors.Is(err, context.Canceled) {
				logger.ErrorKV(ctx, "Consume failed", "error", err)
			}

			logger.Debug(ctx, "Dispatcher stopped")

			return
		}

		d.handle(ctx, msg)
	}
}

// handle places one ticket. A failed placement is retried through the queue.
func (d *dispatcher) handle(ctx context.Context, msg *queue.Message[ticket]) {
	t := msg.Payload()
	now := d.clock.Now()

	if !t.alarm.Claim(t.generation, now) {
		logger.DebugKV(ctx, "Discarding stale ticket", "alarm_id", t.alarm.ID(), "generation", t.generation)

		_ = msg.Ack() //nolint:errcheck // A message is processed once by this loop.

		return
	}

	if err := d.assign(ctx, t); err != nil {
		t.alarm.Release(t.generation)

		logger.WarnKV(ctx, "Assignment failed, retrying",
			"alarm_id", t.alarm.ID(),
			"attempt", msg.Attempts(),
			"error", err,
		)

		_ = msg.Nack() //nolint:errcheck // A message is processed once by this loop.

		return
	}

	_ = msg.Ack() //nolint:errcheck // A message is processed once by this loop.
}

// assign reuses a worker with a free slot or creates a new one.
func (d *dispatcher) assign(ctx context.Context, t ticket) error {
	view := t.alarm.View()
	now := d.clock.Now()

	// A worker may retire between the lookup and the assignment; look again.
	for w := d.pool.findAssignable(view.Type); w != nil; w = d.pool.findAssignable(view.Type) {
		idx, ok := w.assign(t.alarm, t.generation, now)
		if !ok {
			continue
		}

		d.emitter.Emit(ctx, event.Event{
			Kind:   event.KindAssigned,
			At:     now,
			Actor:  ActorDispatcher,
			Worker: w.handle,
			Slot:   idx,
			Alarm:  view,
		})

		return nil
	}

	w, first, err := d.pool.create(view.Type, t.alarm, t.generation, now)
	if err != nil {
		return fmt.Errorf("create worker: %w", err)
	}

	kind := event.KindWorkerCreatedAdditional
	if first {
		kind = event.KindWorkerCreatedFirst
	}

	d.emitter.Emit(ctx, event.Event{
		Kind:   kind,
		At:     now,
		Actor:  ActorDispatcher,
		Worker: w.handle,
		Slot:   0,
		Alarm:  view,
	})

	return nil
}
