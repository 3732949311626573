package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshokin/alarm-scheduler/internal/clock"
	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/event"
	"github.com/oshokin/alarm-scheduler/internal/logger"
)

// slotCount is the fixed capacity of a worker.
const slotCount = 2

// slot is one occupied position of a worker.
type slot struct {
	// alarm is the shared handle; the registry stays the source of truth.
	alarm *alarm.Alarm
	// generation is the dispatch generation the worker claimed.
	generation uint64
	// lastDisplay is when the alarm was assigned or last displayed.
	lastDisplay time.Time
}

// workerTiming carries the intervals and collaborators a worker needs.
type workerTiming struct {
	// tick bounds the wait between two evaluations.
	tick time.Duration
	// display is the period between two displays of the same alarm.
	display time.Duration
	// clock supplies now.
	clock clock.Clock
	// emitter publishes status transitions.
	emitter event.Emitter
	// wakeup is broadcast by the control path after sweeps and cancels.
	wakeup *notifier
}

// worker displays up to two alarms of a single type.
type worker struct {
	// handle is the opaque identity reported in events and views.
	handle string
	// alarmType is fixed at creation from the first alarm.
	alarmType string
	// timing holds intervals and collaborators.
	timing workerTiming

	// mu guards slots and the transition of alive to false.
	mu    sync.Mutex
	slots [slotCount]*slot
	// alive is written under mu and read lock-free by the pool.
	alive atomic.Bool
}

// newWorker creates a live worker holding a in slot 0.
func newWorker(handle string, a *alarm.Alarm, gen uint64, alarmType string, now time.Time, timing workerTiming) *worker {
	w := &worker{
		handle:    handle,
		alarmType: alarmType,
		timing:    timing,
	}

	w.slots[0] = &slot{alarm: a, generation: gen, lastDisplay: now}
	w.alive.Store(true)

	return w
}

// isAlive reports whether the worker still accepts alarms.
func (w *worker) isAlive() bool {
	return w.alive.Load()
}

// hasFreeSlot reports whether the worker is alive and has an empty slot.
func (w *worker) hasFreeSlot() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.alive.Load() && (w.slots[0] == nil || w.slots[1] == nil)
}

// assign places a in a free slot, preferring slot 1. It fails if the worker
// retired or is full.
func (w *worker) assign(a *alarm.Alarm, gen uint64, now time.Time) (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.alive.Load() {
		return -1, false
	}

	var idx int

	switch {
	case w.slots[1] == nil:
		idx = 1
	case w.slots[0] == nil:
		idx = 0
	default:
		return -1, false
	}

	w.slots[idx] = &slot{alarm: a, generation: gen, lastDisplay: now}

	return idx, true
}

// occupied returns the number of held alarms.
func (w *worker) occupied() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := 0

	for _, s := range w.slots {
		if s != nil {
			n++
		}
	}

	return n
}

// view copies the worker's assignments.
func (w *worker) view() alarm.WorkerView {
	w.mu.Lock()
	defer w.mu.Unlock()

	wv := alarm.WorkerView{
		Handle: w.handle,
		Type:   w.alarmType,
		Alarms: make([]alarm.View, 0, slotCount),
	}

	for _, s := range w.slots {
		if s != nil {
			wv.Alarms = append(wv.Alarms, s.alarm.View())
		}
	}

	return wv
}

// run evaluates the slots every tick until the worker retires or ctx ends.
func (w *worker) run(ctx context.Context) {
	ctx = logger.WithKV(logger.WithName(ctx, "worker"), "worker", w.handle, "type", w.alarmType)

	logger.Debug(ctx, "Worker started")

	timer := time.NewTimer(w.timing.tick)
	defer timer.Stop()

	for {
		// Take the wakeup channel before evaluating so a broadcast in between is not lost.
		wakeup := w.timing.wakeup.wait()

		if w.step(ctx) {
			return
		}

		select {
		case <-ctx.Done():
			w.shutdown()
			logger.Debug(ctx, "Worker stopped by shutdown")

			return
		case <-wakeup:
		case <-timer.C:
		}

		timer.Reset(w.timing.tick)
	}
}

// shutdown marks the worker dead so no further alarm is assigned to it.
func (w *worker) shutdown() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.alive.Store(false)
}

// step evaluates both slots once and reports whether the worker retired.
func (w *worker) step(ctx context.Context) bool {
	now := w.timing.clock.Now()

	w.mu.Lock()

	var events []event.Event

	for i, s := range w.slots {
		if s == nil {
			continue
		}

		verdict, view := s.alarm.Inspect(s.generation, w.alarmType, now)

		if kind, detached := event.DetachKind(verdict); detached {
			w.slots[i] = nil
			events = append(events, w.event(kind, now, i, view))

			continue
		}

		if now.Sub(s.lastDisplay) >= w.timing.display {
			s.lastDisplay = now
			events = append(events, w.event(event.KindDisplayed, now, i, view))
		}
	}

	retired := w.slots[0] == nil && w.slots[1] == nil
	if retired {
		w.alive.Store(false)
		events = append(events, w.event(event.KindWorkerTerminated, now, -1, alarm.View{}))
	}

	w.mu.Unlock()

	for _, e := range events {
		w.timing.emitter.Emit(ctx, e)
	}

	return retired
}

// event builds an event acted by this worker.
func (w *worker) event(kind event.Kind, at time.Time, slotIdx int, view alarm.View) event.Event {
	return event.Event{
		Kind:   kind,
		At:     at,
		Actor:  w.handle,
		Worker: w.handle,
		Slot:   slotIdx,
		Alarm:  view,
	}
}
