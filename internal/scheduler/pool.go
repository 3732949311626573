package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/logger"
)

// pool owns the live workers in creation order.
type pool struct {
	// mu guards workers.
	mu      sync.Mutex
	workers []*worker

	// maxWorkers caps live workers; zero means no cap.
	maxWorkers int
	// newHandle produces worker identities.
	newHandle func() string
	// timing is handed to every new worker.
	timing workerTiming
	// ctx is the parent context of worker loops, set by start.
	ctx context.Context //nolint:containedctx // Workers outlive the dispatcher call that creates them.
	// routines tracks worker goroutines.
	routines conc.WaitGroup
}

func newPool(maxWorkers int, newHandle func() string, timing workerTiming) *pool {
	return &pool{
		maxWorkers: maxWorkers,
		newHandle:  newHandle,
		timing:     timing,
		ctx:        context.Background(),
	}
}

// start sets the context worker loops run under.
func (p *pool) start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ctx = ctx
}

// findAssignable returns the first live worker bound to alarmType with a free slot.
func (p *pool) findAssignable(alarmType string) *worker {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, w := range p.workers {
		if w.alarmType == alarmType && w.hasFreeSlot() {
			return w
		}
	}

	return nil
}

// create starts a worker for alarmType holding a in slot 0. It reports
// whether the worker is the only live one for its type.
func (p *pool) create(alarmType string, a *alarm.Alarm, gen uint64, now time.Time) (*worker, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	live, sameType := 0, 0

	for _, w := range p.workers {
		if !w.isAlive() {
			continue
		}

		live++

		if w.alarmType == alarmType {
			sameType++
		}
	}

	if p.maxWorkers > 0 && live >= p.maxWorkers {
		return nil, false, ErrResourceExhausted
	}

	w := newWorker(p.newHandle(), a, gen, alarmType, now, p.timing)
	p.workers = append(p.workers, w)

	ctx := p.ctx

	p.routines.Go(func() {
		w.run(ctx)
	})

	return w, sameType == 0, nil
}

// reap drops retired workers and returns how many were removed.
func (p *pool) reap() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	kept := p.workers[:0]

	for _, w := range p.workers {
		if w.isAlive() {
			kept = append(kept, w)
		}
	}

	removed := len(p.workers) - len(kept)

	clear(p.workers[len(kept):])
	p.workers = kept

	return removed
}

// snapshot lists live workers and their alarms in creation order.
func (p *pool) snapshot() []alarm.WorkerView {
	p.mu.Lock()
	defer p.mu.Unlock()

	views := make([]alarm.WorkerView, 0, len(p.workers))

	for _, w := range p.workers {
		if !w.isAlive() {
			continue
		}

		views = append(views, w.view())
	}

	return views
}

// size returns the number of tracked workers, retired ones included until reaped.
func (p *pool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.workers)
}

// wait blocks until every worker goroutine returned and logs captured panics.
func (p *pool) wait(ctx context.Context) {
	if r := p.routines.WaitAndRecover(); r != nil {
		logger.ErrorKV(ctx, "Worker panicked", "panic", r.Value, "stack", string(r.Stack))
	}
}
