package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/oshokin/alarm-scheduler/internal/clock"
	"github.com/oshokin/alarm-scheduler/internal/config"
	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/event"
	"github.com/oshokin/alarm-scheduler/internal/logger"
	"github.com/oshokin/alarm-scheduler/internal/queue"
	"github.com/oshokin/alarm-scheduler/internal/registry"
)

// ActorControl identifies the control path in events.
const ActorControl = "main"

// Scheduler owns the registry, the worker pool and the goroutines binding them.
type Scheduler struct {
	// cfg holds intervals and limits.
	cfg *config.Config
	// clock supplies now.
	clock clock.Clock
	// emitter publishes status transitions.
	emitter event.Emitter
	// newHandle produces worker identities.
	newHandle func() string

	// registry is the source of truth for live alarms.
	registry *registry.Registry
	// pool owns the workers.
	pool *pool
	// tickets carries alarms from the control path to the dispatcher.
	tickets *queue.Queue[ticket]
	// wakeup releases workers waiting for their next tick.
	wakeup *notifier
	// dispatcher consumes tickets.
	dispatcher *dispatcher

	// control serializes submissions and sweeps.
	control sync.Mutex
	// running is true between Start and Stop. Guarded by control.
	running bool
	// started is set once by Start. Guarded by control.
	started bool
	// cancel stops the background goroutines.
	cancel context.CancelFunc
	// routines tracks the dispatcher and the sweeper.
	routines conc.WaitGroup
	// logCtx carries the control logger used by Stop.
	logCtx context.Context //nolint:containedctx // Stop has no caller context.

	stopOnce sync.Once
}

// New builds a scheduler from validated settings. Call Start before Submit.
func New(cfg *config.Config, opts ...Option) (*Scheduler, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	s := &Scheduler{
		cfg:       cfg,
		clock:     clock.System{},
		emitter:   event.LogEmitter{},
		newHandle: uuid.NewString,
		registry:  registry.New(),
		wakeup:    newNotifier(),
		logCtx:    context.Background(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.pool = newPool(cfg.MaxWorkers, s.newHandle, workerTiming{
		tick:    cfg.TickInterval,
		display: cfg.DisplayInterval,
		clock:   s.clock,
		emitter: s.emitter,
		wakeup:  s.wakeup,
	})

	s.tickets = queue.New[ticket](cfg.QueueSize, cfg.RetryDelay)

	s.dispatcher = &dispatcher{
		queue:   s.tickets,
		pool:    s.pool,
		clock:   s.clock,
		emitter: s.emitter,
	}

	return s, nil
}

// Start launches the dispatcher and the sweeper. They stop when ctx ends or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.control.Lock()
	defer s.control.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)

	s.started = true
	s.running = true
	s.cancel = cancel
	s.logCtx = logger.WithName(ctx, "control")

	s.pool.start(runCtx)

	s.routines.Go(func() {
		s.dispatcher.run(runCtx)
	})

	s.routines.Go(func() {
		s.sweepLoop(logger.WithName(runCtx, "control"))
	})

	logger.InfoKV(s.logCtx, "Scheduler started",
		"tick_interval", s.cfg.TickInterval,
		"display_interval", s.cfg.DisplayInterval,
		"sweep_interval", s.cfg.SweepInterval,
		"max_workers", s.cfg.MaxWorkers,
	)

	return nil
}

// Stop cancels the background goroutines and waits for every worker to return.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		// Closing first releases a submission blocked on a full queue while holding control.
		s.tickets.Close()

		s.control.Lock()
		s.running = false
		cancel := s.cancel
		s.control.Unlock()

		if cancel != nil {
			cancel()
		}

		if r := s.routines.WaitAndRecover(); r != nil {
			logger.ErrorKV(s.logCtx, "Background goroutine panicked", "panic", r.Value, "stack", string(r.Stack))
		}

		s.pool.wait(s.logCtx)

		logger.Info(s.logCtx, "Scheduler stopped")
	})
}

// Submit applies one request in arrival order. Change and cancel of an
// unknown id return an error wrapping registry.ErrNotFound.
func (s *Scheduler) Submit(ctx context.Context, req alarm.Request) (alarm.Outcome, error) {
	if err := req.Validate(s.cfg.MaxMessageLength); err != nil {
		return alarm.Outcome{}, err
	}

	s.control.Lock()
	defer s.control.Unlock()

	if !s.running {
		return alarm.Outcome{}, ErrNotRunning
	}

	// Expired alarms and retired workers are gone before the request observes them.
	s.sweepLocked(ctx)

	switch req.Kind {
	case alarm.KindStart:
		return s.start(ctx, req)
	case alarm.KindChange:
		return s.change(ctx, req)
	case alarm.KindCancel:
		return s.cancelAlarm(ctx, req)
	case alarm.KindView:
		snapshot := s.snapshotLocked()

		return alarm.Outcome{Kind: alarm.KindView, Snapshot: &snapshot}, nil
	default:
		return alarm.Outcome{}, fmt.Errorf("%w: unknown kind %d", alarm.ErrInvalidRequest, req.Kind)
	}
}

// Snapshot reaps retired workers and reports the live assignments.
func (s *Scheduler) Snapshot(ctx context.Context) alarm.Snapshot {
	s.control.Lock()
	defer s.control.Unlock()

	s.sweepLocked(ctx)

	return s.snapshotLocked()
}

// Alarms returns the registered alarms in registry order.
func (s *Scheduler) Alarms() []alarm.View {
	return s.registry.Snapshot()
}

// Sweep removes expired alarms and retired workers and returns the number of removed alarms.
func (s *Scheduler) Sweep(ctx context.Context) int {
	s.control.Lock()
	defer s.control.Unlock()

	return s.sweepLocked(ctx)
}

// start inserts a new alarm and hands it to the dispatcher.
func (s *Scheduler) start(ctx context.Context, req alarm.Request) (alarm.Outcome, error) {
	now := s.clock.Now()
	a := alarm.New(req.ID, req.Type, req.Duration(), req.Message, now)

	if err := s.registry.Insert(a); err != nil {
		return alarm.Outcome{}, fmt.Errorf("insert alarm: %w", err)
	}

	view := a.View()
	s.emit(ctx, event.KindInserted, now, view)

	if err := s.tickets.Publish(ctx, ticket{alarm: a, generation: a.Generation()}); err != nil {
		return alarm.Outcome{}, fmt.Errorf("publish alarm %d: %w", req.ID, err)
	}

	return alarm.Outcome{Kind: alarm.KindStart, Alarm: view}, nil
}

// change updates an alarm and re-dispatches it when its type changed or it lost its worker.
func (s *Scheduler) change(ctx context.Context, req alarm.Request) (alarm.Outcome, error) {
	now := s.clock.Now()

	upd, err := s.registry.Update(req.ID, req.Type, req.Duration(), req.Message, now)
	if err != nil {
		return alarm.Outcome{}, fmt.Errorf("change alarm %d: %w", req.ID, err)
	}

	s.emit(ctx, event.KindChanged, now, upd.View)

	if upd.Redispatch {
		if err := s.tickets.Publish(ctx, ticket{alarm: upd.Alarm, generation: upd.Generation}); err != nil {
			return alarm.Outcome{}, fmt.Errorf("publish alarm %d: %w", req.ID, err)
		}

		// The previous holder notices the new generation without waiting a full tick.
		s.wakeup.broadcast()
	}

	return alarm.Outcome{Kind: alarm.KindChange, Alarm: upd.View}, nil
}

// cancelAlarm removes an alarm; its worker notices on the next evaluation.
func (s *Scheduler) cancelAlarm(ctx context.Context, req alarm.Request) (alarm.Outcome, error) {
	view, err := s.registry.Cancel(req.ID)
	if err != nil {
		return alarm.Outcome{}, fmt.Errorf("cancel alarm %d: %w", req.ID, err)
	}

	s.emit(ctx, event.KindCancelled, s.clock.Now(), view)
	s.wakeup.broadcast()

	return alarm.Outcome{Kind: alarm.KindCancel, Alarm: view}, nil
}

// sweepLoop sweeps on the configured interval until ctx ends.
func (s *Scheduler) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// sweepLocked removes expired alarms, wakes workers and reaps retired ones.
// The caller holds control.
func (s *Scheduler) sweepLocked(ctx context.Context) int {
	now := s.clock.Now()
	removed := s.registry.SweepExpired(now)

	for _, view := range removed {
		s.emit(ctx, event.KindExpiredRemoved, now, view)
	}

	if len(removed) > 0 {
		s.wakeup.broadcast()
	}

	if reaped := s.pool.reap(); reaped > 0 {
		logger.DebugKV(ctx, "Reaped retired workers", "count", reaped)
	}

	return len(removed)
}

// snapshotLocked reports live assignments. The caller holds control.
func (s *Scheduler) snapshotLocked() alarm.Snapshot {
	return alarm.Snapshot{
		TakenAt: s.clock.Now(),
		Workers: s.pool.snapshot(),
	}
}

// emit publishes an event acted by the control path.
func (s *Scheduler) emit(ctx context.Context, kind event.Kind, at time.Time, view alarm.View) {
	s.emitter.Emit(ctx, event.Event{
		Kind:  kind,
		At:    at,
		Actor: ActorControl,
		Slot:  -1,
		Alarm: view,
	})
}
