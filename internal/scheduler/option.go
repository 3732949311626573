package scheduler

import (
	"github.com/oshokin/alarm-scheduler/internal/clock"
	"github.com/oshokin/alarm-scheduler/internal/event"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithEmitter replaces the status event emitter.
func WithEmitter(em event.Emitter) Option {
	return func(s *Scheduler) {
		if em != nil {
			s.emitter = em
		}
	}
}

// WithHandleFunc replaces the worker handle generator.
func WithHandleFunc(fn func() string) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.newHandle = fn
		}
	}
}
