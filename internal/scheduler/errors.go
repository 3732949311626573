package scheduler

import "errors"

var (
	// ErrResourceExhausted is returned when a new worker would exceed the configured cap.
	ErrResourceExhausted = errors.New("worker limit reached")
	// ErrNotRunning is returned by Submit before Start or after Stop.
	ErrNotRunning = errors.New("scheduler is not running")
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("scheduler already started")
)
