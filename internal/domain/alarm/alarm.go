package alarm

import (
	"sync"
	"time"
)

// Status is the cancellation state of an alarm.
type Status int

const (
	// StatusActive marks an alarm that is still displayed.
	StatusActive Status = iota
	// StatusCancelled marks an alarm removed by a cancel request.
	StatusCancelled
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Verdict is what a worker concludes about an alarm it holds.
type Verdict int

const (
	// VerdictKeep means the worker keeps displaying the alarm.
	VerdictKeep Verdict = iota
	// VerdictTypeChanged means the alarm moved to another type or was re-dispatched.
	VerdictTypeChanged
	// VerdictCancelled means the alarm was cancelled.
	VerdictCancelled
	// VerdictExpired means the alarm reached its expiry.
	VerdictExpired
)

// String implements fmt.Stringer.
func (v Verdict) String() string {
	switch v {
	case VerdictKeep:
		return "keep"
	case VerdictTypeChanged:
		return "type changed"
	case VerdictCancelled:
		return "cancelled"
	case VerdictExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// View is an immutable copy of an alarm's observable fields.
type View struct {
	// ID is the caller-assigned identifier.
	ID int
	// Type is the tag used to group alarms on workers.
	Type string
	// Duration is the relative lifetime requested by the last start or change.
	Duration time.Duration
	// Message is the text displayed periodically.
	Message string
	// ExpiresAt is the absolute expiry computed from Duration.
	ExpiresAt time.Time
	// Status is the cancellation state.
	Status Status
	// Expired is set once the sweep removed the alarm from the registry.
	Expired bool
}

// DurationSeconds returns the requested duration in whole seconds.
func (v View) DurationSeconds() int {
	return int(v.Duration / time.Second)
}

// Alarm is a timed, typed, cancellable message.
//
// The registry mutates it under the registry lock; workers only read it and
// release their claim. Every field below mu is guarded by mu.
type Alarm struct {
	// id never changes after construction.
	id int

	mu sync.RWMutex
	// alarmType is the tag used to group alarms on workers.
	alarmType string
	// duration is the requested lifetime.
	duration time.Duration
	// expiresAt is the absolute expiry.
	expiresAt time.Time
	// message is the displayed text.
	message string
	// status is the cancellation state.
	status Status
	// expired is set by the sweep.
	expired bool
	// generation increases every time the alarm must be dispatched again.
	generation uint64
	// assigned reports whether a worker holds the current generation.
	assigned bool
}

// New creates an active alarm expiring duration after now.
func New(id int, alarmType string, duration time.Duration, message string, now time.Time) *Alarm {
	return &Alarm{
		id:        id,
		alarmType: alarmType,
		duration:  duration,
		expiresAt: now.Add(duration),
		message:   message,
		status:    StatusActive,
	}
}

// ID returns the caller-assigned identifier.
func (a *Alarm) ID() int {
	return a.id
}

// View returns a copy of the observable fields.
func (a *Alarm) View() View {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.viewLocked()
}

// Generation returns the current dispatch generation.
func (a *Alarm) Generation() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.generation
}

// ExpiredAt reports whether the alarm's expiry is at or before now.
func (a *Alarm) ExpiredAt(now time.Time) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return !now.Before(a.expiresAt)
}

// Change replaces type, duration and message and recomputes the expiry from now.
// It reports whether the alarm must go through the dispatcher again, which is
// the case when its type changed or no worker holds it any more; in that case
// the generation is advanced so the previous holder detaches.
func (a *Alarm) Change(alarmType string, duration time.Duration, message string, now time.Time) (bool, uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	typeChanged := a.alarmType != alarmType

	a.alarmType = alarmType
	a.duration = duration
	a.expiresAt = now.Add(duration)
	a.message = message

	if !typeChanged && a.assigned {
		return false, a.generation
	}

	a.generation++
	a.assigned = false

	return true, a.generation
}

// Cancel marks the alarm cancelled.
func (a *Alarm) Cancel() View {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.status = StatusCancelled

	return a.viewLocked()
}

// MarkExpired records that the sweep removed the alarm.
func (a *Alarm) MarkExpired() View {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.expired = true

	return a.viewLocked()
}

// Claim hands the alarm to a worker if gen is still the current generation
// and the alarm is neither cancelled nor expired. Only one claim per
// generation succeeds.
func (a *Alarm) Claim(gen uint64, now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if gen != a.generation || a.assigned {
		return false
	}

	if a.status == StatusCancelled || a.expired || !now.Before(a.expiresAt) {
		return false
	}

	a.assigned = true

	return true
}

// Release gives back a claim for gen. It is a no-op for stale generations.
func (a *Alarm) Release(gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if gen == a.generation {
		a.assigned = false
	}
}

// Inspect evaluates the alarm for a worker bound to boundType that claimed
// generation gen. Checks run in precedence order: type drift, cancellation,
// expiry. Any verdict other than VerdictKeep releases the claim.
func (a *Alarm) Inspect(gen uint64, boundType string, now time.Time) (Verdict, View) {
	a.mu.Lock()
	defer a.mu.Unlock()

	verdict := VerdictKeep

	switch {
	case a.alarmType != boundType || a.generation != gen:
		verdict = VerdictTypeChanged
	case a.status == StatusCancelled:
		verdict = VerdictCancelled
	case a.expired || !now.Before(a.expiresAt):
		verdict = VerdictExpired
	}

	if verdict != VerdictKeep && a.generation == gen {
		a.assigned = false
	}

	return verdict, a.viewLocked()
}

// viewLocked copies the observable fields. The caller holds mu.
func (a *Alarm) viewLocked() View {
	return View{
		ID:        a.id,
		Type:      a.alarmType,
		Duration:  a.duration,
		Message:   a.message,
		ExpiresAt: a.expiresAt,
		Status:    a.status,
		Expired:   a.expired,
	}
}
