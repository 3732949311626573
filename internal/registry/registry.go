package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
)

var (
	// ErrNotFound is returned when no alarm with the requested id is registered.
	ErrNotFound = errors.New("alarm not found")
	// ErrNilAlarm is returned when inserting a nil alarm.
	ErrNilAlarm = errors.New("alarm is nil")
)

// Update describes the outcome of a successful change.
type Update struct {
	// Alarm is the changed handle.
	Alarm *alarm.Alarm
	// View is the alarm right after the change.
	View alarm.View
	// Redispatch reports whether the alarm must be handed to the dispatcher again.
	Redispatch bool
	// Generation is the dispatch generation to publish when Redispatch is set.
	Generation uint64
}

// Registry holds live alarms in ascending id order.
// Alarms sharing an id keep their insertion order.
type Registry struct {
	// mu guards alarms.
	mu sync.Mutex
	// alarms is sorted by id.
	alarms []*alarm.Alarm
}

// New creates an empty registry.
func New() *Registry {
	return new(Registry)
}

// Insert adds a, keeping the id order. Duplicate ids are allowed.
func (r *Registry) Insert(a *alarm.Alarm) error {
	if a == nil {
		return ErrNilAlarm
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// First position with a greater id, so equal ids stay in arrival order.
	idx := sort.Search(len(r.alarms), func(i int) bool {
		return r.alarms[i].ID() > a.ID()
	})

	r.alarms = append(r.alarms, nil)
	copy(r.alarms[idx+1:], r.alarms[idx:])
	r.alarms[idx] = a

	return nil
}

// Update changes the first alarm with the given id and recomputes its expiry from now.
func (r *Registry) Update(id int, alarmType string, duration time.Duration, message string, now time.Time) (Update, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(id)
	if idx < 0 {
		return Update{}, ErrNotFound
	}

	a := r.alarms[idx]
	redispatch, gen := a.Change(alarmType, duration, message, now)

	return Update{
		Alarm:      a,
		View:       a.View(),
		Redispatch: redispatch,
		Generation: gen,
	}, nil
}

// Cancel marks the first alarm with the given id cancelled and removes it.
// Cancelling an id that is not registered reports ErrNotFound and changes nothing.
func (r *Registry) Cancel(id int) (alarm.View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(id)
	if idx < 0 {
		return alarm.View{}, ErrNotFound
	}

	view := r.alarms[idx].Cancel()
	r.removeLocked(idx)

	return view, nil
}

// SweepExpired removes every alarm whose expiry is at or before now, marks
// them expired and returns their final views in registry order.
func (r *Registry) SweepExpired(now time.Time) []alarm.View {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []alarm.View

	kept := r.alarms[:0]

	for _, a := range r.alarms {
		if a.ExpiredAt(now) {
			removed = append(removed, a.MarkExpired())
			continue
		}

		kept = append(kept, a)
	}

	// Drop references held by the tail of the backing array.
	clear(r.alarms[len(kept):])
	r.alarms = kept

	return removed
}

// Snapshot returns the registered alarms in order.
func (r *Registry) Snapshot() []alarm.View {
	r.mu.Lock()
	defer r.mu.Unlock()

	views := make([]alarm.View, 0, len(r.alarms))
	for _, a := range r.alarms {
		views = append(views, a.View())
	}

	return views
}

// Len returns the number of registered alarms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.alarms)
}

// indexLocked returns the index of the first alarm with id, or -1.
func (r *Registry) indexLocked(id int) int {
	idx := sort.Search(len(r.alarms), func(i int) bool {
		return r.alarms[i].ID() >= id
	})

	if idx < len(r.alarms) && r.alarms[idx].ID() == id {
		return idx
	}

	return -1
}

// removeLocked deletes the element at idx.
func (r *Registry) removeLocked(idx int) {
	copy(r.alarms[idx:], r.alarms[idx+1:])
	r.alarms[len(r.alarms)-1] = nil
	r.alarms = r.alarms[:len(r.alarms)-1]
}
