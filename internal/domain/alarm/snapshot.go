package alarm

import "time"

// WorkerView describes one live worker and the alarms it displays.
type WorkerView struct {
	// Handle is the opaque worker identity.
	Handle string
	// Type is the alarm type the worker is bound to.
	Type string
	// Alarms holds zero to two alarms in slot order.
	Alarms []View
}

// Snapshot is the read-only assignment report produced for a view request.
type Snapshot struct {
	// TakenAt is when the snapshot was produced.
	TakenAt time.Time
	// Workers lists live workers in creation order.
	Workers []WorkerView
}

// AlarmCount returns the number of assigned alarms across all workers.
func (s Snapshot) AlarmCount() int {
	total := 0
	for _, w := range s.Workers {
		total += len(w.Alarms)
	}

	return total
}

// Outcome is the result of a submitted request.
type Outcome struct {
	// Kind echoes the request kind.
	Kind Kind
	// Alarm is the affected alarm for start, change and cancel.
	Alarm View
	// Snapshot is the worker report for view requests.
	Snapshot *Snapshot
}
