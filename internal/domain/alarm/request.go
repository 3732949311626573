package alarm

import (
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

// Kind is the operation requested by a command.
type Kind int

const (
	// KindStart creates a new alarm.
	KindStart Kind = iota + 1
	// KindChange replaces type, duration and message of an existing alarm.
	KindChange
	// KindCancel cancels an existing alarm.
	KindCancel
	// KindView requests a snapshot of the worker assignments.
	KindView
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindChange:
		return "change"
	case KindCancel:
		return "cancel"
	case KindView:
		return "view"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for _, k := range []Kind{KindStart, KindChange, KindCancel, KindView} {
		if k.String() == s {
			return k, true
		}
	}

	return 0, false
}

const (
	// MaxID is the largest accepted alarm id. Ids travel as 32-bit integers on the wire.
	MaxID = math.MaxInt32
	// MaxDurationSeconds is the largest accepted duration, shared with the wire format.
	MaxDurationSeconds = math.MaxInt32
)

// ErrInvalidRequest is returned for requests with missing or out-of-range fields.
var ErrInvalidRequest = errors.New("invalid alarm request")

// Request is a validated command coming from a command port.
type Request struct {
	// Kind selects the operation.
	Kind Kind
	// ID is the alarm identifier. Unused for KindView.
	ID int
	// Type is the alarm type tag. Required for start and change.
	Type string
	// DurationSeconds is the relative lifetime. Required for start and change.
	DurationSeconds int
	// Message is the displayed text for start and change.
	Message string
}

// Duration returns DurationSeconds as a time.Duration.
func (r *Request) Duration() time.Duration {
	return time.Duration(r.DurationSeconds) * time.Second
}

// Validate checks the fields required by Kind and truncates Message to
// maxMessage bytes without splitting a UTF-8 sequence. A non-positive
// maxMessage disables truncation.
func (r *Request) Validate(maxMessage int) error {
	switch r.Kind {
	case KindStart, KindChange:
		if r.ID < 0 || r.ID > MaxID {
			return fmt.Errorf("%w: id %d out of range", ErrInvalidRequest, r.ID)
		}

		if r.Type == "" {
			return fmt.Errorf("%w: type is required", ErrInvalidRequest)
		}

		if r.DurationSeconds < 0 {
			return fmt.Errorf("%w: duration must not be negative", ErrInvalidRequest)
		}

		if r.DurationSeconds > MaxDurationSeconds {
			return fmt.Errorf("%w: duration %d exceeds %d seconds", ErrInvalidRequest, r.DurationSeconds, MaxDurationSeconds)
		}

		r.Message = truncate(r.Message, maxMessage)
	case KindCancel:
		if r.ID < 0 || r.ID > MaxID {
			return fmt.Errorf("%w: id %d out of range", ErrInvalidRequest, r.ID)
		}
	case KindView:
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidRequest, r.Kind)
	}

	return nil
}

// truncate cuts s to at most limit bytes on a rune boundary.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}

	s = s[:limit]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}

	return s
}
