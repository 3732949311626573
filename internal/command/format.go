package command

import (
	"fmt"
	"io"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
)

// FormatSnapshot writes the view report: a header, then every live worker
// numbered from 1 with its alarms lettered a and b.
func FormatSnapshot(w io.Writer, snapshot alarm.Snapshot) error {
	if _, err := fmt.Fprintf(w, "View Alarms at %d:\n", snapshot.TakenAt.Unix()); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}

	for i, worker := range snapshot.Workers {
		number := i + 1

		if _, err := fmt.Fprintf(w, "%d. Display Thread %s Assigned:\n", number, worker.Handle); err != nil {
			return fmt.Errorf("write worker %s: %w", worker.Handle, err)
		}

		for j, a := range worker.Alarms {
			letter := rune('a' + j)

			if _, err := fmt.Fprintf(w, "%d%c. Alarm(%d): T%s %d %s\n",
				number, letter, a.ID, a.Type, a.DurationSeconds(), a.Message); err != nil {
				return fmt.Errorf("write alarm %d: %w", a.ID, err)
			}
		}
	}

	return nil
}

// FormatOutcome renders the acknowledgement printed after a start, change or cancel.
func FormatOutcome(kind alarm.Kind, view alarm.View) string {
	switch kind {
	case alarm.KindStart:
		return fmt.Sprintf("Alarm(%d) accepted: T%s %d %s", view.ID, view.Type, view.DurationSeconds(), view.Message)
	case alarm.KindChange:
		return fmt.Sprintf("Alarm(%d) changed: T%s %d %s", view.ID, view.Type, view.DurationSeconds(), view.Message)
	case alarm.KindCancel:
		return fmt.Sprintf("Alarm(%d) cancelled", view.ID)
	case alarm.KindView:
		return ""
	default:
		return ""
	}
}
