package command

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
)

// Command keywords.
const (
	KeywordStart  = "Start_Alarm"
	KeywordChange = "Change_Alarm"
	KeywordCancel = "Cancel_Alarm"
	KeywordView   = "View_Alarms"
)

// ErrMalformed is returned for lines that do not match the grammar.
var ErrMalformed = errors.New("malformed command")

//nolint:gochecknoglobals // Compiled once.
var (
	mutatePattern = regexp.MustCompile(`^(Start_Alarm|Change_Alarm)\((\d+)\):\s*T(\S+)\s+(\d+)(?:\s+(.*))?$`)
	cancelPattern = regexp.MustCompile(`^Cancel_Alarm\((\d+)\)$`)
)

// Parse converts one input line into a request. Field validation beyond the
// grammar is left to alarm.Request.Validate.
func Parse(line string) (alarm.Request, error) {
	line = strings.TrimSpace(line)

	if line == KeywordView {
		return alarm.Request{Kind: alarm.KindView}, nil
	}

	if m := cancelPattern.FindStringSubmatch(line); m != nil {
		id, err := parseNumber(m[1])
		if err != nil {
			return alarm.Request{}, err
		}

		return alarm.Request{Kind: alarm.KindCancel, ID: id}, nil
	}

	m := mutatePattern.FindStringSubmatch(line)
	if m == nil {
		return alarm.Request{}, fmt.Errorf("%w: %q", ErrMalformed, line)
	}

	id, err := parseNumber(m[2])
	if err != nil {
		return alarm.Request{}, err
	}

	seconds, err := parseNumber(m[4])
	if err != nil {
		return alarm.Request{}, err
	}

	kind := alarm.KindStart
	if m[1] == KeywordChange {
		kind = alarm.KindChange
	}

	return alarm.Request{
		Kind:            kind,
		ID:              id,
		Type:            m[3],
		DurationSeconds: seconds,
		Message:         strings.TrimSpace(m[5]),
	}, nil
}

// parseNumber converts a digit run, rejecting values that overflow int.
func parseNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: number %q: %w", ErrMalformed, s, err)
	}

	return n, nil
}

// Format renders a request back into the line grammar.
func Format(req alarm.Request) string {
	switch req.Kind {
	case alarm.KindStart:
		return fmt.Sprintf("%s(%d): T%s %d %s", KeywordStart, req.ID, req.Type, req.DurationSeconds, req.Message)
	case alarm.KindChange:
		return fmt.Sprintf("%s(%d): T%s %d %s", KeywordChange, req.ID, req.Type, req.DurationSeconds, req.Message)
	case alarm.KindCancel:
		return fmt.Sprintf("%s(%d)", KeywordCancel, req.ID)
	case alarm.KindView:
		return KeywordView
	default:
		return ""
	}
}
