package alarm

import (
	"errors"
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/alarm-scheduler/internal/domain/alarm"
)

// Field names of the wire messages.
const (
	fieldKind            = "kind"
	fieldID              = "id"
	fieldType            = "type"
	fieldDurationSeconds = "duration_seconds"
	fieldMessage         = "message"
	fieldExpiresAt       = "expires_at"
	fieldStatus          = "status"
	fieldExpired         = "expired"
	fieldAlarm           = "alarm"
	fieldSnapshot        = "snapshot"
	fieldTakenAt         = "taken_at"
	fieldWorkers         = "workers"
	fieldHandle          = "handle"
	fieldAlarms          = "alarms"
)

// ErrBadMessage is returned when a wire message does not have the expected shape.
var ErrBadMessage = errors.New("bad message")

// EncodeRequest converts a request into its wire form.
func EncodeRequest(req domain.Request) (*structpb.Struct, error) {
	msg, err := structpb.NewStruct(map[string]any{
		fieldKind:            req.Kind.String(),
		fieldID:              req.ID,
		fieldType:            req.Type,
		fieldDurationSeconds: req.DurationSeconds,
		fieldMessage:         req.Message,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	return msg, nil
}

// DecodeRequest converts a wire message into a request. Field validation is
// left to domain.Request.Validate.
func DecodeRequest(msg *structpb.Struct) (domain.Request, error) {
	fields := msg.GetFields()

	kind, ok := domain.ParseKind(fields[fieldKind].GetStringValue())
	if !ok {
		return domain.Request{}, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidRequest, fields[fieldKind].GetStringValue())
	}

	id, err := intField(fields, fieldID)
	if err != nil {
		return domain.Request{}, err
	}

	seconds, err := intField(fields, fieldDurationSeconds)
	if err != nil {
		return domain.Request{}, err
	}

	return domain.Request{
		Kind:            kind,
		ID:              id,
		Type:            fields[fieldType].GetStringValue(),
		DurationSeconds: seconds,
		Message:         fields[fieldMessage].GetStringValue(),
	}, nil
}

// EncodeOutcome converts an outcome into its wire form.
func EncodeOutcome(out domain.Outcome) (*structpb.Struct, error) {
	payload := map[string]any{
		fieldKind: out.Kind.String(),
	}

	if out.Kind != domain.KindView {
		payload[fieldAlarm] = viewMap(out.Alarm)
	}

	if out.Snapshot != nil {
		payload[fieldSnapshot] = snapshotMap(*out.Snapshot)
	}

	msg, err := structpb.NewStruct(payload)
	if err != nil {
		return nil, fmt.Errorf("encode outcome: %w", err)
	}

	return msg, nil
}

// DecodeOutcome converts a wire message into an outcome.
func DecodeOutcome(msg *structpb.Struct) (domain.Outcome, error) {
	fields := msg.GetFields()

	kind, ok := domain.ParseKind(fields[fieldKind].GetStringValue())
	if !ok {
		return domain.Outcome{}, fmt.Errorf("%w: unknown kind %q", ErrBadMessage, fields[fieldKind].GetStringValue())
	}

	out := domain.Outcome{Kind: kind}

	if a := fields[fieldAlarm].GetStructValue(); a != nil {
		view, err := decodeView(a)
		if err != nil {
			return domain.Outcome{}, err
		}

		out.Alarm = view
	}

	if s := fields[fieldSnapshot].GetStructValue(); s != nil {
		snapshot, err := DecodeSnapshot(s)
		if err != nil {
			return domain.Outcome{}, err
		}

		out.Snapshot = &snapshot
	}

	return out, nil
}

// EncodeSnapshot converts a snapshot into its wire form.
func EncodeSnapshot(snapshot domain.Snapshot) (*structpb.Struct, error) {
	msg, err := structpb.NewStruct(snapshotMap(snapshot))
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	return msg, nil
}

// DecodeSnapshot converts a wire message into a snapshot.
func DecodeSnapshot(msg *structpb.Struct) (domain.Snapshot, error) {
	fields := msg.GetFields()

	takenAt, err := timeField(fields, fieldTakenAt)
	if err != nil {
		return domain.Snapshot{}, err
	}

	snapshot := domain.Snapshot{TakenAt: takenAt}

	for _, item := range fields[fieldWorkers].GetListValue().GetValues() {
		w := item.GetStructValue()
		if w == nil {
			return domain.Snapshot{}, fmt.Errorf("%w: worker is not an object", ErrBadMessage)
		}

		wf := w.GetFields()
		worker := domain.WorkerView{
			Handle: wf[fieldHandle].GetStringValue(),
			Type:   wf[fieldType].GetStringValue(),
		}

		for _, av := range wf[fieldAlarms].GetListValue().GetValues() {
			a := av.GetStructValue()
			if a == nil {
				return domain.Snapshot{}, fmt.Errorf("%w: alarm is not an object", ErrBadMessage)
			}

			view, err := decodeView(a)
			if err != nil {
				return domain.Snapshot{}, err
			}

			worker.Alarms = append(worker.Alarms, view)
		}

		snapshot.Workers = append(snapshot.Workers, worker)
	}

	return snapshot, nil
}

func viewMap(v domain.View) map[string]any {
	m := map[string]any{
		fieldID:              v.ID,
		fieldType:            v.Type,
		fieldDurationSeconds: v.DurationSeconds(),
		fieldMessage:         v.Message,
		fieldStatus:          v.Status.String(),
		fieldExpired:         v.Expired,
	}

	if !v.ExpiresAt.IsZero() {
		m[fieldExpiresAt] = v.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}

	return m
}

func snapshotMap(s domain.Snapshot) map[string]any {
	workers := make([]any, 0, len(s.Workers))

	for _, w := range s.Workers {
		alarms := make([]any, 0, len(w.Alarms))
		for _, a := range w.Alarms {
			alarms = append(alarms, viewMap(a))
		}

		workers = append(workers, map[string]any{
			fieldHandle: w.Handle,
			fieldType:   w.Type,
			fieldAlarms: alarms,
		})
	}

	return map[string]any{
		fieldTakenAt: s.TakenAt.UTC().Format(time.RFC3339Nano),
		fieldWorkers: workers,
	}
}

func decodeView(msg *structpb.Struct) (domain.View, error) {
	fields := msg.GetFields()

	id, err := intField(fields, fieldID)
	if err != nil {
		return domain.View{}, err
	}

	seconds, err := intField(fields, fieldDurationSeconds)
	if err != nil {
		return domain.View{}, err
	}

	expiresAt, err := timeField(fields, fieldExpiresAt)
	if err != nil {
		return domain.View{}, err
	}

	status := domain.StatusActive
	if fields[fieldStatus].GetStringValue() == domain.StatusCancelled.String() {
		status = domain.StatusCancelled
	}

	return domain.View{
		ID:        id,
		Type:      fields[fieldType].GetStringValue(),
		Duration:  time.Duration(seconds) * time.Second,
		Message:   fields[fieldMessage].GetStringValue(),
		ExpiresAt: expiresAt,
		Status:    status,
		Expired:   fields[fieldExpired].GetBoolValue(),
	}, nil
}

// intField reads an integral number. A missing field reads as zero.
func intField(fields map[string]*structpb.Value, name string) (int, error) {
	v, ok := fields[name]
	if !ok {
		return 0, nil
	}

	if _, isNumber := v.GetKind().(*structpb.Value_NumberValue); !isNumber {
		return 0, fmt.Errorf("%w: %s is not a number", ErrBadMessage, name)
	}

	n := v.GetNumberValue()
	if n != math.Trunc(n) || n > math.MaxInt32 || n < math.MinInt32 {
		return 0, fmt.Errorf("%w: %s is not a 32-bit integer", ErrBadMessage, name)
	}

	return int(n), nil
}

// timeField reads an RFC 3339 timestamp. A missing field reads as the zero time.
func timeField(fields map[string]*structpb.Value, name string) (time.Time, error) {
	raw := fields[name].GetStringValue()
	if raw == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %w", ErrBadMessage, name, err)
	}

	return t, nil
}
