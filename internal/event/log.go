package event

import (
	"context"

	"github.com/oshokin/alarm-scheduler/internal/logger"
)

// LogEmitter writes status lines through the logger carried by the context.
// Lines are written at info level whatever the configured level is.
type LogEmitter struct{}

// Emit implements Emitter.
func (LogEmitter) Emit(ctx context.Context, e Event) {
	kvs := []any{"event", e.Kind.String(), "actor", e.Actor}

	if e.Worker != "" {
		kvs = append(kvs, "worker", e.Worker)
	}

	if e.Kind != KindWorkerTerminated {
		kvs = append(kvs,
			"alarm_id", e.Alarm.ID,
			"type", e.Alarm.Type,
			"duration", e.Alarm.Duration,
			"message", e.Alarm.Message,
		)
	}

	if e.Slot >= 0 {
		kvs = append(kvs, "slot", e.Slot)
	}

	logger.StatusKV(ctx, e.String(), kvs...)
}
