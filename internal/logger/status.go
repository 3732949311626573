package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// statusCore overrides the level check of the wrapped core. Alarm status
// lines go through it so they reach the sink even when the configured level
// is warn or error.
type statusCore struct {
	zapcore.Core

	// level is the minimum level accepted regardless of the wrapped core.
	level zapcore.Level
}

// Enabled reports whether l passes the fixed status level.
func (c *statusCore) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l)
}

// Check adds c to ce when the entry passes the fixed status level.
//
//nolint:gocritic // AddCore requires ent to be passed by value.
func (c *statusCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(ent.Level) {
		return ce
	}

	return ce.AddCore(ent, c)
}

// With keeps the fixed level on cores derived with fields such as the worker handle.
//
//nolint:ireturn,nolintlint // Returning zapcore.Core is intended for zap integration.
func (c *statusCore) With(fields []zapcore.Field) zapcore.Core {
	return &statusCore{
		Core:  c.Core.With(fields),
		level: c.level,
	}
}

// WithLevel pins the level of a derived logger, ignoring the level of the sink it writes to.
//
//nolint:ireturn,nolintlint // Returning zap.Option is intended for zap integration.
func WithLevel(lvl zapcore.Level) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &statusCore{Core: core, level: lvl}
	})
}

// StatusKV writes an alarm status line with key-value pairs at the information
// level, even when the configured level is higher.
func StatusKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).WithOptions(WithLevel(zapcore.InfoLevel)).Infow(message, kvs...)
}
