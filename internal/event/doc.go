// Package event defines the observable status transitions of the scheduler
// and the emitters that publish them.
//
// LogEmitter renders each Event as a human-readable status line through the
// zap logger carried by the context; Recorder keeps events in memory for
// tests and diagnostics.
package event
