// Package scheduler runs the alarm-scheduler process: it loads settings,
// starts the scheduling core, optionally serves it over gRPC and drives the
// interactive console until the input ends or the process is interrupted.
package scheduler
