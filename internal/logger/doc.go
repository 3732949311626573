// Package logger wraps zap to give the scheduler:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and switching at runtime,
//   - leveled shortcuts (Infof, InfoKV, ErrorKV and friends).
//
// Every goroutine the scheduler starts gets a context carrying a named
// logger, so status lines can be traced back to the control path, the
// dispatcher or a particular worker.
package logger
