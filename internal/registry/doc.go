// Package registry keeps the canonical, id-ordered list of live alarms.
//
// Every operation runs under a single lock held only for the duration of
// the list manipulation; callers log and signal after the call returns.
package registry
