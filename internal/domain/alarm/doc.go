// Package alarm contains the core domain types of the scheduler.
//
// Alarm is the shared handle owned by the registry and observed by at most
// one worker at a time; its fields are guarded by a per-alarm lock, so a
// worker may keep reading a handle the registry already dropped. Request
// and Snapshot are the values exchanged with command and report
// collaborators.
package alarm
