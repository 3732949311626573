// Package scheduler binds the alarm registry, the dispatcher and the worker
// pool into one running core.
//
// The control path (Submit and the periodic sweep) is serialized by a single
// mutex and mutates the registry. New or re-typed alarms travel to the
// dispatcher as tickets on a bounded FIFO queue. The dispatcher places each
// alarm in a free slot of a live worker of the same type or starts a new
// worker. Workers poll their two slots on a timed wait, are woken early when
// the sweep removes alarms or a cancel lands, and retire when both slots are
// empty.
//
// Lock order: control → registry → alarm, and pool → worker → alarm.
// Events are emitted outside every lock except the control mutex.
package scheduler
