// Package api
// Author: momentics
//
// Executor contract for offloading CPU-bound work away from event loops.

package api

// Executor abstracts parallel task execution.
type Executor interface {
	// Submit schedules task for execution.
	Submit(task func()) error

	// NumWorkers returns current number of active worker routines.
	NumWorkers() int

	// Close stops accepting tasks and waits for running ones.
	Close()
}
