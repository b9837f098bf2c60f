// File: api/executor.go
// Author: momentics <momentics@gmail.com>
//
// Executor contract for resume dispatch and blocking-call offload.

package api

// Executor abstracts a FIFO worker pool. The reactor posts task resume
// closures here; channels post blocking syscalls here.
type Executor interface {
	// Post schedules fn for execution. Items posted by a single
	// goroutine run in submission order.
	Post(fn func()) error

	// NumWorkers returns the number of worker goroutines.
	NumWorkers() int
}
