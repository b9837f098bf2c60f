// File: concurrency/invoke.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Invoke bridges blocking calls onto the executor. The calling task
// parks until a worker has run the closure and published the result.
// This is how file open/close and other syscalls with no asynchronous
// form reach a worker instead of the reactor goroutine.

package concurrency

// Invoke posts fn to the executor, parks the caller, and returns fn's
// result once a worker has run it. The only error is
// ErrExecutorClosed.
//
// Invoke must not be called from an executor worker: with every
// worker parked in Invoke there is nobody left to run the closures.
func Invoke[T any](e *Executor, fn func() T) (T, error) {
	done := make(chan struct{})
	var ret T
	if err := e.Post(func() {
		ret = fn()
		close(done)
	}); err != nil {
		var zero T
		return zero, err
	}
	<-done
	return ret, nil
}
