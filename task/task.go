// File: task/task.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Task is the one-shot cooperative computation of the core. A task is
// created lazy; its frame (a goroutine) is spawned by the first of
// Await, Wait or Detach. The result slot is written exactly once
// before the done gate opens, and exactly one consumer may observe
// it. Panics escaping the body are captured in the frame and
// re-raised at the consumer, never propagated through the reactor or
// the executor.

package task

import (
	"context"
	"log"

	"code.hybscloud.com/atomix"

	"github.com/momentics/hioload-aio/concurrency"
)

const (
	statusCreated uint32 = iota
	statusStarted
	statusDone
)

// Task is a lazily started computation producing a value of type T or
// an error. Tasks are single-owner: hand the pointer off, do not
// share it between consumers.
type Task[T any] struct {
	body     func(context.Context) (T, error)
	state    atomix.Uint32
	consumed atomix.Uint32
	detached atomix.Uint32
	done     chan struct{}

	value    T
	err      error
	panicked any
}

// New creates a task from body. The body does not run until the task
// is awaited, waited on, or detached.
func New[T any](body func(context.Context) (T, error)) *Task[T] {
	return &Task[T]{
		body: body,
		done: make(chan struct{}),
	}
}

// Done reports completion; the channel closes after the result slot
// has been written.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

func (t *Task[T]) start(ctx context.Context) {
	if !t.state.CompareAndSwap(statusCreated, statusStarted) {
		return
	}
	go t.run(ctx)
}

func (t *Task[T]) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.panicked = r
			if t.detached.Load() != 0 {
				log.Printf("task: detached task panicked: %v", r)
			}
		}
		t.state.Store(statusDone)
		close(t.done)
	}()
	t.value, t.err = t.body(ctx)
}

func (t *Task[T]) consume() {
	if t.consumed.Swap(1) != 0 {
		panic("task: result consumed more than once")
	}
}

// Await starts the task if needed, parks the caller until it
// completes, and returns the result by move. A panic captured from
// the body is re-raised here. Awaiting a task twice panics.
//
// Await is intended for use inside another task; external callers use
// Wait.
func Await[T any](ctx context.Context, t *Task[T]) (T, error) {
	t.consume()
	t.start(ctx)
	<-t.done
	if t.panicked != nil {
		panic(t.panicked)
	}
	return t.value, t.err
}

// Wait is the blocking bridge for non-task callers: it starts the
// task and blocks the current goroutine until the result is ready.
//
// Wait must not be called from an executor worker; if every worker
// blocks in Wait there is nobody left to resume the awaited task.
func Wait[T any](t *Task[T]) (T, error) {
	return Await(context.Background(), t)
}

// Detach transfers ownership of the task frame to the executor and
// starts it. The result is dropped when the body returns; a panic is
// logged and swallowed. After Detach no other consumer may observe
// the task.
func Detach[T any](t *Task[T], exec *concurrency.Executor) {
	t.consume()
	t.detached.Store(1)
	if err := exec.Post(func() { t.start(context.Background()) }); err != nil {
		// Executor already stopped; run the frame on its own.
		t.start(context.Background())
	}
}
