// File: concurrency/executor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor dispatches closures across a fixed pool of worker
// goroutines over a bounded lock-free MPMC queue. Producers and
// workers wait past the would-block boundary with adaptive backoff.

package concurrency

import (
	"runtime"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"

	"github.com/momentics/hioload-aio/api"
)

// queueCapacity bounds the pending work queue. Producers that find it
// full back off and retry rather than fail.
const queueCapacity = 4096

// Executor is a multi-producer FIFO of closures with a fixed worker
// pool. Items posted by a single goroutine run in submission order;
// items from distinct producers may run concurrently.
type Executor struct {
	queue    *lfq.MPMC[func()]
	stopped  atomix.Uint32
	draining atomix.Uint32
	wg       sync.WaitGroup
	workers  int
	started  atomix.Uint32
}

var _ api.Executor = (*Executor)(nil)

// NewExecutor creates an executor with the given worker count.
// A count <= 0 selects the logical CPU count.
func NewExecutor(workers int) *Executor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Executor{
		queue:   lfq.NewMPMC[func()](queueCapacity),
		workers: workers,
	}
}

// NumWorkers returns the configured worker count.
func (e *Executor) NumWorkers() int { return e.workers }

// StartThreads spawns the worker goroutines. Idempotent.
func (e *Executor) StartThreads() {
	if !e.started.CompareAndSwap(0, 1) {
		return
	}
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
}

// Post enqueues fn. When the queue is full, Post backs off and
// retries; it fails only after Stop.
func (e *Executor) Post(fn func()) error {
	if e.stopped.Load() != 0 {
		return ErrExecutorClosed
	}
	var bo iox.Backoff
	for {
		if err := e.queue.Enqueue(&fn); err == nil {
			return nil
		}
		if e.stopped.Load() != 0 {
			return ErrExecutorClosed
		}
		bo.Wait()
	}
}

// Stop marks the executor closed and joins the workers. Workers drain
// every item already queued before exiting.
//
// The FAA-based queue's anti-livelock threshold can report would-block
// while items remain once producers go quiet, so Stop switches the
// queue into drain mode first; only after that does a would-block
// dequeue prove the queue empty.
func (e *Executor) Stop() {
	if !e.stopped.CompareAndSwap(0, 1) {
		return
	}
	if d, ok := any(e.queue).(lfq.Drainer); ok {
		d.Drain()
	}
	e.draining.Store(1)
	e.wg.Wait()
}

func (e *Executor) worker() {
	defer e.wg.Done()
	var bo iox.Backoff
	for {
		fn, err := e.queue.Dequeue()
		if err == nil {
			bo = iox.Backoff{}
			fn()
			continue
		}
		if !iox.IsWouldBlock(err) {
			return
		}
		if e.draining.Load() != 0 {
			// Threshold checks are off: would-block means empty.
			return
		}
		bo.Wait()
	}
}
