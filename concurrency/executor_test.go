// File: concurrency/executor_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecutorRunsPostedWork(t *testing.T) {
	e := NewExecutor(2)
	e.StartThreads()
	defer e.Stop()

	var ran atomic.Bool
	done := make(chan struct{})
	if err := e.Post(func() { ran.Store(true); close(done) }); err != nil {
		t.Fatalf("Post() error: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("posted closure did not run")
	}
	if !ran.Load() {
		t.Fatal("closure ran but flag not set")
	}
}

func TestExecutorSingleProducerFIFO(t *testing.T) {
	// One worker, one producer: items must run in submission order.
	e := NewExecutor(1)
	e.StartThreads()
	defer e.Stop()

	const items = 200
	var mu sync.Mutex
	var got []int
	done := make(chan struct{})
	for i := 0; i < items; i++ {
		i := i
		if err := e.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			if i == items-1 {
				close(done)
			}
		}); err != nil {
			t.Fatalf("Post(%d) error: %v", i, err)
		}
	}
	<-done
	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i {
			t.Fatalf("item %d ran out of order (got %d)", i, v)
		}
	}
}

func TestExecutorStopDrainsQueue(t *testing.T) {
	e := NewExecutor(1)
	e.StartThreads()

	var count atomic.Int32
	for i := 0; i < 50; i++ {
		if err := e.Post(func() { count.Add(1) }); err != nil {
			t.Fatalf("Post() error: %v", err)
		}
	}
	e.Stop()
	if got := count.Load(); got != 50 {
		t.Fatalf("ran %d items after Stop, want 50 drained", got)
	}
	if err := e.Post(func() {}); err != ErrExecutorClosed {
		t.Fatalf("Post() after Stop = %v, want ErrExecutorClosed", err)
	}
}

func TestInvoke(t *testing.T) {
	e := NewExecutor(2)
	e.StartThreads()
	defer e.Stop()

	got, err := Invoke(e, func() int { return 41 + 1 })
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if got != 42 {
		t.Fatalf("Invoke() = %d, want 42", got)
	}
}

func TestInvokeAfterStop(t *testing.T) {
	e := NewExecutor(1)
	e.StartThreads()
	e.Stop()
	if _, err := Invoke(e, func() int { return 0 }); err != ErrExecutorClosed {
		t.Fatalf("Invoke() after Stop = %v, want ErrExecutorClosed", err)
	}
}
