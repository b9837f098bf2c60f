//go:build linux

// File: channel/stress_linux_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrent random-offset read stress over one direct-access
// channel. Positioned reads keep no cursor, so one open channel is
// shared by every task.

package channel

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/momentics/hioload-aio/buffer"
	"github.com/momentics/hioload-aio/task"
)

const (
	stressTasks  = 25
	stressOps    = 500
	stressRunFor = 20 * time.Second
)

func TestDAFileStress(t *testing.T) {
	runFor := stressRunFor
	if testing.Short() {
		runFor = 0 // one batch of ops per task
	}

	path := t.TempDir() + "/stress.txt"
	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	chnl := NewDAFile()
	if err := chnl.Open(path, Read); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer func() { _ = chnl.Close() }()

	stress := func(seed int64) func(context.Context) (int, error) {
		return func(ctx context.Context) (int, error) {
			rng := rand.New(rand.NewSource(seed))
			start := time.Now()
			for {
				for i := 0; i < stressOps; i++ {
					offs := rng.Int63n(10)
					buf := buffer.NewFixed(1)
					if _, err := chnl.AsyncReadSomeAt(ctx, offs, buf); err != nil {
						return 1, err
					}
					b := make([]byte, 1)
					buf.Read(b)
					if b[0] != byte('0'+offs) {
						return 1, fmt.Errorf("offset %d read %q", offs, b)
					}
				}
				if time.Since(start) >= runFor {
					return 0, nil
				}
			}
		}
	}

	results := make(chan error, stressTasks)
	for i := 0; i < stressTasks; i++ {
		tk := task.New(stress(int64(i) + 1))
		go func() {
			errs, err := task.Wait(tk)
			if err == nil && errs != 0 {
				err = fmt.Errorf("%d mismatches", errs)
			}
			results <- err
		}()
	}
	for i := 0; i < stressTasks; i++ {
		if err := <-results; err != nil {
			t.Fatalf("stress task failed: %v", err)
		}
	}
}
