// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral reactor lifetime. The reactor is a process-wide
// singleton reachable through a reference-counted Handle: the first
// Acquire starts the poll goroutine and the executor workers, the
// last Release stops both. Handle construction and destruction are
// serialised by a global mutex; the Handle itself is single-owner.

package reactor

import (
	"runtime"
	"sync"

	"code.hybscloud.com/atomix"

	"github.com/momentics/hioload-aio/concurrency"
)

// Config holds the reactor resources fixed at start. The instance
// created by the first Acquire wins; later acquires share it.
type Config struct {
	// Workers is the executor worker count. <= 0 selects the logical
	// CPU count.
	Workers int

	// BatchSize caps the events drained per poll iteration on the
	// readiness backend. <= 0 selects the default.
	BatchSize int
}

// DefaultConfig returns the default reactor configuration.
func DefaultConfig() Config {
	return Config{
		Workers:   runtime.NumCPU(),
		BatchSize: 16,
	}
}

var (
	globalMu   sync.Mutex
	globalRefs int
	global     *reactor
)

// Handle is a counted reference to the process reactor. Handles are
// single-owner; Release is idempotent per handle.
type Handle struct {
	r        *reactor
	released atomix.Uint32
}

// Acquire returns a handle to the process reactor with the default
// configuration, starting it if this is the first reference.
func Acquire() (*Handle, error) {
	return AcquireConfig(DefaultConfig())
}

// AcquireConfig is Acquire with an explicit configuration. The
// configuration only takes effect when this call starts the reactor.
func AcquireConfig(cfg Config) (*Handle, error) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalRefs == 0 {
		r, err := newReactor(cfg)
		if err != nil {
			return nil, err
		}
		r.start()
		global = r
	}
	globalRefs++
	return &Handle{r: global}, nil
}

// Release drops this reference. The last release stops the reactor;
// after that no operation may be submitted until a new Acquire.
func (h *Handle) Release() {
	if h.released.Swap(1) != 0 {
		return
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	globalRefs--
	if globalRefs == 0 {
		global.stop()
		global = nil
	}
}

// Executor returns the executor owned by the reactor.
func (h *Handle) Executor() *concurrency.Executor {
	return h.r.exec
}
