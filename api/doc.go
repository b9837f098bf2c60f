// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package api defines the contracts shared by the hioload-aio core:
// the buffer view consumed by I/O operations, the executor surface,
// and the closed error taxonomy every operation reports from.
package api
