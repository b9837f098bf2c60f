// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package buffer provides the two concrete buffer shapes consumed by
// channel I/O: Fixed, a single contiguous window that must be Reset
// once exhausted, and Dynamic, a segmented buffer growing by
// fixed-size extents. Both satisfy api.Buffer.
package buffer
