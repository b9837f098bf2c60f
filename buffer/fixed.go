// File: buffer/fixed.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed contiguous buffer. Reads fill it, writes drain it, and both
// windows move from the start of the storage to the end. Once the
// write cursor reaches the end the buffer is unusable until Reset.

package buffer

import "github.com/momentics/hioload-aio/api"

// Fixed is a single contiguous buffer region with read and write
// cursors. Not safe for concurrent use.
type Fixed struct {
	data []byte
	rp   int
	wp   int
}

var _ api.Buffer = (*Fixed)(nil)

// NewFixed creates an empty fixed buffer of the given capacity.
func NewFixed(capacity int) *Fixed {
	return &Fixed{data: make([]byte, capacity)}
}

// Reset returns the buffer to the empty state, discarding all data.
func (b *Fixed) Reset() {
	b.rp = 0
	b.wp = 0
}

// Cap returns the storage capacity.
func (b *Fixed) Cap() int { return len(b.data) }

// ReadableRanges returns the span between the read and write cursors,
// or nil if nothing is readable.
func (b *Fixed) ReadableRanges() [][]byte {
	if b.rp == b.wp {
		return nil
	}
	return [][]byte{b.data[b.rp:b.wp]}
}

// WritableRanges returns the span between the write cursor and the
// end of storage, or nil once the buffer has been filled.
func (b *Fixed) WritableRanges() [][]byte {
	if b.wp == len(b.data) {
		return nil
	}
	return [][]byte{b.data[b.wp:]}
}

// Commit marks up to n bytes at the write cursor as readable data.
func (b *Fixed) Commit(n int) int {
	n = min(n, len(b.data)-b.wp)
	if n < 0 {
		n = 0
	}
	b.wp += n
	return n
}

// Discard removes up to n bytes from the readable window.
func (b *Fixed) Discard(n int) int {
	n = min(n, b.wp-b.rp)
	if n < 0 {
		n = 0
	}
	b.rp += n
	return n
}

// Write copies data into the writable window and commits it. Returns
// the count copied, which is less than len(p) when the window is too
// small. A full buffer accepts zero bytes.
func (b *Fixed) Write(p []byte) int {
	n := copy(b.data[b.wp:], p)
	b.wp += n
	return n
}

// Read copies data out of the readable window and discards it.
// Returns the count copied.
func (b *Fixed) Read(p []byte) int {
	n := copy(p, b.data[b.rp:b.wp])
	b.rp += n
	return n
}
