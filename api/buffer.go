// File: api/buffer.go
// Author: momentics <momentics@gmail.com>
//
// Buffer contract consumed by all I/O operations.

package api

// Buffer is a producer/consumer window over byte storage. Read
// operations fill the writable window and Commit what they wrote;
// write operations drain the readable window and Discard what they
// sent.
//
// Spans returned by ReadableRanges and WritableRanges stay valid only
// until the next mutating call on the buffer.
type Buffer interface {
	// ReadableRanges returns the contiguous span(s) holding data that
	// has been written but not yet discarded.
	ReadableRanges() [][]byte

	// WritableRanges returns the contiguous span(s) between the write
	// cursor and the end of the storage.
	WritableRanges() [][]byte

	// Commit advances the write cursor by up to n, clamped to the
	// available write space. Returns the count actually committed.
	Commit(n int) int

	// Discard advances the read cursor by up to n, clamped to the
	// readable data. Returns the count actually discarded.
	Discard(n int) int
}
