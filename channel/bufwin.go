// File: channel/bufwin.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Buffer-window plumbing shared by every channel flavour. A read
// fills the first writable span and commits; a write drains the
// first readable span and discards. Partial transfer is normal.

package channel

import "github.com/momentics/hioload-aio/api"

// firstWritable returns the first non-empty writable span, or false
// when the buffer has no write space.
func firstWritable(buf api.Buffer) ([]byte, bool) {
	for _, span := range buf.WritableRanges() {
		if len(span) > 0 {
			return span, true
		}
	}
	return nil, false
}

// firstReadable returns the first non-empty readable span, or
// ErrNoDataInBuffer when nothing is staged.
func firstReadable(buf api.Buffer) ([]byte, error) {
	for _, span := range buf.ReadableRanges() {
		if len(span) > 0 {
			return span, nil
		}
	}
	return nil, api.ErrNoDataInBuffer
}

// commitRead folds a read syscall result into the buffer: data is
// committed, a zero-byte read on an open stream becomes
// api.ErrEndOfFile.
func commitRead(buf api.Buffer, n int, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, api.ErrEndOfFile
	}
	buf.Commit(n)
	return n, nil
}

// discardWrite folds a write syscall result into the buffer,
// discarding what was sent.
func discardWrite(buf api.Buffer, n int, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	buf.Discard(n)
	return n, nil
}
