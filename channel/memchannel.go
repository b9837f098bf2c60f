// File: channel/memchannel.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// MemChannel: a direct-access channel over a caller-supplied byte
// region. It exposes the same positioned read/write methods as DAFile
// without touching the OS; Open takes the region instead of a path,
// and there is no AsyncOpen or AsyncClose. The async variants
// complete immediately, the way an awaitable
// reports ready without arming the reactor.

package channel

import (
	"context"

	"github.com/momentics/hioload-aio/api"
)

// MemChannel is a direct-access channel over an in-memory region.
type MemChannel struct {
	region []byte
	open   bool
}

// NewMemChannel returns a closed memory channel.
func NewMemChannel() *MemChannel { return &MemChannel{} }

// Open attaches the channel to region. Reads and writes address the
// region directly; the channel never grows it.
func (m *MemChannel) Open(region []byte) error {
	if m.open {
		return api.ErrChannelAlreadyOpen
	}
	m.region = region
	m.open = true
	return nil
}

// IsOpen reports whether the channel is attached to a region.
func (m *MemChannel) IsOpen() bool { return m.open }

// Close detaches the channel from its region.
func (m *MemChannel) Close() error {
	if !m.open {
		return api.ErrChannelNotOpen
	}
	m.region = nil
	m.open = false
	return nil
}

// ReadSomeAt copies from the region at off into the buffer's
// writable window. Reading at or past the end reports
// api.ErrEndOfFile.
func (m *MemChannel) ReadSomeAt(off int64, buf api.Buffer) (int, error) {
	if !m.open {
		return 0, api.ErrChannelNotOpen
	}
	span, ok := firstWritable(buf)
	if !ok {
		return 0, nil
	}
	if err := checkOffset(off, len(span)); err != nil {
		return 0, err
	}
	if off >= int64(len(m.region)) {
		return 0, api.ErrEndOfFile
	}
	n := copy(span, m.region[off:])
	buf.Commit(n)
	return n, nil
}

// AsyncReadSomeAt completes immediately; it exists so memory regions
// can stand in for files in async code paths.
func (m *MemChannel) AsyncReadSomeAt(ctx context.Context, off int64, buf api.Buffer) (int, error) {
	if ctx.Err() != nil {
		return 0, api.ErrCancelled
	}
	return m.ReadSomeAt(off, buf)
}

// WriteSomeAt copies the buffer's readable window into the region at
// off, clamped to the region end. A write entirely past the end
// reports api.ErrEndOfFile.
func (m *MemChannel) WriteSomeAt(off int64, buf api.Buffer) (int, error) {
	if !m.open {
		return 0, api.ErrChannelNotOpen
	}
	span, err := firstReadable(buf)
	if err != nil {
		return 0, err
	}
	if err := checkOffset(off, len(span)); err != nil {
		return 0, err
	}
	if off >= int64(len(m.region)) {
		return 0, api.ErrEndOfFile
	}
	n := copy(m.region[off:], span)
	buf.Discard(n)
	return n, nil
}

// AsyncWriteSomeAt completes immediately.
func (m *MemChannel) AsyncWriteSomeAt(ctx context.Context, off int64, buf api.Buffer) (int, error) {
	if ctx.Err() != nil {
		return 0, api.ErrCancelled
	}
	return m.WriteSomeAt(off, buf)
}
