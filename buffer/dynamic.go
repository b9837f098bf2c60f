// File: buffer/dynamic.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Dynamic segmented buffer. Storage is a FIFO of equally sized
// extents; writing past the current tail allocates the next extent,
// and a leading extent whose data has been fully discarded is
// released. Extent boundaries are invisible to callers except that
// the range accessors may return more than one span.

package buffer

import (
	"github.com/eapache/queue"

	"github.com/momentics/hioload-aio/api"
)

// DefaultExtentSize is used when NewDynamic is given a size <= 0.
const DefaultExtentSize = 4096

type extent struct {
	data []byte
	rp   int
	wp   int
}

// Dynamic is a segmented buffer with fixed-size extents. Not safe for
// concurrent use.
type Dynamic struct {
	extentSize int
	extents    *queue.Queue // FIFO of *extent, head is the oldest
}

var _ api.Buffer = (*Dynamic)(nil)

// NewDynamic creates an empty dynamic buffer with the given extent
// size.
func NewDynamic(extentSize int) *Dynamic {
	if extentSize <= 0 {
		extentSize = DefaultExtentSize
	}
	return &Dynamic{
		extentSize: extentSize,
		extents:    queue.New(),
	}
}

func (b *Dynamic) tail() *extent {
	if b.extents.Length() == 0 {
		return nil
	}
	return b.extents.Get(b.extents.Length() - 1).(*extent)
}

func (b *Dynamic) head() *extent {
	if b.extents.Length() == 0 {
		return nil
	}
	return b.extents.Peek().(*extent)
}

// Readable returns the total number of readable bytes.
func (b *Dynamic) Readable() int {
	total := 0
	for i := 0; i < b.extents.Length(); i++ {
		e := b.extents.Get(i).(*extent)
		total += e.wp - e.rp
	}
	return total
}

// ReadableRanges returns one span per extent holding undiscarded data.
func (b *Dynamic) ReadableRanges() [][]byte {
	var ranges [][]byte
	for i := 0; i < b.extents.Length(); i++ {
		e := b.extents.Get(i).(*extent)
		if e.wp > e.rp {
			ranges = append(ranges, e.data[e.rp:e.wp])
		}
	}
	return ranges
}

// WritableRanges returns the free span of the tail extent, allocating
// a fresh extent when the tail is full or absent.
func (b *Dynamic) WritableRanges() [][]byte {
	t := b.tail()
	if t == nil || t.wp == len(t.data) {
		t = &extent{data: make([]byte, b.extentSize)}
		b.extents.Add(t)
	}
	return [][]byte{t.data[t.wp:]}
}

// Commit advances the tail write cursor by up to n, clamped to the
// free space of the tail extent.
func (b *Dynamic) Commit(n int) int {
	t := b.tail()
	if t == nil || n <= 0 {
		return 0
	}
	n = min(n, len(t.data)-t.wp)
	t.wp += n
	return n
}

// Discard removes up to n bytes from the front of the readable data,
// releasing leading extents as they are exhausted.
func (b *Dynamic) Discard(n int) int {
	discarded := 0
	for n > 0 {
		e := b.head()
		if e == nil {
			break
		}
		take := min(n, e.wp-e.rp)
		e.rp += take
		n -= take
		discarded += take
		if e.rp == len(e.data) {
			// Extent fully written and fully read: release it.
			b.extents.Remove()
			continue
		}
		if take == 0 {
			break
		}
	}
	return discarded
}

// Write copies all of p into the buffer, allocating extents as
// needed. Always returns len(p).
func (b *Dynamic) Write(p []byte) int {
	written := 0
	for len(p) > 0 {
		span := b.WritableRanges()[0]
		n := copy(span, p)
		b.Commit(n)
		p = p[n:]
		written += n
	}
	return written
}

// Read copies up to len(p) bytes out of the buffer and discards them.
// Returns the count copied; zero when the buffer is empty.
func (b *Dynamic) Read(p []byte) int {
	read := 0
	for len(p) > 0 {
		e := b.head()
		if e == nil || e.wp == e.rp {
			break
		}
		n := copy(p, e.data[e.rp:e.wp])
		b.Discard(n)
		p = p[n:]
		read += n
	}
	return read
}
