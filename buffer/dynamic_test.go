// File: buffer/dynamic_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

import (
	"bytes"
	"testing"
)

func TestDynamicSegmentedWriteRead(t *testing.T) {
	const payload = "this is a long test string that will fill several extents"
	b := NewDynamic(3)
	if n := b.Write([]byte(payload)); n != len(payload) {
		t.Fatalf("Write() = %d, want %d", n, len(payload))
	}

	var out bytes.Buffer
	chunk := make([]byte, 3)
	for {
		n := b.Read(chunk)
		if n == 0 {
			break
		}
		out.Write(chunk[:n])
	}
	if out.String() != payload {
		t.Fatalf("read back %q, want %q", out.String(), payload)
	}
	if n := b.Read(chunk); n != 0 {
		t.Fatalf("Read() on drained buffer = %d, want 0", n)
	}
}

func TestDynamicMultipleRanges(t *testing.T) {
	b := NewDynamic(4)
	b.Write([]byte("0123456789"))
	ranges := b.ReadableRanges()
	if len(ranges) != 3 {
		t.Fatalf("ReadableRanges() returned %d spans, want 3", len(ranges))
	}
	var joined []byte
	for _, r := range ranges {
		joined = append(joined, r...)
	}
	if string(joined) != "0123456789" {
		t.Fatalf("joined spans = %q", joined)
	}
}

func TestDynamicExtentRelease(t *testing.T) {
	b := NewDynamic(2)
	b.Write([]byte("abcdef"))
	if got := b.extents.Length(); got != 3 {
		t.Fatalf("extent count = %d, want 3", got)
	}
	b.Discard(4)
	// Two leading extents were fully consumed and released.
	if got := b.extents.Length(); got != 1 {
		t.Fatalf("extent count after discard = %d, want 1", got)
	}
	if got := b.Readable(); got != 2 {
		t.Fatalf("Readable() = %d, want 2", got)
	}
}

func TestDynamicCommitClampsToTail(t *testing.T) {
	b := NewDynamic(4)
	span := b.WritableRanges()[0]
	copy(span, "ab")
	if n := b.Commit(99); n != 4 {
		t.Fatalf("Commit(99) = %d, want clamp to extent size 4", n)
	}
	if n := b.Discard(99); n != 4 {
		t.Fatalf("Discard(99) = %d, want 4", n)
	}
	if got := b.Readable(); got != 0 {
		t.Fatalf("Readable() = %d, want 0", got)
	}
}

func TestDynamicDiscardNeverExceedsCommit(t *testing.T) {
	b := NewDynamic(3)
	committed, discarded := 0, 0
	steps := []struct {
		write   string
		discard int
	}{
		{"abc", 1}, {"defgh", 4}, {"", 10}, {"xy", 6},
	}
	for _, s := range steps {
		committed += b.Write([]byte(s.write))
		discarded += b.Discard(s.discard)
		if discarded > committed {
			t.Fatalf("discarded %d exceeds committed %d", discarded, committed)
		}
		if got := b.Readable(); got != committed-discarded {
			t.Fatalf("Readable() = %d, want %d", got, committed-discarded)
		}
	}
}
