// File: channel/memchannel_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package channel

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/buffer"
)

func TestMemChannelReadWrite(t *testing.T) {
	region := make([]byte, 10)
	copy(region, "0123456789")

	m := NewMemChannel()
	if err := m.Open(region); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer func() { _ = m.Close() }()

	buf := buffer.NewFixed(5)
	n, err := m.ReadSomeAt(3, buf)
	if err != nil {
		t.Fatalf("ReadSomeAt() error: %v", err)
	}
	out := make([]byte, n)
	buf.Read(out)
	if string(out) != "34567" {
		t.Fatalf("ReadSomeAt(3) = %q, want %q", out, "34567")
	}

	wbuf := buffer.NewFixed(2)
	wbuf.Write([]byte("XY"))
	if _, err := m.WriteSomeAt(0, wbuf); err != nil {
		t.Fatalf("WriteSomeAt() error: %v", err)
	}
	if string(region[:2]) != "XY" {
		t.Fatalf("region = %q after write", region[:2])
	}
}

func TestMemChannelPastEnd(t *testing.T) {
	m := NewMemChannel()
	if err := m.Open(make([]byte, 4)); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	buf := buffer.NewFixed(4)
	if _, err := m.ReadSomeAt(4, buf); !errors.Is(err, api.ErrEndOfFile) {
		t.Fatalf("ReadSomeAt(end) = %v, want ErrEndOfFile", err)
	}
}

func TestMemChannelStateMachine(t *testing.T) {
	m := NewMemChannel()
	buf := buffer.NewFixed(4)
	if _, err := m.ReadSomeAt(0, buf); !errors.Is(err, api.ErrChannelNotOpen) {
		t.Fatalf("ReadSomeAt() closed = %v, want ErrChannelNotOpen", err)
	}
	if err := m.Open(make([]byte, 1)); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := m.Open(make([]byte, 1)); !errors.Is(err, api.ErrChannelAlreadyOpen) {
		t.Fatalf("second Open() = %v, want ErrChannelAlreadyOpen", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := m.Close(); !errors.Is(err, api.ErrChannelNotOpen) {
		t.Fatalf("second Close() = %v, want ErrChannelNotOpen", err)
	}
}
