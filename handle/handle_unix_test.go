//go:build linux || darwin

// File: handle/handle_unix_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package handle

import (
	"testing"

	"golang.org/x/sys/unix"
)

func openPipe(t *testing.T) (int, int) {
	t.Helper()
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
		t.Fatalf("Pipe2() error: %v", err)
	}
	return p[0], p[1]
}

func TestHandleOwnership(t *testing.T) {
	r, w := openPipe(t)
	defer unix.Close(w)

	h := New(r)
	if !h.Valid() {
		t.Fatal("New() handle is not valid")
	}
	if h.Get() != r {
		t.Fatalf("Get() = %d, want %d", h.Get(), r)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if h.Valid() {
		t.Fatal("handle still valid after Close")
	}
	if err := h.Close(); err != ErrClosed {
		t.Fatalf("second Close() = %v, want ErrClosed", err)
	}
}

func TestHandleRelease(t *testing.T) {
	r, w := openPipe(t)
	defer unix.Close(w)

	h := New(r)
	fd, err := h.Release()
	if err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if fd != r {
		t.Fatalf("Release() = %d, want %d", fd, r)
	}
	if h.Valid() {
		t.Fatal("handle still valid after Release")
	}
	if _, err := h.Release(); err != ErrClosed {
		t.Fatalf("second Release() = %v, want ErrClosed", err)
	}
	// The descriptor survived the release and closes normally.
	if err := unix.Close(fd); err != nil {
		t.Fatalf("Close() of released fd error: %v", err)
	}
}

func TestHandleAssignReplaces(t *testing.T) {
	r1, w1 := openPipe(t)
	defer unix.Close(w1)
	r2, w2 := openPipe(t)
	defer unix.Close(w2)

	h := New(r1)
	h.Assign(r2)
	if h.Get() != r2 {
		t.Fatalf("Get() = %d, want %d", h.Get(), r2)
	}
	// r1 was closed by Assign: closing it again must fail.
	if err := unix.Close(r1); err == nil {
		t.Fatal("first descriptor was not closed by Assign")
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
}
