//go:build linux || darwin

// File: handle/handle_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package handle

import "golang.org/x/sys/unix"

// Handle owns one POSIX file descriptor. The zero value is empty.
type Handle struct {
	fd  int
	set bool
}

// New wraps an already-open descriptor.
func New(fd int) Handle {
	return Handle{fd: fd, set: true}
}

// Valid reports whether the handle currently owns a descriptor.
func (h *Handle) Valid() bool { return h.set }

// Get returns the owned descriptor. Calling Get on an empty handle is
// a programming error; the returned value is unspecified.
func (h *Handle) Get() int { return h.fd }

// Assign replaces the owned descriptor, closing the previous one if
// present. Errors from closing the previous descriptor are dropped.
func (h *Handle) Assign(fd int) {
	if h.set {
		_ = unix.Close(h.fd)
	}
	h.fd = fd
	h.set = true
}

// Release surrenders ownership and returns the raw descriptor. The
// handle is left empty; the caller becomes responsible for closing.
func (h *Handle) Release() (int, error) {
	if !h.set {
		return -1, ErrClosed
	}
	fd := h.fd
	h.fd = 0
	h.set = false
	return fd, nil
}

// Close closes the owned descriptor and empties the handle. A second
// Close returns ErrClosed without touching the OS.
func (h *Handle) Close() error {
	if !h.set {
		return ErrClosed
	}
	fd := h.fd
	h.fd = 0
	h.set = false
	return unix.Close(fd)
}
