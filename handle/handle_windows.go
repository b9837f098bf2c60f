//go:build windows

// File: handle/handle_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package handle

import "golang.org/x/sys/windows"

// Handle owns one Windows HANDLE. The zero value is empty.
type Handle struct {
	h   windows.Handle
	set bool
}

// New wraps an already-open HANDLE.
func New(h windows.Handle) Handle {
	return Handle{h: h, set: true}
}

// Valid reports whether the handle currently owns a HANDLE.
func (h *Handle) Valid() bool { return h.set }

// Get returns the owned HANDLE. Calling Get on an empty handle is a
// programming error; the returned value is unspecified.
func (h *Handle) Get() windows.Handle { return h.h }

// Assign replaces the owned HANDLE, closing the previous one if
// present. Errors from closing the previous HANDLE are dropped.
func (h *Handle) Assign(nh windows.Handle) {
	if h.set {
		_ = windows.CloseHandle(h.h)
	}
	h.h = nh
	h.set = true
}

// Release surrenders ownership and returns the raw HANDLE. The handle
// is left empty; the caller becomes responsible for closing.
func (h *Handle) Release() (windows.Handle, error) {
	if !h.set {
		return windows.InvalidHandle, ErrClosed
	}
	nh := h.h
	h.h = 0
	h.set = false
	return nh, nil
}

// Close closes the owned HANDLE and empties the handle. A second
// Close returns ErrClosed without touching the OS.
func (h *Handle) Close() error {
	if !h.set {
		return ErrClosed
	}
	nh := h.h
	h.h = 0
	h.set = false
	return windows.CloseHandle(nh)
}
