// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package handle provides scoped, single-owner wrappers around native
// OS descriptors. A Handle owns at most one descriptor; transferring
// it (Release then Assign) leaves the source empty, and Close is
// idempotent at the wrapper level: closing an empty handle reports
// ErrClosed instead of double-closing the OS resource.
package handle

import "errors"

// ErrClosed reports Close or Release on a handle that holds nothing.
var ErrClosed = errors.New("handle is already closed")
