// File: api/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Closed error taxonomy surfaced by every operation in the core.
// OS errors with no entry here pass through as syscall errnos.

package api

import "errors"

var (
	// ErrEndOfFile reports a read that reached end of stream. The
	// channel is still open; there is no more data. A read of zero
	// bytes on an open stream always surfaces as this error, never as
	// a zero-byte success.
	ErrEndOfFile = errors.New("end of file")

	// ErrChannelNotOpen reports an operation on a closed channel.
	ErrChannelNotOpen = errors.New("channel is not open")

	// ErrChannelAlreadyOpen reports open on an already-open channel.
	ErrChannelAlreadyOpen = errors.New("channel is already open")

	// ErrInvalidFlags reports an illegal file-open flag combination.
	ErrInvalidFlags = errors.New("invalid file channel flags")

	// ErrNoDataInBuffer reports a write whose buffer has no readable
	// range.
	ErrNoDataInBuffer = errors.New("no data in buffer")

	// ErrCancelled reports an operation terminated by its context.
	ErrCancelled = errors.New("operation cancelled")

	// ErrAddressFamilyNotSupported reports an endpoint whose address
	// family the core does not understand.
	ErrAddressFamilyNotSupported = errors.New("address family not supported")

	// ErrValueTooLarge reports a transfer whose offset plus length
	// would overflow the offset type.
	ErrValueTooLarge = errors.New("value too large for transfer")
)
