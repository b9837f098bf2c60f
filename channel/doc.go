// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package channel provides the library-facing I/O objects: sequential
// and direct-access file channels, stream-socket channels and
// listeners, and an in-memory channel. A channel owns one OS handle,
// moves between exactly two states (closed and open), and exposes
// blocking and asynchronous variants of each transfer built on the
// reactor's operation primitives. Channels are single-owner: issuing
// concurrent operations on one channel from distinct tasks is outside
// the contract.
package channel
