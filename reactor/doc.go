// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the process-wide I/O reactor: a single
// poll goroutine that translates OS completion or readiness events
// into executor posts which resume waiting tasks. Two backends exist
// behind one surface, selected at build time: a readiness backend on
// Linux epoll and a completion backend on Windows I/O completion
// ports. The reactor goroutine runs no user code.
package reactor
