// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package concurrency provides the worker-pool executor the reactor
// dispatches resume closures to, and Invoke, the bridge that runs a
// blocking call on a worker while the calling task parks.
package concurrency
