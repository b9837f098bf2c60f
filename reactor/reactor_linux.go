//go:build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux readiness backend. One goroutine blocks in epoll_wait over
// descriptors armed edge-triggered and one-shot; when a descriptor
// turns readable or writable the waiter for that direction is taken
// under the state lock and its resume closure is posted to the
// executor. The worker then retries the syscall and either completes
// the operation or re-arms the wait. File open/close/read/write have
// no readiness form and run on a worker through concurrency.Invoke.

package reactor

import (
	"context"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/concurrency"
)

// opState is the per-operation record surviving across a suspension.
// The gate closes when the poll goroutine has handed the wakeup to a
// worker.
type opState struct {
	gate chan struct{}
}

func newOpState() *opState {
	return &opState{gate: make(chan struct{})}
}

// fdState is the per-descriptor record: the armed event mask and at
// most one waiter per direction.
type fdState struct {
	fd          int
	mask        uint32
	readWaiter  *opState
	writeWaiter *opState
}

type reactor struct {
	epfd     int
	exec     *concurrency.Executor
	batch    int
	stateMu  sync.Mutex
	state    []*fdState
	shutdown [2]int // pipe; [0] is watched by epoll, [1] is written on stop
	loopDone chan struct{}
}

func newReactor(cfg Config) (*reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		_ = unix.Close(epfd)
		return nil, err
	}
	ev := unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(p[0]),
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, p[0], &ev); err != nil {
		_ = unix.Close(epfd)
		_ = unix.Close(p[0])
		_ = unix.Close(p[1])
		return nil, err
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultConfig().BatchSize
	}
	return &reactor{
		epfd:     epfd,
		exec:     concurrency.NewExecutor(cfg.Workers),
		batch:    batch,
		shutdown: p,
		loopDone: make(chan struct{}),
	}, nil
}

func (r *reactor) start() {
	r.exec.StartThreads()
	go r.loop()
}

func (r *reactor) stop() {
	_, _ = unix.Write(r.shutdown[1], []byte{0})
	<-r.loopDone
	r.exec.Stop()
	_ = unix.Close(r.epfd)
	_ = unix.Close(r.shutdown[0])
	_ = unix.Close(r.shutdown[1])
}

// loop is the reactor goroutine. It runs no user code: each event is
// translated into an executor post that opens the waiter's gate.
func (r *reactor) loop() {
	defer close(r.loopDone)
	events := make([]unix.EpollEvent, r.batch)
	for {
		n, err := unix.EpollWait(r.epfd, events, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return
		}
		r.stateMu.Lock()
		for i := 0; i < n; i++ {
			ev := events[i]
			fd := int(ev.Fd)
			if fd == r.shutdown[0] {
				r.stateMu.Unlock()
				return
			}
			if fd < 0 || fd >= len(r.state) || r.state[fd] == nil {
				continue
			}
			s := r.state[fd]
			// EPOLLERR/EPOLLHUP wake both directions so the worker
			// observes the socket error from the retried syscall.
			failed := ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0
			if (ev.Events&unix.EPOLLIN != 0 || failed) && s.readWaiter != nil {
				st := s.readWaiter
				s.readWaiter = nil
				s.mask &^= unix.EPOLLIN
				_ = r.exec.Post(func() { close(st.gate) })
			}
			if (ev.Events&unix.EPOLLOUT != 0 || failed) && s.writeWaiter != nil {
				st := s.writeWaiter
				s.writeWaiter = nil
				s.mask &^= unix.EPOLLOUT
				_ = r.exec.Post(func() { close(st.gate) })
			}
			// One-shot delivery disarmed the whole descriptor; if the
			// other direction is still wanted, re-arm it.
			if s.mask != 0 {
				r.arm(s)
			}
		}
		r.stateMu.Unlock()
	}
}

// arm applies the record's current mask to the poller. Caller holds
// stateMu.
func (r *reactor) arm(s *fdState) {
	ev := unix.EpollEvent{
		Events: unix.EPOLLET | unix.EPOLLONESHOT | s.mask,
		Fd:     int32(s.fd),
	}
	_ = unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, s.fd, &ev)
}

// AssociateFD registers a descriptor with the reactor: the fd table
// grows as needed, the descriptor is made non-blocking and added to
// the poller edge-triggered, one-shot, with an empty event mask.
func (h *Handle) AssociateFD(fd int) error {
	r := h.r
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	if fd < 0 {
		panic("reactor: attempt to associate a negative fd")
	}
	if len(r.state) < fd+1 {
		grown := make([]*fdState, fd+1)
		copy(grown, r.state)
		r.state = grown
	}
	if r.state[fd] == nil {
		r.state[fd] = &fdState{fd: fd}
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return err
	}
	ev := unix.EpollEvent{
		Events: unix.EPOLLET | unix.EPOLLONESHOT,
		Fd:     int32(fd),
	}
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

// DeassociateFD removes the descriptor from the poller and drops its
// record.
func (h *Handle) DeassociateFD(fd int) error {
	r := h.r
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	if fd < 0 {
		panic("reactor: attempt to deassociate a negative fd")
	}
	err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if fd < len(r.state) {
		r.state[fd] = nil
	}
	return err
}

// registerReadInterest installs the read waiter for fd and arms
// EPOLLIN. Installing a waiter while one is pending is a programming
// error.
func (r *reactor) registerReadInterest(fd int, st *opState) {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	s := r.state[fd]
	if s == nil {
		panic("reactor: read interest on an unassociated fd")
	}
	if s.readWaiter != nil {
		panic("reactor: second read waiter on one fd")
	}
	s.readWaiter = st
	s.mask |= unix.EPOLLIN
	r.arm(s)
}

// registerWriteInterest installs the write waiter for fd and arms
// EPOLLOUT.
func (r *reactor) registerWriteInterest(fd int, st *opState) {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	s := r.state[fd]
	if s == nil {
		panic("reactor: write interest on an unassociated fd")
	}
	if s.writeWaiter != nil {
		panic("reactor: second write waiter on one fd")
	}
	s.writeWaiter = st
	s.mask |= unix.EPOLLOUT
	r.arm(s)
}

// removeReadWaiter tears down the waiter if the poll goroutine has
// not already taken it. Reports whether the teardown won the race.
func (r *reactor) removeReadWaiter(fd int, st *opState) bool {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	s := r.state[fd]
	if s == nil || s.readWaiter != st {
		return false
	}
	s.readWaiter = nil
	s.mask &^= unix.EPOLLIN
	r.arm(s)
	return true
}

func (r *reactor) removeWriteWaiter(fd int, st *opState) bool {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	s := r.state[fd]
	if s == nil || s.writeWaiter != st {
		return false
	}
	s.writeWaiter = nil
	s.mask &^= unix.EPOLLOUT
	r.arm(s)
	return true
}

// waitReadable suspends until fd is readable or ctx fires. When the
// cancel loses the race against an in-flight wakeup the wakeup wins
// and nil is returned.
func (r *reactor) waitReadable(ctx context.Context, fd int) error {
	st := newOpState()
	r.registerReadInterest(fd, st)
	select {
	case <-st.gate:
		return nil
	case <-ctx.Done():
		if r.removeReadWaiter(fd, st) {
			return api.ErrCancelled
		}
		<-st.gate
		return nil
	}
}

func (r *reactor) waitWritable(ctx context.Context, fd int) error {
	st := newOpState()
	r.registerWriteInterest(fd, st)
	select {
	case <-st.gate:
		return nil
	case <-ctx.Done():
		if r.removeWriteWaiter(fd, st) {
			return api.ErrCancelled
		}
		<-st.gate
		return nil
	}
}

/*
 * Socket operations: nonblocking syscall retry loops that suspend on
 * EAGAIN via waiter registration. The descriptor must be associated.
 */

// AsyncFdRecv reads from a connected socket into p.
func (h *Handle) AsyncFdRecv(ctx context.Context, fd int, p []byte) (int, error) {
	if ctx.Err() != nil {
		return 0, api.ErrCancelled
	}
	for {
		n, err := unix.Read(fd, p)
		if err == nil {
			return n, nil
		}
		if err != unix.EAGAIN {
			return 0, err
		}
		if werr := h.r.waitReadable(ctx, fd); werr != nil {
			return 0, werr
		}
	}
}

// AsyncFdSend writes p to a connected socket. Partial writes are
// normal.
func (h *Handle) AsyncFdSend(ctx context.Context, fd int, p []byte) (int, error) {
	if ctx.Err() != nil {
		return 0, api.ErrCancelled
	}
	for {
		n, err := unix.Write(fd, p)
		if err == nil {
			return n, nil
		}
		if err != unix.EAGAIN {
			return 0, err
		}
		if werr := h.r.waitWritable(ctx, fd); werr != nil {
			return 0, werr
		}
	}
}

// AsyncFdConnect connects fd to sa, suspending through the
// in-progress window of a non-blocking connect.
func (h *Handle) AsyncFdConnect(ctx context.Context, fd int, sa unix.Sockaddr) error {
	if ctx.Err() != nil {
		return api.ErrCancelled
	}
	err := unix.Connect(fd, sa)
	if err == nil {
		return nil
	}
	if err != unix.EINPROGRESS && err != unix.EAGAIN {
		return err
	}
	if werr := h.r.waitWritable(ctx, fd); werr != nil {
		return werr
	}
	soerr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if soerr != 0 {
		return unix.Errno(soerr)
	}
	return nil
}

// AsyncFdAccept accepts one connection on a listening fd, returning
// the new descriptor and the peer address.
func (h *Handle) AsyncFdAccept(ctx context.Context, fd int) (int, unix.Sockaddr, error) {
	if ctx.Err() != nil {
		return -1, nil, api.ErrCancelled
	}
	for {
		nfd, sa, err := unix.Accept4(fd, unix.SOCK_CLOEXEC)
		if err == nil {
			return nfd, sa, nil
		}
		if err != unix.EAGAIN {
			return -1, nil, err
		}
		if werr := h.r.waitReadable(ctx, fd); werr != nil {
			return -1, nil, werr
		}
	}
}

/*
 * File operations. Regular files have no readiness semantics on this
 * backend; the syscalls run on an executor worker via Invoke, which
 * is indistinguishable from the socket resume path for the caller.
 */

type fdResult struct {
	n   int
	err error
}

// AsyncFdOpen opens path on a worker.
func (h *Handle) AsyncFdOpen(ctx context.Context, path string, flags int, mode uint32) (int, error) {
	if ctx.Err() != nil {
		return -1, api.ErrCancelled
	}
	ret, err := concurrency.Invoke(h.r.exec, func() fdResult {
		fd, oerr := unix.Open(path, flags|unix.O_CLOEXEC, mode)
		return fdResult{n: fd, err: oerr}
	})
	if err != nil {
		return -1, err
	}
	return ret.n, ret.err
}

// AsyncFdClose closes fd on a worker.
func (h *Handle) AsyncFdClose(ctx context.Context, fd int) error {
	if ctx.Err() != nil {
		return api.ErrCancelled
	}
	ret, err := concurrency.Invoke(h.r.exec, func() fdResult {
		return fdResult{err: unix.Close(fd)}
	})
	if err != nil {
		return err
	}
	return ret.err
}

// AsyncFdRead reads at the kernel file offset on a worker.
func (h *Handle) AsyncFdRead(ctx context.Context, fd int, p []byte) (int, error) {
	if ctx.Err() != nil {
		return 0, api.ErrCancelled
	}
	ret, err := concurrency.Invoke(h.r.exec, func() fdResult {
		n, rerr := unix.Read(fd, p)
		return fdResult{n: n, err: rerr}
	})
	if err != nil {
		return 0, err
	}
	return ret.n, ret.err
}

// AsyncFdPread reads at an explicit offset on a worker.
func (h *Handle) AsyncFdPread(ctx context.Context, fd int, p []byte, off int64) (int, error) {
	if ctx.Err() != nil {
		return 0, api.ErrCancelled
	}
	ret, err := concurrency.Invoke(h.r.exec, func() fdResult {
		n, rerr := unix.Pread(fd, p, off)
		return fdResult{n: n, err: rerr}
	})
	if err != nil {
		return 0, err
	}
	return ret.n, ret.err
}

// AsyncFdWrite writes at the kernel file offset on a worker.
func (h *Handle) AsyncFdWrite(ctx context.Context, fd int, p []byte) (int, error) {
	if ctx.Err() != nil {
		return 0, api.ErrCancelled
	}
	ret, err := concurrency.Invoke(h.r.exec, func() fdResult {
		n, werr := unix.Write(fd, p)
		return fdResult{n: n, err: werr}
	})
	if err != nil {
		return 0, err
	}
	return ret.n, ret.err
}

// AsyncFdPwrite writes at an explicit offset on a worker.
func (h *Handle) AsyncFdPwrite(ctx context.Context, fd int, p []byte, off int64) (int, error) {
	if ctx.Err() != nil {
		return 0, api.ErrCancelled
	}
	ret, err := concurrency.Invoke(h.r.exec, func() fdResult {
		n, werr := unix.Pwrite(fd, p, off)
		return fdResult{n: n, err: werr}
	})
	if err != nil {
		return 0, err
	}
	return ret.n, ret.err
}
