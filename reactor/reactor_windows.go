//go:build windows

// File: reactor/reactor_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Windows completion backend. Handles are bound to one I/O completion
// port; the OS performs the transfer and posts a packet whose
// OVERLAPPED pointer is the per-operation state. The poll goroutine
// publishes the packet's result under the state mutex and posts the
// resume closure to the operation's executor. Closing the port
// unblocks the wait with a nil OVERLAPPED, which ends the loop.

package reactor

import (
	"context"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/concurrency"
)

// opState is the per-operation record. The embedded OVERLAPPED must
// stay the first member: the poll goroutine recovers the state from
// the packet's OVERLAPPED pointer by casting it back.
type opState struct {
	o       windows.Overlapped
	mu      sync.Mutex
	success bool
	errno   syscall.Errno
	bytes   uint32
	exec    *concurrency.Executor
	gate    chan struct{}
}

func newOpState(exec *concurrency.Executor) *opState {
	return &opState{
		exec: exec,
		gate: make(chan struct{}),
	}
}

func (st *opState) overlapped() *windows.Overlapped {
	return &st.o
}

type reactor struct {
	port     windows.Handle
	exec     *concurrency.Executor
	loopDone chan struct{}
}

func newReactor(cfg Config) (*reactor, error) {
	port, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 1)
	if err != nil {
		return nil, err
	}
	return &reactor{
		port:     port,
		exec:     concurrency.NewExecutor(cfg.Workers),
		loopDone: make(chan struct{}),
	}, nil
}

func (r *reactor) start() {
	var wsadata windows.WSAData
	_ = windows.WSAStartup(uint32(0x202), &wsadata)
	r.exec.StartThreads()
	go r.loop()
}

func (r *reactor) stop() {
	_ = windows.CloseHandle(r.port)
	<-r.loopDone
	r.exec.Stop()
	_ = windows.WSACleanup()
}

// loop dequeues completion packets and turns each into an executor
// post. It runs no user code.
func (r *reactor) loop() {
	defer close(r.loopDone)
	for {
		var bytes uint32
		var key uintptr
		var ov *windows.Overlapped
		err := windows.GetQueuedCompletionStatus(r.port, &bytes, &key, &ov, windows.INFINITE)
		if ov == nil {
			// Happens when our completion port is closed.
			return
		}
		st := (*opState)(unsafe.Pointer(ov))
		st.mu.Lock()
		st.success = err == nil
		if err != nil {
			if errno, ok := err.(syscall.Errno); ok {
				st.errno = errno
			} else {
				st.errno = windows.ERROR_GEN_FAILURE
			}
		} else {
			st.errno = 0
		}
		st.bytes = bytes
		st.mu.Unlock()
		_ = st.exec.Post(func() { close(st.gate) })
	}
}

// AssociateHandle binds h to the completion port.
func (h *Handle) AssociateHandle(nh windows.Handle) error {
	_, err := windows.CreateIoCompletionPort(nh, h.r.port, 0, 0)
	return err
}

// await parks the calling task on st. A fired ctx requests an
// OS-level cancel of the pending operation on nh; the completion
// packet still arrives and carries the outcome, so the packet always
// decides: an aborted operation surfaces ErrCancelled, anything else
// is the real result (the completion won the race).
func (st *opState) await(ctx context.Context, nh windows.Handle) (uint32, error) {
	select {
	case <-st.gate:
	case <-ctx.Done():
		_ = windows.CancelIoEx(nh, &st.o)
		<-st.gate
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.success {
		switch st.errno {
		case windows.ERROR_OPERATION_ABORTED:
			return 0, api.ErrCancelled
		case windows.ERROR_HANDLE_EOF:
			return 0, api.ErrEndOfFile
		default:
			return 0, st.errno
		}
	}
	return st.bytes, nil
}

// AsyncReadFileAt reads into p at an explicit file offset.
func (h *Handle) AsyncReadFileAt(ctx context.Context, nh windows.Handle, p []byte, off uint64) (int, error) {
	if ctx.Err() != nil {
		return 0, api.ErrCancelled
	}
	st := newOpState(h.r.exec)
	st.o.Offset = uint32(off)
	st.o.OffsetHigh = uint32(off >> 32)
	var done uint32
	err := windows.ReadFile(nh, p, &done, st.overlapped())
	if err != nil && err != windows.ERROR_IO_PENDING {
		if err == windows.ERROR_HANDLE_EOF {
			return 0, api.ErrEndOfFile
		}
		return 0, err
	}
	// Even a synchronous return queues a packet on the port; the
	// packet is the single source of truth for the result.
	n, err := st.await(ctx, nh)
	return int(n), err
}

// AsyncWriteFileAt writes p at an explicit file offset.
func (h *Handle) AsyncWriteFileAt(ctx context.Context, nh windows.Handle, p []byte, off uint64) (int, error) {
	if ctx.Err() != nil {
		return 0, api.ErrCancelled
	}
	st := newOpState(h.r.exec)
	st.o.Offset = uint32(off)
	st.o.OffsetHigh = uint32(off >> 32)
	var done uint32
	err := windows.WriteFile(nh, p, &done, st.overlapped())
	if err != nil && err != windows.ERROR_IO_PENDING {
		return 0, err
	}
	n, err := st.await(ctx, nh)
	return int(n), err
}

// AsyncRecv receives from a connected socket.
func (h *Handle) AsyncRecv(ctx context.Context, s windows.Handle, p []byte) (int, error) {
	if ctx.Err() != nil {
		return 0, api.ErrCancelled
	}
	st := newOpState(h.r.exec)
	buf := windows.WSABuf{Len: uint32(len(p))}
	if len(p) > 0 {
		buf.Buf = &p[0]
	}
	var done, flags uint32
	err := windows.WSARecv(s, &buf, 1, &done, &flags, st.overlapped(), nil)
	if err != nil && err != windows.ERROR_IO_PENDING {
		return 0, err
	}
	n, err := st.await(ctx, s)
	return int(n), err
}

// AsyncSend sends to a connected socket.
func (h *Handle) AsyncSend(ctx context.Context, s windows.Handle, p []byte) (int, error) {
	if ctx.Err() != nil {
		return 0, api.ErrCancelled
	}
	st := newOpState(h.r.exec)
	buf := windows.WSABuf{Len: uint32(len(p))}
	if len(p) > 0 {
		buf.Buf = &p[0]
	}
	var done uint32
	err := windows.WSASend(s, &buf, 1, &done, 0, st.overlapped(), nil)
	if err != nil && err != windows.ERROR_IO_PENDING {
		return 0, err
	}
	n, err := st.await(ctx, s)
	return int(n), err
}

// AsyncConnect connects s to sa via ConnectEx. The socket must be
// bound before ConnectEx; callers bind to the wildcard address.
func (h *Handle) AsyncConnect(ctx context.Context, s windows.Handle, sa windows.Sockaddr) error {
	if ctx.Err() != nil {
		return api.ErrCancelled
	}
	st := newOpState(h.r.exec)
	err := windows.ConnectEx(s, sa, nil, 0, nil, st.overlapped())
	if err != nil && err != windows.ERROR_IO_PENDING {
		return err
	}
	if _, err := st.await(ctx, s); err != nil {
		return err
	}
	// Bring the socket into the fully connected state.
	return windows.Setsockopt(s, windows.SOL_SOCKET,
		windows.SO_UPDATE_CONNECT_CONTEXT, nil, 0)
}

// acceptAddrLen is the per-address buffer AcceptEx requires: the
// maximum sockaddr size plus 16 bytes.
const acceptAddrLen = uint32(unsafe.Sizeof(windows.RawSockaddrAny{})) + 16

// AsyncAccept accepts one connection on listener ls into the
// pre-created socket as.
func (h *Handle) AsyncAccept(ctx context.Context, ls, as windows.Handle) error {
	if ctx.Err() != nil {
		return api.ErrCancelled
	}
	st := newOpState(h.r.exec)
	var addrs [2 * int(acceptAddrLen)]byte
	var done uint32
	err := windows.AcceptEx(ls, as, &addrs[0], 0, acceptAddrLen, acceptAddrLen, &done, st.overlapped())
	if err != nil && err != windows.ERROR_IO_PENDING {
		return err
	}
	if _, err := st.await(ctx, ls); err != nil {
		return err
	}
	// Inherit the listener's properties on the accepted socket.
	lsv := ls
	return windows.Setsockopt(as, windows.SOL_SOCKET,
		windows.SO_UPDATE_ACCEPT_CONTEXT,
		(*byte)(unsafe.Pointer(&lsv)), int32(unsafe.Sizeof(lsv)))
}

/*
 * Blocking fallbacks: CreateFile and CloseHandle have no overlapped
 * form and run on an executor worker.
 */

type winResult[T any] struct {
	v   T
	err error
}

// AsyncCreateFile opens a file on a worker and associates the
// resulting handle with the completion port.
func (h *Handle) AsyncCreateFile(ctx context.Context, path string, access, sharemode uint32, disposition uint32, attrs uint32) (windows.Handle, error) {
	if ctx.Err() != nil {
		return windows.InvalidHandle, api.ErrCancelled
	}
	p16, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return windows.InvalidHandle, err
	}
	ret, err := concurrency.Invoke(h.r.exec, func() winResult[windows.Handle] {
		nh, cerr := windows.CreateFile(p16, access, sharemode, nil,
			disposition, attrs|windows.FILE_FLAG_OVERLAPPED, 0)
		return winResult[windows.Handle]{v: nh, err: cerr}
	})
	if err != nil {
		return windows.InvalidHandle, err
	}
	if ret.err != nil {
		return windows.InvalidHandle, ret.err
	}
	if err := h.AssociateHandle(ret.v); err != nil {
		_ = windows.CloseHandle(ret.v)
		return windows.InvalidHandle, err
	}
	return ret.v, nil
}

// AsyncCloseHandle closes nh on a worker.
func (h *Handle) AsyncCloseHandle(ctx context.Context, nh windows.Handle) error {
	if ctx.Err() != nil {
		return api.ErrCancelled
	}
	ret, err := concurrency.Invoke(h.r.exec, func() winResult[struct{}] {
		return winResult[struct{}]{err: windows.CloseHandle(nh)}
	})
	if err != nil {
		return err
	}
	return ret.err
}
