//go:build windows

// File: channel/socket_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Windows stream-socket channels over the completion backend. The OS
// carries the buffers; WSARecv/WSASend/ConnectEx/AcceptEx post their
// results to the completion port. Blocking variants reuse the async
// path with a background context.

package channel

import (
	"context"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/handle"
	"github.com/momentics/hioload-aio/netaddr"
	"github.com/momentics/hioload-aio/reactor"
)

const listenBacklog = 128

func newStreamSocket(fam int) (windows.Handle, error) {
	return windows.WSASocket(int32(fam), windows.SOCK_STREAM, 0, nil, 0,
		windows.WSA_FLAG_OVERLAPPED)
}

// StreamChannel is a connected stream socket (TCP or UNIX-domain).
type StreamChannel struct {
	fd handle.Handle
	rh *reactor.Handle
}

// NewStreamChannel returns a closed stream channel.
func NewStreamChannel() *StreamChannel { return &StreamChannel{} }

// IsOpen reports whether the channel is connected.
func (c *StreamChannel) IsOpen() bool { return c.fd.Valid() }

func adoptStream(s windows.Handle, rh *reactor.Handle) *StreamChannel {
	c := &StreamChannel{rh: rh}
	c.fd.Assign(s)
	return c
}

// wildcardBind binds s to the family's zero address, which ConnectEx
// requires before connecting.
func wildcardBind(s windows.Handle, fam int) error {
	switch fam {
	case windows.AF_INET:
		return windows.Bind(s, &windows.SockaddrInet4{})
	case windows.AF_INET6:
		return windows.Bind(s, &windows.SockaddrInet6{})
	default:
		return nil
	}
}

// Connect establishes the connection, blocking the calling goroutine.
func (c *StreamChannel) Connect(ep netaddr.Endpoint) error {
	return c.AsyncConnect(context.Background(), ep)
}

// AsyncConnect establishes the connection, suspending the task until
// the handshake completes or ctx fires.
func (c *StreamChannel) AsyncConnect(ctx context.Context, ep netaddr.Endpoint) error {
	if c.IsOpen() {
		return api.ErrChannelAlreadyOpen
	}
	sa, fam, err := netaddr.Sockaddr(ep)
	if err != nil {
		return err
	}
	rh, err := reactor.Acquire()
	if err != nil {
		return err
	}
	s, err := newStreamSocket(fam)
	if err != nil {
		rh.Release()
		return err
	}
	fail := func(err error) error {
		_ = windows.Closesocket(s)
		rh.Release()
		return err
	}
	if err := wildcardBind(s, fam); err != nil {
		return fail(err)
	}
	if err := rh.AssociateHandle(s); err != nil {
		return fail(err)
	}
	if err := rh.AsyncConnect(ctx, s, sa); err != nil {
		return fail(err)
	}
	c.fd.Assign(s)
	c.rh = rh
	return nil
}

// RecvSome receives into the buffer's writable window, blocking the
// calling goroutine. A peer shutdown surfaces as api.ErrEndOfFile.
func (c *StreamChannel) RecvSome(buf api.Buffer) (int, error) {
	return c.AsyncRecvSome(context.Background(), buf)
}

// AsyncRecvSome receives into the buffer, suspending the task while
// the socket is empty.
func (c *StreamChannel) AsyncRecvSome(ctx context.Context, buf api.Buffer) (int, error) {
	if !c.IsOpen() {
		return 0, api.ErrChannelNotOpen
	}
	span, ok := firstWritable(buf)
	if !ok {
		return 0, nil
	}
	n, err := c.rh.AsyncRecv(ctx, c.fd.Get(), span)
	return commitRead(buf, n, err)
}

// SendSome sends the buffer's readable window, blocking the calling
// goroutine. Partial sends are normal.
func (c *StreamChannel) SendSome(buf api.Buffer) (int, error) {
	return c.AsyncSendSome(context.Background(), buf)
}

// AsyncSendSome sends the buffer's readable window, suspending the
// task while the socket is full.
func (c *StreamChannel) AsyncSendSome(ctx context.Context, buf api.Buffer) (int, error) {
	if !c.IsOpen() {
		return 0, api.ErrChannelNotOpen
	}
	span, err := firstReadable(buf)
	if err != nil {
		return 0, err
	}
	n, werr := c.rh.AsyncSend(ctx, c.fd.Get(), span)
	return discardWrite(buf, n, werr)
}

// Close closes the socket.
func (c *StreamChannel) Close() error {
	if !c.IsOpen() {
		return api.ErrChannelNotOpen
	}
	s, _ := c.fd.Release()
	err := windows.Closesocket(s)
	c.rh.Release()
	c.rh = nil
	return err
}

/*
 * StreamListener
 */

// StreamListener accepts stream connections on a bound endpoint.
type StreamListener struct {
	fd  handle.Handle
	rh  *reactor.Handle
	fam int
}

// Listen binds ep and starts listening. SO_REUSEADDR is set for every
// family except AF_UNIX.
func Listen(ep netaddr.Endpoint) (*StreamListener, error) {
	sa, fam, err := netaddr.Sockaddr(ep)
	if err != nil {
		return nil, err
	}
	rh, err := reactor.Acquire()
	if err != nil {
		return nil, err
	}
	s, err := newStreamSocket(fam)
	if err != nil {
		rh.Release()
		return nil, err
	}
	fail := func(err error) (*StreamListener, error) {
		_ = windows.Closesocket(s)
		rh.Release()
		return nil, err
	}
	if fam != windows.AF_UNIX {
		one := int32(1)
		if err := windows.Setsockopt(s, windows.SOL_SOCKET, windows.SO_REUSEADDR,
			(*byte)(unsafe.Pointer(&one)), int32(unsafe.Sizeof(one))); err != nil {
			return fail(err)
		}
	}
	if err := windows.Bind(s, sa); err != nil {
		return fail(err)
	}
	if err := windows.Listen(s, listenBacklog); err != nil {
		return fail(err)
	}
	if err := rh.AssociateHandle(s); err != nil {
		return fail(err)
	}
	l := &StreamListener{rh: rh, fam: fam}
	l.fd.Assign(s)
	return l, nil
}

// IsOpen reports whether the listener is live.
func (l *StreamListener) IsOpen() bool { return l.fd.Valid() }

// Addr returns the endpoint the listener is bound to; useful after
// binding port zero.
func (l *StreamListener) Addr() (netaddr.Endpoint, error) {
	if !l.IsOpen() {
		return nil, api.ErrChannelNotOpen
	}
	sa, err := windows.Getsockname(l.fd.Get())
	if err != nil {
		return nil, err
	}
	return netaddr.FromSockaddr(sa)
}

// Accept takes one connection, blocking the calling goroutine.
func (l *StreamListener) Accept() (*StreamChannel, error) {
	return l.AsyncAccept(context.Background())
}

// AsyncAccept takes one connection, suspending the task until a peer
// arrives or ctx fires.
func (l *StreamListener) AsyncAccept(ctx context.Context) (*StreamChannel, error) {
	if !l.IsOpen() {
		return nil, api.ErrChannelNotOpen
	}
	as, err := newStreamSocket(l.fam)
	if err != nil {
		return nil, err
	}
	if err := l.rh.AsyncAccept(ctx, l.fd.Get(), as); err != nil {
		_ = windows.Closesocket(as)
		return nil, err
	}
	rh, err := reactor.Acquire()
	if err != nil {
		_ = windows.Closesocket(as)
		return nil, err
	}
	if err := rh.AssociateHandle(as); err != nil {
		_ = windows.Closesocket(as)
		rh.Release()
		return nil, err
	}
	return adoptStream(as, rh), nil
}

// Close stops listening and releases the socket.
func (l *StreamListener) Close() error {
	if !l.IsOpen() {
		return api.ErrChannelNotOpen
	}
	s, _ := l.fd.Release()
	err := windows.Closesocket(s)
	l.rh.Release()
	l.rh = nil
	return err
}
