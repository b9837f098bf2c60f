//go:build linux || darwin

// File: channel/socket_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// POSIX stream-socket channels. Connected sockets are associated with
// the reactor and run non-blocking; the async operations suspend on
// EAGAIN through the readiness waiters, the blocking variants poll
// the single descriptor directly and never touch the reactor loop.

package channel

import (
	"context"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/handle"
	"github.com/momentics/hioload-aio/netaddr"
	"github.com/momentics/hioload-aio/reactor"
)

const listenBacklog = 128

// StreamChannel is a connected stream socket (TCP or UNIX-domain).
type StreamChannel struct {
	fd handle.Handle
	rh *reactor.Handle
}

// NewStreamChannel returns a closed stream channel.
func NewStreamChannel() *StreamChannel { return &StreamChannel{} }

// IsOpen reports whether the channel is connected.
func (c *StreamChannel) IsOpen() bool { return c.fd.Valid() }

// adoptStream takes ownership of an accepted, already associated fd.
func adoptStream(fd int, rh *reactor.Handle) *StreamChannel {
	c := &StreamChannel{rh: rh}
	c.fd.Assign(fd)
	return c
}

// Connect establishes the connection, blocking the calling goroutine.
func (c *StreamChannel) Connect(ep netaddr.Endpoint) error {
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
	fd, err := unix.Socket(fam, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		rh.Release()
		return err
	}
	if err := unix.Connect(fd, sa); err != nil {
		_ = unix.Close(fd)
		rh.Release()
		return err
	}
	if err := rh.AssociateFD(fd); err != nil {
		_ = unix.Close(fd)
		rh.Release()
		return err
	}
	c.fd.Assign(fd)
	c.rh = rh
	return nil
}

// AsyncConnect establishes the connection, suspending the task
// through the in-progress window.
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
	fd, err := unix.Socket(fam, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		rh.Release()
		return err
	}
	if err := rh.AssociateFD(fd); err != nil {
		_ = unix.Close(fd)
		rh.Release()
		return err
	}
	if err := rh.AsyncFdConnect(ctx, fd, sa); err != nil {
		_ = rh.DeassociateFD(fd)
		_ = unix.Close(fd)
		rh.Release()
		return err
	}
	c.fd.Assign(fd)
	c.rh = rh
	return nil
}

// RecvSome receives into the buffer's writable window, blocking the
// calling goroutine. A peer shutdown surfaces as api.ErrEndOfFile.
func (c *StreamChannel) RecvSome(buf api.Buffer) (int, error) {
	if !c.IsOpen() {
		return 0, api.ErrChannelNotOpen
	}
	span, ok := firstWritable(buf)
	if !ok {
		return 0, nil
	}
	for {
		n, err := unix.Read(c.fd.Get(), span)
		if err == unix.EAGAIN {
			if perr := pollWait(c.fd.Get(), unix.POLLIN); perr != nil {
				return 0, perr
			}
			continue
		}
		return commitRead(buf, n, err)
	}
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
	n, err := c.rh.AsyncFdRecv(ctx, c.fd.Get(), span)
	return commitRead(buf, n, err)
}

// SendSome sends the buffer's readable window, blocking the calling
// goroutine. Partial sends are normal.
func (c *StreamChannel) SendSome(buf api.Buffer) (int, error) {
	if !c.IsOpen() {
		return 0, api.ErrChannelNotOpen
	}
	span, err := firstReadable(buf)
	if err != nil {
		return 0, err
	}
	for {
		n, werr := unix.Write(c.fd.Get(), span)
		if werr == unix.EAGAIN {
			if perr := pollWait(c.fd.Get(), unix.POLLOUT); perr != nil {
				return 0, perr
			}
			continue
		}
		return discardWrite(buf, n, werr)
	}
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
	n, werr := c.rh.AsyncFdSend(ctx, c.fd.Get(), span)
	return discardWrite(buf, n, werr)
}

// Close deassociates and closes the socket.
func (c *StreamChannel) Close() error {
	if !c.IsOpen() {
		return api.ErrChannelNotOpen
	}
	_ = c.rh.DeassociateFD(c.fd.Get())
	err := c.fd.Close()
	c.rh.Release()
	c.rh = nil
	return err
}

// pollWait blocks on a single descriptor outside the reactor.
func pollWait(fd int, events int16) error {
	pfd := []unix.PollFd{{Fd: int32(fd), Events: events}}
	for {
		_, err := unix.Poll(pfd, -1)
		if err == unix.EINTR {
			continue
		}
		return err
	}
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
	fd, err := unix.Socket(fam, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		rh.Release()
		return nil, err
	}
	fail := func(err error) (*StreamListener, error) {
		_ = unix.Close(fd)
		rh.Release()
		return nil, err
	}
	if fam != unix.AF_UNIX {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			return fail(err)
		}
	}
	if err := unix.Bind(fd, sa); err != nil {
		return fail(err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		return fail(err)
	}
	if err := rh.AssociateFD(fd); err != nil {
		return fail(err)
	}
	l := &StreamListener{rh: rh, fam: fam}
	l.fd.Assign(fd)
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
	sa, err := unix.Getsockname(l.fd.Get())
	if err != nil {
		return nil, err
	}
	return netaddr.FromSockaddr(sa)
}

// Accept takes one connection, blocking the calling goroutine.
func (l *StreamListener) Accept() (*StreamChannel, error) {
	if !l.IsOpen() {
		return nil, api.ErrChannelNotOpen
	}
	for {
		nfd, _, err := unix.Accept4(l.fd.Get(), unix.SOCK_CLOEXEC)
		if err == unix.EAGAIN {
			if perr := pollWait(l.fd.Get(), unix.POLLIN); perr != nil {
				return nil, perr
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		return l.wrapAccepted(nfd)
	}
}

// AsyncAccept takes one connection, suspending the task until a peer
// arrives or ctx fires.
func (l *StreamListener) AsyncAccept(ctx context.Context) (*StreamChannel, error) {
	if !l.IsOpen() {
		return nil, api.ErrChannelNotOpen
	}
	nfd, _, err := l.rh.AsyncFdAccept(ctx, l.fd.Get())
	if err != nil {
		return nil, err
	}
	return l.wrapAccepted(nfd)
}

func (l *StreamListener) wrapAccepted(nfd int) (*StreamChannel, error) {
	rh, err := reactor.Acquire()
	if err != nil {
		_ = unix.Close(nfd)
		return nil, err
	}
	if err := rh.AssociateFD(nfd); err != nil {
		_ = unix.Close(nfd)
		rh.Release()
		return nil, err
	}
	return adoptStream(nfd, rh), nil
}

// Close stops listening and releases the socket.
func (l *StreamListener) Close() error {
	if !l.IsOpen() {
		return api.ErrChannelNotOpen
	}
	_ = l.rh.DeassociateFD(l.fd.Get())
	err := l.fd.Close()
	l.rh.Release()
	l.rh = nil
	return err
}
