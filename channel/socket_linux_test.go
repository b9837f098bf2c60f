//go:build linux

// File: channel/socket_linux_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package channel

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/buffer"
	"github.com/momentics/hioload-aio/netaddr"
	"github.com/momentics/hioload-aio/task"
)

func listenLoopback(t *testing.T) (*StreamListener, netaddr.TCPEndpoint) {
	t.Helper()
	lst, err := Listen(netaddr.TCPEndpoint{Addr: netip.MustParseAddr("127.0.0.1")})
	if err != nil {
		t.Fatalf("Listen() error: %v", err)
	}
	ep, err := lst.Addr()
	if err != nil {
		t.Fatalf("Addr() error: %v", err)
	}
	return lst, ep.(netaddr.TCPEndpoint)
}

func TestAsyncAcceptCancel(t *testing.T) {
	lst, _ := listenLoopback(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tk := task.New(func(context.Context) (struct{}, error) {
		_, err := lst.AsyncAccept(ctx)
		return struct{}{}, err
	})
	if _, err := task.Wait(tk); !errors.Is(err, api.ErrCancelled) {
		t.Fatalf("AsyncAccept() with fired token = %v, want ErrCancelled", err)
	}
	if err := lst.Close(); err != nil {
		t.Fatalf("Close() after cancelled accept error: %v", err)
	}
}

func TestAsyncAcceptCancelWhileWaiting(t *testing.T) {
	lst, _ := listenLoopback(t)
	defer func() { _ = lst.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan error, 1)
	go func() {
		_, err := lst.AsyncAccept(ctx)
		got <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-got:
		if !errors.Is(err, api.ErrCancelled) {
			t.Fatalf("AsyncAccept() = %v, want ErrCancelled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled accept never returned")
	}
}

func TestStreamEchoRoundTrip(t *testing.T) {
	lst, ep := listenLoopback(t)
	defer func() { _ = lst.Close() }()

	const payload = "ping over the loopback"

	server := task.New(func(ctx context.Context) (string, error) {
		conn, err := lst.AsyncAccept(ctx)
		if err != nil {
			return "", err
		}
		defer func() { _ = conn.Close() }()
		buf := buffer.NewDynamic(8)
		got := make([]byte, 0, len(payload))
		for len(got) < len(payload) {
			if _, err := conn.AsyncRecvSome(ctx, buf); err != nil {
				return "", err
			}
			chunk := make([]byte, 8)
			for {
				n := buf.Read(chunk)
				if n == 0 {
					break
				}
				got = append(got, chunk[:n]...)
			}
		}
		return string(got), nil
	})

	client := task.New(func(ctx context.Context) (struct{}, error) {
		conn := NewStreamChannel()
		if err := conn.AsyncConnect(ctx, ep); err != nil {
			return struct{}{}, err
		}
		defer func() { _ = conn.Close() }()
		buf := buffer.NewFixed(64)
		buf.Write([]byte(payload))
		for len(buf.ReadableRanges()) > 0 {
			if _, err := conn.AsyncSendSome(ctx, buf); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := task.Wait(client)
		done <- err
	}()
	got, err := task.Wait(server)
	if err != nil {
		t.Fatalf("server task error: %v", err)
	}
	if cerr := <-done; cerr != nil {
		t.Fatalf("client task error: %v", cerr)
	}
	if got != payload {
		t.Fatalf("server received %q, want %q", got, payload)
	}
}

func TestRecvAfterPeerCloseIsEOF(t *testing.T) {
	lst, ep := listenLoopback(t)
	defer func() { _ = lst.Close() }()

	accepted := make(chan *StreamChannel, 1)
	go func() {
		conn, err := lst.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	client := NewStreamChannel()
	if err := client.Connect(ep); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	server := <-accepted
	if err := client.Close(); err != nil {
		t.Fatalf("client Close() error: %v", err)
	}

	buf := buffer.NewFixed(8)
	if _, err := server.RecvSome(buf); !errors.Is(err, api.ErrEndOfFile) {
		t.Fatalf("RecvSome() after peer close = %v, want ErrEndOfFile", err)
	}
	if err := server.Close(); err != nil {
		t.Fatalf("server Close() error: %v", err)
	}
}

func TestUnixStreamChannel(t *testing.T) {
	path := t.TempDir() + "/aio.sock"
	lst, err := Listen(netaddr.UnixEndpoint{Path: path})
	if err != nil {
		t.Fatalf("Listen(unix) error: %v", err)
	}
	defer func() { _ = lst.Close() }()

	go func() {
		conn, err := lst.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		buf := buffer.NewFixed(16)
		if _, err := conn.RecvSome(buf); err != nil {
			return
		}
		for len(buf.ReadableRanges()) > 0 {
			if _, err := conn.SendSome(buf); err != nil {
				return
			}
		}
	}()

	client := NewStreamChannel()
	if err := client.Connect(netaddr.UnixEndpoint{Path: path}); err != nil {
		t.Fatalf("Connect(unix) error: %v", err)
	}
	defer func() { _ = client.Close() }()

	out := buffer.NewFixed(16)
	out.Write([]byte("unix-ping"))
	for len(out.ReadableRanges()) > 0 {
		if _, err := client.SendSome(out); err != nil {
			t.Fatalf("SendSome() error: %v", err)
		}
	}
	in := buffer.NewFixed(16)
	if _, err := client.RecvSome(in); err != nil {
		t.Fatalf("RecvSome() error: %v", err)
	}
	got := make([]byte, 16)
	n := in.Read(got)
	if string(got[:n]) != "unix-ping" {
		t.Fatalf("echoed %q, want %q", got[:n], "unix-ping")
	}
}

func TestSocketStateMachine(t *testing.T) {
	c := NewStreamChannel()
	buf := buffer.NewFixed(4)
	if _, err := c.RecvSome(buf); !errors.Is(err, api.ErrChannelNotOpen) {
		t.Fatalf("RecvSome() on closed channel = %v, want ErrChannelNotOpen", err)
	}
	if err := c.Close(); !errors.Is(err, api.ErrChannelNotOpen) {
		t.Fatalf("Close() on closed channel = %v, want ErrChannelNotOpen", err)
	}
}
