//go:build windows

// File: netaddr/sockaddr_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package netaddr

import (
	"net/netip"

	"golang.org/x/sys/windows"

	"github.com/momentics/hioload-aio/api"
)

// Sockaddr maps ep onto the OS socket-address layout, returning the
// address and the AF_* domain for the socket call.
func Sockaddr(ep Endpoint) (windows.Sockaddr, int, error) {
	switch e := ep.(type) {
	case TCPEndpoint:
		if e.Family() == INET {
			sa := &windows.SockaddrInet4{Port: int(e.Port)}
			sa.Addr = e.Addr.Unmap().As4()
			return sa, windows.AF_INET, nil
		}
		sa := &windows.SockaddrInet6{Port: int(e.Port)}
		sa.Addr = e.Addr.As16()
		return sa, windows.AF_INET6, nil
	case UnixEndpoint:
		if len(e.Path) == 0 || len(e.Path) > unixPathMax {
			return nil, 0, windows.WSAEINVAL
		}
		return &windows.SockaddrUnix{Name: e.Path}, windows.AF_UNIX, nil
	default:
		return nil, 0, api.ErrAddressFamilyNotSupported
	}
}

// FromSockaddr converts an accepted peer address back into an
// endpoint. Unknown layouts report ErrAddressFamilyNotSupported.
func FromSockaddr(sa windows.Sockaddr) (Endpoint, error) {
	switch a := sa.(type) {
	case *windows.SockaddrInet4:
		return TCPEndpoint{Addr: netip.AddrFrom4(a.Addr), Port: uint16(a.Port)}, nil
	case *windows.SockaddrInet6:
		return TCPEndpoint{Addr: netip.AddrFrom16(a.Addr), Port: uint16(a.Port)}, nil
	case *windows.SockaddrUnix:
		return UnixEndpoint{Path: a.Name}, nil
	default:
		return nil, api.ErrAddressFamilyNotSupported
	}
}
