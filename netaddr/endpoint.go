// File: netaddr/endpoint.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Endpoint value types for the stream channels: TCP (IPv4/IPv6 plus
// port) and UNIX-domain (filesystem path). Each endpoint maps onto
// the OS socket-address layout in the per-platform sockaddr files.

// Package netaddr supplies the address collaborator surface of the
// core: endpoint values, their address-family tags, and the resolver.
package netaddr

import (
	"fmt"
	"net/netip"
)

// Family tags the address family of an endpoint.
type Family int

const (
	INET Family = iota + 1
	INET6
	Unix
)

// unixPathMax bounds a UNIX-domain socket path (sun_path less the
// trailing NUL).
const unixPathMax = 107

// Endpoint is an address a stream channel can listen on or connect
// to.
type Endpoint interface {
	Family() Family
	String() string
}

// TCPEndpoint is an IPv4 or IPv6 address with a port.
type TCPEndpoint struct {
	Addr netip.Addr
	Port uint16
}

// Family returns INET or INET6 according to the address.
func (e TCPEndpoint) Family() Family {
	if e.Addr.Is4() || e.Addr.Is4In6() {
		return INET
	}
	return INET6
}

func (e TCPEndpoint) String() string {
	if e.Family() == INET6 {
		return fmt.Sprintf("[%s]:%d", e.Addr, e.Port)
	}
	return fmt.Sprintf("%s:%d", e.Addr, e.Port)
}

// UnixEndpoint is a UNIX-domain socket path.
type UnixEndpoint struct {
	Path string
}

func (e UnixEndpoint) Family() Family { return Unix }

func (e UnixEndpoint) String() string { return e.Path }
