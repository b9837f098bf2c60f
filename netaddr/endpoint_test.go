// File: netaddr/endpoint_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package netaddr

import (
	"net/netip"
	"strings"
	"testing"
)

func TestTCPEndpointFamilies(t *testing.T) {
	v4 := TCPEndpoint{Addr: netip.MustParseAddr("192.0.2.1"), Port: 80}
	if v4.Family() != INET {
		t.Fatalf("Family() = %v, want INET", v4.Family())
	}
	if got := v4.String(); got != "192.0.2.1:80" {
		t.Fatalf("String() = %q", got)
	}

	v6 := TCPEndpoint{Addr: netip.MustParseAddr("::1"), Port: 8080}
	if v6.Family() != INET6 {
		t.Fatalf("Family() = %v, want INET6", v6.Family())
	}
	if got := v6.String(); got != "[::1]:8080" {
		t.Fatalf("String() = %q", got)
	}
}

func TestUnixEndpoint(t *testing.T) {
	ep := UnixEndpoint{Path: "/tmp/x.sock"}
	if ep.Family() != Unix {
		t.Fatalf("Family() = %v, want Unix", ep.Family())
	}
	if ep.String() != "/tmp/x.sock" {
		t.Fatalf("String() = %q", ep.String())
	}
}

func TestUnixEndpointPathBound(t *testing.T) {
	long := UnixEndpoint{Path: strings.Repeat("x", 200)}
	if _, _, err := Sockaddr(long); err == nil {
		t.Fatal("Sockaddr() accepted an oversized unix path")
	}
}
