// File: netaddr/resolve.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Hostname resolution. getaddrinfo blocks, so the lookup runs on an
// executor worker via Invoke while the calling task parks; the
// reactor goroutine is never involved.

package netaddr

import (
	"context"
	"net"
	"net/netip"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/concurrency"
	"github.com/momentics/hioload-aio/reactor"
)

type resolveResult struct {
	addrs []netip.Addr
	err   error
}

// Resolve looks up host restricted to the given family (INET, INET6)
// using the system resolver, returning the resolved addresses in
// resolver order.
func Resolve(ctx context.Context, h *reactor.Handle, host string, family Family) ([]netip.Addr, error) {
	if ctx.Err() != nil {
		return nil, api.ErrCancelled
	}
	var network string
	switch family {
	case INET:
		network = "ip4"
	case INET6:
		network = "ip6"
	default:
		return nil, api.ErrAddressFamilyNotSupported
	}
	ret, err := concurrency.Invoke(h.Executor(), func() resolveResult {
		addrs, lerr := net.DefaultResolver.LookupNetIP(ctx, network, host)
		return resolveResult{addrs: addrs, err: lerr}
	})
	if err != nil {
		return nil, err
	}
	return ret.addrs, ret.err
}
