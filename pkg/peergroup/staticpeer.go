package peergroup

import (
	"context"
	"net"
	"strconv"
)

// staticPeerCandidate is component C4: parse every static-peer entry as
// host[:port], pick one (uniformly at random among those that haven't
// recently failed, via pickAddr), and hand it to the TCP dialer with the
// parsed port or the configured default.
func (d *discoverer) staticPeerCandidate(ctx context.Context) (Transport, error) {
	addrs := make([]string, len(d.params.StaticPeers))
	for i, entry := range d.params.StaticPeers {
		host, portStr, err := net.SplitHostPort(entry)
		if err != nil {
			host = entry
			portStr = strconv.Itoa(d.params.DefaultPort)
		}
		addrs[i] = net.JoinHostPort(host, portStr)
	}
	return d.dialTCP(ctx, d.pickAddr(addrs))
}
