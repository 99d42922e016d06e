package peergroup

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"strconv"
)

// dnsSeedCandidate is component C3: pick a DNS seed uniformly at random,
// resolve its A records, and hand one resolved address (uniformly among
// those that haven't recently failed, via pickAddr) to the TCP dialer with
// the configured default port. The DNS lookup itself uses the standard
// library resolver: DNS resolution internals are an out-of-scope external
// concern (spec.md §1), this component is only the dispatch logic around
// it.
func (d *discoverer) dnsSeedCandidate(ctx context.Context) (Transport, error) {
	seed := d.params.DNSSeeds[rand.Intn(len(d.params.DNSSeeds))]

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", seed)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("dns seed %s returned no addresses", seed)
	}

	addrs := make([]string, len(ips))
	for i, ip := range ips {
		addrs[i] = net.JoinHostPort(ip.String(), strconv.Itoa(d.params.DefaultPort))
	}
	return d.dialTCP(ctx, d.pickAddr(addrs))
}
