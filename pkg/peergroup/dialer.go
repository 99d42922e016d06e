package peergroup

import (
	"context"
	"errors"
	"net"
)

// dialTCP is component C2: it connects to addr with the configured
// timeout, grounded on connmgr.Connmgr.Dial's use of net.DialTimeout. The
// Node.js source's socket unref/ref toggle (so a pending dial never blocks
// process exit) has no Go analogue: context cancellation achieves the same
// property idiomatically.
func (d *discoverer) dialTCP(ctx context.Context, addr string) (Transport, error) {
	dialer := net.Dialer{Timeout: d.connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		d.addrCache.MarkFailed(addr)
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, &ConnectTimeoutError{Addr: addr}
		}
		return nil, err
	}
	d.addrCache.Forget(addr)
	return conn, nil
}
