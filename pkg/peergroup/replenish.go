package peergroup

import "context"

// startConnecting implements the startup branching of §4.7: web seeds
// bootstrap the exchange-backed producer first, if configured; otherwise
// fillPeers runs immediately. Must run on the loop goroutine.
func (g *Group) startConnecting() {
	if g.opts.ConnectWeb && g.opts.Exchange != nil && len(g.params.WebSeeds) > 0 {
		n := clampInt(1, g.opts.NumPeers/2, len(g.params.WebSeeds))
		g.webSeedBootstrap = true
		g.webSeedTarget = n
		g.webSeedAdmitted = 0
		g.connectWebSeeds(context.Background(), n)
		return
	}
	g.fillPeers()
}

func clampInt(lo, mid, hi int) int {
	v := mid
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return v
}

// fillPeers computes the current deficit and issues that many concurrent
// discovery attempts (§4.7). Must run on the loop goroutine.
func (g *Group) fillPeers() {
	n := g.opts.NumPeers - len(g.peers)
	for i := 0; i < n; i++ {
		g.connectPeer()
	}
}

// connectPeer issues exactly one discovery attempt asynchronously; its
// result re-enters through onDiscoveryResult on the loop goroutine. This is
// the single-attempt replenishment path used directly by connectError and
// admitted-peer-disconnect handlers, distinct from fillPeers's full-deficit
// refill — both paths are preserved exactly as spec.md §9 leaves them,
// unexplained rationale included.
func (g *Group) connectPeer() {
	ctx := context.Background()
	go func() {
		t, err := g.discover(ctx)
		g.submit(func() { g.onDiscoveryResult(t, err) })
	}()
}
