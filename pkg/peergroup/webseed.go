package peergroup

import (
	"context"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

// WebSeedFromURL normalizes a bare web-seed URL string into a WebSeed
// record, the Go-static-typing equivalent of spec.md §4.5's runtime
// string-or-struct union: callers that have raw URL strings call this once
// while building Params, instead of the group re-parsing a union on every
// use.
func WebSeedFromURL(raw string, defaultWebPort int) (WebSeed, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return WebSeed{}, err
	}
	port := u.Port()
	if port == "" {
		if defaultWebPort <= 0 {
			defaultWebPort = defaultPeerGroupWebPort
		}
		port = strconv.Itoa(defaultWebPort)
	}
	return WebSeed{
		Transport: "websocket",
		Address:   u.Hostname(),
		Opts:      RequestOptions{"port": port},
	}, nil
}

// connectWebSeeds opens up to n web-seed sessions via the exchange
// collaborator. Web seeds are only used once, at startup, to bootstrap the
// exchange-backed discovery producer (§4.5, §4.7). Each result re-enters
// through the normal admission path (onDiscoveryResult).
func (g *Group) connectWebSeeds(ctx context.Context, n int) {
	seeds := g.params.WebSeeds
	if len(seeds) > n {
		seeds = seeds[:n]
	}
	for _, seed := range seeds {
		seed := seed
		go func() {
			t, err := g.opts.Exchange.Connect(ctx, seed.Transport, seed.Address, seed.Opts)
			if err != nil {
				g.log.Debug("web seed connect failed", zap.String("address", seed.Address), zap.Error(err))
			}
			g.submit(func() { g.onDiscoveryResult(t, err) })
		}()
	}
}
