package peergroup

import (
	"context"
	"math/rand"

	"github.com/represtati3/bitcoin-net/pkg/metrics"
)

// RandomPeer picks one admitted peer uniformly at random, asserting at
// least one is connected (§6, §8 property 5).
func (g *Group) RandomPeer() (Peer, error) {
	var p Peer
	var err error
	g.call(func() {
		if len(g.peers) == 0 {
			err = ErrNoPeers
			return
		}
		p = g.peers[rand.Intn(len(g.peers))].peer
	})
	return p, err
}

// Send broadcasts command/payload to every admitted peer with no per-peer
// delivery guarantee. If assert is true, it requires at least one peer
// (§4.8).
func (g *Group) Send(command string, payload []byte, assert bool) error {
	var peers []Peer
	var err error
	g.call(func() {
		if assert && len(g.peers) == 0 {
			err = ErrNoPeers
			return
		}
		peers = make([]Peer, len(g.peers))
		for i, ap := range g.peers {
			peers[i] = ap.peer
		}
	})
	if err != nil {
		return err
	}
	for _, p := range peers {
		_ = p.Send(command, payload)
	}
	return nil
}

// requestFunc invokes one of Peer's three request methods.
type requestFunc func(ctx context.Context, p Peer) (any, error)

// dispatch is component C8: pick a random peer, invoke fn, and on a
// TimeoutError disconnect that peer and retry unconditionally against a
// different one; if the timed-out peer is the only one left, it returns
// ErrNoPeers. Retries are unbounded, matching spec.md's explicit
// decision to impose no budget here (§9).
//
// Go's synchronous return replaces the JS "drop the completion silently
// after close" behavior of §4.8 step 4: a caller blocked in dispatch when
// the group closes gets ErrGroupClosed back instead of simply never being
// called again, since a blocking call has no "don't call back" option.
func (g *Group) dispatch(ctx context.Context, method string, fn requestFunc) (any, Peer, error) {
	var skip Peer
	for {
		if g.closed.Load() {
			return nil, nil, ErrGroupClosed
		}
		p, err := g.RandomPeer()
		if err != nil {
			return nil, nil, err
		}
		if p == skip {
			if g.PeerCount() == 1 {
				return nil, nil, ErrNoPeers
			}
			continue
		}

		res, err := fn(ctx, p)
		if g.closed.Load() {
			return nil, nil, ErrGroupClosed
		}
		if asTimeout(err) {
			rerr := &RequestTimeoutError{Method: method, Err: err}
			metrics.ObserveRetry(method)
			g.submit(func() { g.bus.publish(TopicRequestError, GroupEvent{Peer: p, Err: rerr}) })
			p.Disconnect(rerr)
			skip = p
			continue
		}
		return res, p, err
	}
}

// GetBlocks requests blocks by hash from a random peer, retrying on
// timeout.
func (g *Group) GetBlocks(ctx context.Context, hashes []BlockHash, opts RequestOptions) (any, Peer, error) {
	return g.dispatch(ctx, "getBlocks", func(ctx context.Context, p Peer) (any, error) {
		return p.GetBlocks(ctx, hashes, opts)
	})
}

// GetTransactions requests a merkle block's transactions from a random
// peer, retrying on timeout.
func (g *Group) GetTransactions(ctx context.Context, blockHash BlockHash, txids []TxHash, opts RequestOptions) (any, Peer, error) {
	return g.dispatch(ctx, "getTransactions", func(ctx context.Context, p Peer) (any, error) {
		return p.GetTransactions(ctx, blockHash, txids, opts)
	})
}

// GetHeaders requests headers from a random peer, retrying on timeout.
func (g *Group) GetHeaders(ctx context.Context, locator []BlockHash, opts RequestOptions) (any, Peer, error) {
	return g.dispatch(ctx, "getHeaders", func(ctx context.Context, p Peer) (any, error) {
		return p.GetHeaders(ctx, locator, opts)
	})
}
