package peergroup

import (
	"errors"

	"github.com/represtati3/bitcoin-net/pkg/metrics"
	"github.com/represtati3/bitcoin-net/pkg/peerid"
	"go.uber.org/zap"
)

// onDiscoveryResult is component C6's entry point: a transport or an error
// arrived from one discovery attempt. Must run on the loop goroutine.
func (g *Group) onDiscoveryResult(t Transport, err error) {
	if g.closed.Load() {
		if t != nil {
			_ = t.Close()
		}
		return
	}

	if err != nil {
		g.log.Debug("discovery attempt failed", zap.Error(err))
		g.bus.publish(TopicConnectError, GroupEvent{Err: err})
		if g.phase == PhaseConnecting {
			g.connectPeer()
		}
		return
	}

	peer, ferr := g.opts.Factory(t, g.opts.PeerOpts)
	if ferr != nil {
		_ = t.Close()
		g.bus.publish(TopicConnectError, GroupEvent{Err: ferr})
		if g.phase == PhaseConnecting {
			g.connectPeer()
		}
		return
	}

	go g.pumpPeer(peer)
}

// pumpPeer is the single goroutine that drains one Peer's event stream for
// its entire lifetime, translating events into loop-goroutine closures. A
// single persistent pump (rather than separate pre-ready/post-ready
// listeners) preserves "within a single peer, events surface in the order
// the peer emits them" (§5) without a second subscription swap at ready
// time.
func (g *Group) pumpPeer(p Peer) {
	ready := false
	for ev := range p.Events() {
		ev := ev
		switch ev.Kind {
		case EventReady:
			if ready {
				continue
			}
			ready = true
			g.submit(func() { g.onPeerReady(p) })
		case EventDisconnect:
			if !ready {
				g.submit(func() { g.onPreReadyFailure(p, ev.Err) })
			} else {
				g.submit(func() { g.onPeerDisconnect(p, ev.Err) })
			}
			return
		case EventError:
			if !ready {
				g.submit(func() { g.onPreReadyFailure(p, ev.Err) })
				return
			}
			g.submit(func() { g.onPeerError(p, ev.Err) })
		case EventMessage:
			if ready {
				g.submit(func() { g.onPeerMessage(p, ev.Message) })
			}
		case EventTx:
			if ready {
				g.submit(func() { g.onPeerTx(p, ev.Tx) })
			}
		case EventBlock:
			if ready {
				g.submit(func() { g.onPeerBlock(p, ev.Block) })
			}
		case EventMerkleBlock:
			if ready {
				g.submit(func() { g.onPeerMerkleBlock(p, ev.MerkleBlock) })
			}
		}
	}
}

// onPeerReady admits the peer, unless the group has since closed in which
// case it is asked to disconnect gracefully instead (§4.6).
func (g *Group) onPeerReady(p Peer) {
	if g.phase == PhaseClosed || g.closed.Load() {
		p.Disconnect(ErrGroupClosed)
		return
	}
	g.admitPeer(p)
}

// onPreReadyFailure handles a Peer that errored or disconnected before
// reaching readiness: spec.md's PeerHandshakeError.
func (g *Group) onPreReadyFailure(p Peer, err error) {
	herr := &HandshakeError{Err: err}
	g.bus.publish(TopicConnectError, GroupEvent{Peer: p, Err: herr})
	if g.phase == PhaseConnecting {
		g.connectPeer()
	}
}

// admitPeer is the "addPeer" operation of §4.6.
func (g *Group) admitPeer(p Peer) {
	if g.closed.Load() {
		p.Disconnect(ErrGroupClosed)
		return
	}

	id := peerid.New()
	ap := &admittedPeer{id: id, peer: p}
	g.peers = append(g.peers, ap)
	g.index[id] = ap

	g.txPool.start()

	if g.opts.HardLimit && len(g.peers) > g.opts.NumPeers {
		g.evictOldest(errors.New("PeerGroup over limit"))
	}

	if g.webSeedBootstrap {
		g.webSeedAdmitted++
		if g.webSeedAdmitted >= g.webSeedTarget {
			g.webSeedBootstrap = false
			g.fillPeers()
		}
	}

	metrics.SetPeerCount(len(g.peers))
	g.bus.publish(TopicPeer, GroupEvent{Peer: p})
}

// evictOldest disconnects the oldest admitted peer. Removal from the list
// happens later, when that peer's own disconnect event arrives, keeping a
// single code path for list mutation.
func (g *Group) evictOldest(reason error) {
	if len(g.peers) == 0 {
		return
	}
	g.peers[0].peer.Disconnect(reason)
}

// onPeerMessage re-emits an admitted peer's message both generically and
// under its command name (component C9).
func (g *Group) onPeerMessage(p Peer, msg *Message) {
	g.bus.publish(TopicMessage, GroupEvent{Peer: p, Message: msg})
	g.bus.publish(msg.Command, GroupEvent{Peer: p, Message: msg})
}

// onPeerTx inserts into the tx pool and re-emits both the generic and
// content-addressed tx topics.
func (g *Group) onPeerTx(p Peer, tx *Tx) {
	g.txPool.insert(*tx)
	g.bus.publish(TopicTx, GroupEvent{Peer: p, Tx: tx})
	g.bus.publish(TopicTx+":"+string(tx.Hash), GroupEvent{Peer: p, Tx: tx})
}

func (g *Group) onPeerBlock(p Peer, b *Block) {
	g.bus.publish(TopicBlock, GroupEvent{Peer: p, Block: b})
	g.bus.publish(TopicBlock+":"+string(b.Header.Hash), GroupEvent{Peer: p, Block: b})
}

func (g *Group) onPeerMerkleBlock(p Peer, mb *MerkleBlock) {
	g.bus.publish(TopicMerkleBlock, GroupEvent{Peer: p, MerkleBlock: mb})
	g.bus.publish(TopicMerkleBlock+":"+string(mb.Header.Hash), GroupEvent{Peer: p, MerkleBlock: mb})
}

// onPeerError propagates an admitted peer's runtime error and asks it to
// disconnect (spec.md's PeerRuntimeError).
func (g *Group) onPeerError(p Peer, err error) {
	g.bus.publish(TopicPeerError, GroupEvent{Peer: p, Err: err})
	p.Disconnect(err)
}

// onPeerDisconnect removes an admitted peer from the pool, re-emits
// disconnect, and triggers replenishment if still connecting.
func (g *Group) onPeerDisconnect(p Peer, err error) {
	idx := -1
	for i, a := range g.peers {
		if a.peer == p {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	ap := g.peers[idx]
	g.peers = append(g.peers[:idx:idx], g.peers[idx+1:]...)
	delete(g.index, ap.id)

	metrics.SetPeerCount(len(g.peers))
	g.bus.publish(TopicDisconnect, GroupEvent{Peer: p, Err: err})

	if g.phase == PhaseConnecting {
		g.connectPeer()
	}

	g.checkCloseComplete()
}
