package peergroup

import (
	"context"
	"fmt"
	"time"

	"github.com/represtati3/bitcoin-net/pkg/peerid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	defaultNumPeers         = 8
	defaultConnectTimeout   = 8000 * time.Millisecond
	defaultPeerGroupWebPort = 8192
	defaultAcceptPort       = 8192
)

// admittedPeer is bookkeeping for one live pool member. It is only ever
// touched from the loop goroutine.
type admittedPeer struct {
	id   peerid.ID
	peer Peer
}

// Group is the top-level aggregate of spec.md §3: it owns the admitted-peer
// list, the tx pool, the exchange handle, and the single coordinating
// goroutine that serializes every mutation to that state, grounded on
// connmgr.Connmgr's actionch pattern and network.Server's run loop.
type Group struct {
	*discoverer

	params Params
	opts   Options
	log    *zap.Logger

	bus *bus

	actionCh chan func()
	quitCh   chan struct{}

	phase     Phase
	accepting atomic.Bool
	closed    atomic.Bool

	peers []*admittedPeer
	index map[peerid.ID]*admittedPeer

	txPool *txPool

	webSeedBootstrap bool
	webSeedTarget    int
	webSeedAdmitted  int

	acceptedWS          bool
	acceptedWebRTC      bool
	exchangePumpStarted bool

	closeWaiters []func()
}

// New constructs a Group. Options zero values fall back to spec.md §6
// defaults.
func New(params Params, opts Options, log *zap.Logger) (*Group, error) {
	if opts.Factory == nil {
		return nil, fmt.Errorf("peergroup: Options.Factory is required")
	}
	if opts.NumPeers <= 0 {
		opts.NumPeers = defaultNumPeers
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if params.DefaultWebPort <= 0 {
		params.DefaultWebPort = defaultPeerGroupWebPort
	}
	if log == nil {
		log = zap.NewNop()
	}

	g := &Group{
		discoverer: newDiscoverer(params, opts.ConnectTimeout, opts.ConnectWeb, opts.Exchange, log),
		params:     params,
		opts:       opts,
		log:        log,
		bus:        newBus(),
		actionCh:   make(chan func(), 256),
		quitCh:     make(chan struct{}),
		phase:      PhaseIdle,
		index:      make(map[peerid.ID]*admittedPeer),
		txPool:     newTxPool(),
	}
	go g.loop()
	return g, nil
}

// loop is the single coordinating goroutine: every Group field above is
// mutated exclusively by closures it executes, one at a time (§5).
func (g *Group) loop() {
	for {
		select {
		case fn := <-g.actionCh:
			fn()
		case <-g.quitCh:
			return
		}
	}
}

// submit schedules fn to run on the loop goroutine and returns immediately.
// Callers that need a result close over a channel inside fn.
func (g *Group) submit(fn func()) {
	select {
	case g.actionCh <- fn:
	case <-g.quitCh:
	}
}

// call schedules fn on the loop goroutine and blocks until it has run. It
// must never be used by code that itself runs on the loop goroutine.
func (g *Group) call(fn func()) {
	done := make(chan struct{})
	g.submit(func() {
		fn()
		close(done)
	})
	<-done
}

// Phase returns the group's current lifecycle stage.
func (g *Group) Phase() Phase {
	var p Phase
	g.call(func() { p = g.phase })
	return p
}

// PeerCount returns the number of currently admitted peers.
func (g *Group) PeerCount() int {
	var n int
	g.call(func() { n = len(g.peers) })
	return n
}

// Accepting reports whether the group currently accepts inbound peers.
func (g *Group) Accepting() bool {
	return g.accepting.Load()
}

// Subscribe returns a channel of events published on topic, and a cancel
// function to stop receiving them. See the Topic* constants and the
// content-addressed "block:<hash>"/"merkleblock:<hash>"/"tx:<hash>" topics.
func (g *Group) Subscribe(topic string) (<-chan GroupEvent, func()) {
	return g.bus.subscribe(topic)
}

// Connect transitions the group from idle to connecting and schedules the
// startup discovery work. It returns synchronously after scheduling (§5);
// admissions and peer events arrive asynchronously on the bus.
func (g *Group) Connect() error {
	g.call(func() {
		if g.phase != PhaseIdle {
			return
		}
		g.phase = PhaseConnecting
		g.startConnecting()
	})
	return nil
}

// Close marks the group closed, stops the tx-pool timer, disables
// accepting, and asks every admitted peer to disconnect. cb fires exactly
// once, when the admitted-peer list reaches zero (§4.13).
func (g *Group) Close(cb func()) {
	g.closed.Store(true)
	g.txPool.stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = g.Unaccept(ctx)

	g.call(func() {
		g.phase = PhaseClosed
		if len(g.peers) == 0 {
			if cb != nil {
				cb()
			}
			return
		}
		if cb != nil {
			g.closeWaiters = append(g.closeWaiters, cb)
		}
		snapshot := make([]*admittedPeer, len(g.peers))
		copy(snapshot, g.peers)
		reason := fmt.Errorf("PeerGroup closing")
		for _, ap := range snapshot {
			ap.peer.Disconnect(reason)
		}
	})
}

// checkCloseComplete fires pending Close completions once the admitted
// list has drained to zero. Must run on the loop goroutine.
func (g *Group) checkCloseComplete() {
	if g.phase != PhaseClosed || len(g.peers) != 0 {
		return
	}
	waiters := g.closeWaiters
	g.closeWaiters = nil
	for _, cb := range waiters {
		cb()
	}
}
