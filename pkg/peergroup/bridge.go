package peergroup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/represtati3/bitcoin-net/pkg/metrics"
	"github.com/represtati3/bitcoin-net/pkg/peerid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// bridgePair is the linked lifetime of one inbound client and its freshly
// dialed outbound counterpart (§3 "Bridge-pair"). Cyclic ownership is
// avoided by having the pair itself own both endpoints; each endpoint's
// close handler only ever reaches the pair, never the other endpoint
// directly (Design Notes §9's "borrow, not own").
type bridgePair struct {
	id       peerid.ID
	client   Transport
	outbound Transport

	once sync.Once
	done chan struct{}
}

func newBridgePair(id peerid.ID, client, outbound Transport) *bridgePair {
	return &bridgePair{id: id, client: client, outbound: outbound, done: make(chan struct{})}
}

// destroy tears the pair down exactly once: closing both endpoints, which
// in turn stops the two splice goroutines. Safe to call from either splice
// direction, from the shared error handler, or from Close.
func (p *bridgePair) destroy() {
	p.once.Do(func() {
		close(p.done)
		_ = p.client.Close()
		_ = p.outbound.Close()
	})
}

// splice copies bytes from src to dst until either side errs or the pair is
// already being torn down, then calls onErr (idempotent via destroy).
func (p *bridgePair) splice(dst io.Writer, src io.Reader, onErr func(error)) {
	_, err := io.Copy(dst, src)
	select {
	case <-p.done:
		return
	default:
	}
	onErr(err)
}

// Bridge is the variant orchestrator of component C12: it never admits
// peers into a pool and never dispatches requests. It only accepts inbound
// sockets and splices each one to a freshly dialed outbound transport,
// grounded in the same single-coordinating-goroutine shape as Group.
type Bridge struct {
	*discoverer

	opts Options
	log  *zap.Logger

	bus *bus

	actionCh chan func()
	quitCh   chan struct{}

	accepting atomic.Bool
	closed    atomic.Bool

	acceptedWS          bool
	acceptedWebRTC      bool
	exchangePumpStarted bool

	pairs map[peerid.ID]*bridgePair
}

// NewBridge constructs a Bridge. connectWeb is always forced false (§6:
// "Bridge variant forces false") since a bridge pair's outbound half is a
// raw dial, never an exchange-backed web peer.
func NewBridge(params Params, opts Options, log *zap.Logger) (*Bridge, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	opts.ConnectWeb = false
	if log == nil {
		log = zap.NewNop()
	}

	b := &Bridge{
		discoverer: newDiscoverer(params, opts.ConnectTimeout, false, opts.Exchange, log),
		opts:       opts,
		log:        log,
		bus:        newBus(),
		actionCh:   make(chan func(), 256),
		quitCh:     make(chan struct{}),
		pairs:      make(map[peerid.ID]*bridgePair),
	}
	go b.loop()
	return b, nil
}

func (b *Bridge) loop() {
	for {
		select {
		case fn := <-b.actionCh:
			fn()
		case <-b.quitCh:
			return
		}
	}
}

func (b *Bridge) submit(fn func()) {
	select {
	case b.actionCh <- fn:
	case <-b.quitCh:
	}
}

func (b *Bridge) call(fn func()) {
	done := make(chan struct{})
	b.submit(func() {
		fn()
		close(done)
	})
	<-done
}

// Connect always fails: a Bridge never initiates outbound connections on
// its own, only in response to an inbound candidate (§4.12).
func (b *Bridge) Connect() error {
	return ErrBridgeConnect
}

// Subscribe returns a channel of bridge-level events (connection, bridge,
// connectError, peerError) and a cancel function.
func (b *Bridge) Subscribe(topic string) (<-chan GroupEvent, func()) {
	return b.bus.subscribe(topic)
}

// Accepting reports whether the bridge currently accepts inbound sockets.
func (b *Bridge) Accepting() bool { return b.accepting.Load() }

// Accept enables inbound acceptance, identical to Group.Accept (§4.11):
// websocket first, then webrtc with a "not found" downgrade to success.
func (b *Bridge) Accept(ctx context.Context, port int, cb func(error)) error {
	if port <= 0 {
		port = defaultAcceptPort
	}
	if cb == nil {
		cb = func(err error) {
			if err != nil {
				b.bus.publish(TopicError, GroupEvent{Err: err})
			}
		}
	}
	if b.opts.Exchange == nil {
		err := fmt.Errorf("peergroup: accept requires an Exchange")
		cb(err)
		return err
	}

	if err := b.opts.Exchange.Accept(ctx, "websocket", RequestOptions{"port": port}); err != nil {
		cb(err)
		return err
	}
	b.call(func() { b.acceptedWS = true })

	if err := b.opts.Exchange.Accept(ctx, "webrtc", RequestOptions{}); err != nil {
		if !errors.Is(err, ErrTransportNotFound) {
			_ = b.opts.Exchange.Unaccept(ctx, "websocket")
			b.call(func() { b.acceptedWS = false })
			cb(err)
			return err
		}
	} else {
		b.call(func() { b.acceptedWebRTC = true })
	}

	b.accepting.Store(true)
	b.ensureExchangePump()

	cb(nil)
	return nil
}

// Unaccept mirrors Group.Unaccept.
func (b *Bridge) Unaccept(ctx context.Context) error {
	if !b.accepting.Load() {
		return nil
	}

	var wasWS, wasRTC bool
	b.call(func() { wasWS = b.acceptedWS; wasRTC = b.acceptedWebRTC })

	var firstErr error
	if wasWS {
		if err := b.opts.Exchange.Unaccept(ctx, "websocket"); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if wasRTC {
		if err := b.opts.Exchange.Unaccept(ctx, "webrtc"); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	b.call(func() {
		b.acceptedWS = false
		b.acceptedWebRTC = false
	})
	b.accepting.Store(false)
	return firstErr
}

func (b *Bridge) ensureExchangePump() {
	b.call(func() {
		if b.exchangePumpStarted || b.opts.Exchange == nil {
			return
		}
		b.exchangePumpStarted = true
		go b.pumpExchange()
	})
}

func (b *Bridge) pumpExchange() {
	for ev := range b.opts.Exchange.Events() {
		ev := ev
		if ev.Err != nil || ev.Transport == nil {
			continue
		}
		b.submit(func() { b.onInboundCandidate(ev.Transport) })
	}
}

// onInboundCandidate is the heart of C12: before the candidate is ever
// wrapped as anything, emit connection(client), then dial one fresh
// outbound transport via C1. Failure retries from the same client; success
// installs the linked teardown and splices bytes in both directions.
func (b *Bridge) onInboundCandidate(client Transport) {
	if b.closed.Load() {
		_ = client.Close()
		return
	}
	b.bus.publish(TopicConnection, GroupEvent{Client: client})
	b.dialOutboundFor(client)
}

func (b *Bridge) dialOutboundFor(client Transport) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		t, err := b.discover(ctx)
		b.submit(func() { b.onOutboundResult(client, t, err) })
	}()
}

func (b *Bridge) onOutboundResult(client Transport, outbound Transport, err error) {
	if b.closed.Load() {
		_ = client.Close()
		if outbound != nil {
			_ = outbound.Close()
		}
		return
	}
	if err != nil {
		b.bus.publish(TopicConnectError, GroupEvent{Client: client, Err: err})
		b.dialOutboundFor(client)
		return
	}

	id := peerid.New()
	pair := newBridgePair(id, client, outbound)
	b.pairs[id] = pair

	onErr := func(err error) {
		b.submit(func() { b.teardownPair(id, err) })
	}
	go pair.splice(pair.outbound, pair.client, onErr)
	go pair.splice(pair.client, pair.outbound, onErr)

	metrics.SetBridgePairs(len(b.pairs))
	b.bus.publish(TopicBridge, GroupEvent{Client: client, BridgeTransport: outbound})
}

// teardownPair destroys a pair exactly once and reports the triggering
// error, if any, on the shared error topic (§4.12's single shared error
// handler).
func (b *Bridge) teardownPair(id peerid.ID, err error) {
	pair, ok := b.pairs[id]
	if !ok {
		return
	}
	delete(b.pairs, id)
	metrics.SetBridgePairs(len(b.pairs))
	pair.destroy()
	if err != nil && !errors.Is(err, io.EOF) {
		b.bus.publish(TopicPeerError, GroupEvent{Client: pair.client, BridgeTransport: pair.outbound, Err: err})
	}
}

// Close mirrors Group.Close: stop accepting, destroy every live pair. There
// is no admitted-peer drain to wait on, so completion is synchronous.
func (b *Bridge) Close(cb func()) {
	b.closed.Store(true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = b.Unaccept(ctx)

	b.call(func() {
		for id, pair := range b.pairs {
			pair.destroy()
			delete(b.pairs, id)
		}
		metrics.SetBridgePairs(0)
	})
	if cb != nil {
		cb()
	}
}
