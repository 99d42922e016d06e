package peergroup

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/atomic"
)

// fakeTransport is a no-op Transport: tests that don't care about byte
// content only need Close() to be observable.
type fakeTransport struct {
	closed atomic.Bool
}

func (f *fakeTransport) Read(p []byte) (int, error)  { <-make(chan struct{}); return 0, io.EOF }
func (f *fakeTransport) Write(p []byte) (int, error) { return len(p), nil }
func (f *fakeTransport) Close() error {
	f.closed.Store(true)
	return nil
}

// fakePeer is a scriptable Peer: tests push PeerEvents onto its channel,
// inspect calls to Send/Disconnect, and script the three request methods'
// results via the fields below.
type fakePeer struct {
	addr string

	events chan PeerEvent

	mu          sync.Mutex
	sent        []Message
	disconnects []error

	reqResult any
	reqErr    error
}

func newFakePeer(addr string) *fakePeer {
	return &fakePeer{addr: addr, events: make(chan PeerEvent, 16)}
}

func (p *fakePeer) Addr() string                     { return p.addr }
func (p *fakePeer) Events() <-chan PeerEvent          { return p.events }
func (p *fakePeer) Send(command string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, Message{Command: command, Payload: payload})
	return nil
}
// Disconnect only records the request: like a real Peer, the caller learns
// teardown actually happened from a later EventDisconnect on Events(), which
// tests simulate explicitly.
func (p *fakePeer) Disconnect(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnects = append(p.disconnects, err)
}

func (p *fakePeer) GetBlocks(ctx context.Context, hashes []BlockHash, opts RequestOptions) (any, error) {
	return p.reqResult, p.reqErr
}
func (p *fakePeer) GetTransactions(ctx context.Context, blockHash BlockHash, txids []TxHash, opts RequestOptions) (any, error) {
	return p.reqResult, p.reqErr
}
func (p *fakePeer) GetHeaders(ctx context.Context, locator []BlockHash, opts RequestOptions) (any, error) {
	return p.reqResult, p.reqErr
}

func (p *fakePeer) disconnectCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.disconnects)
}

// fakeTimeoutError satisfies TimeoutError for exercising request retry.
type fakeTimeoutError struct{ msg string }

func (e *fakeTimeoutError) Error() string { return e.msg }
func (e *fakeTimeoutError) Timeout() bool { return true }

// fakeExchange is a scriptable Exchange.
type fakeExchange struct {
	mu          sync.Mutex
	connectedTo []string
	accepted    map[string]bool
	webPeers    []Transport

	events chan ExchangeEvent

	connectErr error
	acceptErr  map[string]error
	newPeerErr error
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		accepted:  make(map[string]bool),
		acceptErr: make(map[string]error),
		events:    make(chan ExchangeEvent, 16),
	}
}

func (e *fakeExchange) Connect(ctx context.Context, kind, address string, opts RequestOptions) (Transport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connectedTo = append(e.connectedTo, address)
	if e.connectErr != nil {
		return nil, e.connectErr
	}
	return &fakeTransport{}, nil
}

func (e *fakeExchange) Accept(ctx context.Context, kind string, opts RequestOptions) error {
	if err := e.acceptErr[kind]; err != nil {
		return err
	}
	e.mu.Lock()
	e.accepted[kind] = true
	e.mu.Unlock()
	return nil
}

func (e *fakeExchange) Unaccept(ctx context.Context, kind string) error {
	e.mu.Lock()
	delete(e.accepted, kind)
	e.mu.Unlock()
	return nil
}

func (e *fakeExchange) GetNewPeer(ctx context.Context) (Transport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.newPeerErr != nil {
		return nil, e.newPeerErr
	}
	if len(e.webPeers) == 0 {
		return nil, errors.New("fakeExchange: no web peers")
	}
	t := e.webPeers[0]
	e.webPeers = e.webPeers[1:]
	return t, nil
}

func (e *fakeExchange) Peers() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.webPeers))
	for i := range out {
		out[i] = "webpeer"
	}
	return out
}

func (e *fakeExchange) Events() <-chan ExchangeEvent { return e.events }

func (e *fakeExchange) pushWebPeer() {
	e.mu.Lock()
	e.webPeers = append(e.webPeers, &fakeTransport{})
	e.mu.Unlock()
}
