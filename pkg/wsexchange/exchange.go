// Package wsexchange is a concrete peer-exchange collaborator
// (peergroup.Exchange) backed by websocket sessions: outbound connects dial
// a remote group's accept port, inbound accepts run one http.Server per
// bound port and upgrade every request. It never supports the "webrtc"
// transport kind; callers see that uniformly as ErrTransportNotFound.
package wsexchange

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/represtati3/bitcoin-net/pkg/peergroup"
)

const transportKind = "websocket"

// Exchange is a peergroup.Exchange implementation over websockets.
type Exchange struct {
	dialer   websocket.Dialer
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu       sync.Mutex
	servers  map[string]*http.Server
	webPeers map[string]*conn

	events chan peergroup.ExchangeEvent
}

// New constructs an Exchange. log defaults to a no-op logger.
func New(log *zap.Logger) *Exchange {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exchange{
		dialer:   websocket.Dialer{},
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		log:      log,
		servers:  make(map[string]*http.Server),
		webPeers: make(map[string]*conn),
		events:   make(chan peergroup.ExchangeEvent, 64),
	}
}

// Connect dials address:opts["port"] and registers the session as a web
// peer. Only the "websocket" transport kind is supported.
func (e *Exchange) Connect(ctx context.Context, kind, address string, opts peergroup.RequestOptions) (peergroup.Transport, error) {
	if kind != transportKind {
		return nil, peergroup.ErrTransportNotFound
	}
	port, _ := opts["port"]
	url := fmt.Sprintf("ws://%s/", net.JoinHostPort(address, fmt.Sprint(port)))

	ws, _, err := e.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	c := newConn(ws)
	e.mu.Lock()
	e.webPeers[c.RemoteAddr()] = c
	e.mu.Unlock()
	return c, nil
}

// Accept enables inbound websocket upgrades on opts["port"]. webrtc is
// never available: it always reports ErrTransportNotFound, which the
// inbound acceptor (C11) downgrades to success.
func (e *Exchange) Accept(ctx context.Context, kind string, opts peergroup.RequestOptions) error {
	if kind != transportKind {
		return peergroup.ErrTransportNotFound
	}
	port, _ := opts["port"]
	addr := fmt.Sprintf(":%v", port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", e.handleUpgrade)
	srv := &http.Server{Handler: mux}

	e.mu.Lock()
	e.servers[kind] = srv
	e.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			e.log.Debug("websocket accept loop ended", zap.Error(err))
		}
	}()
	return nil
}

func (e *Exchange) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	c := newConn(ws)
	select {
	case e.events <- peergroup.ExchangeEvent{Transport: c, Incoming: true}:
	default:
		e.log.Warn("dropping inbound websocket: event channel full")
		_ = c.Close()
	}
}

// Unaccept stops inbound acceptance of kind, if it was enabled.
func (e *Exchange) Unaccept(ctx context.Context, kind string) error {
	if kind != transportKind {
		return nil
	}
	e.mu.Lock()
	srv := e.servers[kind]
	delete(e.servers, kind)
	e.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// GetNewPeer hands out one already-connected web peer chosen at random,
// removing it from the pool it was drawn from.
func (e *Exchange) GetNewPeer(ctx context.Context) (peergroup.Transport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.webPeers) == 0 {
		return nil, fmt.Errorf("wsexchange: no connected web peers")
	}
	addrs := make([]string, 0, len(e.webPeers))
	for a := range e.webPeers {
		addrs = append(addrs, a)
	}
	addr := addrs[rand.Intn(len(addrs))]
	c := e.webPeers[addr]
	delete(e.webPeers, addr)
	return c, nil
}

// Peers lists addresses of currently connected web peers.
func (e *Exchange) Peers() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.webPeers))
	for a := range e.webPeers {
		out = append(out, a)
	}
	return out
}

// Events surfaces inbound websocket upgrades.
func (e *Exchange) Events() <-chan peergroup.ExchangeEvent {
	return e.events
}
