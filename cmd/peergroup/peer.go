package main

import (
	"context"
	"errors"

	"github.com/represtati3/bitcoin-net/pkg/peergroup"
)

// loopbackFactory wraps a raw Transport as a minimal demo Peer: no
// handshake, no wire codec, just enough to exercise the pool lifecycle from
// this command. A real deployment supplies its own PeerFactory implementing
// the actual wire protocol; that is explicitly out of scope for pkg/peergroup
// itself.
func loopbackFactory(t peergroup.Transport, _ peergroup.RequestOptions) (peergroup.Peer, error) {
	p := &demoPeer{t: t, events: make(chan peergroup.PeerEvent, 16)}
	go p.pump()
	return p, nil
}

type demoPeer struct {
	t      peergroup.Transport
	events chan peergroup.PeerEvent
}

func (p *demoPeer) Addr() string { return "demo" }

func (p *demoPeer) Events() <-chan peergroup.PeerEvent { return p.events }

func (p *demoPeer) Send(command string, payload []byte) error {
	_, err := p.t.Write(payload)
	return err
}

func (p *demoPeer) Disconnect(err error) {
	_ = p.t.Close()
}

func (p *demoPeer) GetBlocks(context.Context, []peergroup.BlockHash, peergroup.RequestOptions) (any, error) {
	return nil, errors.New("demoPeer: wire codec not implemented")
}

func (p *demoPeer) GetTransactions(context.Context, peergroup.BlockHash, []peergroup.TxHash, peergroup.RequestOptions) (any, error) {
	return nil, errors.New("demoPeer: wire codec not implemented")
}

func (p *demoPeer) GetHeaders(context.Context, []peergroup.BlockHash, peergroup.RequestOptions) (any, error) {
	return nil, errors.New("demoPeer: wire codec not implemented")
}

// pump emits ready once, then surfaces raw reads as message events until
// the transport closes.
func (p *demoPeer) pump() {
	p.events <- peergroup.PeerEvent{Kind: peergroup.EventReady}

	buf := make([]byte, 4096)
	for {
		n, err := p.t.Read(buf)
		if n > 0 {
			msg := &peergroup.Message{Command: "raw", Payload: append([]byte(nil), buf[:n]...)}
			p.events <- peergroup.PeerEvent{Kind: peergroup.EventMessage, Message: msg}
		}
		if err != nil {
			p.events <- peergroup.PeerEvent{Kind: peergroup.EventDisconnect, Err: err}
			close(p.events)
			return
		}
	}
}
