package peergroup

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeConnectIsForbidden(t *testing.T) {
	b, err := NewBridge(Params{}, Options{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close(nil) })

	assert.ErrorIs(t, b.Connect(), ErrBridgeConnect)
}

func TestBridgeSplicesBothDirections(t *testing.T) {
	outboundEnd, outboundPeerEnd := net.Pipe()

	params := Params{
		GetNewPeer: func(ctx context.Context) (Transport, error) {
			return outboundEnd, nil
		},
	}
	exchange := newFakeExchange()
	b, err := NewBridge(params, Options{Exchange: exchange, ConnectTimeout: time.Second}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close(nil) })

	bridged, cancel := b.Subscribe(TopicBridge)
	defer cancel()

	require.NoError(t, b.Accept(context.Background(), 9999, nil))

	clientEnd, clientPeerEnd := net.Pipe()
	exchange.events <- ExchangeEvent{Transport: clientEnd, Incoming: true}

	select {
	case ev := <-bridged:
		assert.Equal(t, clientEnd, ev.Client)
		assert.Equal(t, outboundEnd, ev.BridgeTransport)
	case <-time.After(time.Second):
		t.Fatal("bridge event never fired")
	}

	go clientPeerEnd.Write([]byte("hello"))
	buf := make([]byte, 5)
	_, err = outboundPeerEnd.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))

	go outboundPeerEnd.Write([]byte("world"))
	_, err = clientPeerEnd.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "world", string(buf))
}

func TestBridgeDestroyIsLinked(t *testing.T) {
	outboundEnd, outboundPeerEnd := net.Pipe()

	params := Params{
		GetNewPeer: func(ctx context.Context) (Transport, error) {
			return outboundEnd, nil
		},
	}
	exchange := newFakeExchange()
	b, err := NewBridge(params, Options{Exchange: exchange, ConnectTimeout: time.Second}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close(nil) })

	bridged, cancel := b.Subscribe(TopicBridge)
	defer cancel()
	require.NoError(t, b.Accept(context.Background(), 9998, nil))

	clientEnd, clientPeerEnd := net.Pipe()
	exchange.events <- ExchangeEvent{Transport: clientEnd, Incoming: true}

	select {
	case <-bridged:
	case <-time.After(time.Second):
		t.Fatal("bridge event never fired")
	}

	require.NoError(t, clientPeerEnd.Close())

	// Closing one end of the pair must propagate and close the other: the
	// outbound peer end should now observe EOF/closed-pipe on read.
	buf := make([]byte, 1)
	require.Eventually(t, func() bool {
		outboundPeerEnd.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
		_, err := outboundPeerEnd.Read(buf)
		return err != nil
	}, time.Second, 10*time.Millisecond)
}
