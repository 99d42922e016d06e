package peergroup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// instantGetNewPeer is a deterministic C1 candidate producer: it always
// succeeds immediately with a fresh fakeTransport, so tests control exactly
// when and which Peer gets admitted via testFactory, without depending on
// real network dialing.
func instantGetNewPeer(ctx context.Context) (Transport, error) {
	return &fakeTransport{}, nil
}

// testFactory hands back whatever fakePeer was pushed onto nextPeers, in
// order, so a test controls exactly which Peer a discovery result admits.
type testFactory struct {
	nextPeers chan *fakePeer
}

func newTestFactory() *testFactory {
	return &testFactory{nextPeers: make(chan *fakePeer, 16)}
}

func (f *testFactory) factory(t Transport, opts RequestOptions) (Peer, error) {
	return <-f.nextPeers, nil
}

func newTestGroup(t *testing.T, numPeers int) (*Group, *testFactory) {
	t.Helper()
	factory := newTestFactory()
	g, err := New(
		Params{GetNewPeer: instantGetNewPeer},
		Options{NumPeers: numPeers, Factory: factory.factory, ConnectTimeout: time.Second},
		nil,
	)
	require.NoError(t, err)
	t.Cleanup(func() { g.Close(nil) })
	return g, factory
}

func TestGroupAdmitsPeerOnReady(t *testing.T) {
	g, factory := newTestGroup(t, 1)

	fp := newFakePeer("peer-0")
	factory.nextPeers <- fp

	require.NoError(t, g.Connect())
	fp.events <- PeerEvent{Kind: EventReady}

	require.Eventually(t, func() bool { return g.PeerCount() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, PhaseConnecting, g.Phase())
}

func TestGroupReplenishesOnDisconnect(t *testing.T) {
	g, factory := newTestGroup(t, 1)

	fp1 := newFakePeer("peer-0")
	factory.nextPeers <- fp1
	require.NoError(t, g.Connect())
	fp1.events <- PeerEvent{Kind: EventReady}
	require.Eventually(t, func() bool { return g.PeerCount() == 1 }, time.Second, 10*time.Millisecond)

	fp2 := newFakePeer("peer-1")
	factory.nextPeers <- fp2
	fp1.events <- PeerEvent{Kind: EventDisconnect}
	fp2.events <- PeerEvent{Kind: EventReady}

	require.Eventually(t, func() bool {
		p, err := g.RandomPeer()
		return err == nil && p == fp2
	}, time.Second, 10*time.Millisecond)
}

func TestGroupRandomPeerErrorsWhenEmpty(t *testing.T) {
	g, _ := newTestGroup(t, 0)
	_, err := g.RandomPeer()
	assert.ErrorIs(t, err, ErrNoPeers)
}

func TestGroupCloseWaitsForPeerDrain(t *testing.T) {
	g, factory := newTestGroup(t, 1)

	fp := newFakePeer("peer-0")
	factory.nextPeers <- fp
	require.NoError(t, g.Connect())
	fp.events <- PeerEvent{Kind: EventReady}
	require.Eventually(t, func() bool { return g.PeerCount() == 1 }, time.Second, 10*time.Millisecond)

	done := make(chan struct{})
	g.Close(func() { close(done) })

	select {
	case <-done:
		t.Fatal("close completed before admitted peer drained")
	case <-time.After(50 * time.Millisecond):
	}

	fp.events <- PeerEvent{Kind: EventDisconnect, Err: nil}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("close never completed after peer drained")
	}
}

func TestGroupHardLimitEvictsOldest(t *testing.T) {
	factory := newTestFactory()
	g, err := New(
		Params{GetNewPeer: instantGetNewPeer},
		Options{NumPeers: 1, HardLimit: true, Factory: factory.factory, ConnectTimeout: time.Second},
		nil,
	)
	require.NoError(t, err)
	t.Cleanup(func() { g.Close(nil) })

	fp1 := newFakePeer("peer-0")
	factory.nextPeers <- fp1
	require.NoError(t, g.Connect())
	fp1.events <- PeerEvent{Kind: EventReady}
	require.Eventually(t, func() bool { return g.PeerCount() == 1 }, time.Second, 10*time.Millisecond)

	fp2 := newFakePeer("peer-1")
	factory.nextPeers <- fp2
	g.submit(func() { g.admitPeer(fp2) })

	require.Eventually(t, func() bool { return fp1.disconnectCount() > 0 }, time.Second, 10*time.Millisecond)
}
