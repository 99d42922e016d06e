package peergroup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func admitViaTestHook(t *testing.T, g *Group, p Peer) {
	t.Helper()
	done := make(chan struct{})
	g.submit(func() {
		g.admitPeer(p)
		close(done)
	})
	<-done
}

func TestDispatchReturnsResultFromAdmittedPeer(t *testing.T) {
	g, _ := newTestGroup(t, 0)
	fp := newFakePeer("peer-0")
	fp.reqResult = "blocks"
	admitViaTestHook(t, g, fp)

	res, p, err := g.GetBlocks(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, fp, p)
	assert.Equal(t, "blocks", res)
}

func TestDispatchRetriesOnTimeoutAgainstAnotherPeer(t *testing.T) {
	g, _ := newTestGroup(t, 0)

	timedOut := newFakePeer("peer-timeout")
	timedOut.reqErr = &fakeTimeoutError{msg: "deadline exceeded"}
	admitViaTestHook(t, g, timedOut)

	good := newFakePeer("peer-good")
	good.reqResult = "headers"
	admitViaTestHook(t, g, good)

	// RandomPeer picks uniformly between the two, so dispatch may hit the
	// timed-out peer first; the retry then skips that peer, so the call
	// succeeds against the peer that doesn't time out.
	res, p, err := g.GetHeaders(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, good, p)
	assert.Equal(t, "headers", res)
}

func TestDispatchFailsFastOnClosedGroup(t *testing.T) {
	g, _ := newTestGroup(t, 0)
	fp := newFakePeer("peer-0")
	admitViaTestHook(t, g, fp)

	g.Close(nil)

	_, _, err := g.GetBlocks(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrGroupClosed)
}

func TestSendRequiresAtLeastOnePeerWhenAsserted(t *testing.T) {
	g, _ := newTestGroup(t, 0)
	err := g.Send("ping", nil, true)
	assert.ErrorIs(t, err, ErrNoPeers)
}

func TestSendBroadcastsToAllPeers(t *testing.T) {
	g, _ := newTestGroup(t, 0)
	a := newFakePeer("a")
	b := newFakePeer("b")
	admitViaTestHook(t, g, a)
	admitViaTestHook(t, g, b)

	require.NoError(t, g.Send("ping", []byte("x"), true))

	require.Eventually(t, func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(a.sent) == 1 && len(b.sent) == 1
	}, time.Second, 10*time.Millisecond)
}
