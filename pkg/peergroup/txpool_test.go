package peergroup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxPoolInsertDedups(t *testing.T) {
	p := newTxPool()

	require.True(t, p.insert(Tx{Hash: "a"}))
	require.False(t, p.insert(Tx{Hash: "a"}))
	require.True(t, p.insert(Tx{Hash: "b"}))

	assert.Equal(t, 2, p.len())
	assert.True(t, p.has("a"))
	assert.True(t, p.has("b"))
	assert.False(t, p.has("c"))
}

func TestTxPoolDecayTwoTickWindow(t *testing.T) {
	p := newTxPool()
	p.insert(Tx{Hash: "a"})

	// First tick: "a" survives (it was inserted before this tick), and
	// becomes the expiry target of the *next* tick.
	p.decay()
	assert.True(t, p.has("a"))
	assert.Equal(t, 1, p.len())

	p.insert(Tx{Hash: "b"})

	// Second tick: "a" expires (it was present for the whole prior
	// interval), "b" survives into the following one.
	p.decay()
	assert.False(t, p.has("a"))
	assert.True(t, p.has("b"))
	assert.Equal(t, 1, p.len())

	p.decay()
	assert.False(t, p.has("b"))
	assert.Equal(t, 0, p.len())
}

func TestTxPoolStartStopIdempotent(t *testing.T) {
	p := newTxPool()
	p.start()
	p.start() // second call must be a no-op
	p.stop()
	p.stop() // same for stop
}
