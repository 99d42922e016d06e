package peergroup

import (
	"sync"
	"time"
)

// txPoolDecayInterval is the fixed aging tick of §4.10: an entry lives
// between one and two ticks, i.e. 20-40 seconds.
const txPoolDecayInterval = 20 * time.Second

// txPool deduplicates transaction observations across peers (component
// C10). It is internal to this package: Group exposes no accessor for it,
// so code outside the package can neither inspect nor mutate it, preserving
// the sequence/index invariant of spec.md §3.
type txPool struct {
	mu         sync.Mutex
	seq        []Tx
	index      map[TxHash]struct{}
	prevLength int

	started bool
	stopCh  chan struct{}
}

func newTxPool() *txPool {
	return &txPool{index: make(map[TxHash]struct{})}
}

// insert adds tx if its hash hasn't been seen yet, returning true if it was
// newly added.
func (p *txPool) insert(tx Tx) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.index[tx.Hash]; ok {
		return false
	}
	p.index[tx.Hash] = struct{}{}
	p.seq = append(p.seq, tx)
	return true
}

// has reports whether hash is currently pooled.
func (p *txPool) has(hash TxHash) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.index[hash]
	return ok
}

// len returns the number of pooled transactions.
func (p *txPool) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seq)
}

// decay expires the entries that existed at the previous tick: the prefix
// of length prevLength. Net effect is the 20-40s retention window of
// §4.10 — two-tick windowing avoids storing a timestamp per entry.
func (p *txPool) decay() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, tx := range p.seq[:p.prevLength] {
		delete(p.index, tx.Hash)
	}
	remaining := len(p.seq) - p.prevLength
	next := make([]Tx, remaining)
	copy(next, p.seq[p.prevLength:])
	p.seq = next
	p.prevLength = len(p.seq)
}

// start begins the periodic aging tick. Only the first call (per pool) has
// any effect, matching §4.6's "start the tx-pool aging timer on first
// admission".
func (p *txPool) start() {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	go func() {
		ticker := time.NewTicker(txPoolDecayInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.decay()
			case <-stopCh:
				return
			}
		}
	}()
}

// stop halts the aging tick, called once on group Close.
func (p *txPool) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.started = false
	close(p.stopCh)
}
