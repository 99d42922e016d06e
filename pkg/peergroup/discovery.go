package peergroup

import (
	"context"
	"math/rand"
	"time"

	"github.com/represtati3/bitcoin-net/pkg/addrcache"
	"github.com/represtati3/bitcoin-net/pkg/metrics"
	"go.uber.org/zap"
)

// recentFailureWindow is how long a dial address stays deprioritized after
// MarkFailed, mirroring addrmgr.Addrmgr's "don't retry a bad address for a
// while" retry-suppression window.
const recentFailureWindow = 60 * time.Second

// discoverer implements components C1-C5: it owns everything needed to
// produce one candidate transport, shared unchanged between a regular
// Group and a Bridge (§4.12 reuses C1 verbatim for its outbound half).
type discoverer struct {
	params         Params
	connectTimeout time.Duration
	connectWeb     bool
	exchange       Exchange
	getNewPeer     func(ctx context.Context) (Transport, error)

	addrCache *addrcache.Cache
	log       *zap.Logger
}

func newDiscoverer(params Params, connectTimeout time.Duration, connectWeb bool, exchange Exchange, log *zap.Logger) *discoverer {
	return &discoverer{
		params:         params,
		connectTimeout: connectTimeout,
		connectWeb:     connectWeb,
		exchange:       exchange,
		getNewPeer:     params.GetNewPeer,
		addrCache:      addrcache.New(256),
		log:            log,
	}
}

// candidateFunc is one discovery method: it produces a single candidate
// transport or fails. Registry order is never observed because selection
// is uniform random (§4.1).
type candidateFunc func(ctx context.Context) (Transport, error)

// enabledCandidates rebuilds the eligible candidate-producer set for one
// attempt. Rebuilding per attempt (rather than once at construction) lets
// the exchange-backed producer's eligibility track dynamic web-peer state:
// it only becomes eligible once at least one web peer is connected.
func (d *discoverer) enabledCandidates() []candidateFunc {
	var cands []candidateFunc
	if len(d.params.DNSSeeds) > 0 {
		cands = append(cands, d.dnsSeedCandidate)
	}
	if len(d.params.StaticPeers) > 0 {
		cands = append(cands, d.staticPeerCandidate)
	}
	if d.connectWeb && d.exchange != nil && len(d.exchange.Peers()) > 0 {
		cands = append(cands, d.exchangeCandidate)
	}
	if d.getNewPeer != nil {
		cands = append(cands, d.getNewPeer)
	}
	return cands
}

// discover picks one enabled candidate-producer uniformly at random and
// invokes it. If none are enabled, it synthesizes a DiscoveryError instead
// of invoking anything (§4.1).
func (d *discoverer) discover(ctx context.Context) (Transport, error) {
	cands := d.enabledCandidates()
	if len(cands) == 0 {
		return nil, &DiscoveryError{Err: ErrNoDiscoveryMethod}
	}
	pick := cands[rand.Intn(len(cands))]
	t, err := pick(ctx)
	metrics.ObserveDiscovery(err)
	if err != nil {
		return nil, &DiscoveryError{Err: err}
	}
	return t, nil
}

func (d *discoverer) exchangeCandidate(ctx context.Context) (Transport, error) {
	return d.exchange.GetNewPeer(ctx)
}

// pickAddr chooses among candidate dial addresses, consulting addrCache to
// deprioritize ones that failed within recentFailureWindow (the read side
// of the cache dialTCP writes to). If every candidate has recently failed,
// it falls back to a uniform random pick among all of them so a
// temporarily-bad address list never stalls discovery entirely — this
// preserves spec.md §4.3/§4.4's "uniformly at random" selection whenever
// the cache has nothing to deprioritize.
func (d *discoverer) pickAddr(addrs []string) string {
	fresh := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if !d.addrCache.RecentlyFailed(a, recentFailureWindow) {
			fresh = append(fresh, a)
		}
	}
	if len(fresh) == 0 {
		return addrs[rand.Intn(len(addrs))]
	}
	return fresh[rand.Intn(len(fresh))]
}
