// Package metrics exposes Prometheus collectors for a running peer group:
// pool size, discovery outcomes, and request retries. pkg/peergroup calls
// these package-level functions directly at the points where it already
// observes the underlying event, the same direct-call pattern neo-go's
// cli/server package uses for its own version gauge.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	peerCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "peergroup",
		Name:      "peer_count",
		Help:      "Number of currently admitted peers.",
	})

	discoveryAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "peergroup",
		Name:      "discovery_attempts_total",
		Help:      "Discovery attempts issued, across all candidate methods.",
	})

	discoveryErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "peergroup",
		Name:      "discovery_errors_total",
		Help:      "Discovery attempts that failed.",
	})

	requestRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "peergroup",
		Name:      "request_retries_total",
		Help:      "Request dispatches retried against a different peer after a timeout.",
	}, []string{"method"})

	bridgePairs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "peergroup",
		Name:      "bridge_pairs",
		Help:      "Number of currently spliced bridge pairs.",
	})
)

func init() {
	prometheus.MustRegister(peerCount, discoveryAttempts, discoveryErrors, requestRetries, bridgePairs)
}

// SetPeerCount records the current admitted-peer count.
func SetPeerCount(n int) { peerCount.Set(float64(n)) }

// ObserveDiscovery records one discovery attempt and, if err is non-nil,
// one discovery error.
func ObserveDiscovery(err error) {
	discoveryAttempts.Inc()
	if err != nil {
		discoveryErrors.Inc()
	}
}

// ObserveRetry records one request retry for method.
func ObserveRetry(method string) {
	requestRetries.WithLabelValues(method).Inc()
}

// SetBridgePairs records the current spliced-pair count.
func SetBridgePairs(n int) { bridgePairs.Set(float64(n)) }
