package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BalanceFetches counts per-wallet balance fetches by result ("ok" or "error").
	BalanceFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallet_core",
		Name:      "balance_fetches_total",
		Help:      "Per-wallet balance fetches by result.",
	}, []string{"result"})

	// Dispatches counts transaction dispatches by signing path and error kind ("" on success).
	Dispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallet_core",
		Name:      "dispatches_total",
		Help:      "Transaction dispatches by signing path and outcome.",
	}, []string{"path", "outcome"})

	// BackendRequestDuration observes backend REST call latency.
	BackendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wallet_core",
		Name:      "backend_request_duration_seconds",
		Help:      "Backend REST request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// ChainClientInits counts chain client constructions by network and result.
	ChainClientInits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallet_core",
		Name:      "chain_client_inits_total",
		Help:      "Chain client construction attempts.",
	}, []string{"network", "result"})
)
