package rpc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rpcRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildersindexer_rpc_requests_total",
			Help: "Total number of RPC requests by method",
		},
		[]string{"method"},
	)

	rpcDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "buildersindexer_rpc_request_duration_seconds",
			Help:    "Duration of RPC requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	transportAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildersindexer_transport_attempts_total",
			Help: "Total number of transport attempts by endpoint and outcome",
		},
		[]string{"chain_id", "endpoint", "outcome"},
	)

	transportExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildersindexer_transport_exhausted_total",
			Help: "Total number of calls that failed on every endpoint within the switch bound",
		},
		[]string{"chain_id"},
	)

	endpointHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "buildersindexer_endpoint_healthy",
			Help: "Endpoint health (1 = healthy, 0 = in backoff)",
		},
		[]string{"chain_id", "endpoint"},
	)

	rateLimitWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "buildersindexer_endpoint_rate_limit_wait_seconds",
			Help:    "Time spent waiting on the endpoint token bucket",
			Buckets: []float64{0, .01, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"chain_id", "endpoint"},
	)
)

func observe(method string, start time.Time) {
	rpcRequests.WithLabelValues(method).Inc()
	rpcDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

func attemptLog(chainID, endpoint, outcome string) {
	transportAttempts.WithLabelValues(chainID, endpoint, outcome).Inc()
}

func exhaustedInc(chainID string) {
	transportExhausted.WithLabelValues(chainID).Inc()
}

func endpointHealthLog(chainID, endpoint string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	endpointHealthy.WithLabelValues(chainID, endpoint).Set(v)
}

func rateLimitWaitLog(chainID, endpoint string, d time.Duration) {
	rateLimitWait.WithLabelValues(chainID, endpoint).Observe(d.Seconds())
}
