package reorg

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reorgsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildersindexer_reorgs_detected_total",
			Help: "Total number of blockchain reorganizations detected",
		},
		[]string{"chain_id"},
	)

	reorgDepth = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "buildersindexer_reorg_depth_blocks",
			Help:    "Distance between the checkpoint and the common ancestor",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 256},
		},
		[]string{"chain_id"},
	)

	reorgLastDetected = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "buildersindexer_reorg_last_detected_timestamp",
			Help: "Unix timestamp of last reorg detection",
		},
		[]string{"chain_id"},
	)
)

func reorgDetectedLog(chainID uint64) {
	label := strconv.FormatUint(chainID, 10)
	reorgsDetected.WithLabelValues(label).Inc()
	reorgLastDetected.WithLabelValues(label).Set(float64(time.Now().UTC().Unix()))
}

func reorgDepthLog(chainID, depth uint64) {
	reorgDepth.WithLabelValues(strconv.FormatUint(chainID, 10)).Observe(float64(depth))
}
