package checkpoint

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkpointBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "buildersindexer_checkpoint_block",
			Help: "Last committed block per chain",
		},
		[]string{"chain_id"},
	)

	rollbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildersindexer_checkpoint_rollbacks_total",
			Help: "Total number of checkpoint rollbacks caused by reorgs",
		},
		[]string{"chain_id"},
	)
)

func checkpointBlockLog(chainID, block uint64) {
	checkpointBlock.WithLabelValues(chainLabel(chainID)).Set(float64(block))
}

func rollbackInc(chainID uint64) {
	rollbacks.WithLabelValues(chainLabel(chainID)).Inc()
}
