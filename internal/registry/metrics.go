package registry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var watchedContracts = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "buildersindexer_registry_watched_contracts",
		Help: "Number of watched contracts per chain",
	},
	[]string{"chain_id"},
)

func watchesLog(chainID uint64, n int) {
	watchedContracts.WithLabelValues(strconv.FormatUint(chainID, 10)).Set(float64(n))
}
