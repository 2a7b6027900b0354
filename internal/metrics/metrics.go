package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "buildersindexer"

var (
	lastIndexedBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_indexed_block",
		Help:      "Checkpoint of the chain: the highest block fully indexed.",
	}, []string{"chain_id"})

	scanTarget = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scan_target_block",
		Help:      "Highest block the scanner may index under its finality rule.",
	}, []string{"chain_id"})

	blocksScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "blocks_scanned_total",
		Help:      "Blocks covered by committed ranges.",
	}, []string{"chain_id"})

	eventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_applied_total",
		Help:      "Decoded events written to handler tables.",
	}, []string{"chain_id"})

	eventsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_skipped_total",
		Help:      "Logs the materializer could not decode.",
	}, []string{"chain_id", "reason"})

	rangeSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "range_commit_seconds",
		Help:      "Time to fetch, check and commit one block range.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"chain_id"})

	batchSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scanner_batch_blocks",
		Help:      "Current adaptive batch size.",
	}, []string{"chain_id"})

	scannerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scanner_state",
		Help:      "1 for the state the chain's scanner is in, 0 otherwise.",
	}, []string{"chain_id", "state"})

	reorgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reorgs_total",
		Help:      "Rollbacks to a common ancestor.",
	}, []string{"chain_id"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Errors by component and severity.",
	}, []string{"component", "severity"})

	startedAt = time.Now()

	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Seconds since the process started.",
	}, func() float64 { return time.Since(startedAt).Seconds() })
)

func chainLabel(chainID uint64) string {
	return strconv.FormatUint(chainID, 10)
}

func BlockProcessingTimeLog(chainID uint64, d time.Duration) {
	rangeSeconds.WithLabelValues(chainLabel(chainID)).Observe(d.Seconds())
}

func LastIndexedBlockSet(chainID, block uint64) {
	lastIndexedBlock.WithLabelValues(chainLabel(chainID)).Set(float64(block))
}

func ChainHeadSet(chainID, block uint64) {
	scanTarget.WithLabelValues(chainLabel(chainID)).Set(float64(block))
}

func BlocksProcessedInc(chainID, count uint64) {
	blocksScanned.WithLabelValues(chainLabel(chainID)).Add(float64(count))
}

func LogsIndexedInc(chainID uint64, count int) {
	eventsApplied.WithLabelValues(chainLabel(chainID)).Add(float64(count))
}

func LogsSkippedInc(chainID uint64, reason string) {
	eventsSkipped.WithLabelValues(chainLabel(chainID), reason).Inc()
}

func BatchSizeSet(chainID, size uint64) {
	batchSize.WithLabelValues(chainLabel(chainID)).Set(float64(size))
}

// RollbackInc counts a rollback to a common ancestor. Depth is recorded by
// the reorg detector.
func RollbackInc(chainID uint64) {
	reorgs.WithLabelValues(chainLabel(chainID)).Inc()
}

// ScannerStateSet marks state as the only active state of the chain's scanner.
func ScannerStateSet(chainID uint64, state string, all []string) {
	label := chainLabel(chainID)
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		scannerState.WithLabelValues(label, s).Set(v)
	}
}

func ErrorsInc(component, severity string) {
	errorsTotal.WithLabelValues(component, severity).Inc()
}
