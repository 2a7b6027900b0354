package db

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const storeNamespace = "buildersindexer_store"

var (
	maintenanceCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: storeNamespace,
		Name:      "maintenance_cycles_total",
		Help:      "Housekeeping cycles by outcome.",
	}, []string{"outcome"})

	maintenanceSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: storeNamespace,
		Name:      "maintenance_cycle_seconds",
		Help:      "Time spent in a housekeeping cycle with writers paused.",
		Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 60},
	})

	maintenanceLastCycle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: storeNamespace,
		Name:      "maintenance_last_cycle_timestamp_seconds",
		Help:      "Unix time of the last housekeeping cycle.",
	})

	maintenanceReclaimed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: storeNamespace,
		Name:      "reclaimed_bytes_total",
		Help:      "Bytes released by VACUUM and WAL truncation.",
	})

	storePasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: storeNamespace,
		Name:      "maintenance_passes_total",
		Help:      "Completed housekeeping passes by kind.",
	}, []string{"pass"})

	storeSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: storeNamespace,
		Name:      "sqlite_size_bytes",
		Help:      "Size of the SQLite file including WAL and shared-memory companions.",
	})
)

type maintenanceReport struct {
	took      time.Duration
	sizeAfter int64
	reclaimed int64
	err       error
}

func observeMaintenance(r maintenanceReport) {
	outcome := "ok"
	if r.err != nil {
		outcome = "error"
	}

	maintenanceCycles.WithLabelValues(outcome).Inc()
	maintenanceSeconds.Observe(r.took.Seconds())
	maintenanceLastCycle.SetToCurrentTime()
	maintenanceReclaimed.Add(float64(r.reclaimed))
	if r.sizeAfter > 0 {
		storeSize.Set(float64(r.sizeAfter))
	}
}

func observeWALCheckpoint(mode string) {
	storePasses.WithLabelValues("wal_checkpoint_" + mode).Inc()
}

func observeVacuum() {
	storePasses.WithLabelValues("vacuum").Inc()
}
