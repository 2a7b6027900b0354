package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goran-ethernal/BuildersIndexer/internal/common"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	"github.com/goran-ethernal/BuildersIndexer/pkg/config"
	"github.com/jmoiron/sqlx"
)

// Maintenance serializes store writes against periodic SQLite housekeeping.
// Checkpoint commits and registry writes hold the operation lock so a VACUUM
// never lands between the rows of a block and its checkpoint.
type Maintenance interface {
	Start(ctx context.Context) error
	Stop() error
	// AcquireOperationLock takes a shared lock; the returned func releases it.
	AcquireOperationLock() func()
	// RunMaintenance runs one housekeeping cycle with exclusive access.
	RunMaintenance(ctx context.Context) error
	Stats() MaintenanceStats
}

// MaintenanceStats summarizes the housekeeping cycles run so far.
type MaintenanceStats struct {
	Runs           uint64
	LastRun        time.Time
	LastErr        error
	ReclaimedBytes int64
}

// NoOpMaintenance is used for PostgreSQL and when maintenance is not configured.
type NoOpMaintenance struct{}

func (*NoOpMaintenance) Start(context.Context) error          { return nil }
func (*NoOpMaintenance) Stop() error                          { return nil }
func (*NoOpMaintenance) RunMaintenance(context.Context) error { return nil }
func (*NoOpMaintenance) AcquireOperationLock() func()         { return func() {} }
func (*NoOpMaintenance) Stats() MaintenanceStats              { return MaintenanceStats{} }

// maintenancePass is one step of a housekeeping cycle.
type maintenancePass struct {
	name string
	run  func(ctx context.Context) error
	// fatal passes fail the cycle; the others only log.
	fatal bool
}

// MaintenanceCoordinator runs WAL checkpoints, VACUUM and ANALYZE against the
// SQLite store. Writers share a read lock; a cycle takes the write lock and
// therefore waits for in-flight commits.
type MaintenanceCoordinator struct {
	db     *sqlx.DB
	cfg    config.MaintenanceConfig
	dbPath string
	log    *logger.Logger

	gate sync.RWMutex

	cancel context.CancelFunc
	wg     sync.WaitGroup

	statsMu sync.Mutex
	stats   MaintenanceStats
}

// NewMaintenanceCoordinator returns the coordinator for the given store.
// PostgreSQL runs its own autovacuum, so it gets a no-op.
func NewMaintenanceCoordinator(
	dbPath string,
	db *sqlx.DB,
	cfg *config.MaintenanceConfig,
	log *logger.Logger,
) Maintenance {
	if cfg == nil || IsPostgres(db) {
		return &NoOpMaintenance{}
	}

	return newMaintenanceCoordinator(dbPath, db, *cfg, log)
}

func newMaintenanceCoordinator(
	dbPath string,
	db *sqlx.DB,
	cfg config.MaintenanceConfig,
	log *logger.Logger,
) *MaintenanceCoordinator {
	return &MaintenanceCoordinator{
		db:     db,
		cfg:    cfg,
		dbPath: dbPath,
		log:    log.WithComponent(common.ComponentMaintenance),
	}
}

// Start launches the periodic cycle. It is a no-op when maintenance is disabled.
func (m *MaintenanceCoordinator) Start(ctx context.Context) error {
	if !m.cfg.Enabled {
		m.log.Info("Background maintenance is disabled")
		return nil
	}

	ctx, m.cancel = context.WithCancel(ctx)

	if m.cfg.VacuumOnStartup {
		if err := m.RunMaintenance(ctx); err != nil {
			m.log.Warnf("Startup maintenance failed: %v", err)
		}
	}

	m.wg.Add(1)
	go m.loop(ctx)

	m.log.Infof("Background maintenance every %v (wal checkpoint %s)",
		m.cfg.CheckInterval.Duration, m.cfg.WALCheckpointMode)

	return nil
}

// Stop cancels the periodic cycle and waits for a running one to finish.
func (m *MaintenanceCoordinator) Stop() error {
	if m.cancel == nil {
		return nil
	}

	m.cancel()
	m.wg.Wait()
	m.log.Info("Background maintenance stopped")

	return nil
}

func (m *MaintenanceCoordinator) loop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.CheckInterval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.RunMaintenance(ctx); err != nil {
				m.log.Warnf("Periodic maintenance failed: %v", err)
			}
		}
	}
}

// AcquireOperationLock takes the shared side of the gate.
func (m *MaintenanceCoordinator) AcquireOperationLock() func() {
	m.gate.RLock()
	return m.gate.RUnlock
}

// RunMaintenance runs one cycle with every writer paused.
func (m *MaintenanceCoordinator) RunMaintenance(ctx context.Context) error {
	m.gate.Lock()
	defer m.gate.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	started := time.Now().UTC()
	sizeBefore, _ := DBTotalSize(m.dbPath)

	var errs []error
	for _, pass := range m.passes() {
		if err := pass.run(ctx); err != nil {
			if pass.fatal {
				errs = append(errs, fmt.Errorf("%s: %w", pass.name, err))
				continue
			}
			m.log.Warnf("Maintenance pass %s skipped: %v", pass.name, err)
		}
	}

	sizeAfter, err := DBTotalSize(m.dbPath)
	if err != nil {
		m.log.Debugf("Failed to stat database files: %v", err)
	}

	report := maintenanceReport{
		took:      time.Since(started),
		sizeAfter: sizeAfter,
		err:       errors.Join(errs...),
	}
	if sizeBefore > sizeAfter {
		report.reclaimed = sizeBefore - sizeAfter
	}
	observeMaintenance(report)

	m.statsMu.Lock()
	m.stats.Runs++
	m.stats.LastRun = time.Now().UTC()
	m.stats.LastErr = report.err
	m.stats.ReclaimedBytes += report.reclaimed
	m.statsMu.Unlock()

	if report.err != nil {
		m.log.Warnf("Maintenance finished with errors in %v: %v", report.took, report.err)
		return report.err
	}

	m.log.Infof("Maintenance finished in %v, reclaimed %d KB", report.took, report.reclaimed/1024) //nolint:mnd

	return nil
}

// Stats returns a copy of the cycle counters.
func (m *MaintenanceCoordinator) Stats() MaintenanceStats {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()

	return m.stats
}

func (m *MaintenanceCoordinator) passes() []maintenancePass {
	return []maintenancePass{
		{name: "wal_checkpoint", run: m.checkpointWAL, fatal: true},
		{name: "vacuum", run: m.vacuum, fatal: true},
		{name: "analyze", run: m.analyze},
	}
}

func (m *MaintenanceCoordinator) checkpointWAL(ctx context.Context) error {
	var journal string
	if err := m.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journal); err != nil {
		return fmt.Errorf("failed to read journal mode: %w", err)
	}
	if !strings.EqualFold(journal, "wal") {
		return nil
	}

	mode := strings.ToUpper(m.cfg.WALCheckpointMode)

	var busy, frames, moved int
	query := fmt.Sprintf("PRAGMA wal_checkpoint(%s)", mode)
	if err := m.db.QueryRowContext(ctx, query).Scan(&busy, &frames, &moved); err != nil {
		return err
	}
	observeWALCheckpoint(mode)

	if busy > 0 {
		m.log.Warnf("WAL checkpoint %s left %d busy pages (%d/%d frames moved)", mode, busy, moved, frames)
	} else {
		m.log.Debugf("WAL checkpoint %s moved %d/%d frames", mode, moved, frames)
	}

	return nil
}

func (m *MaintenanceCoordinator) vacuum(context.Context) error {
	if err := Vacuum(m.db); err != nil {
		if strings.Contains(err.Error(), "database is locked") {
			return errors.New("database is locked by another connection")
		}
		return err
	}
	observeVacuum()

	return nil
}

// analyze refreshes planner statistics for the filtered record queries.
func (m *MaintenanceCoordinator) analyze(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, "PRAGMA optimize")
	return err
}
