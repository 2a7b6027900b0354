package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/goran-ethernal/BuildersIndexer/internal/common"
	"github.com/goran-ethernal/BuildersIndexer/internal/db"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	pkgcheckpoint "github.com/goran-ethernal/BuildersIndexer/pkg/checkpoint"
	"github.com/jmoiron/sqlx"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/russross/meddler"
)

// Compile-time check to ensure Store implements pkgcheckpoint.Store interface.
var _ pkgcheckpoint.Store = (*Store)(nil)

// Checkpoint is a type alias for the public Checkpoint type.
type Checkpoint = pkgcheckpoint.Checkpoint

// BlockRef is a type alias for the public BlockRef type.
type BlockRef = pkgcheckpoint.BlockRef

// Store keeps one checkpoint row per chain. Writes of a chain are serialized by a
// per-chain mutex and always happen in a single transaction together with the
// caller's materialization work, so a crash never leaves a checkpoint ahead of data.
type Store struct {
	db          *sqlx.DB
	log         *logger.Logger
	maintenance db.Maintenance
	now         func() time.Time

	writers *xsync.Map[uint64, *sync.Mutex]
}

// NewStore creates a checkpoint store over an already migrated database.
func NewStore(database *sqlx.DB, log *logger.Logger, maintenance db.Maintenance) *Store {
	if maintenance == nil {
		maintenance = &db.NoOpMaintenance{}
	}

	return &Store{
		db:          database,
		log:         log.WithComponent(common.ComponentCheckpoint),
		maintenance: maintenance,
		now:         time.Now,
		writers:     xsync.NewMap[uint64, *sync.Mutex](),
	}
}

// Load returns the checkpoint of chainID, or nil when the chain never committed.
func (s *Store) Load(ctx context.Context, chainID uint64) (*Checkpoint, error) {
	return s.load(ctx, s.db, chainID, false)
}

type queryer interface {
	meddler.DB
	Rebind(query string) string
}

func (s *Store) load(ctx context.Context, q queryer, chainID uint64, forUpdate bool) (*Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := `SELECT chain_id, block_number, block_hash, committed_at FROM checkpoints WHERE chain_id = ?`
	if forUpdate && db.IsPostgres(s.db) {
		query += ` FOR UPDATE`
	}

	var cp Checkpoint
	err := meddler.QueryRow(q, &cp, q.Rebind(query), chainID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint of chain %d: %w", chainID, err)
	}

	return &cp, nil
}

// Commit runs apply and advances the checkpoint of chainID to tip in one transaction.
// A tip at or below the stored checkpoint is rejected with ErrCheckpointRegression.
func (s *Store) Commit(
	ctx context.Context,
	chainID uint64,
	tip BlockRef,
	blocks []BlockRef,
	apply pkgcheckpoint.TxFunc,
) error {
	unlockChain := s.lockChain(chainID)
	defer unlockChain()

	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin commit: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	current, err := s.load(ctx, tx, chainID, true)
	if err != nil {
		return err
	}
	if current != nil && tip.Number <= current.BlockNumber {
		return fmt.Errorf("%w: chain %d at %d, commit to %d",
			pkgcheckpoint.ErrCheckpointRegression, chainID, current.BlockNumber, tip.Number)
	}

	if apply != nil {
		if err := apply(tx); err != nil {
			return err
		}
	}

	if err := s.rememberBlocks(tx, chainID, append(slices.Clone(blocks), tip)); err != nil {
		return err
	}

	if err := s.writeCheckpoint(tx, chainID, tip); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkpoint of chain %d: %w", chainID, err)
	}

	checkpointBlockLog(chainID, tip.Number)
	s.log.Debugf("chain %d: checkpoint committed at block %d (%s)", chainID, tip.Number, tip.Hash.Hex())

	return nil
}

// Rollback runs undo, forgets block hashes above ancestor and rewrites the
// checkpoint of chainID to ancestor, all in one transaction.
func (s *Store) Rollback(ctx context.Context, chainID uint64, ancestor BlockRef, undo pkgcheckpoint.TxFunc) error {
	unlockChain := s.lockChain(chainID)
	defer unlockChain()

	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rollback: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	current, err := s.load(ctx, tx, chainID, true)
	if err != nil {
		return err
	}
	if current != nil && ancestor.Number > current.BlockNumber {
		return fmt.Errorf("cannot roll chain %d forward from %d to %d", chainID, current.BlockNumber, ancestor.Number)
	}

	if undo != nil {
		if err := undo(tx); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(tx.Rebind(`DELETE FROM block_hashes WHERE chain_id = ? AND block_number > ?`),
		chainID, ancestor.Number); err != nil {
		return fmt.Errorf("failed to forget block hashes of chain %d: %w", chainID, err)
	}

	if err := s.writeCheckpoint(tx, chainID, ancestor); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rollback of chain %d: %w", chainID, err)
	}

	rollbackInc(chainID)
	checkpointBlockLog(chainID, ancestor.Number)

	from := uint64(0)
	if current != nil {
		from = current.BlockNumber
	}
	s.log.Warnf("chain %d: checkpoint rolled back from %d to %d (%s)", chainID, from, ancestor.Number, ancestor.Hash.Hex())

	return nil
}

// RecentBlocks returns remembered blocks at or below from, highest first.
func (s *Store) RecentBlocks(ctx context.Context, chainID, from uint64, limit int) ([]BlockRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var refs []*BlockRef

	err := meddler.QueryAll(s.db, &refs, s.db.Rebind(`
		SELECT block_number, block_hash, parent_hash FROM block_hashes
		WHERE chain_id = ? AND block_number <= ?
		ORDER BY block_number DESC
		LIMIT ?`), chainID, from, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read recent blocks of chain %d: %w", chainID, err)
	}

	out := make([]BlockRef, 0, len(refs))
	for _, r := range refs {
		out = append(out, *r)
	}

	return out, nil
}

// PruneBelow forgets block hashes of chainID below block.
func (s *Store) PruneBelow(ctx context.Context, chainID, block uint64) error {
	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM block_hashes WHERE chain_id = ? AND block_number < ?`),
		chainID, block)
	if err != nil {
		return fmt.Errorf("failed to prune block hashes of chain %d: %w", chainID, err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		s.log.Debugf("chain %d: pruned %d block hashes below %d", chainID, n, block)
	}

	return nil
}

// Count returns the number of chains holding a checkpoint.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM checkpoints`); err != nil {
		return 0, fmt.Errorf("failed to count checkpoints: %w", err)
	}

	return n, nil
}

func (s *Store) rememberBlocks(tx *sqlx.Tx, chainID uint64, blocks []BlockRef) error {
	query := tx.Rebind(`
		INSERT INTO block_hashes (chain_id, block_number, block_hash, parent_hash)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (chain_id, block_number) DO UPDATE SET
			block_hash = excluded.block_hash,
			parent_hash = excluded.parent_hash`)

	for _, b := range blocks {
		if _, err := tx.Exec(query, chainID, b.Number, b.Hash.Hex(), b.ParentHash.Hex()); err != nil {
			return fmt.Errorf("failed to remember block %d of chain %d: %w", b.Number, chainID, err)
		}
	}

	return nil
}

func (s *Store) writeCheckpoint(tx *sqlx.Tx, chainID uint64, ref BlockRef) error {
	_, err := tx.Exec(tx.Rebind(`
		INSERT INTO checkpoints (chain_id, block_number, block_hash, committed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (chain_id) DO UPDATE SET
			block_number = excluded.block_number,
			block_hash = excluded.block_hash,
			committed_at = excluded.committed_at`),
		chainID, ref.Number, ref.Hash.Hex(), s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to write checkpoint of chain %d: %w", chainID, err)
	}

	return nil
}

func (s *Store) lockChain(chainID uint64) func() {
	mu, _ := s.writers.LoadOrCompute(chainID, func() (*sync.Mutex, bool) {
		return &sync.Mutex{}, false
	})
	mu.Lock()

	return mu.Unlock
}

func chainLabel(chainID uint64) string {
	return strconv.FormatUint(chainID, 10)
}
