package checkpoint

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jmoiron/sqlx"
)

// ErrCheckpointRegression is returned when a commit would move a checkpoint backwards.
// Only Rollback may do that.
var ErrCheckpointRegression = errors.New("checkpoint regression")

// Checkpoint is the last fully applied block of a chain.
// Uses meddler tags for automatic struct-to-db mapping.
type Checkpoint struct {
	ChainID     uint64      `meddler:"chain_id,pk" json:"chain_id"`
	BlockNumber uint64      `meddler:"block_number" json:"block_number"`
	BlockHash   common.Hash `meddler:"block_hash,hash" json:"block_hash"`
	CommittedAt int64       `meddler:"committed_at" json:"committed_at"`
}

// BlockRef identifies a canonical block as seen when its range was applied.
type BlockRef struct {
	Number     uint64      `meddler:"block_number" json:"number"`
	Hash       common.Hash `meddler:"block_hash,hash" json:"hash"`
	ParentHash common.Hash `meddler:"parent_hash,hash" json:"parent_hash"`
}

// TxFunc runs inside the transaction that moves a checkpoint.
type TxFunc func(tx *sqlx.Tx) error

// Store persists one checkpoint per chain together with recent block hashes.
type Store interface {
	// Load returns the checkpoint of chainID, or nil when the chain has never committed.
	Load(ctx context.Context, chainID uint64) (*Checkpoint, error)

	// Commit runs apply and advances the checkpoint to tip in one transaction.
	// blocks are remembered for reorg detection; tip is always remembered.
	Commit(ctx context.Context, chainID uint64, tip BlockRef, blocks []BlockRef, apply TxFunc) error

	// Rollback runs undo, forgets block hashes above ancestor and rewrites the
	// checkpoint to ancestor in one transaction.
	Rollback(ctx context.Context, chainID uint64, ancestor BlockRef, undo TxFunc) error

	// RecentBlocks returns remembered blocks at or below from, highest first.
	RecentBlocks(ctx context.Context, chainID, from uint64, limit int) ([]BlockRef, error)

	// PruneBelow forgets block hashes below block.
	PruneBelow(ctx context.Context, chainID, block uint64) error

	// Count returns the number of chains holding a checkpoint.
	Count(ctx context.Context) (int, error)
}
