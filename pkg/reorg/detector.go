package reorg

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/BuildersIndexer/pkg/checkpoint"
)

// Validated is the outcome of a clean range: the block to commit and the blocks worth remembering.
type Validated struct {
	Tip    checkpoint.BlockRef
	Blocks []checkpoint.BlockRef
}

// Detector checks fetched ranges against the canonical chain and finds the common
// ancestor after a reorg.
type Detector interface {
	// Validate checks that [from, to] extends cp and that every log belongs to the canonical chain.
	Validate(ctx context.Context, cp *checkpoint.Checkpoint, from, to uint64, logs []types.Log) (Validated, error)

	// FindAncestor walks remembered blocks down from cp and returns the highest one that is
	// still canonical. floor is the block below which nothing was ever indexed.
	FindAncestor(ctx context.Context, cp checkpoint.Checkpoint, floor uint64) (checkpoint.BlockRef, error)
}
