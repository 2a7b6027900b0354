package reorg

import (
	"context"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/BuildersIndexer/internal/common"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	pkgcheckpoint "github.com/goran-ethernal/BuildersIndexer/pkg/checkpoint"
	pkgreorg "github.com/goran-ethernal/BuildersIndexer/pkg/reorg"
	"github.com/goran-ethernal/BuildersIndexer/pkg/rpc"
)

var _ pkgreorg.Detector = (*Detector)(nil)

// ancestorPage is how many remembered blocks are compared per header batch during walk-back.
const ancestorPage = 64

// Detector validates ranges against canonical headers and searches for the common
// ancestor of a reorged chain among the block hashes remembered by the checkpoint store.
type Detector struct {
	chainID  uint64
	rpc      rpc.EthClient
	store    pkgcheckpoint.Store
	maxDepth uint64
	log      *logger.Logger
}

// NewDetector creates a detector for one chain.
func NewDetector(
	chainID uint64,
	rpcClient rpc.EthClient,
	store pkgcheckpoint.Store,
	maxDepth uint64,
	log *logger.Logger,
) *Detector {
	return &Detector{
		chainID:  chainID,
		rpc:      rpcClient,
		store:    store,
		maxDepth: maxDepth,
		log:      log.WithComponent(common.ComponentReorg),
	}
}

// Validate checks that the first block of [from, to] builds on cp and that every log's
// block hash equals the canonical hash at its height. It returns the tip to commit and
// the blocks holding logs, which are remembered for later walk-backs.
func (d *Detector) Validate(
	ctx context.Context,
	cp *pkgcheckpoint.Checkpoint,
	from, to uint64,
	logs []types.Log,
) (pkgreorg.Validated, error) {
	nums := []uint64{from, to}
	for _, l := range logs {
		nums = append(nums, l.BlockNumber)
	}
	slices.Sort(nums)
	nums = slices.Compact(nums)

	headers, err := d.rpc.BatchGetBlockHeaders(ctx, nums)
	if err != nil {
		return pkgreorg.Validated{}, fmt.Errorf("failed to fetch headers for %d-%d: %w", from, to, err)
	}

	byNumber := make(map[uint64]*types.Header, len(headers))
	for _, h := range headers {
		if h == nil {
			return pkgreorg.Validated{}, fmt.Errorf("missing header in range %d-%d", from, to)
		}
		byNumber[h.Number.Uint64()] = h
	}

	first, ok := byNumber[from]
	if !ok {
		return pkgreorg.Validated{}, fmt.Errorf("missing header %d", from)
	}

	if cp != nil && cp.BlockNumber+1 == from && first.ParentHash != cp.BlockHash {
		d.log.Warnf("chain %d: block %d does not extend checkpoint %d: parent=%s checkpoint=%s",
			d.chainID, from, cp.BlockNumber, first.ParentHash.Hex(), cp.BlockHash.Hex())
		reorgDetectedLog(d.chainID)
		return pkgreorg.Validated{}, &ReorgDetectedError{
			ChainID:    d.chainID,
			Checkpoint: cp.BlockNumber,
			Stored:     cp.BlockHash,
			ParentHash: first.ParentHash,
		}
	}

	blocks := make([]pkgcheckpoint.BlockRef, 0, len(headers))
	seen := make(map[uint64]struct{}, len(headers))

	for _, l := range logs {
		h, ok := byNumber[l.BlockNumber]
		if !ok {
			return pkgreorg.Validated{}, fmt.Errorf("missing header %d", l.BlockNumber)
		}
		if h.Hash() != l.BlockHash {
			d.log.Warnf("chain %d: log %s/%d points at block %d hash %s, canonical is %s",
				d.chainID, l.TxHash.Hex(), l.Index, l.BlockNumber, l.BlockHash.Hex(), h.Hash().Hex())
			return pkgreorg.Validated{}, fmt.Errorf("%w: block %d", ErrRangeInconsistent, l.BlockNumber)
		}
		if _, dup := seen[l.BlockNumber]; !dup {
			seen[l.BlockNumber] = struct{}{}
			blocks = append(blocks, refOf(h))
		}
	}

	tip, ok := byNumber[to]
	if !ok {
		return pkgreorg.Validated{}, fmt.Errorf("missing header %d", to)
	}

	return pkgreorg.Validated{Tip: refOf(tip), Blocks: blocks}, nil
}

// FindAncestor walks remembered blocks downwards from cp and returns the first one whose
// hash is still canonical. When history runs out above floor, floor itself becomes the
// ancestor. Searching deeper than the configured depth fails with ErrReorgExceedsSearchDepth.
func (d *Detector) FindAncestor(
	ctx context.Context,
	cp pkgcheckpoint.Checkpoint,
	floor uint64,
) (pkgcheckpoint.BlockRef, error) {
	from := cp.BlockNumber

	for {
		stored, err := d.store.RecentBlocks(ctx, d.chainID, from, ancestorPage)
		if err != nil {
			return pkgcheckpoint.BlockRef{}, err
		}

		var candidates []pkgcheckpoint.BlockRef
		for _, b := range stored {
			if b.Number <= floor {
				break
			}
			if cp.BlockNumber-b.Number > d.maxDepth {
				break
			}
			candidates = append(candidates, b)
		}

		if len(candidates) == 0 {
			return d.floorAncestor(ctx, cp, floor, stored)
		}

		nums := make([]uint64, len(candidates))
		for i, c := range candidates {
			nums[i] = c.Number
		}

		headers, err := d.rpc.BatchGetBlockHeaders(ctx, nums)
		if err != nil {
			return pkgcheckpoint.BlockRef{}, fmt.Errorf("failed to fetch headers during walk-back: %w", err)
		}

		for i, h := range headers {
			if h != nil && h.Hash() == candidates[i].Hash {
				depth := cp.BlockNumber - candidates[i].Number
				reorgDepthLog(d.chainID, depth)
				d.log.Warnf("chain %d: common ancestor found at block %d (depth %d)", d.chainID, candidates[i].Number, depth)
				return candidates[i], nil
			}
		}

		last := candidates[len(candidates)-1].Number
		if len(candidates) < len(stored) || len(stored) < ancestorPage || last == 0 {
			return d.floorAncestor(ctx, cp, floor, stored[len(candidates):])
		}
		from = last - 1
	}
}

// floorAncestor handles a walk-back that ran out of remembered blocks.
func (d *Detector) floorAncestor(
	ctx context.Context,
	cp pkgcheckpoint.Checkpoint,
	floor uint64,
	remaining []pkgcheckpoint.BlockRef,
) (pkgcheckpoint.BlockRef, error) {
	// anything remembered below the search bound means the fork is deeper than allowed
	for _, b := range remaining {
		if b.Number > floor {
			return pkgcheckpoint.BlockRef{}, d.exceeded(cp)
		}
	}

	if cp.BlockNumber-floor > d.maxDepth {
		return pkgcheckpoint.BlockRef{}, d.exceeded(cp)
	}

	h, err := d.rpc.GetBlockHeader(ctx, floor)
	if err != nil {
		return pkgcheckpoint.BlockRef{}, fmt.Errorf("failed to fetch floor header %d: %w", floor, err)
	}

	d.log.Warnf("chain %d: no remembered block is canonical, rewinding to start block %d", d.chainID, floor)
	reorgDepthLog(d.chainID, cp.BlockNumber-floor)

	return refOf(h), nil
}

func (d *Detector) exceeded(cp pkgcheckpoint.Checkpoint) error {
	d.log.Errorf("chain %d: no common ancestor within %d blocks of checkpoint %d", d.chainID, d.maxDepth, cp.BlockNumber)

	return fmt.Errorf("%w: chain %d, checkpoint %d, max depth %d",
		ErrReorgExceedsSearchDepth, d.chainID, cp.BlockNumber, d.maxDepth)
}

func refOf(h *types.Header) pkgcheckpoint.BlockRef {
	return pkgcheckpoint.BlockRef{
		Number:     h.Number.Uint64(),
		Hash:       h.Hash(),
		ParentHash: h.ParentHash,
	}
}
