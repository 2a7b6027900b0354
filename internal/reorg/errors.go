package reorg

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrReorgExceedsSearchDepth means no common ancestor exists within the
	// configured depth. The chain halts.
	ErrReorgExceedsSearchDepth = errors.New("reorg exceeds search depth")

	// ErrRangeInconsistent means the logs of a range disagree with the headers
	// fetched right after them. Nothing was written; the range is refetched.
	ErrRangeInconsistent = errors.New("range inconsistent with canonical headers")
)

// ReorgDetectedError is returned when the first block of a range does not
// build on the stored checkpoint.
type ReorgDetectedError struct {
	ChainID    uint64
	Checkpoint uint64
	Stored     common.Hash
	ParentHash common.Hash
}

func (e *ReorgDetectedError) Error() string {
	return fmt.Sprintf("chain %d: block %d no longer extends checkpoint %d (stored %s, parent %s)",
		e.ChainID, e.Checkpoint+1, e.Checkpoint, e.Stored.TerminalString(), e.ParentHash.TerminalString())
}

// IsReorg reports whether err signals a reorg below the checkpoint.
func IsReorg(err error) bool {
	var reorgErr *ReorgDetectedError
	return errors.As(err, &reorgErr)
}
