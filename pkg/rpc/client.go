package rpc

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
)

// LogReader fetches event logs for a block range.
type LogReader interface {
	GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
}

// HeaderReader fetches canonical headers by number. A missing header is an error.
type HeaderReader interface {
	GetBlockHeader(ctx context.Context, blockNum uint64) (*types.Header, error)
	BatchGetBlockHeaders(ctx context.Context, blockNums []uint64) ([]*types.Header, error)
}

// HeadReader resolves the moving heads a scanner can target.
type HeadReader interface {
	GetLatestBlockHeader(ctx context.Context) (*types.Header, error)
	GetSafeBlockHeader(ctx context.Context) (*types.Header, error)
	GetFinalizedBlockHeader(ctx context.Context) (*types.Header, error)
}

// EthClient is everything the indexer asks of a chain. Both a single endpoint
// client and the multi-endpoint transport implement it.
type EthClient interface {
	LogReader
	HeaderReader
	HeadReader

	ChainID(ctx context.Context) (uint64, error)
	Close()
}
