package rpc

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	pkgrpc "github.com/goran-ethernal/BuildersIndexer/pkg/rpc"
)

var _ pkgrpc.EthClient = (*Client)(nil)

// headersPerBatch caps a single JSON-RPC batch; most providers reject larger ones.
const headersPerBatch = 100

// Client is one RPC endpoint. Retries and failover live in Transport.
type Client struct {
	raw *rpc.Client
	eth *ethclient.Client
}

func NewClient(ctx context.Context, endpoint string) (*Client, error) {
	raw, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", endpointName(endpoint), err)
	}

	return &Client{raw: raw, eth: ethclient.NewClient(raw)}, nil
}

func (c *Client) Close() {
	c.raw.Close()
}

func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	defer observe("eth_chainId", time.Now())

	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return 0, err
	}

	return id.Uint64(), nil
}

func (c *Client) GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	defer observe("eth_getLogs", time.Now())

	return c.eth.FilterLogs(ctx, query)
}

func (c *Client) GetBlockHeader(ctx context.Context, blockNum uint64) (*types.Header, error) {
	return c.header(ctx, new(big.Int).SetUint64(blockNum))
}

func (c *Client) GetLatestBlockHeader(ctx context.Context) (*types.Header, error) {
	return c.header(ctx, nil)
}

func (c *Client) GetFinalizedBlockHeader(ctx context.Context) (*types.Header, error) {
	return c.header(ctx, big.NewInt(rpc.FinalizedBlockNumber.Int64()))
}

func (c *Client) GetSafeBlockHeader(ctx context.Context) (*types.Header, error) {
	return c.header(ctx, big.NewInt(rpc.SafeBlockNumber.Int64()))
}

func (c *Client) header(ctx context.Context, number *big.Int) (*types.Header, error) {
	defer observe("eth_getBlockByNumber", time.Now())

	return c.eth.HeaderByNumber(ctx, number)
}

// BatchGetBlockHeaders fetches headers in JSON-RPC batches of headersPerBatch.
// The result is ordered like blockNums; a block the node does not have yet fails the call.
func (c *Client) BatchGetBlockHeaders(ctx context.Context, blockNums []uint64) ([]*types.Header, error) {
	defer observe("eth_getBlockByNumber_batch", time.Now())

	out := make([]*types.Header, len(blockNums))

	for start := 0; start < len(blockNums); start += headersPerBatch {
		end := min(start+headersPerBatch, len(blockNums))

		elems := make([]rpc.BatchElem, 0, end-start)
		for i := start; i < end; i++ {
			elems = append(elems, rpc.BatchElem{
				Method: "eth_getBlockByNumber",
				Args:   []any{toBlockNumArg(blockNums[i]), false},
				Result: &out[i],
			})
		}

		if err := c.raw.BatchCallContext(ctx, elems); err != nil {
			return nil, err
		}

		for i, elem := range elems {
			if elem.Error != nil {
				return nil, fmt.Errorf("header %d: %w", blockNums[start+i], elem.Error)
			}
			if out[start+i] == nil {
				return nil, fmt.Errorf("header %d: %w", blockNums[start+i], ethereum.NotFound)
			}
		}
	}

	return out, nil
}

func toBlockNumArg(blockNum uint64) string {
	return hexutil.EncodeUint64(blockNum)
}
