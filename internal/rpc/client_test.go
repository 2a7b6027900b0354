package rpc

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	pkgrpc "github.com/goran-ethernal/BuildersIndexer/pkg/rpc"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params []any           `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
}

// fakeNode serves eth_chainId and eth_getBlockByNumber for blocks 0..head.
type fakeNode struct {
	chainID uint64
	head    uint64
	batches atomic.Int32
}

func (n *fakeNode) header(num uint64) *types.Header {
	return &types.Header{
		Number:     new(big.Int).SetUint64(num),
		Difficulty: big.NewInt(0),
		GasLimit:   30_000_000,
		Time:       1_700_000_000 + num,
	}
}

func (n *fakeNode) answer(req rpcRequest) rpcResponse {
	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "eth_chainId":
		resp.Result = hexutil.Uint64(n.chainID)
	case "eth_getBlockByNumber":
		tag, _ := req.Params[0].(string)
		num := n.head
		if tag != "latest" && tag != "safe" && tag != "finalized" {
			parsed, err := hexutil.DecodeUint64(tag)
			if err != nil || parsed > n.head {
				return resp // null result
			}
			num = parsed
		}
		resp.Result = n.header(num)
	}

	return resp
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if len(raw) > 0 && raw[0] == '[' {
		n.batches.Add(1)
		var reqs []rpcRequest
		_ = json.Unmarshal(raw, &reqs)
		out := make([]rpcResponse, len(reqs))
		for i, req := range reqs {
			out[i] = n.answer(req)
		}
		_ = json.NewEncoder(w).Encode(out)
		return
	}

	var req rpcRequest
	_ = json.Unmarshal(raw, &req)
	_ = json.NewEncoder(w).Encode(n.answer(req))
}

func dialFakeNode(t *testing.T, node *fakeNode) *Client {
	t.Helper()

	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)

	client, err := NewClient(t.Context(), srv.URL)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client
}

func TestClientImplementsInterface(t *testing.T) {
	var _ pkgrpc.EthClient = (*Client)(nil)
	var _ pkgrpc.EthClient = (*Transport)(nil)
}

func TestClient_ChainIDAndHeads(t *testing.T) {
	client := dialFakeNode(t, &fakeNode{chainID: 42161, head: 500})

	id, err := client.ChainID(t.Context())
	require.NoError(t, err)
	require.Equal(t, uint64(42161), id)

	latest, err := client.GetLatestBlockHeader(t.Context())
	require.NoError(t, err)
	require.Equal(t, uint64(500), latest.Number.Uint64())

	h, err := client.GetBlockHeader(t.Context(), 42)
	require.NoError(t, err)
	require.Equal(t, uint64(1_700_000_042), h.Time)
}

func TestClient_BatchGetBlockHeaders(t *testing.T) {
	node := &fakeNode{chainID: 1, head: 1000}
	client := dialFakeNode(t, node)

	nums := make([]uint64, 0, 250)
	for n := uint64(700); n < 950; n++ {
		nums = append(nums, n)
	}

	headers, err := client.BatchGetBlockHeaders(t.Context(), nums)
	require.NoError(t, err)
	require.Len(t, headers, len(nums))
	for i, h := range headers {
		require.Equal(t, nums[i], h.Number.Uint64())
	}
	require.Equal(t, int32(3), node.batches.Load(), "250 headers go out in batches of 100")
}

func TestClient_BatchMissingHeader(t *testing.T) {
	client := dialFakeNode(t, &fakeNode{chainID: 1, head: 10})

	_, err := client.BatchGetBlockHeaders(t.Context(), []uint64{9, 10, 11})
	require.True(t, errors.Is(err, ethereum.NotFound))
	require.ErrorContains(t, err, "header 11")
}

func TestToBlockNumArg(t *testing.T) {
	require.Equal(t, "0x0", toBlockNumArg(0))
	require.Equal(t, "0x110e74d0", toBlockNumArg(286160080))
	require.Equal(t, "0xffffffffffffffff", toBlockNumArg(^uint64(0)))
}

func TestEndpointName(t *testing.T) {
	require.Equal(t, "arb1.arbitrum.io", endpointName("https://arb1.arbitrum.io/rpc"))
	require.Equal(t, "arb-mainnet.g.alchemy.com", endpointName("https://arb-mainnet.g.alchemy.com/v2/SECRETKEY"))
	require.Equal(t, "not a url", endpointName("not a url"))
}
