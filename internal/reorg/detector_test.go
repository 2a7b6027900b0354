package reorg

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/BuildersIndexer/internal/checkpoint"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	"github.com/goran-ethernal/BuildersIndexer/internal/rpc/mocks"
	pkgcheckpoint "github.com/goran-ethernal/BuildersIndexer/pkg/checkpoint"
	"github.com/goran-ethernal/BuildersIndexer/tests/helpers"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const arbitrum = uint64(42161)

// testChain builds linked headers. Blocks at or above forkAt carry a different
// extra field, so they hash differently from the original branch.
type testChain struct {
	headers map[uint64]*types.Header
}

func newTestChain(to, forkAt uint64, fork byte) *testChain {
	c := &testChain{headers: make(map[uint64]*types.Header)}

	parent := common.Hash{}
	for n := uint64(0); n <= to; n++ {
		h := &types.Header{
			Number:     new(big.Int).SetUint64(n),
			ParentHash: parent,
			Difficulty: big.NewInt(0),
		}
		if forkAt > 0 && n >= forkAt {
			h.Extra = []byte{fork}
		}
		c.headers[n] = h
		parent = h.Hash()
	}

	return c
}

func (c *testChain) ref(n uint64) pkgcheckpoint.BlockRef {
	return refOf(c.headers[n])
}

func (c *testChain) batch(_ context.Context, nums []uint64) ([]*types.Header, error) {
	out := make([]*types.Header, len(nums))
	for i, n := range nums {
		out[i] = c.headers[n]
	}
	return out, nil
}

func (c *testChain) serve(client *mocks.EthClient) {
	client.EXPECT().BatchGetBlockHeaders(mock.Anything, mock.Anything).RunAndReturn(c.batch).Maybe()
	client.EXPECT().GetBlockHeader(mock.Anything, mock.Anything).RunAndReturn(
		func(_ context.Context, n uint64) (*types.Header, error) {
			return c.headers[n], nil
		}).Maybe()
}

func setupTestDetector(t *testing.T, maxDepth uint64) (*Detector, *mocks.EthClient, *checkpoint.Store) {
	t.Helper()

	database := helpers.NewTestDB(t, "reorg.sqlite")
	store := checkpoint.NewStore(database, logger.NewNopLogger(), nil)
	client := mocks.NewEthClient(t)

	return NewDetector(arbitrum, client, store, maxDepth, logger.NewNopLogger()), client, store
}

func logAt(c *testChain, n uint64, index uint) types.Log {
	return types.Log{
		BlockNumber: n,
		BlockHash:   c.headers[n].Hash(),
		TxHash:      common.BytesToHash([]byte{byte(n), byte(index)}),
		Index:       index,
	}
}

func TestValidate_CleanRange(t *testing.T) {
	detector, client, _ := setupTestDetector(t, 64)
	chain := newTestChain(120, 0, 0)
	chain.serve(client)

	cp := &pkgcheckpoint.Checkpoint{ChainID: arbitrum, BlockNumber: 100, BlockHash: chain.ref(100).Hash}
	logs := []types.Log{logAt(chain, 103, 0), logAt(chain, 103, 1), logAt(chain, 108, 0)}

	got, err := detector.Validate(context.Background(), cp, 101, 110, logs)
	require.NoError(t, err)
	require.Equal(t, chain.ref(110), got.Tip)
	require.Equal(t, []pkgcheckpoint.BlockRef{chain.ref(103), chain.ref(108)}, got.Blocks)
}

func TestValidate_ParentMismatchIsReorg(t *testing.T) {
	detector, client, _ := setupTestDetector(t, 64)
	original := newTestChain(120, 0, 0)
	forked := newTestChain(120, 98, 1)
	forked.serve(client)

	cp := &pkgcheckpoint.Checkpoint{ChainID: arbitrum, BlockNumber: 100, BlockHash: original.ref(100).Hash}

	_, err := detector.Validate(context.Background(), cp, 101, 110, nil)
	require.Error(t, err)
	require.True(t, IsReorg(err))

	var reorgErr *ReorgDetectedError
	require.ErrorAs(t, err, &reorgErr)
	require.Equal(t, uint64(100), reorgErr.Checkpoint)
	require.Equal(t, original.ref(100).Hash, reorgErr.Stored)
	require.Equal(t, forked.ref(100).Hash, reorgErr.ParentHash)
}

func TestValidate_LogFromOrphanedBlock(t *testing.T) {
	detector, client, _ := setupTestDetector(t, 64)
	chain := newTestChain(120, 0, 0)
	orphan := newTestChain(120, 105, 7)
	chain.serve(client)

	cp := &pkgcheckpoint.Checkpoint{ChainID: arbitrum, BlockNumber: 100, BlockHash: chain.ref(100).Hash}

	_, err := detector.Validate(context.Background(), cp, 101, 110, []types.Log{logAt(orphan, 106, 0)})
	require.ErrorIs(t, err, ErrRangeInconsistent)
	require.False(t, IsReorg(err))
}

func TestValidate_FirstRangeHasNoParentCheck(t *testing.T) {
	detector, client, _ := setupTestDetector(t, 64)
	chain := newTestChain(20, 0, 0)
	chain.serve(client)

	got, err := detector.Validate(context.Background(), nil, 5, 10, nil)
	require.NoError(t, err)
	require.Equal(t, chain.ref(10), got.Tip)
	require.Empty(t, got.Blocks)
}

func TestFindAncestor_WalksBackToLastCanonicalBlock(t *testing.T) {
	ctx := context.Background()
	detector, client, store := setupTestDetector(t, 64)

	original := newTestChain(120, 0, 0)
	require.NoError(t, store.Commit(ctx, arbitrum, original.ref(100),
		[]pkgcheckpoint.BlockRef{original.ref(97), original.ref(98)}, nil))

	forked := newTestChain(120, 98, 1)
	forked.serve(client)

	cp, err := store.Load(ctx, arbitrum)
	require.NoError(t, err)

	ancestor, err := detector.FindAncestor(ctx, *cp, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(97), ancestor.Number)
	require.Equal(t, original.ref(97).Hash, ancestor.Hash)
}

func TestFindAncestor_ExceedsSearchDepth(t *testing.T) {
	ctx := context.Background()
	detector, client, store := setupTestDetector(t, 2)

	original := newTestChain(120, 0, 0)
	require.NoError(t, store.Commit(ctx, arbitrum, original.ref(100),
		[]pkgcheckpoint.BlockRef{original.ref(97), original.ref(98)}, nil))

	forked := newTestChain(120, 98, 1)
	forked.serve(client)

	cp, err := store.Load(ctx, arbitrum)
	require.NoError(t, err)

	_, err = detector.FindAncestor(ctx, *cp, 0)
	require.ErrorIs(t, err, ErrReorgExceedsSearchDepth)
}

func TestFindAncestor_FallsBackToFloor(t *testing.T) {
	ctx := context.Background()
	detector, client, store := setupTestDetector(t, 10)

	original := newTestChain(120, 0, 0)
	require.NoError(t, store.Commit(ctx, arbitrum, original.ref(100), nil, nil))

	forked := newTestChain(120, 97, 1)
	forked.serve(client)

	cp, err := store.Load(ctx, arbitrum)
	require.NoError(t, err)

	ancestor, err := detector.FindAncestor(ctx, *cp, 95)
	require.NoError(t, err)
	require.Equal(t, forked.ref(95), ancestor)
}

func TestFindAncestor_FloorBeyondDepth(t *testing.T) {
	ctx := context.Background()
	detector, client, store := setupTestDetector(t, 3)

	original := newTestChain(120, 0, 0)
	require.NoError(t, store.Commit(ctx, arbitrum, original.ref(100), nil, nil))

	forked := newTestChain(120, 97, 1)
	forked.serve(client)

	cp, err := store.Load(ctx, arbitrum)
	require.NoError(t, err)

	_, err = detector.FindAncestor(ctx, *cp, 90)
	require.ErrorIs(t, err, ErrReorgExceedsSearchDepth)
}
