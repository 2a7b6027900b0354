package materializer

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/BuildersIndexer/internal/abis"
	"github.com/goran-ethernal/BuildersIndexer/internal/handlers/erc20"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	pkgmaterializer "github.com/goran-ethernal/BuildersIndexer/pkg/materializer"
	pkgregistry "github.com/goran-ethernal/BuildersIndexer/pkg/registry"
	"github.com/goran-ethernal/BuildersIndexer/tests/helpers"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

const arbitrum = uint64(42161)

var (
	token = common.HexToAddress("0x7431ADA8A591C955A994A21710752ef9b882b8e3")
	alice = common.HexToAddress("0x00000000000000000000000000000000000A11CE")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000B0B")
)

type watchMap map[common.Address]pkgregistry.ContractWatch

func (w watchMap) Lookup(_ uint64, addr common.Address) (pkgregistry.ContractWatch, bool) {
	watch, ok := w[addr]
	return watch, ok
}

func erc20ABI(t *testing.T) *abi.ABI {
	t.Helper()

	parsed, err := abis.NewResolver("").Resolve(abis.ERC20)
	require.NoError(t, err)

	return parsed
}

func transferLog(t *testing.T, block uint64, index uint, from, to common.Address, value int64) types.Log {
	t.Helper()

	ev := erc20ABI(t).Events["Transfer"]
	data, err := ev.Inputs.NonIndexed().Pack(big.NewInt(value))
	require.NoError(t, err)

	return types.Log{
		Address:     token,
		Topics:      []common.Hash{ev.ID, common.BytesToHash(from.Bytes()), common.BytesToHash(to.Bytes())},
		Data:        data,
		BlockNumber: block,
		BlockHash:   common.BytesToHash([]byte{byte(block)}),
		TxHash:      common.BytesToHash([]byte{0xaa, byte(block), byte(index)}),
		Index:       index,
	}
}

func setupTestMaterializer(t *testing.T) (*Materializer, *sqlx.DB) {
	t.Helper()

	handler, err := erc20.New(logger.NewNopLogger())
	require.NoError(t, err)

	watches := watchMap{
		token: {ChainID: arbitrum, Address: token, Name: "MorToken", ABIRef: abis.ERC20, Handler: erc20.Name, StartBlock: 10},
	}

	m := New(abis.NewResolver(""), watches, logger.NewNopLogger(), handler)
	database := helpers.NewTestDB(t, "materializer.sqlite", m.Migrations()...)

	return m, database
}

func apply(t *testing.T, m *Materializer, database *sqlx.DB, logs ...types.Log) pkgmaterializer.Stats {
	t.Helper()

	tx, err := database.Beginx()
	require.NoError(t, err)

	stats, err := m.Apply(context.Background(), tx, arbitrum, logs)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	return stats
}

func count(t *testing.T, database *sqlx.DB, table string) int {
	t.Helper()

	var n int
	require.NoError(t, database.Get(&n, "SELECT COUNT(*) FROM "+table))

	return n
}

func TestDecode_Transfer(t *testing.T) {
	l := transferLog(t, 12, 3, alice, bob, 1500)

	ev, err := Decode(arbitrum, l, erc20ABI(t))
	require.NoError(t, err)
	require.Equal(t, "Transfer", ev.EventName)
	require.Equal(t, uint64(12), ev.BlockNumber)
	require.Equal(t, uint(3), ev.LogIndex)
	require.Equal(t, "0x00000000000000000000000000000000000a11ce", ev.Args["from"])
	require.Equal(t, "0x0000000000000000000000000000000000000b0b", ev.Args["to"])
	require.Equal(t, "1500", ev.Args["value"])
}

func TestDecode_Errors(t *testing.T) {
	parsed := erc20ABI(t)

	unknown := transferLog(t, 12, 0, alice, bob, 1)
	unknown.Topics[0] = common.HexToHash("0xdeadbeef")
	_, err := Decode(arbitrum, unknown, parsed)
	require.ErrorIs(t, err, ErrUnknownSelector)

	noTopics := transferLog(t, 12, 0, alice, bob, 1)
	noTopics.Topics = nil
	_, err = Decode(arbitrum, noTopics, parsed)
	require.ErrorIs(t, err, ErrUnknownSelector)

	missingTopic := transferLog(t, 12, 0, alice, bob, 1)
	missingTopic.Topics = missingTopic.Topics[:2]
	_, err = Decode(arbitrum, missingTopic, parsed)
	require.ErrorIs(t, err, ErrMalformedLog)

	shortData := transferLog(t, 12, 0, alice, bob, 1)
	shortData.Data = shortData.Data[:7]
	_, err = Decode(arbitrum, shortData, parsed)
	require.ErrorIs(t, err, ErrMalformedLog)
}

func TestApply_IsIdempotent(t *testing.T) {
	m, database := setupTestMaterializer(t)

	logs := []types.Log{
		transferLog(t, 12, 0, alice, bob, 100),
		transferLog(t, 12, 1, bob, alice, 40),
	}

	stats := apply(t, m, database, logs...)
	require.Equal(t, 2, stats.Applied)

	stats = apply(t, m, database, logs...)
	require.Equal(t, 0, stats.Applied)
	require.Equal(t, 2, stats.Duplicates)

	require.Equal(t, 2, count(t, database, "decoded_events"))
	require.Equal(t, 2, count(t, database, "erc20_transfers"))

	var value string
	require.NoError(t, database.Get(&value,
		`SELECT value FROM erc20_transfers WHERE from_address = ?`, "0x0000000000000000000000000000000000000b0b"))
	require.Equal(t, "40", value)
}

func TestApply_SkipsUndecodableLogs(t *testing.T) {
	m, database := setupTestMaterializer(t)

	unknown := transferLog(t, 12, 0, alice, bob, 1)
	unknown.Topics[0] = common.HexToHash("0x01")

	malformed := transferLog(t, 12, 1, alice, bob, 1)
	malformed.Data = nil

	unwatched := transferLog(t, 12, 2, alice, bob, 1)
	unwatched.Address = bob

	beforeStart := transferLog(t, 9, 0, alice, bob, 1)

	stats := apply(t, m, database, unknown, malformed, unwatched, beforeStart, transferLog(t, 12, 3, alice, bob, 5))
	require.Equal(t, pkgmaterializer.Stats{Applied: 1, UnknownSelector: 1, Malformed: 1, Unwatched: 2}, stats)
	require.Equal(t, 1, count(t, database, "decoded_events"))
}

func TestApply_UnknownHandlerFails(t *testing.T) {
	watches := watchMap{
		token: {ChainID: arbitrum, Address: token, Name: "MorToken", ABIRef: abis.ERC20, Handler: "missing"},
	}
	m := New(abis.NewResolver(""), watches, logger.NewNopLogger())
	database := helpers.NewTestDB(t, "materializer.sqlite")

	tx, err := database.Beginx()
	require.NoError(t, err)
	defer tx.Rollback() //nolint:errcheck

	_, err = m.Apply(context.Background(), tx, arbitrum, []types.Log{transferLog(t, 12, 0, alice, bob, 1)})
	require.ErrorContains(t, err, `unknown handler "missing"`)
}

func TestDeleteAbove(t *testing.T) {
	m, database := setupTestMaterializer(t)

	apply(t, m, database,
		transferLog(t, 96, 0, alice, bob, 1),
		transferLog(t, 97, 0, alice, bob, 2),
		transferLog(t, 98, 0, alice, bob, 3),
		transferLog(t, 100, 0, alice, bob, 4),
	)

	tx, err := database.Beginx()
	require.NoError(t, err)
	require.NoError(t, m.DeleteAbove(context.Background(), tx, arbitrum, 97))
	require.NoError(t, tx.Commit())

	require.Equal(t, 2, count(t, database, "decoded_events"))
	require.Equal(t, 2, count(t, database, "erc20_transfers"))

	var highest uint64
	require.NoError(t, database.Get(&highest, `SELECT MAX(block_number) FROM erc20_transfers`))
	require.Equal(t, uint64(97), highest)
}

func TestTables(t *testing.T) {
	m, _ := setupTestMaterializer(t)

	var names []string
	for _, table := range m.Tables() {
		names = append(names, table.Name)
	}
	require.Equal(t, []string{DecodedEventsTable, "erc20_transfers", "erc20_approvals"}, names)
}
