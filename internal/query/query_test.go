package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/goran-ethernal/BuildersIndexer/internal/handlers/erc20"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	"github.com/goran-ethernal/BuildersIndexer/tests/helpers"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

const (
	arbitrum = uint64(42161)
	base     = uint64(8453)
	alice    = "0x00000000000000000000000000000000000a11ce"
	bob      = "0x0000000000000000000000000000000000000b0b"
)

func setupTestEngine(t *testing.T) (*Engine, *sqlx.DB) {
	t.Helper()

	handler, err := erc20.New(logger.NewNopLogger())
	require.NoError(t, err)

	database := helpers.NewTestDB(t, "query.sqlite", handler.Migrations()...)

	return NewEngine(database, NewCatalog(handler), 3, logger.NewNopLogger()), database
}

func insertTransfer(t *testing.T, database *sqlx.DB, chainID, block uint64, from, to, value string) {
	t.Helper()

	_, err := database.Exec(`INSERT INTO erc20_transfers
		(chain_id, block_number, tx_hash, log_index, token, from_address, to_address, value)
		VALUES (?, ?, ?, 0, '0x7431ada8a591c955a994a21710752ef9b882b8e3', ?, ?, ?)`,
		chainID, block, fmt.Sprintf("0x%064x", chainID*1000+block), from, to, value)
	require.NoError(t, err)
}

func setCheckpoint(t *testing.T, database *sqlx.DB, chainID, block uint64) {
	t.Helper()

	_, err := database.Exec(`INSERT INTO checkpoints (chain_id, block_number, block_hash, committed_at)
		VALUES (?, ?, '0x00', 0)
		ON CONFLICT (chain_id) DO UPDATE SET block_number = excluded.block_number`, chainID, block)
	require.NoError(t, err)
}

func TestCatalog(t *testing.T) {
	t.Parallel()

	handler, err := erc20.New(logger.NewNopLogger())
	require.NoError(t, err)

	c := NewCatalog(handler)

	names := make([]string, 0)
	for _, tbl := range c.Tables() {
		names = append(names, tbl.Name)
	}
	require.Equal(t, []string{"checkpoints", "contract_watches", "erc20_transfers", "erc20_approvals"}, names)

	transfers, ok := c.Table("erc20_transfers")
	require.True(t, ok)
	require.True(t, transfers.Materialized)
	require.True(t, transfers.HasColumn("to_address"))

	checkpoints, ok := c.Table("checkpoints")
	require.True(t, ok)
	require.False(t, checkpoints.Materialized)

	_, ok = c.Table("sqlite_master")
	require.False(t, ok)
}

func TestRecords_CappedAtCheckpoint(t *testing.T) {
	t.Parallel()

	e, database := setupTestEngine(t)
	ctx := context.Background()

	for block := uint64(10); block <= 14; block++ {
		insertTransfer(t, database, arbitrum, block, alice, bob, "1")
	}
	insertTransfer(t, database, base, 3, bob, alice, "7")

	// nothing committed yet
	page, err := e.Records(ctx, RecordsQuery{Table: "erc20_transfers"})
	require.NoError(t, err)
	require.Empty(t, page.Records)
	require.Zero(t, page.Total)

	setCheckpoint(t, database, arbitrum, 12)
	setCheckpoint(t, database, base, 3)

	page, err = e.Records(ctx, RecordsQuery{Table: "erc20_transfers", SortBy: "block_number", SortOrder: "DESC"})
	require.NoError(t, err)
	require.Equal(t, 4, page.Total)
	require.Len(t, page.Records, 4)
	require.Equal(t, int64(12), page.Records[0]["block_number"])
	require.Equal(t, int64(3), page.Records[3]["block_number"])
	require.False(t, page.HasMore)
}

func TestRecords_FiltersAndPagination(t *testing.T) {
	t.Parallel()

	e, database := setupTestEngine(t)
	ctx := context.Background()

	for block := uint64(1); block <= 5; block++ {
		insertTransfer(t, database, arbitrum, block, alice, bob, fmt.Sprint(block))
	}
	insertTransfer(t, database, base, 2, bob, alice, "9")
	setCheckpoint(t, database, arbitrum, 100)
	setCheckpoint(t, database, base, 100)

	chain := arbitrum
	page, err := e.Records(ctx, RecordsQuery{Table: "erc20_transfers", ChainID: &chain, Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Equal(t, 5, page.Total)
	require.Len(t, page.Records, 2)
	require.Equal(t, int64(2), page.Records[0]["block_number"])
	require.True(t, page.HasMore)

	// hex filters match regardless of case
	page, err = e.Records(ctx, RecordsQuery{
		Table:   "erc20_transfers",
		Filters: map[string]string{"to_address": "0x00000000000000000000000000000000000A11CE"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, "9", page.Records[0]["value"])

	page, err = e.Records(ctx, RecordsQuery{Table: "erc20_transfers", Filters: map[string]string{"block_number": "4"}})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
}

func TestRecords_Errors(t *testing.T) {
	t.Parallel()

	e, _ := setupTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		q    RecordsQuery
		err  error
	}{
		{name: "unknown table", q: RecordsQuery{Table: "users"}, err: ErrUnknownTable},
		{name: "unknown sort column", q: RecordsQuery{Table: "erc20_transfers", SortBy: "amount"}, err: ErrUnknownColumn},
		{name: "injection in sort", q: RecordsQuery{Table: "erc20_transfers", SortBy: "value; DROP TABLE checkpoints"}, err: ErrUnknownColumn},
		{name: "unknown filter", q: RecordsQuery{Table: "erc20_transfers", Filters: map[string]string{"x": "1"}}, err: ErrUnknownColumn},
		{name: "limit too large", q: RecordsQuery{Table: "erc20_transfers", Limit: MaxLimit + 1}, err: ErrInvalidParams},
		{name: "negative offset", q: RecordsQuery{Table: "erc20_transfers", Offset: -1}, err: ErrInvalidParams},
		{name: "bad sort order", q: RecordsQuery{Table: "erc20_transfers", SortOrder: "up"}, err: ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Records(ctx, tt.q)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestCheckReadOnly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		ok    bool
	}{
		{name: "select", query: "SELECT * FROM erc20_transfers", ok: true},
		{name: "trailing semicolon", query: "select 1;", ok: true},
		{name: "with", query: "WITH t AS (SELECT 1 AS n) SELECT n FROM t", ok: true},
		{name: "keyword inside literal", query: "SELECT 'drop table x; delete' AS s", ok: true},
		{name: "keyword inside quoted identifier", query: `SELECT "update" FROM t`, ok: true},
		{name: "escaped quote", query: "SELECT 'it''s; fine'", ok: true},
		{name: "column named like keyword prefix", query: "SELECT created_at, updated FROM t", ok: true},
		{name: "empty", query: "  ", ok: false},
		{name: "insert", query: "INSERT INTO checkpoints VALUES (1, 1, '0x', 0)", ok: false},
		{name: "two statements", query: "SELECT 1; DELETE FROM checkpoints", ok: false},
		{name: "comment hides nothing", query: "SELECT 1 -- ; \n; DROP TABLE t", ok: false},
		{name: "data modifying cte", query: "WITH d AS (DELETE FROM t RETURNING *) SELECT * FROM d", ok: false},
		{name: "select into", query: "SELECT * INTO copy FROM t", ok: false},
		{name: "pragma", query: "PRAGMA writable_schema = 1", ok: false},
		{name: "unterminated literal", query: "SELECT 'abc", ok: false},
		{name: "unterminated comment", query: "SELECT 1 /* x", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := CheckReadOnly(tt.query)
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrNotReadOnly)
			}
		})
	}
}

func TestSQL(t *testing.T) {
	t.Parallel()

	e, database := setupTestEngine(t)
	ctx := context.Background()

	for block := uint64(1); block <= 5; block++ {
		insertTransfer(t, database, arbitrum, block, alice, bob, "1")
	}

	res, err := e.SQL(ctx, "SELECT block_number, value FROM erc20_transfers ORDER BY block_number")
	require.NoError(t, err)
	require.Equal(t, []string{"block_number", "value"}, res.Columns)
	require.Equal(t, 3, res.RowCount)
	require.True(t, res.Truncated)
	require.Equal(t, int64(1), res.Rows[0]["block_number"])
	require.Equal(t, "1", res.Rows[0]["value"])

	res, err = e.SQL(ctx, "SELECT COUNT(*) AS n FROM erc20_transfers")
	require.NoError(t, err)
	require.False(t, res.Truncated)
	require.Equal(t, int64(5), res.Rows[0]["n"])

	_, err = e.SQL(ctx, "DELETE FROM erc20_transfers")
	require.ErrorIs(t, err, ErrNotReadOnly)

	_, err = e.SQL(ctx, "SELECT * FROM missing_table")
	require.Error(t, err)

	var n int
	require.NoError(t, database.Get(&n, `SELECT COUNT(*) FROM erc20_transfers`))
	require.Equal(t, 5, n)
}

func TestPing(t *testing.T) {
	t.Parallel()

	e, database := setupTestEngine(t)
	require.NoError(t, e.Ping(context.Background()))

	require.NoError(t, database.Close())
	require.Error(t, e.Ping(context.Background()))
}

func TestGraphQL(t *testing.T) {
	t.Parallel()

	e, database := setupTestEngine(t)
	ctx := context.Background()

	for block := uint64(1); block <= 4; block++ {
		insertTransfer(t, database, arbitrum, block, alice, bob, fmt.Sprint(block*10))
	}
	setCheckpoint(t, database, arbitrum, 3)

	g, err := NewGraphQL(e)
	require.NoError(t, err)

	res := g.Execute(ctx, GraphQLRequest{Query: `{
		erc20_transfers(limit: 2, sortOrder: "desc", chainId: 42161) {
			total
			hasMore
			records { block_number value to_address }
		}
	}`})
	require.Empty(t, res.Errors)

	data := res.Data.(map[string]any)["erc20_transfers"].(map[string]any)
	require.Equal(t, int64(3), data["total"])
	require.Equal(t, true, data["hasMore"])

	records := data["records"].([]any)
	require.Len(t, records, 2)
	first := records[0].(map[string]any)
	require.Equal(t, int64(3), first["block_number"])
	require.Equal(t, "30", first["value"])
	require.Equal(t, bob, first["to_address"])

	res = g.Execute(ctx, GraphQLRequest{
		Query:     `query($v: String) { erc20_transfers(where: {value: $v}) { total } }`,
		Variables: map[string]any{"v": "20"},
	})
	require.Empty(t, res.Errors)
	require.Equal(t, int64(1), res.Data.(map[string]any)["erc20_transfers"].(map[string]any)["total"])

	res = g.Execute(ctx, GraphQLRequest{Query: `{ erc20_transfers(sortBy: "nope") { total } }`})
	require.NotEmpty(t, res.Errors)

	res = g.Execute(ctx, GraphQLRequest{Query: `{ users { total } }`})
	require.NotEmpty(t, res.Errors)
}

func TestTypeNameOf(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Erc20Transfers", typeNameOf("erc20_transfers"))
	require.Equal(t, "Checkpoints", typeNameOf("checkpoints"))
	require.Equal(t, "FeeConfigChanges", typeNameOf("fee_config_changes"))
}
