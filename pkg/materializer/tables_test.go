package materializer_test

import (
	"context"
	"database/sql"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/BuildersIndexer/internal/db"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	"github.com/goran-ethernal/BuildersIndexer/pkg/materializer"
	"github.com/goran-ethernal/BuildersIndexer/tests/helpers"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

const poolsSQL = `
-- +migrate Down
DROP TABLE IF EXISTS pool_events;

-- +migrate Up
CREATE TABLE IF NOT EXISTS pool_events (
    chain_id     BIGINT NOT NULL,
    block_number BIGINT NOT NULL,
    tx_hash      TEXT   NOT NULL,
    log_index    BIGINT NOT NULL,
    pool         TEXT,
    kind         TEXT,
    amount       TEXT,
    PRIMARY KEY (chain_id, tx_hash, log_index)
);
`

var pool = common.HexToAddress("0x00000000000000000000000000000000000B00C1")

func newPoolHandler(t *testing.T) (*materializer.TableHandler, *sqlx.DB) {
	t.Helper()

	h := materializer.NewTableHandler("pools", logger.NewNopLogger(),
		[]db.Migration{{ID: "001_pools.sql", SQL: poolsSQL, Prefix: "pools"}},
		materializer.EventTable{
			Table:  "pool_events",
			Events: []string{"Deposited", "Withdrawn"},
			Mappings: []materializer.Mapping{
				{Column: "pool", Arg: materializer.ArgAddress},
				{Column: "kind", Arg: materializer.ArgEventName},
				{Column: "amount", Arg: "amount"},
			},
		},
	)

	return h, helpers.NewTestDB(t, "pools.sqlite", h.Migrations()...)
}

func poolEvent(name string, block uint64, logIndex uint, args map[string]any) materializer.DecodedEvent {
	return materializer.DecodedEvent{
		ChainID:     42161,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block)),
		LogIndex:    logIndex,
		Address:     pool,
		EventName:   name,
		Args:        materializer.NormalizeArgs(args),
	}
}

func inTx(t *testing.T, database *sqlx.DB, fn func(tx *sqlx.Tx) error) {
	t.Helper()

	tx, err := database.Beginx()
	require.NoError(t, err)
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit())
}

type poolRow struct {
	BlockNumber uint64         `db:"block_number"`
	Pool        string         `db:"pool"`
	Kind        string         `db:"kind"`
	Amount      sql.NullString `db:"amount"`
}

func poolRows(t *testing.T, database *sqlx.DB) []poolRow {
	t.Helper()

	var rows []poolRow
	require.NoError(t, database.Select(&rows,
		`SELECT block_number, pool, kind, amount FROM pool_events ORDER BY block_number, log_index`))

	return rows
}

func TestTableHandler_Tables(t *testing.T) {
	h, _ := newPoolHandler(t)

	require.Equal(t, "pools", h.Name())
	require.Equal(t, []materializer.Table{{
		Name: "pool_events",
		Columns: []materializer.Column{
			{Name: "chain_id", Type: materializer.ColumnInteger},
			{Name: "block_number", Type: materializer.ColumnInteger},
			{Name: "tx_hash", Type: materializer.ColumnText},
			{Name: "log_index", Type: materializer.ColumnInteger},
			{Name: "pool", Type: materializer.ColumnText},
			{Name: "kind", Type: materializer.ColumnText},
			{Name: "amount", Type: materializer.ColumnText},
		},
	}}, h.Tables())
}

func TestTableHandler_HandleIsIdempotent(t *testing.T) {
	h, database := newPoolHandler(t)
	ctx := context.Background()

	deposit := poolEvent("Deposited", 10, 0, map[string]any{"amount": big.NewInt(500)})
	for range 2 {
		inTx(t, database, func(tx *sqlx.Tx) error { return h.Handle(ctx, tx, deposit) })
	}

	rows := poolRows(t, database)
	require.Len(t, rows, 1)
	require.Equal(t, poolRow{
		BlockNumber: 10,
		Pool:        db.AddressKey(pool),
		Kind:        "Deposited",
		Amount:      sql.NullString{String: "500", Valid: true},
	}, rows[0])
}

func TestTableHandler_MissingArgStoredAsNull(t *testing.T) {
	h, database := newPoolHandler(t)

	inTx(t, database, func(tx *sqlx.Tx) error {
		return h.Handle(context.Background(), tx, poolEvent("Withdrawn", 11, 0, map[string]any{}))
	})

	rows := poolRows(t, database)
	require.Len(t, rows, 1)
	require.Equal(t, "Withdrawn", rows[0].Kind)
	require.False(t, rows[0].Amount.Valid)
}

func TestTableHandler_IgnoresUnmappedEvents(t *testing.T) {
	h, database := newPoolHandler(t)

	inTx(t, database, func(tx *sqlx.Tx) error {
		return h.Handle(context.Background(), tx, poolEvent("Paused", 12, 0, nil))
	})

	require.Empty(t, poolRows(t, database))
}

func TestTableHandler_DeleteAbove(t *testing.T) {
	h, database := newPoolHandler(t)
	ctx := context.Background()

	inTx(t, database, func(tx *sqlx.Tx) error {
		for block := uint64(10); block <= 14; block++ {
			ev := poolEvent("Deposited", block, 0, map[string]any{"amount": big.NewInt(int64(block))})
			if err := h.Handle(ctx, tx, ev); err != nil {
				return err
			}
		}
		return nil
	})

	// another chain keeps its rows
	other := poolEvent("Deposited", 20, 0, nil)
	other.ChainID = 1
	inTx(t, database, func(tx *sqlx.Tx) error { return h.Handle(ctx, tx, other) })

	inTx(t, database, func(tx *sqlx.Tx) error { return h.DeleteAbove(ctx, tx, 42161, 12) })

	var blocks []uint64
	require.NoError(t, database.Select(&blocks, `SELECT block_number FROM pool_events ORDER BY block_number`))
	require.Equal(t, []uint64{10, 11, 12, 20}, blocks)
}
