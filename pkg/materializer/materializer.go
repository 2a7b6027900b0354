package materializer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/BuildersIndexer/internal/db"
	pkgcheckpoint "github.com/goran-ethernal/BuildersIndexer/pkg/checkpoint"
	"github.com/jmoiron/sqlx"
)

// DecodedEvent is a log decoded against the ABI of the contract that emitted it.
// The provenance fields identify the source log; (ChainID, TxHash, LogIndex) is unique.
type DecodedEvent struct {
	ChainID     uint64         `json:"chain_id"`
	BlockNumber uint64         `json:"block_number"`
	BlockHash   common.Hash    `json:"block_hash"`
	TxHash      common.Hash    `json:"tx_hash"`
	LogIndex    uint           `json:"log_index"`
	Address     common.Address `json:"address"`
	Contract    string         `json:"contract"`
	EventName   string         `json:"event_name"`
	Args        map[string]any `json:"args"`
}

// ColumnType is the storage class of a materialized column.
type ColumnType string

const (
	ColumnText    ColumnType = "text"
	ColumnInteger ColumnType = "integer"
)

// Column describes one column of a materialized table.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Table describes a materialized table exposed by the serving layer.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Handler turns decoded events of the contracts bound to it into business rows.
// Every row carries (chain_id, tx_hash, log_index, block_number) so it can be
// deduplicated on replay and removed on rollback.
type Handler interface {
	// Name is the handler name referenced by contract configuration.
	Name() string

	// Tables describes the tables the handler writes.
	Tables() []Table

	// Migrations returns the schema of the handler tables.
	Migrations() []db.Migration

	// Handle writes the rows derived from ev. It must be idempotent on the event provenance.
	Handle(ctx context.Context, tx *sqlx.Tx, ev DecodedEvent) error

	// DeleteAbove removes rows of chainID derived from blocks above block.
	DeleteAbove(ctx context.Context, tx *sqlx.Tx, chainID, block uint64) error
}

// Stats summarizes one Apply call.
type Stats struct {
	Applied         int `json:"applied"`
	Duplicates      int `json:"duplicates"`
	UnknownSelector int `json:"unknown_selector"`
	Malformed       int `json:"malformed"`
	Unwatched       int `json:"unwatched"`
}

// Materializer decodes raw logs and writes them to the store.
type Materializer interface {
	// Apply decodes and writes logs of chainID inside tx. Undecodable logs are skipped.
	Apply(ctx context.Context, tx *sqlx.Tx, chainID uint64, logs []types.Log) (Stats, error)

	// ApplyFunc binds Apply to a checkpoint commit. stats, when not nil, receives the outcome.
	ApplyFunc(ctx context.Context, chainID uint64, logs []types.Log, stats *Stats) pkgcheckpoint.TxFunc

	// DeleteAbove removes every record of chainID derived from blocks above block.
	DeleteAbove(ctx context.Context, tx *sqlx.Tx, chainID, block uint64) error

	// Tables lists every table written by the materializer.
	Tables() []Table
}
