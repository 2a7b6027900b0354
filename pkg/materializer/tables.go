package materializer

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/goran-ethernal/BuildersIndexer/internal/db"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	"github.com/jmoiron/sqlx"
)

// Special argument names resolved from the event instead of its decoded arguments.
const (
	ArgEventName = "@event"
	ArgAddress   = "@address"
)

// ProvenanceColumns lead every table written by a TableHandler.
var ProvenanceColumns = []Column{
	{Name: "chain_id", Type: ColumnInteger},
	{Name: "block_number", Type: ColumnInteger},
	{Name: "tx_hash", Type: ColumnText},
	{Name: "log_index", Type: ColumnInteger},
}

// Mapping copies the event argument Arg into Column.
type Mapping struct {
	Column string
	Arg    string
}

// EventTable stores every event named in Events as one row of Table.
type EventTable struct {
	Table    string
	Events   []string
	Mappings []Mapping
}

// TableHandler is a Handler writing one row per event into event tables keyed by provenance.
type TableHandler struct {
	name       string
	tables     []EventTable
	migrations []db.Migration
	byEvent    map[string][]int
	log        *logger.Logger
}

var _ Handler = (*TableHandler)(nil)

// NewTableHandler creates a handler named name over tables.
func NewTableHandler(name string, log *logger.Logger, migrations []db.Migration, tables ...EventTable) *TableHandler {
	h := &TableHandler{
		name:       name,
		tables:     tables,
		migrations: migrations,
		byEvent:    make(map[string][]int),
		log:        log,
	}

	for i, t := range tables {
		for _, ev := range t.Events {
			h.byEvent[ev] = append(h.byEvent[ev], i)
		}
	}

	return h
}

// Name returns the handler name.
func (h *TableHandler) Name() string {
	return h.name
}

// Migrations returns the handler schema.
func (h *TableHandler) Migrations() []db.Migration {
	return h.migrations
}

// Tables describes the handler tables.
func (h *TableHandler) Tables() []Table {
	out := make([]Table, 0, len(h.tables))
	for _, t := range h.tables {
		cols := slices.Clone(ProvenanceColumns)
		for _, m := range t.Mappings {
			cols = append(cols, Column{Name: m.Column, Type: ColumnText})
		}
		out = append(out, Table{Name: t.Table, Columns: cols})
	}

	return out
}

// Handle inserts one row per matching table. Replays of the same log are ignored.
func (h *TableHandler) Handle(ctx context.Context, tx *sqlx.Tx, ev DecodedEvent) error {
	for _, i := range h.byEvent[ev.EventName] {
		t := h.tables[i]

		cols := make([]string, 0, len(ProvenanceColumns)+len(t.Mappings))
		for _, c := range ProvenanceColumns {
			cols = append(cols, c.Name)
		}
		args := []any{ev.ChainID, ev.BlockNumber, ev.TxHash.Hex(), ev.LogIndex}

		for _, m := range t.Mappings {
			v, err := h.argValue(ev, m.Arg)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", t.Table, m.Column, err)
			}
			cols = append(cols, m.Column)
			args = append(args, v)
		}

		query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (chain_id, tx_hash, log_index) DO NOTHING`,
			t.Table, strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))

		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("failed to insert %s row for %s/%d: %w", t.Table, ev.TxHash.Hex(), ev.LogIndex, err)
		}
	}

	return nil
}

func (h *TableHandler) argValue(ev DecodedEvent, arg string) (any, error) {
	switch arg {
	case ArgEventName:
		return ev.EventName, nil
	case ArgAddress:
		return db.AddressKey(ev.Address), nil
	}

	v, ok := ev.Args[arg]
	if !ok {
		h.log.Debugf("%s: event %s has no argument %s, storing NULL", h.name, ev.EventName, arg)
		return nil, nil
	}

	return ColumnValue(v)
}

// DeleteAbove removes rows of chainID from blocks above block in every handler table.
func (h *TableHandler) DeleteAbove(ctx context.Context, tx *sqlx.Tx, chainID, block uint64) error {
	seen := make(map[string]struct{}, len(h.tables))

	for _, t := range h.tables {
		if _, ok := seen[t.Table]; ok {
			continue
		}
		seen[t.Table] = struct{}{}

		query := tx.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE chain_id = ? AND block_number > ?`, t.Table))
		res, err := tx.ExecContext(ctx, query, chainID, block)
		if err != nil {
			return fmt.Errorf("failed to roll back %s above %d: %w", t.Table, block, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			h.log.Debugf("%s: removed %d rows above block %d", t.Table, n, block)
		}
	}

	return nil
}
