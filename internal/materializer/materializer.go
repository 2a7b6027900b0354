package materializer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	icommon "github.com/goran-ethernal/BuildersIndexer/internal/common"
	"github.com/goran-ethernal/BuildersIndexer/internal/db"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	"github.com/goran-ethernal/BuildersIndexer/internal/metrics"
	pkgcheckpoint "github.com/goran-ethernal/BuildersIndexer/pkg/checkpoint"
	pkgmaterializer "github.com/goran-ethernal/BuildersIndexer/pkg/materializer"
	pkgregistry "github.com/goran-ethernal/BuildersIndexer/pkg/registry"
	"github.com/jmoiron/sqlx"
)

var _ pkgmaterializer.Materializer = (*Materializer)(nil)

// DecodedEventsTable is the table holding every decoded event.
const DecodedEventsTable = "decoded_events"

// ABIResolver resolves a watch's ABI reference.
type ABIResolver interface {
	Resolve(ref string) (*abi.ABI, error)
}

// WatchLookup finds the watch of an emitting contract.
type WatchLookup interface {
	Lookup(chainID uint64, addr common.Address) (pkgregistry.ContractWatch, bool)
}

// Materializer decodes logs of watched contracts, stores them in decoded_events and hands
// them to the handler bound to the contract. Writes are keyed by (chain_id, tx_hash, log_index),
// so applying the same range twice changes nothing.
type Materializer struct {
	abis     ABIResolver
	watches  WatchLookup
	handlers map[string]pkgmaterializer.Handler
	order    []pkgmaterializer.Handler
	log      *logger.Logger
}

// New creates a materializer over the given handlers.
func New(abis ABIResolver, watches WatchLookup, log *logger.Logger, handlers ...pkgmaterializer.Handler) *Materializer {
	m := &Materializer{
		abis:     abis,
		watches:  watches,
		handlers: make(map[string]pkgmaterializer.Handler, len(handlers)),
		order:    handlers,
		log:      log.WithComponent(icommon.ComponentMaterializer),
	}
	for _, h := range handlers {
		m.handlers[h.Name()] = h
	}

	return m
}

// Handler returns the handler registered under name.
func (m *Materializer) Handler(name string) (pkgmaterializer.Handler, bool) {
	h, ok := m.handlers[name]
	return h, ok
}

// Migrations returns the schema of every handler.
func (m *Materializer) Migrations() []db.Migration {
	var out []db.Migration
	for _, h := range m.order {
		for _, mig := range h.Migrations() {
			if mig.Prefix == "" {
				mig.Prefix = h.Name()
			}
			out = append(out, mig)
		}
	}

	return out
}

// Tables lists decoded_events followed by every handler table.
func (m *Materializer) Tables() []pkgmaterializer.Table {
	out := []pkgmaterializer.Table{{
		Name: DecodedEventsTable,
		Columns: []pkgmaterializer.Column{
			{Name: "chain_id", Type: pkgmaterializer.ColumnInteger},
			{Name: "block_number", Type: pkgmaterializer.ColumnInteger},
			{Name: "tx_hash", Type: pkgmaterializer.ColumnText},
			{Name: "log_index", Type: pkgmaterializer.ColumnInteger},
			{Name: "block_hash", Type: pkgmaterializer.ColumnText},
			{Name: "address", Type: pkgmaterializer.ColumnText},
			{Name: "contract", Type: pkgmaterializer.ColumnText},
			{Name: "event_name", Type: pkgmaterializer.ColumnText},
			{Name: "args", Type: pkgmaterializer.ColumnText},
		},
	}}

	for _, h := range m.order {
		out = append(out, h.Tables()...)
	}

	return out
}

// Apply decodes and writes logs of chainID inside tx. Logs of unknown contracts, unknown
// selectors and malformed logs are skipped and counted; any store error aborts the apply.
func (m *Materializer) Apply(
	ctx context.Context,
	tx *sqlx.Tx,
	chainID uint64,
	logs []types.Log,
) (pkgmaterializer.Stats, error) {
	var stats pkgmaterializer.Stats

	insert := tx.Rebind(`
		INSERT INTO decoded_events
			(chain_id, tx_hash, log_index, block_number, block_hash, address, contract, event_name, args)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (chain_id, tx_hash, log_index) DO NOTHING`)

	for _, l := range logs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		watch, ok := m.watches.Lookup(chainID, l.Address)
		if !ok || l.BlockNumber < watch.StartBlock {
			stats.Unwatched++
			continue
		}

		contract, err := m.abis.Resolve(watch.ABIRef)
		if err != nil {
			return stats, fmt.Errorf("contract %s (%s): %w", watch.Name, watch.Address.Hex(), err)
		}

		ev, err := Decode(chainID, l, contract)
		switch {
		case errors.Is(err, ErrUnknownSelector):
			stats.UnknownSelector++
			metrics.LogsSkippedInc(chainID, "unknown_selector")
			m.log.Debugf("skipping log %s/%d of %s: %v", l.TxHash.Hex(), l.Index, watch.Name, err)
			continue
		case errors.Is(err, ErrMalformedLog):
			stats.Malformed++
			metrics.LogsSkippedInc(chainID, "malformed")
			m.log.Warnf("skipping log %s/%d of %s: %v", l.TxHash.Hex(), l.Index, watch.Name, err)
			continue
		case err != nil:
			return stats, err
		}
		ev.Contract = watch.Name

		args, err := json.Marshal(ev.Args)
		if err != nil {
			return stats, fmt.Errorf("failed to encode %s args: %w", ev.EventName, err)
		}

		res, err := tx.ExecContext(ctx, insert,
			chainID, ev.TxHash.Hex(), ev.LogIndex, ev.BlockNumber, ev.BlockHash.Hex(),
			db.AddressKey(ev.Address), ev.Contract, ev.EventName, string(args))
		if err != nil {
			return stats, fmt.Errorf("failed to store event %s/%d: %w", ev.TxHash.Hex(), ev.LogIndex, err)
		}

		if n, _ := res.RowsAffected(); n == 0 {
			stats.Duplicates++
			continue
		}

		if watch.Handler != "" {
			h, ok := m.handlers[watch.Handler]
			if !ok {
				return stats, fmt.Errorf("contract %s: unknown handler %q", watch.Name, watch.Handler)
			}
			if err := h.Handle(ctx, tx, ev); err != nil {
				return stats, fmt.Errorf("handler %s: %w", h.Name(), err)
			}
		}

		stats.Applied++
	}

	metrics.LogsIndexedInc(chainID, stats.Applied)

	return stats, nil
}

// ApplyFunc binds Apply to a checkpoint commit. stats, when not nil, receives the outcome.
func (m *Materializer) ApplyFunc(
	ctx context.Context,
	chainID uint64,
	logs []types.Log,
	stats *pkgmaterializer.Stats,
) pkgcheckpoint.TxFunc {
	return func(tx *sqlx.Tx) error {
		s, err := m.Apply(ctx, tx, chainID, logs)
		if stats != nil {
			*stats = s
		}
		return err
	}
}

// DeleteAbove removes decoded events and handler rows of chainID above block.
func (m *Materializer) DeleteAbove(ctx context.Context, tx *sqlx.Tx, chainID, block uint64) error {
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM decoded_events WHERE chain_id = ? AND block_number > ?`),
		chainID, block)
	if err != nil {
		return fmt.Errorf("failed to roll back decoded events above %d: %w", block, err)
	}

	for _, h := range m.order {
		if err := h.DeleteAbove(ctx, tx, chainID, block); err != nil {
			return fmt.Errorf("handler %s: %w", h.Name(), err)
		}
	}

	n, _ := res.RowsAffected()
	m.log.Infof("chain %d: removed %d decoded events above block %d", chainID, n, block)

	return nil
}
