package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	icommon "github.com/goran-ethernal/BuildersIndexer/internal/common"
	"github.com/goran-ethernal/BuildersIndexer/internal/db"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	pkgregistry "github.com/goran-ethernal/BuildersIndexer/pkg/registry"
	"github.com/jmoiron/sqlx"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/russross/meddler"
)

// Compile-time check to ensure Registry implements pkgregistry.Registry interface.
var _ pkgregistry.Registry = (*Registry)(nil)

// ContractWatch is a type alias for the public ContractWatch type.
type ContractWatch = pkgregistry.ContractWatch

// Factory is a type alias for the public Factory type.
type Factory = pkgregistry.Factory

type watchKey struct {
	chainID uint64
	address common.Address
}

const watchColumns = `chain_id, address, name, abi_ref, handler, start_block, origin_factory, discovery_tx, created_at`

// Registry mirrors the contract_watches table in memory. The table is append-only
// apart from reorg pruning of discovered children, and (chain_id, address) is unique.
type Registry struct {
	db          *sqlx.DB
	log         *logger.Logger
	maintenance db.Maintenance
	now         func() time.Time

	watches   *xsync.Map[watchKey, ContractWatch]
	factories *xsync.Map[watchKey, Factory]
}

// New creates a registry over an already migrated database.
func New(database *sqlx.DB, log *logger.Logger, maintenance db.Maintenance) *Registry {
	if maintenance == nil {
		maintenance = &db.NoOpMaintenance{}
	}

	return &Registry{
		db:          database,
		log:         log.WithComponent(icommon.ComponentRegistry),
		maintenance: maintenance,
		now:         time.Now,
		watches:     xsync.NewMap[watchKey, ContractWatch](),
		factories:   xsync.NewMap[watchKey, Factory](),
	}
}

// RegisterStatic adds a configured contract. The first registration of (chain, address) wins.
func (r *Registry) RegisterStatic(ctx context.Context, w ContractWatch) (bool, error) {
	w.OriginFactory = nil
	w.DiscoveryTx = nil

	stored, inserted, err := r.insert(ctx, w)
	if err != nil {
		return false, err
	}

	if !inserted && (stored.StartBlock != w.StartBlock || stored.ABIRef != w.ABIRef) {
		r.log.Warnf("chain %d: %s (%s) is already registered from block %d, keeping the stored watch",
			w.ChainID, w.Name, w.Address.Hex(), stored.StartBlock)
	}

	return inserted, nil
}

// RegisterFactory registers the factory contract and remembers its child creation event.
func (r *Registry) RegisterFactory(ctx context.Context, f Factory) error {
	if f.ChildAddressArg == "" {
		return fmt.Errorf("factory %s: child address argument is required", f.Watch.Name)
	}

	if _, err := r.RegisterStatic(ctx, f.Watch); err != nil {
		return err
	}

	stored, _ := r.Lookup(f.Watch.ChainID, f.Watch.Address)
	f.Watch = stored
	r.factories.Store(watchKey{f.Watch.ChainID, f.Watch.Address}, f)

	return nil
}

// ChildWatch builds the watch of the child announced by log without registering it.
// The child starts at the log's block.
func (r *Registry) ChildWatch(f Factory, log types.Log) (ContractWatch, error) {
	child, err := f.ChildAddress(log)
	if err != nil {
		return ContractWatch{}, err
	}

	name := f.ChildName
	if name == "" {
		name = f.Watch.Name + "Child"
	}

	factoryAddr := f.Watch.Address
	txHash := log.TxHash

	return ContractWatch{
		ChainID:       f.Watch.ChainID,
		Address:       child,
		Name:          name,
		ABIRef:        f.ChildABIRef,
		Handler:       f.ChildHandler,
		StartBlock:    log.BlockNumber,
		OriginFactory: &factoryAddr,
		DiscoveryTx:   &txHash,
		CreatedAt:     r.now().Unix(),
	}, nil
}

// RegisterDynamic adds the child contract announced by log, starting at the log's block.
func (r *Registry) RegisterDynamic(ctx context.Context, f Factory, log types.Log) (ContractWatch, bool, error) {
	w, err := r.ChildWatch(f, log)
	if err != nil {
		return ContractWatch{}, false, err
	}

	stored, inserted, err := r.insert(ctx, w)
	if err != nil {
		return ContractWatch{}, false, err
	}

	if inserted {
		r.log.Infof("chain %d: discovered %s %s from factory %s at block %d",
			stored.ChainID, stored.Name, w.Address.Hex(), f.Watch.Address.Hex(), log.BlockNumber)
	}

	return stored, inserted, nil
}

// Stage makes a discovered child visible to CurrentFilterSet and Lookup without
// persisting it. It reports false when (chain, address) is already known. A staged
// child that is never persisted is dropped by Reload.
func (r *Registry) Stage(w ContractWatch) bool {
	_, loaded := r.watches.LoadOrStore(watchKey{w.ChainID, w.Address}, w)
	return !loaded
}

// RegisterDynamicTx persists a discovered child inside tx. The in-memory index is left
// alone; pair it with Stage, and Reload the chain if tx does not commit.
func (r *Registry) RegisterDynamicTx(ctx context.Context, tx *sqlx.Tx, w ContractWatch) (bool, error) {
	if !w.IsDynamic() {
		return false, fmt.Errorf("%s on chain %d has no origin factory", w.Address.Hex(), w.ChainID)
	}

	return insertWatch(ctx, tx, w)
}

func (r *Registry) insert(ctx context.Context, w ContractWatch) (ContractWatch, bool, error) {
	if w.CreatedAt == 0 {
		w.CreatedAt = r.now().Unix()
	}

	unlock := r.maintenance.AcquireOperationLock()
	inserted, err := insertWatch(ctx, r.db, w)
	unlock()
	if err != nil {
		return ContractWatch{}, false, err
	}

	if !inserted {
		stored, err := r.load(ctx, w.ChainID, w.Address)
		if err != nil {
			return ContractWatch{}, false, err
		}
		r.watches.Store(watchKey{w.ChainID, w.Address}, stored)
		return stored, false, nil
	}

	r.watches.Store(watchKey{w.ChainID, w.Address}, w)
	watchesLog(w.ChainID, r.count(w.ChainID))

	return w, true, nil
}

// insertWatch writes w unless (chain_id, address) is taken and reports whether it did.
func insertWatch(ctx context.Context, ext sqlx.ExtContext, w ContractWatch) (bool, error) {
	var origin, discovery any
	if w.OriginFactory != nil {
		origin = db.AddressKey(*w.OriginFactory)
	}
	if w.DiscoveryTx != nil {
		discovery = w.DiscoveryTx.Hex()
	}

	res, err := ext.ExecContext(ctx, ext.Rebind(`
		INSERT INTO contract_watches (`+watchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (chain_id, address) DO NOTHING`),
		w.ChainID, db.AddressKey(w.Address), w.Name, w.ABIRef, w.Handler, w.StartBlock, origin, discovery, w.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to register %s on chain %d: %w", w.Address.Hex(), w.ChainID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to register %s on chain %d: %w", w.Address.Hex(), w.ChainID, err)
	}

	return n > 0, nil
}

func (r *Registry) load(ctx context.Context, chainID uint64, addr common.Address) (ContractWatch, error) {
	if err := ctx.Err(); err != nil {
		return ContractWatch{}, err
	}

	var w ContractWatch
	err := meddler.QueryRow(r.db, &w, r.db.Rebind(`SELECT `+watchColumns+`
		FROM contract_watches WHERE chain_id = ? AND address = ?`), chainID, db.AddressKey(addr))
	if errors.Is(err, sql.ErrNoRows) {
		return ContractWatch{}, fmt.Errorf("watch %s on chain %d disappeared", addr.Hex(), chainID)
	}
	if err != nil {
		return ContractWatch{}, fmt.Errorf("failed to load watch %s on chain %d: %w", addr.Hex(), chainID, err)
	}

	return w, nil
}

// CurrentFilterSet returns every watch of chainID ordered by start block.
func (r *Registry) CurrentFilterSet(chainID uint64) []ContractWatch {
	var out []ContractWatch

	r.watches.Range(func(k watchKey, w ContractWatch) bool {
		if k.chainID == chainID {
			out = append(out, w)
		}
		return true
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartBlock != out[j].StartBlock {
			return out[i].StartBlock < out[j].StartBlock
		}
		return out[i].Address.Cmp(out[j].Address) < 0
	})

	return out
}

// Factories returns the factories of chainID.
func (r *Registry) Factories(chainID uint64) []Factory {
	var out []Factory

	r.factories.Range(func(k watchKey, f Factory) bool {
		if k.chainID == chainID {
			out = append(out, f)
		}
		return true
	})

	sort.Slice(out, func(i, j int) bool { return out[i].Watch.Address.Cmp(out[j].Watch.Address) < 0 })

	return out
}

// Lookup returns the watch of (chainID, addr).
func (r *Registry) Lookup(chainID uint64, addr common.Address) (ContractWatch, bool) {
	return r.watches.Load(watchKey{chainID, addr})
}

// PruneDynamicAbove deletes children discovered above block as part of a reorg rollback.
// If the surrounding transaction is rolled back the caller must Reload the chain.
func (r *Registry) PruneDynamicAbove(ctx context.Context, tx *sqlx.Tx, chainID, block uint64) error {
	res, err := tx.ExecContext(ctx, tx.Rebind(`
		DELETE FROM contract_watches
		WHERE chain_id = ? AND origin_factory IS NOT NULL AND start_block > ?`), chainID, block)
	if err != nil {
		return fmt.Errorf("failed to prune discovered contracts of chain %d: %w", chainID, err)
	}

	r.watches.Range(func(k watchKey, w ContractWatch) bool {
		if k.chainID == chainID && w.IsDynamic() && w.StartBlock > block {
			r.watches.Delete(k)
		}
		return true
	})

	if n, _ := res.RowsAffected(); n > 0 {
		r.log.Warnf("chain %d: forgot %d contracts discovered above block %d", chainID, n, block)
	}
	watchesLog(chainID, r.count(chainID))

	return nil
}

// Reload rebuilds the in-memory watches of chainID from the store.
func (r *Registry) Reload(ctx context.Context, chainID uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var rows []*ContractWatch
	err := meddler.QueryAll(r.db, &rows, r.db.Rebind(`SELECT `+watchColumns+`
		FROM contract_watches WHERE chain_id = ?`), chainID)
	if err != nil {
		return fmt.Errorf("failed to load watches of chain %d: %w", chainID, err)
	}

	keep := make(map[watchKey]struct{}, len(rows))
	for _, w := range rows {
		k := watchKey{chainID, w.Address}
		keep[k] = struct{}{}
		r.watches.Store(k, *w)
	}

	r.watches.Range(func(k watchKey, _ ContractWatch) bool {
		if _, ok := keep[k]; !ok && k.chainID == chainID {
			r.watches.Delete(k)
		}
		return true
	})

	watchesLog(chainID, len(rows))
	r.log.Debugf("chain %d: loaded %d watches", chainID, len(rows))

	return nil
}

func (r *Registry) count(chainID uint64) int {
	n := 0
	r.watches.Range(func(k watchKey, _ ContractWatch) bool {
		if k.chainID == chainID {
			n++
		}
		return true
	})

	return n
}
