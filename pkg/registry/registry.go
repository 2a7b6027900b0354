package registry

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/jmoiron/sqlx"
)

// ContractWatch is one contract whose logs are indexed from StartBlock on.
// OriginFactory is set for contracts discovered from a factory event.
// Uses meddler tags for automatic struct-to-db mapping.
type ContractWatch struct {
	ChainID       uint64          `meddler:"chain_id" json:"chain_id"`
	Address       common.Address  `meddler:"address,address" json:"address"`
	Name          string          `meddler:"name" json:"name"`
	ABIRef        string          `meddler:"abi_ref" json:"abi_ref"`
	Handler       string          `meddler:"handler" json:"handler,omitempty"`
	StartBlock    uint64          `meddler:"start_block" json:"start_block"`
	OriginFactory *common.Address `meddler:"origin_factory,address" json:"origin_factory,omitempty"`
	DiscoveryTx   *common.Hash    `meddler:"discovery_tx,hash" json:"discovery_tx,omitempty"`
	CreatedAt     int64           `meddler:"created_at" json:"created_at"`
}

// IsDynamic reports whether the watch was discovered at runtime.
func (w ContractWatch) IsDynamic() bool {
	return w.OriginFactory != nil
}

// Factory is a watched contract whose Event announces new child contracts.
type Factory struct {
	Watch           ContractWatch
	Event           abi.Event
	ChildAddressArg string
	ChildName       string
	ChildABIRef     string
	ChildHandler    string
}

// IsChildCreation reports whether log is the factory's child creation event.
func (f Factory) IsChildCreation(log types.Log) bool {
	return log.Address == f.Watch.Address && len(log.Topics) > 0 && log.Topics[0] == f.Event.ID
}

// ChildAddress extracts the child contract address from a child creation log.
func (f Factory) ChildAddress(log types.Log) (common.Address, error) {
	if !f.IsChildCreation(log) {
		return common.Address{}, fmt.Errorf("log %s/%d is not a %s event of %s",
			log.TxHash.Hex(), log.Index, f.Event.Name, f.Watch.Address.Hex())
	}

	args := make(map[string]any)

	var indexed abi.Arguments
	for _, in := range f.Event.Inputs {
		if in.Indexed {
			indexed = append(indexed, in)
		}
	}
	if err := abi.ParseTopicsIntoMap(args, indexed, log.Topics[1:]); err != nil {
		return common.Address{}, fmt.Errorf("failed to parse %s topics: %w", f.Event.Name, err)
	}
	if err := f.Event.Inputs.UnpackIntoMap(args, log.Data); err != nil {
		return common.Address{}, fmt.Errorf("failed to unpack %s data: %w", f.Event.Name, err)
	}

	addr, ok := args[f.ChildAddressArg].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s has no address argument %q", f.Event.Name, f.ChildAddressArg)
	}

	return addr, nil
}

// Registry is the set of watched contracts per chain.
type Registry interface {
	// RegisterStatic adds a configured contract. It reports false when (chain, address)
	// was already registered, in which case the first registration is kept.
	RegisterStatic(ctx context.Context, w ContractWatch) (bool, error)

	// RegisterFactory registers the factory contract itself and remembers how to discover its children.
	RegisterFactory(ctx context.Context, f Factory) error

	// RegisterDynamic adds the child announced by log. The child's start block is the
	// block of the announcing log.
	RegisterDynamic(ctx context.Context, f Factory, log types.Log) (ContractWatch, bool, error)

	// ChildWatch builds the watch of the child announced by log without registering it.
	ChildWatch(f Factory, log types.Log) (ContractWatch, error)

	// Stage makes a discovered child visible in memory only. It reports false when
	// (chain, address) is already known.
	Stage(w ContractWatch) bool

	// RegisterDynamicTx persists a discovered child inside tx without touching the
	// in-memory index. Callers Reload the chain when tx does not commit.
	RegisterDynamicTx(ctx context.Context, tx *sqlx.Tx, w ContractWatch) (bool, error)

	// CurrentFilterSet returns every watch of chainID.
	CurrentFilterSet(chainID uint64) []ContractWatch

	// Factories returns the factories of chainID.
	Factories(chainID uint64) []Factory

	// Lookup returns the watch of (chainID, addr).
	Lookup(chainID uint64, addr common.Address) (ContractWatch, bool)

	// PruneDynamicAbove removes children discovered above block, inside the rollback transaction.
	PruneDynamicAbove(ctx context.Context, tx *sqlx.Tx, chainID, block uint64) error

	// Reload rebuilds the in-memory index of chainID from the store.
	Reload(ctx context.Context, chainID uint64) error
}
