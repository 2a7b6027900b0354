package registry

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	pkgconfig "github.com/goran-ethernal/BuildersIndexer/pkg/config"
)

// ABIResolver resolves a watch's ABI reference.
type ABIResolver interface {
	Resolve(ref string) (*abi.ABI, error)
}

// RegisterConfigured registers every configured contract, factories included, and then
// loads the children discovered by earlier runs of each chain.
func (r *Registry) RegisterConfigured(ctx context.Context, cfg *pkgconfig.Config, abis ABIResolver) error {
	for i := range cfg.Contracts {
		c := &cfg.Contracts[i]

		w, err := watchOf(cfg, c)
		if err != nil {
			return err
		}

		if _, err := abis.Resolve(w.ABIRef); err != nil {
			return fmt.Errorf("contract %s: %w", c.Name, err)
		}

		if c.Factory == nil {
			if _, err := r.RegisterStatic(ctx, w); err != nil {
				return fmt.Errorf("contract %s: %w", c.Name, err)
			}
			continue
		}

		f, err := factoryOf(w, c.Factory, abis)
		if err != nil {
			return fmt.Errorf("contract %s: %w", c.Name, err)
		}
		if err := r.RegisterFactory(ctx, f); err != nil {
			return fmt.Errorf("contract %s: %w", c.Name, err)
		}
	}

	for _, chain := range cfg.Chains {
		if err := r.Reload(ctx, chain.ChainID); err != nil {
			return err
		}
		r.log.Infof("chain %d (%s): watching %d contracts", chain.ChainID, chain.Name, r.count(chain.ChainID))
	}

	return nil
}

func watchOf(cfg *pkgconfig.Config, c *pkgconfig.ContractConfig) (ContractWatch, error) {
	chain, ok := cfg.ChainByName(c.Chain)
	if !ok {
		return ContractWatch{}, fmt.Errorf("contract %s: unknown chain %q", c.Name, c.Chain)
	}
	if !common.IsHexAddress(c.Address) {
		return ContractWatch{}, fmt.Errorf("contract %s: invalid address %q", c.Name, c.Address)
	}

	return ContractWatch{
		ChainID:    chain.ChainID,
		Address:    common.HexToAddress(c.Address),
		Name:       c.Name,
		ABIRef:     c.ABIRef(),
		Handler:    c.Handler,
		StartBlock: c.StartBlock,
	}, nil
}

func factoryOf(w ContractWatch, fc *pkgconfig.FactoryConfig, abis ABIResolver) (Factory, error) {
	parsed, err := abis.Resolve(w.ABIRef)
	if err != nil {
		return Factory{}, err
	}

	ev, ok := parsed.Events[fc.Event]
	if !ok {
		return Factory{}, fmt.Errorf("factory event %q not found in %s", fc.Event, w.ABIRef)
	}

	if _, err := abis.Resolve(fc.ChildABI); err != nil {
		return Factory{}, fmt.Errorf("child abi: %w", err)
	}

	return Factory{
		Watch:           w,
		Event:           ev,
		ChildAddressArg: fc.ChildAddressArg,
		ChildName:       w.Name + "Child",
		ChildABIRef:     fc.ChildABI,
		ChildHandler:    fc.ChildHandler,
	}, nil
}
