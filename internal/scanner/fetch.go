package scanner

import (
	"cmp"
	"context"
	"fmt"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/BuildersIndexer/internal/rpc"
	itypes "github.com/goran-ethernal/BuildersIndexer/internal/types"
	pkgregistry "github.com/goran-ethernal/BuildersIndexer/pkg/registry"
)

// head returns the highest block the scanner may index under the chain's finality.
func (s *Scanner) head(ctx context.Context) (uint64, error) {
	return itypes.Finality(s.chain.Finality).Head(ctx, s.RPC, s.chain.Confirmations)
}

// fetchedRange is the outcome of fetching one block range.
type fetchedRange struct {
	logs []types.Log
	to   uint64
	// children were discovered in the range. They are staged in the registry and
	// persisted with the range's commit.
	children []pkgregistry.ContractWatch
}

// fetchRange returns the logs of every watch in [from, to]. A provider rejecting the range
// as too large shrinks it, so the returned end may be lower than to. Child contracts
// announced by factories inside the range are staged and their logs from the
// announcing block onwards are fetched too. The staged children are returned even on error.
func (s *Scanner) fetchRange(ctx context.Context, from, to uint64) (fetchedRange, error) {
	watches := s.Registry.CurrentFilterSet(s.chain.ChainID)
	addrs := watchedAddresses(watches, to)
	if len(addrs) == 0 {
		return fetchedRange{to: to}, nil
	}

	logs, end, err := s.getLogs(ctx, from, to, addrs)
	if err != nil {
		return fetchedRange{}, err
	}
	if end < to {
		s.batch.OnRangeTooLarge(end - from + 1)
		to = end
	}

	logs = slices.DeleteFunc(logs, func(l types.Log) bool { return l.Removed })
	sortLogs(logs)

	children, err := s.discover(logs)
	if err != nil {
		return fetchedRange{children: children}, err
	}

	for _, child := range children {
		childLogs, err := s.getLogsCovering(ctx, max(child.StartBlock, from), to, []common.Address{child.Address})
		if err != nil {
			return fetchedRange{children: children},
				fmt.Errorf("failed to fetch logs of discovered contract %s: %w", child.Address.Hex(), err)
		}
		logs = append(logs, slices.DeleteFunc(childLogs, func(l types.Log) bool { return l.Removed })...)
	}

	if len(children) > 0 {
		sortLogs(logs)
	}

	return fetchedRange{logs: logs, to: to, children: children}, nil
}

// discover stages the children announced by factory logs and returns the new ones.
// Nothing is persisted until the range commits.
func (s *Scanner) discover(logs []types.Log) ([]pkgregistry.ContractWatch, error) {
	factories := s.Registry.Factories(s.chain.ChainID)
	if len(factories) == 0 {
		return nil, nil
	}

	var children []pkgregistry.ContractWatch
	for _, l := range logs {
		for _, f := range factories {
			if !f.IsChildCreation(l) {
				continue
			}

			child, err := s.Registry.ChildWatch(f, l)
			if err != nil {
				return children, fmt.Errorf("failed to read child of %s: %w", f.Watch.Name, err)
			}
			if s.Registry.Stage(child) {
				s.log.Debugf("staged %s at %s from %s in block %d",
					child.Name, child.Address.Hex(), f.Watch.Name, l.BlockNumber)
				children = append(children, child)
			}
		}
	}

	return children, nil
}

// getLogs fetches [from, to], shrinking the range while the provider rejects it as too large.
// It returns the logs and the end of the range actually fetched.
func (s *Scanner) getLogs(ctx context.Context, from, to uint64, addrs []common.Address) ([]types.Log, uint64, error) {
	for {
		logs, err := s.RPC.GetLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(from),
			ToBlock:   new(big.Int).SetUint64(to),
			Addresses: addrs,
		})
		if err == nil {
			return logs, to, nil
		}

		if !rpc.IsRangeTooLargeError(err) || from == to {
			return nil, 0, fmt.Errorf("failed to get logs %d-%d: %w", from, to, err)
		}

		next := from + (to-from)/2
		if ok, data := rpc.IsTooManyResultsError(err); ok {
			if sFrom, sTo, ok := rpc.ParseSuggestedBlockRange(data); ok && sFrom == from && sTo >= from && sTo < to {
				next = sTo
			}
		}

		s.log.Debugf("chain %d: range %d-%d too large, retrying %d-%d", s.chain.ChainID, from, to, from, next)
		to = next
	}
}

// getLogsCovering fetches the whole of [from, to] in as many requests as the provider needs.
func (s *Scanner) getLogsCovering(ctx context.Context, from, to uint64, addrs []common.Address) ([]types.Log, error) {
	var out []types.Log

	for from <= to {
		logs, end, err := s.getLogs(ctx, from, to, addrs)
		if err != nil {
			return nil, err
		}
		out = append(out, logs...)
		from = end + 1
	}

	return out, nil
}

// watchedAddresses returns the addresses of watches that started at or before to.
func watchedAddresses(watches []pkgregistry.ContractWatch, to uint64) []common.Address {
	addrs := make([]common.Address, 0, len(watches))
	for _, w := range watches {
		if w.StartBlock <= to {
			addrs = append(addrs, w.Address)
		}
	}

	return addrs
}

func sortLogs(logs []types.Log) {
	slices.SortFunc(logs, func(a, b types.Log) int {
		if c := cmp.Compare(a.BlockNumber, b.BlockNumber); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
}
