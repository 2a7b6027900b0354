package types

import (
	"context"
	"fmt"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	pkgrpc "github.com/goran-ethernal/BuildersIndexer/pkg/rpc"
)

// Finality selects which block a chain is scanned up to.
type Finality string

const (
	FinalityFinalized Finality = "finalized"
	FinalitySafe      Finality = "safe"
	FinalityLatest    Finality = "latest"
)

func (f Finality) String() string {
	return string(f)
}

// IsValid reports whether f is a known finality.
func (f Finality) IsValid() bool {
	switch f {
	case FinalityFinalized, FinalitySafe, FinalityLatest:
		return true
	default:
		return false
	}
}

// ParseFinality parses s, treating an empty value as latest.
func ParseFinality(s string) (Finality, error) {
	if s == "" {
		return FinalityLatest, nil
	}

	f := Finality(s)
	if !f.IsValid() {
		return "", fmt.Errorf("invalid finality %q (must be one of: finalized, safe, latest)", s)
	}

	return f, nil
}

// Head returns the highest block that may be scanned. Confirmations only apply to
// latest, whose head is lowered by them and floors at zero.
func (f Finality) Head(ctx context.Context, src pkgrpc.HeadReader, confirmations uint64) (uint64, error) {
	var (
		header *ethtypes.Header
		err    error
	)

	switch f {
	case FinalityFinalized:
		header, err = src.GetFinalizedBlockHeader(ctx)
	case FinalitySafe:
		header, err = src.GetSafeBlockHeader(ctx)
	case FinalityLatest, "":
		header, err = src.GetLatestBlockHeader(ctx)
	default:
		return 0, fmt.Errorf("invalid finality %q", string(f))
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get %s block: %w", f, err)
	}

	n := header.Number.Uint64()
	if f == FinalityFinalized || f == FinalitySafe {
		return n, nil
	}
	if n < confirmations {
		return 0, nil
	}

	return n - confirmations, nil
}
