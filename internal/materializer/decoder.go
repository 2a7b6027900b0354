package materializer

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
	pkgmaterializer "github.com/goran-ethernal/BuildersIndexer/pkg/materializer"
)

var (
	ErrUnknownSelector = pkgmaterializer.ErrUnknownSelector
	ErrMalformedLog    = pkgmaterializer.ErrMalformedLog
)

// Decode decodes log against contract and returns the event name and its arguments
// normalized for storage. Provenance fields are filled from the log.
func Decode(chainID uint64, log types.Log, contract *abi.ABI) (pkgmaterializer.DecodedEvent, error) {
	ev := pkgmaterializer.DecodedEvent{
		ChainID:     chainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash,
		TxHash:      log.TxHash,
		LogIndex:    log.Index,
		Address:     log.Address,
	}

	if len(log.Topics) == 0 {
		return ev, fmt.Errorf("%w: log %s/%d has no topics", ErrUnknownSelector, log.TxHash.Hex(), log.Index)
	}

	event, err := contract.EventByID(log.Topics[0])
	if err != nil {
		return ev, fmt.Errorf("%w: %s", ErrUnknownSelector, log.Topics[0].Hex())
	}

	var indexed abi.Arguments
	for _, in := range event.Inputs {
		if in.Indexed {
			indexed = append(indexed, in)
		}
	}

	if len(log.Topics)-1 != len(indexed) {
		return ev, fmt.Errorf("%w: %s expects %d indexed topics, got %d",
			ErrMalformedLog, event.Name, len(indexed), len(log.Topics)-1)
	}

	args := make(map[string]any, len(event.Inputs))
	if err := abi.ParseTopicsIntoMap(args, indexed, log.Topics[1:]); err != nil {
		return ev, fmt.Errorf("%w: %s topics: %w", ErrMalformedLog, event.Name, err)
	}
	if err := event.Inputs.UnpackIntoMap(args, log.Data); err != nil {
		return ev, fmt.Errorf("%w: %s data: %w", ErrMalformedLog, event.Name, err)
	}

	ev.EventName = event.Name
	ev.Args = pkgmaterializer.NormalizeArgs(args)

	return ev, nil
}
