package rpc

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/goran-ethernal/BuildersIndexer/internal/common"
)

var (
	// ErrTransportExhausted is returned when no endpoint served a call within the switch bound.
	ErrTransportExhausted = errors.New("transport exhausted")

	// ErrTimeout marks an attempt that exceeded its deadline.
	ErrTimeout = errors.New("rpc timeout")

	// ErrRateLimited marks an attempt rejected by the provider's rate limiting.
	ErrRateLimited = errors.New("rpc rate limited")

	// ErrConnectionRefused marks an attempt that could not reach the endpoint
	// or got a transient server error back.
	ErrConnectionRefused = errors.New("rpc connection refused")
)

// TransportError is a single endpoint failure. Kind is one of ErrTimeout,
// ErrRateLimited or ErrConnectionRefused.
type TransportError struct {
	Kind     error
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Endpoint, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// IsTransient reports whether err comes from endpoint trouble (timeouts, rate limits,
// connectivity or exhaustion) rather than from the request itself.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrConnectionRefused) ||
		errors.Is(err, ErrTransportExhausted)
}

var (
	tooManyResultsRe  = regexp.MustCompile(`Query returned more than \d+ results`)
	suggestedRangeRe  = regexp.MustCompile(`\[(0x[0-9a-fA-F]+),\s*(0x[0-9a-fA-F]+)\]`)
	providerRangeErrs = regexp.MustCompile(`(?i)(block range is too (large|wide)|range exceeds|exceed maximum block range|` +
		`query exceeds max results|log response size exceeded)`)
)

// IsTooManyResultsError checks if the error is an RPC "too many results" error (DataError with message in ErrorData).
func IsTooManyResultsError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		errData := fmt.Sprintf("%v", dataErr.ErrorData())
		return tooManyResultsRe.MatchString(errData), errData
	}

	return false, ""
}

// IsRangeTooLargeError reports whether the provider rejected an eth_getLogs call
// because of the size of the requested block range or of its result.
func IsRangeTooLargeError(err error) bool {
	if err == nil {
		return false
	}

	if ok, _ := IsTooManyResultsError(err); ok {
		return true
	}

	return providerRangeErrs.MatchString(err.Error())
}

// ParseSuggestedBlockRange attempts to extract the suggested block range from the error message.
// Returns the suggested fromBlock and toBlock, and true if successfully parsed.
// Expected format: "Query returned more than 20000 results. Try with this block range [0x7dfd25, 0x7e0fcc]."
func ParseSuggestedBlockRange(err string) (fromBlock, toBlock uint64, ok bool) {
	if err == "" {
		return 0, 0, false
	}

	matches := suggestedRangeRe.FindStringSubmatch(err)

	const expectedMatches = 3 // full match + 2 groups
	if len(matches) != expectedMatches {
		return 0, 0, false
	}

	from, err1 := common.ParseUint64orHex(&matches[1])
	to, err2 := common.ParseUint64orHex(&matches[2])

	if err1 != nil || err2 != nil {
		return 0, 0, false
	}

	return from, to, true
}
