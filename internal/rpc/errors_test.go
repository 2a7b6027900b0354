package rpc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// providerDataError mimics the JSON-RPC error type go-ethereum returns when the
// response carries a data field.
type providerDataError struct {
	data any
}

func (e providerDataError) Error() string  { return "provider error" }
func (e providerDataError) ErrorData() any { return e.data }

const alchemyTooMany = "Query returned more than 10000 results. Try with this block range [0x12a05f2, 0x12a0a1c]."

func TestIsTooManyResultsError(t *testing.T) {
	ok, data := IsTooManyResultsError(providerDataError{data: alchemyTooMany})
	require.True(t, ok)
	require.Equal(t, alchemyTooMany, data)

	ok, data = IsTooManyResultsError(providerDataError{data: "header not found"})
	require.False(t, ok)
	require.Equal(t, "header not found", data)

	ok, _ = IsTooManyResultsError(errors.New(alchemyTooMany))
	require.False(t, ok, "only data errors carry the suggestion")

	ok, _ = IsTooManyResultsError(nil)
	require.False(t, ok)
}

func TestIsRangeTooLargeError(t *testing.T) {
	tooLarge := []error{
		providerDataError{data: alchemyTooMany},
		errors.New("eth_getLogs block range is too large, max is 2000"),
		errors.New("Block range is too wide"),
		errors.New("query exceeds max results 20000, retry with the range 100-150"),
		fmt.Errorf("fetch logs: %w", errors.New("log response size exceeded")),
		errors.New("exceed maximum block range: 50000"),
	}
	for _, err := range tooLarge {
		require.True(t, IsRangeTooLargeError(err), err.Error())
	}

	for _, err := range []error{nil, errors.New("execution reverted"), ErrTimeout} {
		require.False(t, IsRangeTooLargeError(err))
	}
}

func TestParseSuggestedBlockRange(t *testing.T) {
	from, to, ok := ParseSuggestedBlockRange(alchemyTooMany)
	require.True(t, ok)
	require.Equal(t, uint64(0x12a05f2), from)
	require.Equal(t, uint64(0x12a0a1c), to)

	from, to, ok = ParseSuggestedBlockRange("try [0x10,0x20]")
	require.True(t, ok)
	require.Equal(t, uint64(16), from)
	require.Equal(t, uint64(32), to)

	for _, msg := range []string{"", "try a smaller range", "[0x10]", "[10, 20]"} {
		_, _, ok := ParseSuggestedBlockRange(msg)
		require.False(t, ok, msg)
	}
}

func TestTransportError(t *testing.T) {
	cause := errors.New("429 Too Many Requests")
	err := &TransportError{Kind: ErrRateLimited, Endpoint: "alchemy", Err: cause}

	require.Equal(t, "alchemy: rpc rate limited: 429 Too Many Requests", err.Error())
	require.ErrorIs(t, err, ErrRateLimited)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, ErrTimeout)

	wrapped := fmt.Errorf("%w: last error: %w", ErrTransportExhausted, err)
	require.True(t, IsTransient(wrapped))

	var te *TransportError
	require.ErrorAs(t, wrapped, &te)
	require.Equal(t, "alchemy", te.Endpoint)
}
