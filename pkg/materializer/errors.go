package materializer

import "errors"

var (
	// ErrUnknownSelector is returned when a log's topic0 matches no event of the contract ABI.
	ErrUnknownSelector = errors.New("unknown event selector")

	// ErrMalformedLog is returned when a log matches an event but its topics or data cannot be decoded.
	ErrMalformedLog = errors.New("malformed log")
)
