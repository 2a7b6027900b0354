package rpc

import (
	"context"
	"errors"
	"io"
	"math"
	"net"
	"strings"
	"syscall"
	"time"
)

// classify maps an attempt error to a transport failure kind.
// It returns nil when the error is not caused by the endpoint, in which case
// switching endpoints would not help.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	if IsRangeTooLargeError(err) {
		return nil
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "exceeded the quota") {
		return ErrRateLimited
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}

	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") {
		return ErrTimeout
	}

	if errors.As(err, &netErr) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.EOF) {
		return ErrConnectionRefused
	}

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "unexpected eof") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "bad gateway") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "no available connection") {
		return ErrConnectionRefused
	}

	return nil
}

// backoffWindow returns how long an endpoint stays out of rotation after its
// n-th consecutive failure: initial, 2*initial, 4*initial... capped at maxBackoff.
func backoffWindow(failures int, initial, maxBackoff time.Duration) time.Duration {
	if failures <= 0 {
		return 0
	}

	backoff := float64(initial) * math.Pow(2, float64(failures-1)) //nolint:mnd
	if backoff > float64(maxBackoff) || math.IsInf(backoff, 1) {
		return maxBackoff
	}

	return time.Duration(backoff)
}
