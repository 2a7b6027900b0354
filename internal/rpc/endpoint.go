package rpc

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	pkgrpc "github.com/goran-ethernal/BuildersIndexer/pkg/rpc"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// EndpointOptions configures a single endpoint.
type EndpointOptions struct {
	URL               string
	Weight            int
	RequestsPerSecond float64 // 0 disables rate limiting
	Burst             int
	MaxConcurrent     int64
}

// Endpoint is one RPC endpoint of a chain together with its token bucket,
// concurrency cap and health state. Health is only mutated by the Transport.
type Endpoint struct {
	url     string
	name    string
	weight  int
	client  pkgrpc.EthClient
	limiter *rate.Limiter
	slots   *semaphore.Weighted

	mu            sync.Mutex
	failures      int
	backoffUntil  time.Time
	currentWeight int
}

// EndpointStatus is a snapshot of an endpoint for status reporting.
type EndpointStatus struct {
	URL          string    `json:"url"`
	Weight       int       `json:"weight"`
	Healthy      bool      `json:"healthy"`
	Failures     int       `json:"failures"`
	BackoffUntil time.Time `json:"backoff_until,omitempty"`
}

// NewEndpoint wraps client with the rate limit and concurrency cap from opts.
func NewEndpoint(opts EndpointOptions, client pkgrpc.EthClient) *Endpoint {
	weight := opts.Weight
	if weight <= 0 {
		weight = 1
	}

	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Endpoint{
		url:     opts.URL,
		name:    endpointName(opts.URL),
		weight:  weight,
		client:  client,
		limiter: limiter,
		slots:   semaphore.NewWeighted(maxConcurrent),
	}
}

// URL returns the endpoint URL.
func (e *Endpoint) URL() string {
	return e.url
}

// healthyAt reports whether the endpoint is out of backoff at now.
func (e *Endpoint) healthyAt(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return !now.Before(e.backoffUntil)
}

func (e *Endpoint) recoversAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.backoffUntil
}

// markFailure puts the endpoint into backoff and returns the window length.
func (e *Endpoint) markFailure(now time.Time, initial, maxBackoff time.Duration) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.failures++
	window := backoffWindow(e.failures, initial, maxBackoff)
	e.backoffUntil = now.Add(window)

	return window
}

// markSuccess clears the failure streak and reports whether there was one.
func (e *Endpoint) markSuccess() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	recovered := e.failures > 0
	e.failures = 0
	e.backoffUntil = time.Time{}

	return recovered
}

// acquire waits for a token and a concurrency slot. The returned function releases the slot.
func (e *Endpoint) acquire(ctx context.Context, clock Clock) (func(), time.Duration, error) {
	waited, err := e.waitToken(ctx, clock)
	if err != nil {
		return nil, waited, err
	}

	if err := e.slots.Acquire(ctx, 1); err != nil {
		return nil, waited, err
	}

	return func() { e.slots.Release(1) }, waited, nil
}

// waitToken blocks until the endpoint's token bucket grants one request.
// Every attempt goes through here, retries included.
func (e *Endpoint) waitToken(ctx context.Context, clock Clock) (time.Duration, error) {
	if e.limiter == nil {
		return 0, nil
	}

	now := clock.Now()
	r := e.limiter.ReserveN(now, 1)
	if !r.OK() {
		return 0, fmt.Errorf("endpoint %s: rate limiter cannot grant a request", e.name)
	}

	delay := r.DelayFrom(now)
	if delay <= 0 {
		return 0, nil
	}

	select {
	case <-ctx.Done():
		r.CancelAt(clock.Now())
		return 0, ctx.Err()
	case <-clock.After(delay):
		return delay, nil
	}
}

func (e *Endpoint) status(now time.Time) EndpointStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := EndpointStatus{
		URL:      e.name,
		Weight:   e.weight,
		Healthy:  !now.Before(e.backoffUntil),
		Failures: e.failures,
	}
	if !s.Healthy {
		s.BackoffUntil = e.backoffUntil
	}

	return s
}

// endpointName strips credentials and paths so the endpoint can be logged and used as a metric label.
func endpointName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	return u.Host
}
