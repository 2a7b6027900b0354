package rpc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/BuildersIndexer/internal/common"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	"github.com/goran-ethernal/BuildersIndexer/pkg/config"
	pkgrpc "github.com/goran-ethernal/BuildersIndexer/pkg/rpc"
	"golang.org/x/sync/errgroup"
)

// Compile-time check to ensure Transport implements pkgrpc.EthClient interface.
var _ pkgrpc.EthClient = (*Transport)(nil)

// TransportOptions configures failover behavior.
type TransportOptions struct {
	// CallTimeout bounds every single attempt.
	CallTimeout time.Duration
	// MaxSwitches bounds the number of endpoint attempts per call. 0 means twice the endpoint count.
	MaxSwitches int
	// InitialBackoff is the first backoff window of a failed endpoint.
	InitialBackoff time.Duration
	// MaxBackoff caps the backoff window.
	MaxBackoff time.Duration
}

// Transport multiplexes the RPC endpoints of one chain. Calls are spread by smooth
// weighted round-robin over endpoints that are not in backoff; every attempt waits
// on the chosen endpoint's token bucket; timeouts, rate limits and connection errors
// put the endpoint into exponential backoff and move the call to the next candidate.
type Transport struct {
	chainID   uint64
	chainIDL  string
	endpoints []*Endpoint
	opts      TransportOptions
	clock     Clock
	log       *logger.Logger

	// guards round-robin weights
	mu sync.Mutex
}

// NewTransport creates a transport over already constructed endpoints.
func NewTransport(
	chainID uint64,
	endpoints []*Endpoint,
	opts TransportOptions,
	clock Clock,
	log *logger.Logger,
) (*Transport, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("chain %d: at least one endpoint is required", chainID)
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	if opts.MaxSwitches <= 0 {
		opts.MaxSwitches = 2 * len(endpoints) //nolint:mnd
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 15 * time.Second //nolint:mnd
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = time.Second
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = opts.InitialBackoff
	}

	t := &Transport{
		chainID:   chainID,
		chainIDL:  strconv.FormatUint(chainID, 10),
		endpoints: endpoints,
		opts:      opts,
		clock:     clock,
		log:       log,
	}

	for _, ep := range endpoints {
		endpointHealthLog(t.chainIDL, ep.name, true)
	}

	return t, nil
}

// NewTransportFromConfig dials every configured endpoint of the chain.
func NewTransportFromConfig(
	ctx context.Context,
	chain config.ChainConfig,
	cfg config.TransportConfig,
	log *logger.Logger,
) (*Transport, error) {
	endpoints := make([]*Endpoint, 0, len(chain.Endpoints))

	for _, epCfg := range chain.Endpoints {
		client, err := NewClient(ctx, epCfg.URL)
		if err != nil {
			for _, ep := range endpoints {
				ep.client.Close()
			}
			return nil, err
		}

		endpoints = append(endpoints, NewEndpoint(EndpointOptions{
			URL:               epCfg.URL,
			Weight:            epCfg.Weight,
			RequestsPerSecond: epCfg.RequestsPerSecond,
			Burst:             epCfg.Burst,
			MaxConcurrent:     int64(cfg.MaxConcurrentPerEndpoint),
		}, client))
	}

	return NewTransport(chain.ChainID, endpoints, TransportOptions{
		CallTimeout:    cfg.CallTimeout.Duration,
		MaxSwitches:    cfg.MaxSwitches,
		InitialBackoff: cfg.InitialBackoff.Duration,
		MaxBackoff:     cfg.MaxBackoff.Duration,
	}, SystemClock{}, log.WithComponent(common.ComponentTransport))
}

// Call runs fn against one endpoint at a time until it succeeds, fails with a
// non-transport error, or the switch bound is reached (ErrTransportExhausted).
func (t *Transport) Call(ctx context.Context, method string, fn func(ctx context.Context, c pkgrpc.EthClient) error) error {
	var lastErr error

	for attempt := 1; attempt <= t.opts.MaxSwitches; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		ep, recoverIn := t.pick()
		if ep == nil {
			if attempt == t.opts.MaxSwitches {
				break
			}
			t.log.Debugf("chain %d: no healthy endpoint for %s, waiting %v", t.chainID, method, recoverIn)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.clock.After(recoverIn):
			}
			continue
		}

		err := t.attempt(ctx, ep, fn)
		if err == nil {
			if ep.markSuccess() {
				t.log.Infof("chain %d: endpoint %s recovered", t.chainID, ep.name)
			}
			endpointHealthLog(t.chainIDL, ep.name, true)
			attemptLog(t.chainIDL, ep.name, "success")
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		kind := classify(err)
		if kind == nil {
			attemptLog(t.chainIDL, ep.name, "request_error")
			return err
		}

		lastErr = &TransportError{Kind: kind, Endpoint: ep.name, Err: err}
		window := ep.markFailure(t.clock.Now(), t.opts.InitialBackoff, t.opts.MaxBackoff)
		endpointHealthLog(t.chainIDL, ep.name, false)
		attemptLog(t.chainIDL, ep.name, outcomeLabel(kind))

		t.log.Warnf("chain %d: %s failed on %s (attempt %d/%d), backing off for %v: %v",
			t.chainID, method, ep.name, attempt, t.opts.MaxSwitches, window, err)
	}

	exhaustedInc(t.chainIDL)

	if lastErr == nil {
		return fmt.Errorf("%w: chain %d: %s: no endpoint available", ErrTransportExhausted, t.chainID, method)
	}

	return fmt.Errorf("%w: chain %d: %s after %d attempts: %w",
		ErrTransportExhausted, t.chainID, method, t.opts.MaxSwitches, lastErr)
}

func (t *Transport) attempt(
	ctx context.Context,
	ep *Endpoint,
	fn func(ctx context.Context, c pkgrpc.EthClient) error,
) error {
	release, waited, err := ep.acquire(ctx, t.clock)
	if err != nil {
		return err
	}
	defer release()

	if waited > 0 {
		rateLimitWaitLog(t.chainIDL, ep.name, waited)
	}

	callCtx, cancel := context.WithTimeout(ctx, t.opts.CallTimeout)
	defer cancel()

	err = fn(callCtx, ep.client)
	if err != nil && callCtx.Err() != nil && ctx.Err() == nil {
		// the per-call deadline fired, report it as such whatever the client returned
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}

	return err
}

// pick selects the next healthy endpoint by smooth weighted round-robin.
// When none is healthy it returns nil and the time until the first one recovers.
func (t *Transport) pick() (*Endpoint, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()

	var (
		best     *Endpoint
		total    int
		earliest time.Time
	)

	for _, ep := range t.endpoints {
		if !ep.healthyAt(now) {
			if at := ep.recoversAt(); earliest.IsZero() || at.Before(earliest) {
				earliest = at
			}
			continue
		}

		ep.currentWeight += ep.weight
		total += ep.weight

		if best == nil || ep.currentWeight > best.currentWeight {
			best = ep
		}
	}

	if best == nil {
		return nil, earliest.Sub(now)
	}

	best.currentWeight -= total

	return best, 0
}

// Status returns a snapshot of every endpoint.
func (t *Transport) Status() []EndpointStatus {
	now := t.clock.Now()
	out := make([]EndpointStatus, 0, len(t.endpoints))

	for _, ep := range t.endpoints {
		out = append(out, ep.status(now))
	}

	return out
}

// VerifyChainID checks that every endpoint serves the configured chain.
func (t *Transport) VerifyChainID(ctx context.Context) error {
	for _, ep := range t.endpoints {
		callCtx, cancel := context.WithTimeout(ctx, t.opts.CallTimeout)
		id, err := ep.client.ChainID(callCtx)
		cancel()

		if err != nil {
			t.log.Warnf("chain %d: could not verify chain id of %s: %v", t.chainID, ep.name, err)
			continue
		}
		if id != t.chainID {
			return fmt.Errorf("endpoint %s serves chain %d, expected %d", ep.name, id, t.chainID)
		}
	}

	return nil
}

// Close closes every endpoint client.
func (t *Transport) Close() {
	for _, ep := range t.endpoints {
		ep.client.Close()
	}
}

// ChainID implements pkgrpc.EthClient.
func (t *Transport) ChainID(ctx context.Context) (id uint64, err error) {
	err = t.Call(ctx, "eth_chainId", func(ctx context.Context, c pkgrpc.EthClient) error {
		var e error
		id, e = c.ChainID(ctx)
		return e
	})

	return id, err
}

// GetLogs implements pkgrpc.EthClient.
func (t *Transport) GetLogs(ctx context.Context, query ethereum.FilterQuery) (logs []types.Log, err error) {
	err = t.Call(ctx, "eth_getLogs", func(ctx context.Context, c pkgrpc.EthClient) error {
		var e error
		logs, e = c.GetLogs(ctx, query)
		return e
	})

	return logs, err
}

// GetBlockHeader implements pkgrpc.EthClient.
func (t *Transport) GetBlockHeader(ctx context.Context, blockNum uint64) (*types.Header, error) {
	return t.header(ctx, "eth_getBlockByNumber", func(ctx context.Context, c pkgrpc.EthClient) (*types.Header, error) {
		return c.GetBlockHeader(ctx, blockNum)
	})
}

// GetLatestBlockHeader implements pkgrpc.EthClient.
func (t *Transport) GetLatestBlockHeader(ctx context.Context) (*types.Header, error) {
	return t.header(ctx, "eth_getBlockByNumber", func(ctx context.Context, c pkgrpc.EthClient) (*types.Header, error) {
		return c.GetLatestBlockHeader(ctx)
	})
}

// GetFinalizedBlockHeader implements pkgrpc.EthClient.
func (t *Transport) GetFinalizedBlockHeader(ctx context.Context) (*types.Header, error) {
	return t.header(ctx, "eth_getBlockByNumber", func(ctx context.Context, c pkgrpc.EthClient) (*types.Header, error) {
		return c.GetFinalizedBlockHeader(ctx)
	})
}

// GetSafeBlockHeader implements pkgrpc.EthClient.
func (t *Transport) GetSafeBlockHeader(ctx context.Context) (*types.Header, error) {
	return t.header(ctx, "eth_getBlockByNumber", func(ctx context.Context, c pkgrpc.EthClient) (*types.Header, error) {
		return c.GetSafeBlockHeader(ctx)
	})
}

func (t *Transport) header(
	ctx context.Context,
	method string,
	get func(ctx context.Context, c pkgrpc.EthClient) (*types.Header, error),
) (header *types.Header, err error) {
	err = t.Call(ctx, method, func(ctx context.Context, c pkgrpc.EthClient) error {
		var e error
		header, e = get(ctx, c)
		return e
	})

	return header, err
}

// BatchGetBlockHeaders splits the request into chunks and fetches them concurrently,
// so distinct healthy endpoints can serve parts of the same range.
func (t *Transport) BatchGetBlockHeaders(ctx context.Context, blockNums []uint64) ([]*types.Header, error) {
	if len(blockNums) == 0 {
		return nil, nil
	}

	headers := make([]*types.Header, len(blockNums))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(t.endpoints))

	for i := 0; i < len(blockNums); i += headersPerBatch {
		start, end := i, min(i+headersPerBatch, len(blockNums))

		g.Go(func() error {
			return t.Call(gctx, "eth_getBlockByNumber_batch", func(ctx context.Context, c pkgrpc.EthClient) error {
				chunk, err := c.BatchGetBlockHeaders(ctx, blockNums[start:end])
				if err != nil {
					return err
				}
				if len(chunk) != end-start {
					return fmt.Errorf("expected %d headers, got %d", end-start, len(chunk))
				}
				copy(headers[start:end], chunk)
				return nil
			})
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return headers, nil
}

func outcomeLabel(kind error) string {
	switch {
	case errors.Is(kind, ErrTimeout):
		return "timeout"
	case errors.Is(kind, ErrRateLimited):
		return "rate_limited"
	default:
		return "connection_error"
	}
}
