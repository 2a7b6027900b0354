package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goran-ethernal/BuildersIndexer/internal/common"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	"github.com/goran-ethernal/BuildersIndexer/internal/metrics"
	"github.com/goran-ethernal/BuildersIndexer/internal/reorg"
	"github.com/goran-ethernal/BuildersIndexer/internal/rpc"
	pkgcheckpoint "github.com/goran-ethernal/BuildersIndexer/pkg/checkpoint"
	"github.com/goran-ethernal/BuildersIndexer/pkg/config"
	pkgmaterializer "github.com/goran-ethernal/BuildersIndexer/pkg/materializer"
	pkgregistry "github.com/goran-ethernal/BuildersIndexer/pkg/registry"
	pkgreorg "github.com/goran-ethernal/BuildersIndexer/pkg/reorg"
	pkgrpc "github.com/goran-ethernal/BuildersIndexer/pkg/rpc"
	"github.com/jmoiron/sqlx"
)

// errRangeRetry signals a range that must be fetched again after the poll interval.
var errRangeRetry = errors.New("range must be retried")

// Deps are the collaborators of a chain scanner.
type Deps struct {
	RPC          pkgrpc.EthClient
	Registry     pkgregistry.Registry
	Store        pkgcheckpoint.Store
	Detector     pkgreorg.Detector
	Materializer pkgmaterializer.Materializer
}

// Scanner indexes one chain: it moves its checkpoint forward one block range at a time,
// committing a range only after its logs were validated against the canonical chain
// and materialized, and rolls back to the common ancestor when the chain reorganizes.
type Scanner struct {
	chain config.ChainConfig
	cfg   config.ScannerConfig
	Deps

	batch *adaptiveBatch
	log   *logger.Logger

	mu     sync.RWMutex
	status Status
	fatal  error
}

// New creates a scanner for chain.
func New(chain config.ChainConfig, cfg config.ScannerConfig, deps Deps, log *logger.Logger) (*Scanner, error) {
	if deps.RPC == nil || deps.Registry == nil || deps.Store == nil || deps.Detector == nil || deps.Materializer == nil {
		return nil, errors.New("scanner requires rpc, registry, store, detector and materializer")
	}

	s := &Scanner{
		chain: chain,
		cfg:   cfg,
		Deps:  deps,
		batch: newAdaptiveBatch(cfg),
		log:   log.WithComponent(common.ComponentScanner).WithChain(chain.Name, chain.ChainID),
		status: Status{
			ChainID: chain.ChainID,
			Chain:   chain.Name,
			State:   StateIdle,
		},
	}
	s.status.BatchSize = s.batch.Size()

	return s, nil
}

// ChainID returns the chain the scanner indexes.
func (s *Scanner) ChainID() uint64 {
	return s.chain.ChainID
}

// State returns the current state of the scanner.
func (s *Scanner) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status.State
}

// Status returns a snapshot of the scanner.
func (s *Scanner) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status
}

// Run scans until ctx is cancelled or the chain halts on a fatal condition.
func (s *Scanner) Run(ctx context.Context) error {
	s.log.Infof("starting scanner for chain %d (finality %s, batch %d)", s.chain.ChainID, s.chain.Finality, s.batch.Size())

	for {
		if err := ctx.Err(); err != nil {
			s.log.Info("scanner stopped")
			return err
		}

		progressed, err := s.Step(ctx)

		var wait time.Duration
		switch {
		case err == nil && progressed:
			continue
		case err == nil:
			wait = s.cfg.PollInterval.Duration
		case ctx.Err() != nil:
			s.log.Info("scanner stopped")
			return ctx.Err()
		case s.isFatal():
			return err
		case errors.Is(err, rpc.ErrTransportExhausted):
			wait = s.cfg.ExhaustedCooldown.Duration
		default:
			wait = s.cfg.PollInterval.Duration
		}

		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
	}
}

// Step processes at most one block range. It reports whether the checkpoint moved
// (forward or back); false with a nil error means the scanner has caught up with the head.
func (s *Scanner) Step(ctx context.Context) (bool, error) {
	if err := s.fatalErr(); err != nil {
		return false, err
	}

	progressed, err := s.step(ctx)
	s.setState(StateIdle)

	switch {
	case err == nil:
		s.clearHalt()
	case ctx.Err() != nil:
		return false, ctx.Err()
	case errors.Is(err, errRangeRetry):
		s.log.Warnf("%v", err)
		return false, nil
	case errors.Is(err, reorg.ErrReorgExceedsSearchDepth):
		s.halt(err, true)
		metrics.ErrorsInc(common.ComponentScanner, "fatal")
		s.log.Errorf("chain %d halted, operator intervention required: %v", s.chain.ChainID, err)
	case errors.Is(err, rpc.ErrTransportExhausted):
		s.batch.OnTransient()
		s.halt(err, false)
		metrics.ErrorsInc(common.ComponentScanner, "error")
		s.log.Errorf("chain %d paused for %s: %v", s.chain.ChainID, s.cfg.ExhaustedCooldown, err)
	default:
		if rpc.IsTransient(err) {
			s.batch.OnTransient()
		}
		s.recordError(err)
		metrics.ErrorsInc(common.ComponentScanner, "error")
		s.log.Errorf("chain %d: range failed: %v", s.chain.ChainID, err)
	}

	metrics.BatchSizeSet(s.chain.ChainID, s.batch.Size())
	s.mu.Lock()
	s.status.BatchSize = s.batch.Size()
	s.mu.Unlock()

	return progressed, err
}

func (s *Scanner) step(ctx context.Context) (bool, error) {
	cp, err := s.Store.Load(ctx, s.chain.ChainID)
	if err != nil {
		return false, err
	}

	from, ok := s.nextBlock(cp)
	if !ok {
		return false, nil
	}

	head, err := s.head(ctx)
	if err != nil {
		return false, err
	}
	s.setHead(head)
	if from > head {
		return false, nil
	}

	to := min(from+s.batch.Size()-1, head)
	start := time.Now()

	s.setState(StateFetching)
	fetched, err := s.fetchRange(ctx, from, to)
	committed := false
	defer func() {
		if len(fetched.children) > 0 && !committed {
			s.forgetStaged(ctx, fetched.children)
		}
	}()
	if err != nil {
		return false, err
	}
	logs, to := fetched.logs, fetched.to

	s.setState(StateValidating)
	validated, err := s.Detector.Validate(ctx, cp, from, to, logs)
	switch {
	case reorg.IsReorg(err):
		s.setState(StateReorg)
		if err := s.rollback(ctx, *cp); err != nil {
			return false, err
		}
		return true, nil
	case errors.Is(err, reorg.ErrRangeInconsistent):
		return false, fmt.Errorf("%w: %d-%d: %w", errRangeRetry, from, to, err)
	case err != nil:
		return false, err
	}

	s.setState(StateApplying)
	var stats pkgmaterializer.Stats
	err = s.Store.Commit(ctx, s.chain.ChainID, validated.Tip, validated.Blocks, func(tx *sqlx.Tx) error {
		for _, child := range fetched.children {
			if _, err := s.Registry.RegisterDynamicTx(ctx, tx, child); err != nil {
				return err
			}
		}
		return s.Materializer.ApplyFunc(ctx, s.chain.ChainID, logs, &stats)(tx)
	})
	if err != nil {
		return false, err
	}
	committed = true

	for _, child := range fetched.children {
		s.log.Infof("discovered %s at %s in block %d", child.Name, child.Address.Hex(), child.StartBlock)
	}

	s.batch.OnClean()
	s.setCheckpoint(to)

	metrics.LastIndexedBlockSet(s.chain.ChainID, to)
	metrics.BlocksProcessedInc(s.chain.ChainID, to-from+1)
	metrics.BlockProcessingTimeLog(s.chain.ChainID, time.Since(start))

	s.log.Infof("chain %d: indexed blocks %d-%d: %d logs, %d applied, %d duplicates, %d skipped",
		s.chain.ChainID, from, to, len(logs), stats.Applied, stats.Duplicates, stats.UnknownSelector+stats.Malformed+stats.Unwatched)

	if to > s.cfg.MaxReorgDepth {
		if err := s.Store.PruneBelow(ctx, s.chain.ChainID, to-s.cfg.MaxReorgDepth); err != nil {
			s.log.Warnf("failed to prune block hashes: %v", err)
		}
	}

	return true, nil
}

// nextBlock returns the first block of the next range.
func (s *Scanner) nextBlock(cp *pkgcheckpoint.Checkpoint) (uint64, bool) {
	if cp != nil {
		return cp.BlockNumber + 1, true
	}

	start, ok := s.startBlock()
	return start, ok
}

// startBlock is the lowest start block among the chain's watches.
func (s *Scanner) startBlock() (uint64, bool) {
	watches := s.Registry.CurrentFilterSet(s.chain.ChainID)
	if len(watches) == 0 {
		return 0, false
	}

	start := watches[0].StartBlock
	for _, w := range watches[1:] {
		start = min(start, w.StartBlock)
	}

	return start, true
}

// rollback rewinds the chain to the common ancestor of the stored and canonical chains:
// records and discovered contracts above it are removed and the checkpoint rewritten
// in one transaction.
func (s *Scanner) rollback(ctx context.Context, cp pkgcheckpoint.Checkpoint) error {
	floor := uint64(0)
	if start, ok := s.startBlock(); ok && start > 0 {
		floor = start - 1
	}

	ancestor, err := s.Detector.FindAncestor(ctx, cp, floor)
	if err != nil {
		return err
	}

	err = s.Store.Rollback(ctx, s.chain.ChainID, ancestor, func(tx *sqlx.Tx) error {
		if err := s.Materializer.DeleteAbove(ctx, tx, s.chain.ChainID, ancestor.Number); err != nil {
			return err
		}
		return s.Registry.PruneDynamicAbove(ctx, tx, s.chain.ChainID, ancestor.Number)
	})
	if err != nil {
		if reloadErr := s.Registry.Reload(ctx, s.chain.ChainID); reloadErr != nil {
			s.log.Errorf("failed to reload watches after failed rollback: %v", reloadErr)
		}
		return fmt.Errorf("rollback to %d failed: %w", ancestor.Number, err)
	}

	s.setCheckpoint(ancestor.Number)
	metrics.RollbackInc(s.chain.ChainID)
	s.log.Warnf("chain %d: rolled back from %d to common ancestor %d, resuming at %d",
		s.chain.ChainID, cp.BlockNumber, ancestor.Number, ancestor.Number+1)

	return nil
}

// forgetStaged drops children staged by a range that did not commit.
func (s *Scanner) forgetStaged(ctx context.Context, children []pkgregistry.ContractWatch) {
	if err := s.Registry.Reload(context.WithoutCancel(ctx), s.chain.ChainID); err != nil {
		s.log.Errorf("failed to drop %d staged contracts: %v", len(children), err)
		return
	}
	s.log.Debugf("chain %d: dropped %d contracts discovered in an uncommitted range", s.chain.ChainID, len(children))
}

func (s *Scanner) setState(state State) {
	s.mu.Lock()
	if s.status.State != StateHalted || state != StateIdle {
		s.status.State = state
	}
	s.status.UpdatedAt = time.Now()
	current := s.status.State
	s.mu.Unlock()

	metrics.ScannerStateSet(s.chain.ChainID, string(current), allStates)
}

func (s *Scanner) setHead(head uint64) {
	metrics.ChainHeadSet(s.chain.ChainID, head)

	s.mu.Lock()
	s.status.Head = head
	s.mu.Unlock()
}

func (s *Scanner) setCheckpoint(block uint64) {
	s.mu.Lock()
	s.status.Checkpoint = block
	s.mu.Unlock()
}

func (s *Scanner) recordError(err error) {
	s.mu.Lock()
	s.status.LastError = err.Error()
	s.mu.Unlock()
}

// halt marks the chain not ready. A fatal halt is permanent.
func (s *Scanner) halt(err error, fatal bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.State = StateHalted
	s.status.Halted = true
	s.status.Fatal = fatal
	s.status.HaltReason = err.Error()
	s.status.LastError = err.Error()
	s.status.UpdatedAt = time.Now()

	if fatal {
		s.fatal = err
	}
}

func (s *Scanner) clearHalt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fatal != nil || !s.status.Halted {
		return
	}

	s.status.State = StateIdle
	s.status.Halted = false
	s.status.HaltReason = ""
	s.log.Infof("chain %d resumed", s.chain.ChainID)
}

func (s *Scanner) fatalErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.fatal
}

func (s *Scanner) isFatal() bool {
	return s.fatalErr() != nil
}
