package scanner

import (
	"context"
	"errors"
	"sort"

	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	"github.com/goran-ethernal/BuildersIndexer/internal/reorg"
	"golang.org/x/sync/errgroup"
)

// Group runs one scanner per chain. A chain halting on a fatal condition stops only
// its own scanner.
type Group struct {
	scanners []*Scanner
	log      *logger.Logger
}

// NewGroup creates a group over scanners.
func NewGroup(log *logger.Logger, scanners ...*Scanner) *Group {
	return &Group{scanners: scanners, log: log}
}

// Run blocks until ctx is cancelled.
func (g *Group) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	for _, s := range g.scanners {
		eg.Go(func() error {
			err := s.Run(ctx)
			switch {
			case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return nil
			case errors.Is(err, reorg.ErrReorgExceedsSearchDepth):
				g.log.Errorf("scanner of chain %d halted: %v", s.ChainID(), err)
				return nil
			default:
				return err
			}
		})
	}

	return eg.Wait()
}

// Statuses returns the status of every chain ordered by chain id.
func (g *Group) Statuses() []Status {
	out := make([]Status, 0, len(g.scanners))
	for _, s := range g.scanners {
		out = append(out, s.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })

	return out
}
