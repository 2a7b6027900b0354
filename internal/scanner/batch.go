package scanner

import "github.com/goran-ethernal/BuildersIndexer/pkg/config"

// adaptiveBatch sizes block ranges: it halves after repeated transport trouble and
// grows additively after a run of clean ranges.
type adaptiveBatch struct {
	size        uint64
	min         uint64
	max         uint64
	step        uint64
	growAfter   int
	shrinkAfter int

	clean    int
	failures int
}

func newAdaptiveBatch(cfg config.ScannerConfig) *adaptiveBatch {
	minSize := max(cfg.MinBatchSize, 1)
	maxSize := max(cfg.MaxBatchSize, minSize)

	return &adaptiveBatch{
		size:        min(max(cfg.BatchSize, minSize), maxSize),
		min:         minSize,
		max:         maxSize,
		step:        cfg.BatchStep,
		growAfter:   max(cfg.GrowAfter, 1),
		shrinkAfter: max(cfg.ShrinkAfter, 1),
	}
}

// Size returns the number of blocks of the next range.
func (b *adaptiveBatch) Size() uint64 {
	return b.size
}

// OnClean records a range that was applied without transport trouble.
func (b *adaptiveBatch) OnClean() {
	b.failures = 0
	b.clean++

	if b.clean >= b.growAfter {
		b.clean = 0
		b.size = min(b.size+b.step, b.max)
	}
}

// OnTransient records a timeout, rate limit or exhausted transport.
func (b *adaptiveBatch) OnTransient() {
	b.clean = 0
	b.failures++

	if b.failures >= b.shrinkAfter {
		b.failures = 0
		b.size = max(b.size/2, b.min)
	}
}

// OnRangeTooLarge caps the size at a range the provider accepted.
func (b *adaptiveBatch) OnRangeTooLarge(accepted uint64) {
	b.clean = 0
	b.size = max(min(b.size, accepted), b.min)
}
