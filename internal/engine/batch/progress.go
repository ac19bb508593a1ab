package batch

import (
	"sync"
	"time"
)

// percentMultiplier is used to convert a ratio to percentage (0-100).
const percentMultiplier = 100

// Progress tracks how far a run has got through its worklist.
// Reads are safe from other goroutines while the engine writes.
type Progress struct {
	// TotalItems is the worklist length.
	TotalItems int

	// ProcessedItems counts items whose Action returned successfully.
	ProcessedItems int

	// MutatedItems counts items whose Action reported a mutation.
	MutatedItems int

	// StartTime is when the run started.
	StartTime time.Time

	// LastUpdateTime is when progress was last updated.
	LastUpdateTime time.Time

	mu  sync.RWMutex
	now func() time.Time
}

// NewProgress creates a progress tracker for totalItems.
func NewProgress(totalItems int) *Progress {
	return newProgressWithClock(totalItems, time.Now)
}

func newProgressWithClock(totalItems int, now func() time.Time) *Progress {
	start := now()
	return &Progress{
		TotalItems:     totalItems,
		StartTime:      start,
		LastUpdateTime: start,
		now:            now,
	}
}

// AddProcessed marks one more item done.
func (p *Progress) AddProcessed(mutated bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ProcessedItems++
	if mutated {
		p.MutatedItems++
	}
	p.LastUpdateTime = p.now()
}

// PercentComplete returns the completion percentage (0-100).
func (p *Progress) PercentComplete() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.percentCompleteUnsafe()
}

// IsComplete returns true if all items have been processed.
func (p *Progress) IsComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.ProcessedItems >= p.TotalItems
}

// ElapsedTime returns the time elapsed since the run started.
func (p *Progress) ElapsedTime() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.now().Sub(p.StartTime)
}

// EstimatedTimeRemaining extrapolates from the average time per item so far.
// Returns 0 if no items have been processed yet.
func (p *Progress) EstimatedTimeRemaining() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.estimatedRemainingUnsafe()
}

// ItemsPerSecond returns the processing rate in items per second.
func (p *Progress) ItemsPerSecond() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.itemsPerSecondUnsafe()
}

// Snapshot returns a copy of the current progress state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return ProgressSnapshot{
		TotalItems:             p.TotalItems,
		ProcessedItems:         p.ProcessedItems,
		MutatedItems:           p.MutatedItems,
		StartTime:              p.StartTime,
		LastUpdateTime:         p.LastUpdateTime,
		PercentComplete:        p.percentCompleteUnsafe(),
		ElapsedTime:            p.now().Sub(p.StartTime),
		ItemsPerSecond:         p.itemsPerSecondUnsafe(),
		EstimatedTimeRemaining: p.estimatedRemainingUnsafe(),
	}
}

// ProgressSnapshot is an immutable snapshot of progress state.
type ProgressSnapshot struct {
	TotalItems             int
	ProcessedItems         int
	MutatedItems           int
	StartTime              time.Time
	LastUpdateTime         time.Time
	PercentComplete        float64
	ElapsedTime            time.Duration
	ItemsPerSecond         float64
	EstimatedTimeRemaining time.Duration
}

// Should only be called when already holding the lock.
func (p *Progress) percentCompleteUnsafe() float64 {
	if p.TotalItems == 0 {
		return 0
	}
	return (float64(p.ProcessedItems) / float64(p.TotalItems)) * percentMultiplier
}

// Should only be called when already holding the lock.
func (p *Progress) itemsPerSecondUnsafe() float64 {
	elapsed := p.now().Sub(p.StartTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(p.ProcessedItems) / elapsed
}

// Should only be called when already holding the lock.
func (p *Progress) estimatedRemainingUnsafe() time.Duration {
	if p.ProcessedItems == 0 {
		return 0
	}
	elapsed := p.now().Sub(p.StartTime)
	avgTimePerItem := elapsed / time.Duration(p.ProcessedItems)
	remaining := p.TotalItems - p.ProcessedItems
	if remaining < 0 {
		remaining = 0
	}
	return avgTimePerItem * time.Duration(remaining)
}
