package schedule

import (
	"context"
	"time"

	"golang.org/x/net/html"
)

const (
	DefaultBatchSize   = 50
	DefaultStepBudget  = 50 * time.Millisecond
	DefaultIdleTimeout = 2 * time.Second
)

// BatchFunc processes one batch and returns how many matches it produced.
type BatchFunc func(batch []*html.Node) int

// Scheduler slices a node list into batches and runs them across steps.
type Scheduler struct {
	BatchSize   int
	StepBudget  time.Duration
	IdleTimeout time.Duration
	Strategy    Strategy
}

// New returns a Scheduler with default timings.
func New(strategy Strategy) *Scheduler {
	return &Scheduler{
		BatchSize:   DefaultBatchSize,
		StepBudget:  DefaultStepBudget,
		IdleTimeout: DefaultIdleTimeout,
		Strategy:    strategy,
	}
}

func (s *Scheduler) batchSize() int {
	if s.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return s.BatchSize
}

// strategy falls back to the timer strategy when none is set.
func (s *Scheduler) strategy() Strategy {
	if s.Strategy == nil {
		return NewTimerStrategy()
	}
	return s.Strategy
}

// Run visits every node in order and returns the summed count.
//
// Lists of at most two batches run synchronously. Longer lists run one step
// per granted window: each step runs at least one batch and keeps going while
// the window has time left and StepBudget is not spent. A timed-out window
// runs exactly one batch. ctx is checked between steps only.
func (s *Scheduler) Run(ctx context.Context, nodes []*html.Node, fn BatchFunc) (int, error) {
	size := s.batchSize()
	total := 0
	if len(nodes) <= 2*size {
		for i := 0; i < len(nodes); i += size {
			total += fn(nodes[i:min(i+size, len(nodes))])
		}
		return total, nil
	}

	strategy := s.strategy()
	idx := 0
	for idx < len(nodes) {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		dl, err := strategy.Wait(ctx, s.IdleTimeout)
		if err != nil {
			return total, err
		}
		start := time.Now()
		for {
			end := min(idx+size, len(nodes))
			total += fn(nodes[idx:end])
			idx = end
			if idx >= len(nodes) || dl.DidTimeout() || dl.TimeRemaining() <= 0 {
				break
			}
			if s.StepBudget > 0 && time.Since(start) >= s.StepBudget {
				break
			}
		}
	}
	return total, nil
}
