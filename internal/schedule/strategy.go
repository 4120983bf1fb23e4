// Package schedule runs batch work in idle windows so a long pass never holds
// a document for more than one step at a time.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultFrame is the interval of the shared frame clock.
	DefaultFrame = 16 * time.Millisecond
	// DefaultIdleBudget is the length of an idle window.
	DefaultIdleBudget = 50 * time.Millisecond
	// TimerDelay is the deferral of the timer strategy.
	TimerDelay = time.Millisecond
	// TimerBudget is the window the timer strategy assumes it has.
	TimerBudget = 50 * time.Millisecond
)

// Strategy names accepted by NewStrategy.
const (
	Idle  = "idle"
	Timer = "timer"
)

// ErrUnknownStrategy is returned by NewStrategy for unsupported names.
var ErrUnknownStrategy = errors.New("unknown scheduling strategy")

// Deadline describes the window granted to one step.
type Deadline interface {
	// TimeRemaining is how long the step may keep working; 0 when exhausted.
	TimeRemaining() time.Duration
	// DidTimeout reports that the window was forced by the wait timeout
	// rather than granted by the host.
	DidTimeout() bool
}

// Strategy yields to the host until it grants a window or timeout elapses.
type Strategy interface {
	Wait(ctx context.Context, timeout time.Duration) (Deadline, error)
}

type window struct {
	end      time.Time
	timedOut bool
}

func (w window) TimeRemaining() time.Duration {
	if w.timedOut {
		return 0
	}
	if r := time.Until(w.end); r > 0 {
		return r
	}
	return 0
}

func (w window) DidTimeout() bool { return w.timedOut }

// frameClock is shared by every IdleStrategy in the process, so concurrent
// passes compete for the same idle windows.
var frameClock = rate.NewLimiter(rate.Every(DefaultFrame), 1)

// IdleStrategy grants a window each time the frame clock has a free slot.
type IdleStrategy struct {
	limiter *rate.Limiter
	budget  time.Duration
}

// NewIdleStrategy returns an idle strategy with the given window length.
// A nil limiter selects the process-wide frame clock.
func NewIdleStrategy(budget time.Duration, limiter *rate.Limiter) *IdleStrategy {
	if limiter == nil {
		limiter = frameClock
	}
	if budget <= 0 {
		budget = DefaultIdleBudget
	}
	return &IdleStrategy{limiter: limiter, budget: budget}
}

// Wait blocks for the next frame slot. When no slot is available before
// timeout it waits the timeout out and returns a timed-out deadline.
func (s *IdleStrategy) Wait(ctx context.Context, timeout time.Duration) (Deadline, error) {
	wctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := s.limiter.Wait(wctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		<-wctx.Done()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return window{timedOut: true}, nil
	}
	return window{end: time.Now().Add(s.budget)}, nil
}

// TimerStrategy defers each step by a fixed delay and assumes a fixed budget.
type TimerStrategy struct {
	Delay  time.Duration
	Budget time.Duration
}

// NewTimerStrategy returns the fallback strategy with its default timings.
func NewTimerStrategy() *TimerStrategy {
	return &TimerStrategy{Delay: TimerDelay, Budget: TimerBudget}
}

// Wait sleeps for Delay. The timeout is ignored: the delay is always shorter.
func (s *TimerStrategy) Wait(ctx context.Context, _ time.Duration) (Deadline, error) {
	t := time.NewTimer(s.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.C:
	}
	return window{end: time.Now().Add(s.Budget)}, nil
}

// NewStrategy selects a strategy by name.
func NewStrategy(name string) (Strategy, error) {
	switch name {
	case Idle, "":
		return NewIdleStrategy(DefaultIdleBudget, nil), nil
	case Timer:
		return NewTimerStrategy(), nil
	default:
		return nil, fmt.Errorf("schedule: %w: %q", ErrUnknownStrategy, name)
	}
}
