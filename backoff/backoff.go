// Package backoff provides pluggable idle-delay strategies for the dispatch
// loop. When the queue yields no dispatchable request, the loop sleeps for a
// strategy-determined delay before polling again; the delay grows with
// consecutive idle polls and resets as soon as work is found.
// All strategies are safe for concurrent use (they are stateless).
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before the next poll after n consecutive
// idle polls (1-indexed). Poll 1 is the first empty poll.
type Strategy interface {
	Next(idle int) time.Duration
}

// ──────────────────────────────────────────────────
// Constant
// ──────────────────────────────────────────────────

// Constant always returns the same delay regardless of how long the queue
// has been empty.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant idle-delay strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Next returns the fixed interval.
func (c *Constant) Next(_ int) time.Duration {
	return c.Interval
}

// ──────────────────────────────────────────────────
// Linear
// ──────────────────────────────────────────────────

// Linear increases the delay linearly with consecutive idle polls.
// Next = min(Initial * idle, Max).
type Linear struct {
	Initial time.Duration
	Max     time.Duration
}

// NewLinear creates a linear idle-delay strategy.
func NewLinear(initial, maxDelay time.Duration) *Linear {
	return &Linear{Initial: initial, Max: maxDelay}
}

// Next returns Initial * idle, capped at Max.
func (l *Linear) Next(idle int) time.Duration {
	d := l.Initial * time.Duration(idle)
	if l.Max > 0 && d > l.Max {
		return l.Max
	}
	return d
}

// ──────────────────────────────────────────────────
// Exponential
// ──────────────────────────────────────────────────

// Exponential doubles the delay with each consecutive idle poll.
// Next = min(Initial * 2^(idle-1), Max).
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponential creates an exponential idle-delay strategy.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

// Next returns Initial * 2^(idle-1), capped at Max.
func (e *Exponential) Next(idle int) time.Duration {
	d := time.Duration(float64(e.Initial) * math.Pow(2, float64(idle-1)))
	if e.Max > 0 && d > e.Max {
		return e.Max
	}
	return d
}

// ──────────────────────────────────────────────────
// ExponentialWithJitter (full jitter)
// ──────────────────────────────────────────────────

// ExponentialWithJitter applies full jitter to an exponential base.
// Next = random value in [0, min(Initial * 2^(idle-1), Max)].
// Jitter desynchronizes pollers when several scheduler instances share an
// upstream signal.
type ExponentialWithJitter struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponentialWithJitter creates an exponential idle-delay strategy with
// full jitter.
func NewExponentialWithJitter(initial, maxDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{Initial: initial, Max: maxDelay}
}

// Next returns a random duration in [0, min(Initial * 2^(idle-1), Max)].
func (e *ExponentialWithJitter) Next(idle int) time.Duration {
	base := float64(e.Initial) * math.Pow(2, float64(idle-1))
	if e.Max > 0 && base > float64(e.Max) {
		base = float64(e.Max)
	}
	return time.Duration(rand.Float64() * base) //nolint:gosec // jitter intentionally uses non-crypto rand
}

// ──────────────────────────────────────────────────
// Default
// ──────────────────────────────────────────────────

// DefaultStrategy returns the default idle back-off used by the dispatch
// loop: Exponential with 10ms initial and 250ms max. The cap keeps
// dispatch latency bounded when work arrives after a long idle stretch.
func DefaultStrategy() Strategy {
	return NewExponential(10*time.Millisecond, 250*time.Millisecond)
}
