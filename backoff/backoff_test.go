package backoff_test

import (
	"testing"
	"time"

	"github.com/xraph/tierq/backoff"
)

func TestConstant_ReturnsFixedDelay(t *testing.T) {
	c := backoff.NewConstant(50 * time.Millisecond)
	for idle := 1; idle <= 10; idle++ {
		if got := c.Next(idle); got != 50*time.Millisecond {
			t.Errorf("Next(%d) = %v, want %v", idle, got, 50*time.Millisecond)
		}
	}
}

func TestLinear_GrowsLinearly(t *testing.T) {
	l := backoff.NewLinear(10*time.Millisecond, time.Second)

	tests := []struct {
		idle int
		want time.Duration
	}{
		{1, 10 * time.Millisecond},
		{2, 20 * time.Millisecond},
		{3, 30 * time.Millisecond},
		{5, 50 * time.Millisecond},
		{10, 100 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := l.Next(tt.idle); got != tt.want {
			t.Errorf("Next(%d) = %v, want %v", tt.idle, got, tt.want)
		}
	}
}

func TestLinear_CapsAtMax(t *testing.T) {
	l := backoff.NewLinear(10*time.Millisecond, 50*time.Millisecond)

	if got := l.Next(10); got != 50*time.Millisecond {
		t.Errorf("Next(10) = %v, want %v (capped at Max)", got, 50*time.Millisecond)
	}
	if got := l.Next(100); got != 50*time.Millisecond {
		t.Errorf("Next(100) = %v, want %v (capped at Max)", got, 50*time.Millisecond)
	}
}

func TestExponential_DoublesEachIdlePoll(t *testing.T) {
	e := backoff.NewExponential(10*time.Millisecond, time.Minute)

	tests := []struct {
		idle int
		want time.Duration
	}{
		{1, 10 * time.Millisecond},  // 10ms * 2^0
		{2, 20 * time.Millisecond},  // 10ms * 2^1
		{3, 40 * time.Millisecond},  // 10ms * 2^2
		{4, 80 * time.Millisecond},  // 10ms * 2^3
		{5, 160 * time.Millisecond}, // 10ms * 2^4
	}
	for _, tt := range tests {
		if got := e.Next(tt.idle); got != tt.want {
			t.Errorf("Next(%d) = %v, want %v", tt.idle, got, tt.want)
		}
	}
}

func TestExponential_CapsAtMax(t *testing.T) {
	e := backoff.NewExponential(10*time.Millisecond, 100*time.Millisecond)

	// Idle 5 = 160ms > 100ms max → should return 100ms.
	if got := e.Next(5); got != 100*time.Millisecond {
		t.Errorf("Next(5) = %v, want %v (capped at Max)", got, 100*time.Millisecond)
	}
	if got := e.Next(20); got != 100*time.Millisecond {
		t.Errorf("Next(20) = %v, want %v (capped at Max)", got, 100*time.Millisecond)
	}
}

func TestExponentialWithJitter_WithinBounds(t *testing.T) {
	e := backoff.NewExponentialWithJitter(10*time.Millisecond, 100*time.Millisecond)

	for idle := 1; idle <= 5; idle++ {
		maxDelay := 100 * time.Millisecond // capped at Max

		for range 100 {
			got := e.Next(idle)
			if got < 0 {
				t.Errorf("Next(%d) = %v, should be >= 0", idle, got)
			}
			if got > maxDelay {
				t.Errorf("Next(%d) = %v, should be <= %v", idle, got, maxDelay)
			}
		}
	}
}

func TestExponentialWithJitter_ProducesVariance(t *testing.T) {
	e := backoff.NewExponentialWithJitter(10*time.Millisecond, time.Second)

	// Collect 100 samples for idle 3 and check they're not all the same.
	seen := make(map[time.Duration]bool)
	for range 100 {
		d := e.Next(3)
		seen[d] = true
	}

	// With jitter, we should see many distinct values.
	if len(seen) < 2 {
		t.Errorf("expected variance in jitter, got only %d distinct values", len(seen))
	}
}

func TestDefaultStrategy_BoundedLatency(t *testing.T) {
	s := backoff.DefaultStrategy()
	if s == nil {
		t.Fatal("DefaultStrategy() returned nil")
	}

	if d := s.Next(1); d <= 0 || d > 250*time.Millisecond {
		t.Errorf("Next(1) = %v, want in (0, 250ms]", d)
	}
	// After many idle polls the delay stays capped so new work is picked
	// up quickly.
	if d := s.Next(50); d != 250*time.Millisecond {
		t.Errorf("Next(50) = %v, want %v", d, 250*time.Millisecond)
	}
}
