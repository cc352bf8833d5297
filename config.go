package tierq

import "time"

// Config holds configuration for the Scheduler.
type Config struct {
	// MaxWorkers is the global bound on simultaneously running handler
	// executions, across all tiers and users.
	MaxWorkers int

	// AgingInterval is how often queued priorities are rescored.
	AgingInterval time.Duration

	// OverduePenalty is subtracted from a request's priority once its
	// wait exceeds the tier's MaxWait, forcing near-immediate dispatch.
	OverduePenalty int

	// RateWindow is the span of the per-user sliding rate-limit window.
	RateWindow time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxWorkers:      10,
		AgingInterval:   1 * time.Second,
		OverduePenalty:  1000,
		RateWindow:      time.Minute,
		ShutdownTimeout: 30 * time.Second,
	}
}
