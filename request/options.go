package request

import (
	"time"

	"github.com/xraph/tierq/sla"
)

// Options configures per-submission behavior such as tier, deadline
// override, and metadata.
type Options struct {
	// Tier is the service tier the submission is charged against.
	Tier sla.Tier

	// Timeout overrides the tier's execution deadline. Zero keeps the
	// tier default.
	Timeout time.Duration

	// Category is an optional agent/operation grouping tag.
	Category string

	// Metadata is attached to the request verbatim.
	Metadata map[string]string
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Tier: sla.TierFree,
	}
}

// Option is a functional option for configuring a submission.
type Option func(*Options)

// WithTier sets the service tier for the submission.
func WithTier(t sla.Tier) Option {
	return func(o *Options) {
		o.Tier = t
	}
}

// WithTimeout overrides the tier's execution deadline for this request.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithCategory tags the request with an agent/operation category.
func WithCategory(c string) Option {
	return func(o *Options) {
		o.Category = c
	}
}

// WithMetadata attaches caller metadata to the request.
func WithMetadata(md map[string]string) Option {
	return func(o *Options) {
		o.Metadata = md
	}
}
