// Package sla defines the service-level tiers and the catalog mapping each
// tier to its scheduling parameters: base urgency, aging boost, quotas,
// rate limits, and execution deadlines.
package sla

import (
	"fmt"
	"strings"
	"time"
)

// Tier is a named service-level category. Tiers are strictly ranked by
// urgency; Platinum is the most urgent.
type Tier string

// The five tiers, in urgency order.
const (
	TierPlatinum Tier = "platinum"
	TierGold     Tier = "gold"
	TierSilver   Tier = "silver"
	TierBronze   Tier = "bronze"
	TierFree     Tier = "free"
)

// tierRanks maps each tier to its urgency rank (0 = most urgent).
var tierRanks = map[Tier]int{
	TierPlatinum: 0,
	TierGold:     1,
	TierSilver:   2,
	TierBronze:   3,
	TierFree:     4,
}

// rankSpread separates adjacent tiers in base-priority space, leaving
// room for aging to promote a waiting request past the tier above it.
const rankSpread = 100

// Valid reports whether t is one of the five known tiers.
func (t Tier) Valid() bool {
	_, ok := tierRanks[t]
	return ok
}

// Rank returns the tier's urgency rank (0 = most urgent). Unknown tiers
// rank alongside Free.
func (t Tier) Rank() int {
	if r, ok := tierRanks[t]; ok {
		return r
	}
	return tierRanks[TierFree]
}

// BasePriority returns the fixed priority assigned to a request at
// creation time. Lower numeric value means more urgent.
func (t Tier) BasePriority() int {
	return t.Rank() * rankSpread
}

// Parse converts a case-insensitive tier name into a Tier.
func Parse(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("sla: unknown tier %q", s)
	}
	return t, nil
}

// Config holds the scheduling parameters for one tier. A Config is
// immutable once the catalog is built.
type Config struct {
	// Tier is the tier this config applies to.
	Tier Tier `json:"tier"`

	// MaxWait is how long a request may wait before the overdue penalty
	// forces it to the front of the queue.
	MaxWait time.Duration `json:"max_wait"`

	// PriorityBoost is the urgency gained per second of waiting.
	PriorityBoost float64 `json:"priority_boost"`

	// MaxConcurrent caps a single user's in-flight requests.
	MaxConcurrent int `json:"max_concurrent"`

	// DailyQuota caps a single user's admissions per UTC day.
	// Zero means unlimited.
	DailyQuota int `json:"daily_quota"`

	// RatePerMinute caps a single user's admissions within the sliding
	// rate window. Zero means unlimited.
	RatePerMinute int `json:"rate_per_minute"`

	// Timeout is the hard execution deadline for dispatched requests.
	// Zero means no deadline. Per-submission overrides take precedence.
	Timeout time.Duration `json:"timeout"`
}

// Catalog is a read-only lookup from tier to scheduling parameters.
// Safe for concurrent use after construction.
type Catalog struct {
	configs map[Tier]Config
}

// NewCatalog builds a catalog from the default table, replacing entries
// for any tiers named in overrides.
func NewCatalog(overrides ...Config) *Catalog {
	configs := map[Tier]Config{
		TierPlatinum: {
			Tier:          TierPlatinum,
			MaxWait:       5 * time.Second,
			PriorityBoost: 10,
			MaxConcurrent: 10,
			DailyQuota:    0, // unlimited
			RatePerMinute: 60,
			Timeout:       30 * time.Second,
		},
		TierGold: {
			Tier:          TierGold,
			MaxWait:       15 * time.Second,
			PriorityBoost: 5,
			MaxConcurrent: 5,
			DailyQuota:    1000,
			RatePerMinute: 30,
			Timeout:       60 * time.Second,
		},
		TierSilver: {
			Tier:          TierSilver,
			MaxWait:       30 * time.Second,
			PriorityBoost: 2,
			MaxConcurrent: 3,
			DailyQuota:    500,
			RatePerMinute: 15,
			Timeout:       120 * time.Second,
		},
		TierBronze: {
			Tier:          TierBronze,
			MaxWait:       60 * time.Second,
			PriorityBoost: 1,
			MaxConcurrent: 2,
			DailyQuota:    200,
			RatePerMinute: 10,
			Timeout:       180 * time.Second,
		},
		TierFree: {
			Tier:          TierFree,
			MaxWait:       120 * time.Second,
			PriorityBoost: 0.5,
			MaxConcurrent: 1,
			DailyQuota:    50,
			RatePerMinute: 5,
			Timeout:       240 * time.Second,
		},
	}

	for _, o := range overrides {
		if o.Tier.Valid() {
			configs[o.Tier] = o
		}
	}

	return &Catalog{configs: configs}
}

// DefaultCatalog returns the catalog built from the default table alone.
func DefaultCatalog() *Catalog {
	return NewCatalog()
}

// Config returns the scheduling parameters for the given tier. Unknown
// tiers fall back to the Free config.
func (c *Catalog) Config(t Tier) Config {
	if cfg, ok := c.configs[t]; ok {
		return cfg
	}
	return c.configs[TierFree]
}

// All returns every tier config in urgency order (most urgent first).
func (c *Catalog) All() []Config {
	return []Config{
		c.configs[TierPlatinum],
		c.configs[TierGold],
		c.configs[TierSilver],
		c.configs[TierBronze],
		c.configs[TierFree],
	}
}
