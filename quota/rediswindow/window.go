// Package rediswindow provides a Redis-backed sliding rate window for
// the quota tracker, for deployments where several scheduler instances
// must share per-user admission state. Window entries live in a sorted
// set scored by timestamp and expire with the window span; no request
// state is ever persisted.
package rediswindow

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/tierq/quota"
)

// Window is a sliding rate window stored in a Redis sorted set.
type Window struct {
	rdb  *redis.Client
	key  string
	span time.Duration
}

// New creates a Window for one user.
func New(rdb *redis.Client, userID string, span time.Duration) *Window {
	return &Window{
		rdb:  rdb,
		key:  fmt.Sprintf("tierq:ratewindow:%s", userID),
		span: span,
	}
}

// Factory returns a quota.WindowFactory backed by the given client.
func Factory(rdb *redis.Client) quota.WindowFactory {
	return func(userID string, span time.Duration) quota.RateWindow {
		return New(rdb, userID, span)
	}
}

// Count prunes entries older than the span and returns the remaining
// cardinality.
func (w *Window) Count(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-w.span)

	pipe := w.rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, w.key, "0", fmt.Sprintf("%d", cutoff.UnixNano()))
	card := pipe.ZCard(ctx, w.key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("rediswindow: count: %w", err)
	}

	return int(card.Val()), nil
}

// Record appends an admission timestamp and refreshes the key's TTL.
// The member carries a random suffix: two admissions scoring the same
// nanosecond must stay distinct set members or ZAdd collapses them and
// the window undercounts.
func (w *Window) Record(ctx context.Context, now time.Time) error {
	pipe := w.rdb.Pipeline()
	pipe.ZAdd(ctx, w.key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d:%x", now.UnixNano(), rand.Uint64()),
	})
	pipe.Expire(ctx, w.key, w.span)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rediswindow: record: %w", err)
	}
	return nil
}
