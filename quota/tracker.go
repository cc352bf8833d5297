package quota

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/tierq"
	"github.com/xraph/tierq/sla"
)

// dayLayout formats the UTC date used for daily quota rollover.
const dayLayout = "2006-01-02"

// userState tracks admission accounting for a single user. Created
// lazily on first submission.
type userState struct {
	tier       sla.Tier
	dailyCount int
	dailyDate  string
	window     RateWindow
	inFlight   int
}

// Usage is a point-in-time copy of a user's accounting, for stats and
// tests.
type Usage struct {
	Tier        sla.Tier `json:"tier"`
	DailyCount  int      `json:"daily_count"`
	InFlight    int      `json:"in_flight"`
	WindowCount int      `json:"window_count"`
}

// Tracker gates admission against per-user quotas. It is safe for
// concurrent use.
type Tracker struct {
	mu        sync.Mutex
	catalog   *sla.Catalog
	span      time.Duration
	users     map[string]*userState
	newWindow WindowFactory
	now       func() time.Time
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithWindowFactory replaces the default in-memory rate window, e.g.
// with the Redis-backed implementation from quota/rediswindow.
func WithWindowFactory(f WindowFactory) TrackerOption {
	return func(t *Tracker) { t.newWindow = f }
}

// WithClock overrides the wall-clock source. Used by tests to exercise
// daily rollover without waiting for midnight.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a Tracker for the given catalog and rate-window span.
func NewTracker(catalog *sla.Catalog, span time.Duration, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		catalog:   catalog,
		span:      span,
		users:     make(map[string]*userState),
		newWindow: newMemoryWindow,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// user returns the state for userID, creating it on first use.
// Caller must hold t.mu.
func (t *Tracker) user(userID string, tier sla.Tier) *userState {
	u, ok := t.users[userID]
	if !ok {
		u = &userState{
			tier:      tier,
			dailyDate: t.now().UTC().Format(dayLayout),
			window:    t.newWindow(userID, t.span),
		}
		t.users[userID] = u
	}
	return u
}

// Admit checks all three limits and charges the admission under a
// single lock acquisition, so two concurrent submissions for the same
// user cannot both pass a limit with one slot left. This is the path
// the scheduler uses; CanAdmit and RecordAdmission remain for callers
// that need a non-charging probe.
func (t *Tracker) Admit(ctx context.Context, userID string, tier sla.Tier) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	u := t.user(userID, tier)
	u.tier = tier
	if err := t.checkLocked(ctx, u); err != nil {
		return err
	}
	return t.chargeLocked(ctx, u)
}

// CanAdmit checks, in order, the daily quota (resetting it if the UTC day
// rolled over), the in-flight concurrency cap, and the sliding rate
// window for the given tier. It returns nil if all three pass, or the
// first violated limit's sentinel error. A failed check charges nothing.
//
// CanAdmit followed by RecordAdmission is not atomic; use Admit when
// the check must hold through the charge.
func (t *Tracker) CanAdmit(ctx context.Context, userID string, tier sla.Tier) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	u := t.user(userID, tier)
	u.tier = tier
	return t.checkLocked(ctx, u)
}

// checkLocked validates the user's tier ceilings. Caller must hold t.mu.
func (t *Tracker) checkLocked(ctx context.Context, u *userState) error {
	cfg := t.catalog.Config(u.tier)
	now := t.now()

	day := now.UTC().Format(dayLayout)
	if u.dailyDate != day {
		u.dailyDate = day
		u.dailyCount = 0
	}
	if cfg.DailyQuota > 0 && u.dailyCount >= cfg.DailyQuota {
		return tierq.ErrDailyQuotaExceeded
	}

	if cfg.MaxConcurrent > 0 && u.inFlight >= cfg.MaxConcurrent {
		return tierq.ErrConcurrencyLimit
	}

	if cfg.RatePerMinute > 0 {
		n, err := u.window.Count(ctx, now)
		if err != nil {
			return err
		}
		if n >= cfg.RatePerMinute {
			return tierq.ErrRateLimited
		}
	}

	return nil
}

// chargeLocked charges one window entry, one daily unit, and one
// in-flight slot. Caller must hold t.mu.
func (t *Tracker) chargeLocked(ctx context.Context, u *userState) error {
	if err := u.window.Record(ctx, t.now()); err != nil {
		return err
	}
	u.dailyCount++
	u.inFlight++
	return nil
}

// RecordAdmission charges an admitted submission: one window entry, one
// daily unit, one in-flight slot.
func (t *Tracker) RecordAdmission(ctx context.Context, userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	u, ok := t.users[userID]
	if !ok {
		// RecordAdmission without a prior CanAdmit is a programming
		// error, but charge a fresh record rather than panic.
		u = t.user(userID, sla.TierFree)
	}
	return t.chargeLocked(ctx, u)
}

// Release frees one in-flight slot once a charged request leaves the
// system. Never called for rejected submissions (nothing was charged).
func (t *Tracker) Release(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if u, ok := t.users[userID]; ok && u.inFlight > 0 {
		u.inFlight--
	}
}

// SetUserTier updates a user's tier in place. Subsequent checks apply the
// new tier's ceilings.
func (t *Tracker) SetUserTier(userID string, tier sla.Tier) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.user(userID, tier).tier = tier
}

// UserUsage returns a copy of the user's current accounting.
// The second return is false if the user has never submitted.
func (t *Tracker) UserUsage(ctx context.Context, userID string) (Usage, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u, ok := t.users[userID]
	if !ok {
		return Usage{}, false
	}

	n, err := u.window.Count(ctx, t.now())
	if err != nil {
		n = 0
	}
	return Usage{
		Tier:        u.tier,
		DailyCount:  u.dailyCount,
		InFlight:    u.inFlight,
		WindowCount: n,
	}, true
}

// Users returns the number of tracked users.
func (t *Tracker) Users() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.users)
}
