package queue

import (
	"testing"
	"time"

	"github.com/xraph/tierq/id"
	"github.com/xraph/tierq/request"
	"github.com/xraph/tierq/sla"
)

func newReq(tier sla.Tier, seq uint64, createdAt time.Time) *request.Request {
	return &request.Request{
		ID:              id.NewRequestID(),
		UserID:          "u1",
		Tier:            tier,
		Status:          request.StatusQueued,
		BasePriority:    tier.BasePriority(),
		CurrentPriority: tier.BasePriority(),
		Seq:             seq,
		CreatedAt:       createdAt,
	}
}

// ---------------------------------------------------------------------------
// Age
// ---------------------------------------------------------------------------

func TestAgeFormula(t *testing.T) {
	tests := []struct {
		name    string
		base    int
		boost   float64
		wait    time.Duration
		maxWait time.Duration
		want    int
	}{
		{"no wait", 400, 0.5, 0, 120 * time.Second, 400},
		{"partial aging", 400, 0.5, 10 * time.Second, 120 * time.Second, 395},
		{"floor applied", 100, 5, 60 * time.Second, 0, 0},
		{"fractional floors down", 400, 0.5, 3 * time.Second, 120 * time.Second, 399},
		{"overdue penalty", 400, 0.5, 121 * time.Second, 120 * time.Second, 400 - 60 - 1000},
		{"overdue from floor", 0, 10, 6 * time.Second, 5 * time.Second, -1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Age(tt.base, tt.boost, tt.wait, tt.maxWait, 1000)
			if got != tt.want {
				t.Errorf("Age(%d, %v, %v, %v) = %d, want %d",
					tt.base, tt.boost, tt.wait, tt.maxWait, got, tt.want)
			}
		})
	}
}

func TestAgeMonotonic(t *testing.T) {
	prev := Age(400, 0.5, 0, 0, 1000)
	for w := time.Second; w <= 30*time.Second; w += time.Second {
		cur := Age(400, 0.5, w, 0, 1000)
		if cur > prev {
			t.Fatalf("priority increased from %d to %d at wait %v", prev, cur, w)
		}
		prev = cur
	}
}

// ---------------------------------------------------------------------------
// Heap ordering
// ---------------------------------------------------------------------------

func TestHeapOrdersByPriority(t *testing.T) {
	h := NewHeap()
	now := time.Now()

	free := newReq(sla.TierFree, 1, now)
	plat := newReq(sla.TierPlatinum, 2, now)
	gold := newReq(sla.TierGold, 3, now)

	h.Push(free)
	h.Push(plat)
	h.Push(gold)

	for i, want := range []*request.Request{plat, gold, free} {
		got := h.PopMin()
		if got != want {
			t.Fatalf("pop %d: got tier %s, want %s", i, got.Tier, want.Tier)
		}
	}
	if h.PopMin() != nil {
		t.Fatal("expected empty heap")
	}
}

func TestHeapTieBreaksFIFO(t *testing.T) {
	h := NewHeap()
	now := time.Now()

	// Same tier, same priority — submission order must win.
	for seq := uint64(1); seq <= 5; seq++ {
		h.Push(newReq(sla.TierSilver, seq, now))
	}

	for seq := uint64(1); seq <= 5; seq++ {
		got := h.PopMin()
		if got.Seq != seq {
			t.Fatalf("expected seq %d, got %d", seq, got.Seq)
		}
	}
}

func TestHeapRemove(t *testing.T) {
	h := NewHeap()
	now := time.Now()

	a := newReq(sla.TierGold, 1, now)
	b := newReq(sla.TierGold, 2, now)
	h.Push(a)
	h.Push(b)

	if !h.Remove(a.ID.String()) {
		t.Fatal("expected Remove to succeed")
	}
	if h.Remove(a.ID.String()) {
		t.Fatal("expected second Remove to fail")
	}
	if h.Contains(a.ID.String()) {
		t.Fatal("removed request still present")
	}

	if got := h.PopMin(); got != b {
		t.Fatalf("expected remaining request, got %v", got)
	}
}

// ---------------------------------------------------------------------------
// Rescore
// ---------------------------------------------------------------------------

func TestRescorePromotesLongWaiter(t *testing.T) {
	h := NewHeap()
	catalog := sla.DefaultCatalog()
	now := time.Now()

	// A gold request that has been waiting 18s (past gold's 15s max wait)
	// must overtake a platinum request submitted just now.
	gold := newReq(sla.TierGold, 1, now.Add(-18*time.Second))
	plat := newReq(sla.TierPlatinum, 2, now)

	h.Push(plat)
	h.Push(gold)

	h.Rescore(catalog, now, 1000)

	if gold.CurrentPriority >= plat.CurrentPriority {
		t.Fatalf("overdue gold priority %d should undercut fresh platinum %d",
			gold.CurrentPriority, plat.CurrentPriority)
	}
	if got := h.PopMin(); got != gold {
		t.Fatalf("expected overdue gold first, got tier %s", got.Tier)
	}
}

func TestRescoreKeepsFreshOrder(t *testing.T) {
	h := NewHeap()
	catalog := sla.DefaultCatalog()
	now := time.Now()

	free := newReq(sla.TierFree, 1, now.Add(-2*time.Second))
	plat := newReq(sla.TierPlatinum, 2, now)

	h.Push(free)
	h.Push(plat)
	h.Rescore(catalog, now, 1000)

	// Two seconds of free-tier aging (boost 0.5 → −1) cannot close a
	// 400-point gap.
	if got := h.PopMin(); got != plat {
		t.Fatalf("expected platinum first, got tier %s", got.Tier)
	}
}
