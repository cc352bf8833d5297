package queue

import (
	"container/heap"
	"math"
	"time"

	"github.com/xraph/tierq/request"
	"github.com/xraph/tierq/sla"
)

// Age computes the effective priority of a request that has waited for
// the given duration. Lower values are more urgent. The result is
// base − floor(wait_seconds × boost), floored at zero; once wait exceeds
// maxWait the overdue penalty is subtracted on top, deliberately pushing
// the value below zero so the request outranks every well-behaved one.
func Age(base int, boost float64, wait, maxWait time.Duration, penalty int) int {
	p := base - int(math.Floor(wait.Seconds()*boost))
	if p < 0 {
		p = 0
	}
	if maxWait > 0 && wait > maxWait {
		p -= penalty
	}
	return p
}

// item is a heap entry wrapping a queued request.
type item struct {
	req   *request.Request
	index int
}

// Heap is a min-priority queue of queued requests ordered by
// (CurrentPriority, Seq).
type Heap struct {
	items []*item
	byID  map[string]*item
}

// NewHeap creates an empty queue.
func NewHeap() *Heap {
	return &Heap{byID: make(map[string]*item)}
}

// Len returns the number of queued requests.
func (h *Heap) Len() int { return len(h.items) }

// Push adds a request to the queue.
func (h *Heap) Push(req *request.Request) {
	it := &item{req: req}
	h.byID[req.ID.String()] = it
	heap.Push((*ordered)(h), it)
}

// PopMin removes and returns the most urgent request, or nil if empty.
func (h *Heap) PopMin() *request.Request {
	if len(h.items) == 0 {
		return nil
	}
	it := heap.Pop((*ordered)(h)).(*item)
	delete(h.byID, it.req.ID.String())
	return it.req
}

// Remove deletes the request with the given ID from the queue.
// Returns false if the request is not queued.
func (h *Heap) Remove(id string) bool {
	it, ok := h.byID[id]
	if !ok {
		return false
	}
	heap.Remove((*ordered)(h), it.index)
	delete(h.byID, id)
	return true
}

// Contains reports whether the request with the given ID is queued.
func (h *Heap) Contains(id string) bool {
	_, ok := h.byID[id]
	return ok
}

// Rescore recomputes every queued request's current priority from its
// wait time and tier parameters, then restores heap order. Called by the
// scheduler on each aging tick.
func (h *Heap) Rescore(catalog *sla.Catalog, now time.Time, penalty int) {
	for _, it := range h.items {
		cfg := catalog.Config(it.req.Tier)
		wait := now.Sub(it.req.CreatedAt)
		it.req.CurrentPriority = Age(it.req.BasePriority, cfg.PriorityBoost, wait, cfg.MaxWait, penalty)
	}
	heap.Init((*ordered)(h))
}

// ordered adapts Heap to heap.Interface. It is a separate named type so
// the exported Heap API does not leak the heap.Interface methods.
type ordered Heap

func (o *ordered) Len() int { return len(o.items) }

func (o *ordered) Less(i, j int) bool {
	a, b := o.items[i].req, o.items[j].req
	if a.CurrentPriority != b.CurrentPriority {
		return a.CurrentPriority < b.CurrentPriority
	}
	return a.Seq < b.Seq
}

func (o *ordered) Swap(i, j int) {
	o.items[i], o.items[j] = o.items[j], o.items[i]
	o.items[i].index = i
	o.items[j].index = j
}

func (o *ordered) Push(x any) {
	it := x.(*item)
	it.index = len(o.items)
	o.items = append(o.items, it)
}

func (o *ordered) Pop() any {
	old := o.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	o.items = old[:n-1]
	return it
}
