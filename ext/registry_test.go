package ext

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/tierq/id"
	"github.com/xraph/tierq/request"
	"github.com/xraph/tierq/sla"
)

// recorderExt implements every hook and records the order of calls.
type recorderExt struct {
	calls []string
	err   error
}

func (r *recorderExt) Name() string { return "recorder" }

func (r *recorderExt) OnRequestAdmitted(_ context.Context, _ *request.Request) error {
	r.calls = append(r.calls, "admitted")
	return r.err
}

func (r *recorderExt) OnRequestRejected(_ context.Context, _ string, _ sla.Tier, _ error) error {
	r.calls = append(r.calls, "rejected")
	return r.err
}

func (r *recorderExt) OnRequestStarted(_ context.Context, _ *request.Request) error {
	r.calls = append(r.calls, "started")
	return r.err
}

func (r *recorderExt) OnRequestCompleted(_ context.Context, _ *request.Request, _ time.Duration) error {
	r.calls = append(r.calls, "completed")
	return r.err
}

func (r *recorderExt) OnRequestFailed(_ context.Context, _ *request.Request, _ error) error {
	r.calls = append(r.calls, "failed")
	return r.err
}

func (r *recorderExt) OnRequestTimedOut(_ context.Context, _ *request.Request) error {
	r.calls = append(r.calls, "timedout")
	return r.err
}

func (r *recorderExt) OnRequestCancelled(_ context.Context, _ *request.Request) error {
	r.calls = append(r.calls, "cancelled")
	return r.err
}

func (r *recorderExt) OnShutdown(_ context.Context) error {
	r.calls = append(r.calls, "shutdown")
	return r.err
}

// startedOnlyExt implements just one hook.
type startedOnlyExt struct {
	count int
}

func (s *startedOnlyExt) Name() string { return "started-only" }

func (s *startedOnlyExt) OnRequestStarted(_ context.Context, _ *request.Request) error {
	s.count++
	return nil
}

func testRequest() *request.Request {
	return &request.Request{
		ID:      id.NewRequestID(),
		UserID:  "u1",
		Handler: "test",
		Tier:    sla.TierGold,
	}
}

func TestRegistryEmitsAllHooks(t *testing.T) {
	reg := NewRegistry(slog.Default())
	rec := &recorderExt{}
	reg.Register(rec)

	ctx := context.Background()
	req := testRequest()

	reg.EmitRequestAdmitted(ctx, req)
	reg.EmitRequestRejected(ctx, "u1", sla.TierFree, errors.New("quota"))
	reg.EmitRequestStarted(ctx, req)
	reg.EmitRequestCompleted(ctx, req, 10*time.Millisecond)
	reg.EmitRequestFailed(ctx, req, errors.New("boom"))
	reg.EmitRequestTimedOut(ctx, req)
	reg.EmitRequestCancelled(ctx, req)
	reg.EmitShutdown(ctx)

	want := []string{"admitted", "rejected", "started", "completed", "failed", "timedout", "cancelled", "shutdown"}
	if len(rec.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", rec.calls, want)
	}
	for i := range want {
		if rec.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", rec.calls, want)
		}
	}
}

func TestRegistryPartialImplementation(t *testing.T) {
	reg := NewRegistry(slog.Default())
	started := &startedOnlyExt{}
	reg.Register(started)

	ctx := context.Background()
	req := testRequest()

	// These must not panic even though the extension does not implement them.
	reg.EmitRequestAdmitted(ctx, req)
	reg.EmitRequestCompleted(ctx, req, time.Millisecond)
	reg.EmitShutdown(ctx)

	reg.EmitRequestStarted(ctx, req)
	reg.EmitRequestStarted(ctx, req)
	if started.count != 2 {
		t.Errorf("started count = %d, want 2", started.count)
	}
}

func TestRegistryHookErrorDoesNotPropagate(t *testing.T) {
	reg := NewRegistry(slog.Default())
	rec := &recorderExt{err: errors.New("hook failure")}
	other := &startedOnlyExt{}
	reg.Register(rec)
	reg.Register(other)

	// A failing hook must not stop later extensions from being notified.
	reg.EmitRequestStarted(context.Background(), testRequest())
	if other.count != 1 {
		t.Errorf("second extension not notified after first hook errored")
	}
}

func TestRegistryExtensions(t *testing.T) {
	reg := NewRegistry(slog.Default())
	if len(reg.Extensions()) != 0 {
		t.Fatalf("expected empty registry")
	}
	reg.Register(&recorderExt{})
	reg.Register(&startedOnlyExt{})
	if got := len(reg.Extensions()); got != 2 {
		t.Errorf("extensions = %d, want 2", got)
	}
}
