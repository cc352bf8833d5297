package request

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/xraph/tierq/sla"
)

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get("nope"); ok {
		t.Fatal("expected miss for unregistered handler")
	}
}

func TestRegisterDefinition(t *testing.T) {
	r := NewRegistry()

	type in struct {
		Name string `json:"name"`
	}
	type out struct {
		Greeting string `json:"greeting"`
	}

	RegisterDefinition(r, NewDefinition("greet", func(_ context.Context, p in) (out, error) {
		return out{Greeting: "hello " + p.Name}, nil
	}))

	h, ok := r.Get("greet")
	if !ok {
		t.Fatal("expected handler to be registered")
	}

	result, err := h(context.Background(), []byte(`{"name":"ada"}`))
	if err != nil {
		t.Fatalf("unexpected handler error: %v", err)
	}

	var got out
	if err := json.Unmarshal(result, &got); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if got.Greeting != "hello ada" {
		t.Errorf("greeting = %q, want %q", got.Greeting, "hello ada")
	}
}

func TestRegisterDefinitionBadPayload(t *testing.T) {
	r := NewRegistry()
	RegisterDefinition(r, NewDefinition("echo", func(_ context.Context, p map[string]int) (map[string]int, error) {
		return p, nil
	}))

	h, _ := r.Get("echo")
	if _, err := h(context.Background(), []byte(`not json`)); err == nil {
		t.Fatal("expected unmarshal error for invalid payload")
	}
}

func TestRegisterDefinitionHandlerError(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	RegisterDefinition(r, NewDefinition("fail", func(_ context.Context, _ struct{}) (struct{}, error) {
		return struct{}{}, boom
	}))

	h, _ := r.Get("fail")
	if _, err := h(context.Background(), nil); !errors.Is(err, boom) {
		t.Fatalf("expected handler error to propagate, got %v", err)
	}
}

func TestNamesSorted(t *testing.T) {
	r := NewRegistry()
	r.Register("zeta", func(_ context.Context, _ []byte) ([]byte, error) { return nil, nil })
	r.Register("alpha", func(_ context.Context, _ []byte) ([]byte, error) { return nil, nil })

	names := r.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("names = %v, want [alpha zeta]", names)
	}
}

// ---------------------------------------------------------------------------
// Request
// ---------------------------------------------------------------------------

func TestStatusTerminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusFailed, StatusTimeout, StatusCancelled, StatusRejected}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusQueued, StatusProcessing} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	now := time.Now()
	r := &Request{
		UserID:   "u1",
		Tier:     sla.TierGold,
		Payload:  []byte(`{"a":1}`),
		Metadata: map[string]string{"k": "v"},
		StartedAt: &now,
	}

	snap := r.Snapshot()

	r.Payload[0] = 'X'
	r.Metadata["k"] = "mutated"
	*r.StartedAt = now.Add(time.Hour)

	if snap.Payload[0] == 'X' {
		t.Error("snapshot payload shares backing array")
	}
	if snap.Metadata["k"] != "v" {
		t.Error("snapshot metadata shares map")
	}
	if !snap.StartedAt.Equal(now) {
		t.Error("snapshot StartedAt shares pointer")
	}
}
