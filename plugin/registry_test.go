package plugin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
)

// recorder implements a subset of the hook interfaces and records calls.
type recorder struct {
	name string

	mu     sync.Mutex
	events []string
	fail   bool
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) record(event string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	if r.fail {
		return errors.New("recorder failure")
	}
	return nil
}

func (r *recorder) OnSubscribed(_ context.Context, _ interface{}) error {
	return r.record("subscribed")
}

func (r *recorder) OnPaymentSettled(_ context.Context, account string, _ interface{}) error {
	return r.record("settled:" + account)
}

func (r *recorder) OnRewardsClaimed(_ context.Context, referrer string, _ int64) error {
	return r.record("claimed:" + referrer)
}

// namedOnly implements nothing beyond the base Plugin interface.
type namedOnly struct{ name string }

func (p *namedOnly) Name() string { return p.name }

func newTestRegistry() *Registry {
	r := NewRegistry()
	r.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return r
}

func TestRegister(t *testing.T) {
	r := newTestRegistry()

	if err := r.Register(&recorder{name: "rec"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&recorder{name: "rec"}); err == nil {
		t.Error("duplicate name should fail")
	}
	if err := r.Register(&namedOnly{name: "other"}); err != nil {
		t.Fatalf("Register second: %v", err)
	}

	if r.Count() != 2 {
		t.Errorf("count: got %d, want 2", r.Count())
	}
	if got := r.Get("rec"); got == nil || got.Name() != "rec" {
		t.Errorf("Get: %v", got)
	}
	if got := r.Get("missing"); got != nil {
		t.Errorf("Get missing: %v", got)
	}
	if len(r.List()) != 2 {
		t.Errorf("List: %v", r.List())
	}
}

func TestDispatch(t *testing.T) {
	r := newTestRegistry()
	rec := &recorder{name: "rec"}
	if err := r.Register(rec); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&namedOnly{name: "bystander"}); err != nil {
		t.Fatalf("Register bystander: %v", err)
	}

	ctx := context.Background()
	r.EmitSubscribed(ctx, nil)
	r.EmitPaymentSettled(ctx, "alice", nil)
	r.EmitRewardsClaimed(ctx, "bob", 100)

	// Hooks the recorder does not implement must not reach it.
	r.EmitRenewed(ctx, nil)
	r.EmitWithdrawn(ctx, "owner", 50)

	want := []string{"subscribed", "settled:alice", "claimed:bob"}
	if len(rec.events) != len(want) {
		t.Fatalf("events: got %v, want %v", rec.events, want)
	}
	for i, e := range want {
		if rec.events[i] != e {
			t.Errorf("event %d: got %q, want %q", i, rec.events[i], e)
		}
	}
}

// A failing plugin is logged and skipped; it never propagates into the
// emitting operation.
func TestFailingPluginIsIsolated(t *testing.T) {
	r := newTestRegistry()
	bad := &recorder{name: "bad", fail: true}
	good := &recorder{name: "good"}
	if err := r.Register(bad); err != nil {
		t.Fatalf("Register bad: %v", err)
	}
	if err := r.Register(good); err != nil {
		t.Fatalf("Register good: %v", err)
	}

	r.EmitSubscribed(context.Background(), nil)

	if len(bad.events) != 1 || len(good.events) != 1 {
		t.Errorf("both plugins should run: bad %v good %v", bad.events, good.events)
	}
}
