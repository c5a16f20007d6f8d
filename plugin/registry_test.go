package plugin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gymplannet/planledger/plan"
	"github.com/gymplannet/planledger/subscription"
	"github.com/gymplannet/planledger/usage"
)

// recorder implements every hook and appends each event it sees.
type recorder struct {
	name   string
	events []string
	fail   bool
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) see(event string) error {
	r.events = append(r.events, event)
	if r.fail {
		return errors.New("recorder: forced failure")
	}
	return nil
}

func (r *recorder) OnInit(context.Context, interface{}) error { return r.see("init") }
func (r *recorder) OnShutdown(context.Context) error          { return r.see("shutdown") }
func (r *recorder) OnPlanIssued(context.Context, *plan.Plan) error {
	return r.see("plan.issued")
}
func (r *recorder) OnPlanActivated(context.Context, *plan.Plan) error {
	return r.see("plan.activated")
}
func (r *recorder) OnPlanExpired(context.Context, *plan.Plan) error {
	return r.see("plan.expired")
}
func (r *recorder) OnSubscribed(context.Context, *subscription.Subscription) error {
	return r.see("subscribed")
}
func (r *recorder) OnUnsubscribed(context.Context, *subscription.Subscription) error {
	return r.see("unsubscribed")
}
func (r *recorder) OnUsageRecorded(context.Context, *usage.Usage) error {
	return r.see("usage.recorded")
}
func (r *recorder) OnUsageCancelled(context.Context, *usage.Usage) error {
	return r.see("usage.cancelled")
}
func (r *recorder) OnCommit(context.Context, string, time.Duration) error {
	return r.see("commit")
}

// nameOnly implements no hooks beyond the base interface.
type nameOnly struct{ name string }

func (p *nameOnly) Name() string { return p.name }

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&recorder{name: "a"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(&nameOnly{name: "b"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}
	if got := r.Get("a"); got == nil || got.Name() != "a" {
		t.Errorf("Get(a) = %v", got)
	}
	if got := r.Get("missing"); got != nil {
		t.Errorf("Get(missing) = %v, want nil", got)
	}
	if got := len(r.List()); got != 2 {
		t.Errorf("List() returned %d plugins", got)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&nameOnly{name: "dup"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&nameOnly{name: "dup"}); err == nil {
		t.Error("Register() duplicate name should fail")
	}
}

func TestEmitDispatch(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	rec := &recorder{name: "rec"}
	if err := r.Register(rec); err != nil {
		t.Fatal(err)
	}
	// A plugin without hooks never receives events.
	if err := r.Register(&nameOnly{name: "mute"}); err != nil {
		t.Fatal(err)
	}

	r.EmitInit(ctx, nil)
	r.EmitPlanIssued(ctx, &plan.Plan{})
	r.EmitPlanActivated(ctx, &plan.Plan{})
	r.EmitPlanExpired(ctx, &plan.Plan{})
	r.EmitSubscribed(ctx, &subscription.Subscription{})
	r.EmitUnsubscribed(ctx, &subscription.Subscription{})
	r.EmitUsageRecorded(ctx, &usage.Usage{})
	r.EmitUsageCancelled(ctx, &usage.Usage{})
	r.EmitCommit(ctx, "tx1", time.Millisecond)
	r.EmitShutdown(ctx)

	want := []string{
		"init",
		"plan.issued", "plan.activated", "plan.expired",
		"subscribed", "unsubscribed",
		"usage.recorded", "usage.cancelled",
		"commit",
		"shutdown",
	}
	if len(rec.events) != len(want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, rec.events[i], want[i])
		}
	}
}

func TestEmitSurvivesPluginFailure(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	failing := &recorder{name: "failing", fail: true}
	healthy := &recorder{name: "healthy"}
	if err := r.Register(failing); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(healthy); err != nil {
		t.Fatal(err)
	}

	// A failing plugin is logged and skipped; the rest still run.
	r.EmitPlanIssued(ctx, &plan.Plan{})

	if len(healthy.events) != 1 || healthy.events[0] != "plan.issued" {
		t.Errorf("healthy plugin events = %v", healthy.events)
	}
}
