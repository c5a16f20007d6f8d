package audithook_test

import (
	"context"
	"strings"
	"testing"

	audithook "github.com/gymplannet/planledger/audit_hook"
	"github.com/gymplannet/planledger/plan"
)

func newPlan() *plan.Plan {
	p := plan.New("AliceGym", "P001", "2026-01-01", "2026-02-01", "2026-12-31",
		0, 5000000, 10, 30, 1, 1)
	p.SetOwnerMSP("AliceGymMSP")
	return p
}

// capture collects every event handed to the recorder.
type capture struct {
	events []*audithook.AuditEvent
}

func (c *capture) Record(_ context.Context, event *audithook.AuditEvent) error {
	c.events = append(c.events, event)
	return nil
}

func TestPlanIssuedEvent(t *testing.T) {
	rec := &capture{}
	ext := audithook.New(rec)

	if err := ext.OnPlanIssued(context.Background(), newPlan()); err != nil {
		t.Fatalf("OnPlanIssued() error = %v", err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(rec.events))
	}

	got := rec.events[0]
	if got.Action != audithook.ActionPlanIssued {
		t.Errorf("Action = %q, want %q", got.Action, audithook.ActionPlanIssued)
	}
	if got.Resource != audithook.ResourcePlan {
		t.Errorf("Resource = %q, want %q", got.Resource, audithook.ResourcePlan)
	}
	if got.ResourceID != plan.Namespace+":AliceGym:P001" {
		t.Errorf("ResourceID = %q", got.ResourceID)
	}
	if got.Metadata["owner"] != "AliceGym" || got.Metadata["msp"] != "AliceGymMSP" {
		t.Errorf("Metadata = %v", got.Metadata)
	}
}

func TestEventsCarryAuditIDs(t *testing.T) {
	rec := &capture{}
	ext := audithook.New(rec)
	ctx := context.Background()

	if err := ext.OnPlanIssued(ctx, newPlan()); err != nil {
		t.Fatal(err)
	}
	if err := ext.OnPlanActivated(ctx, newPlan()); err != nil {
		t.Fatal(err)
	}
	if len(rec.events) != 2 {
		t.Fatalf("recorded %d events, want 2", len(rec.events))
	}
	seen := make(map[string]bool)
	for i, evt := range rec.events {
		if !strings.HasPrefix(evt.ID, "audit_") {
			t.Errorf("events[%d].ID = %q, want audit_ prefix", i, evt.ID)
		}
		if seen[evt.ID] {
			t.Errorf("duplicate event ID %q", evt.ID)
		}
		seen[evt.ID] = true
	}
}

func TestDisabledActionsAreSkipped(t *testing.T) {
	rec := &capture{}
	ext := audithook.New(rec, audithook.WithDisabledActions(audithook.ActionPlanIssued))
	ctx := context.Background()

	if err := ext.OnPlanIssued(ctx, newPlan()); err != nil {
		t.Fatal(err)
	}
	if len(rec.events) != 0 {
		t.Fatalf("disabled action recorded %d events, want 0", len(rec.events))
	}

	if err := ext.OnPlanExpired(ctx, newPlan()); err != nil {
		t.Fatal(err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("enabled action recorded %d events, want 1", len(rec.events))
	}
	if rec.events[0].Action != audithook.ActionPlanExpired {
		t.Errorf("Action = %q, want %q", rec.events[0].Action, audithook.ActionPlanExpired)
	}
}
