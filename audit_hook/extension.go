// Package audithook bridges plan ledger lifecycle events to an audit
// trail backend.
//
// It defines a local Recorder interface so the package stays decoupled
// from any concrete audit backend. Callers inject a RecorderFunc adapter
// that bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gymplannet/planledger/id"
	"github.com/gymplannet/planledger/plan"
	"github.com/gymplannet/planledger/plugin"
	"github.com/gymplannet/planledger/statekey"
	"github.com/gymplannet/planledger/subscription"
	"github.com/gymplannet/planledger/usage"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin           = (*Extension)(nil)
	_ plugin.OnPlanIssued     = (*Extension)(nil)
	_ plugin.OnPlanActivated  = (*Extension)(nil)
	_ plugin.OnPlanExpired    = (*Extension)(nil)
	_ plugin.OnSubscribed     = (*Extension)(nil)
	_ plugin.OnUnsubscribed   = (*Extension)(nil)
	_ plugin.OnUsageRecorded  = (*Extension)(nil)
	_ plugin.OnUsageCancelled = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It is defined locally so that the package does not import any audit
// backend directly; callers inject the concrete recorder at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event. It carries the
// fields common audit backends expect without a module dependency. ID is
// a unique "audit"-prefixed TypeID stamped when the event is built.
type AuditEvent struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Plan lifecycle hooks
// ──────────────────────────────────────────────────

// OnPlanIssued implements plugin.OnPlanIssued.
func (e *Extension) OnPlanIssued(ctx context.Context, p *plan.Plan) error {
	return e.record(ctx, ActionPlanIssued, SeverityInfo, OutcomeSuccess,
		ResourcePlan, planKey(p), CategoryPlan, nil,
		"owner", p.Owner,
		"plan_number", p.PlanNumber,
		"msp", p.GetOwnerMSP(),
	)
}

// OnPlanActivated implements plugin.OnPlanActivated.
func (e *Extension) OnPlanActivated(ctx context.Context, p *plan.Plan) error {
	return e.record(ctx, ActionPlanActivated, SeverityInfo, OutcomeSuccess,
		ResourcePlan, planKey(p), CategoryPlan, nil,
		"owner", p.Owner,
		"plan_number", p.PlanNumber,
		"subscriber_count", p.SubscriberCount,
	)
}

// OnPlanExpired implements plugin.OnPlanExpired.
func (e *Extension) OnPlanExpired(ctx context.Context, p *plan.Plan) error {
	return e.record(ctx, ActionPlanExpired, SeverityWarning, OutcomeSuccess,
		ResourcePlan, planKey(p), CategoryPlan, nil,
		"owner", p.Owner,
		"plan_number", p.PlanNumber,
		"subscriber_count", p.SubscriberCount,
	)
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscribed implements plugin.OnSubscribed.
func (e *Extension) OnSubscribed(ctx context.Context, sub *subscription.Subscription) error {
	return e.record(ctx, ActionSubscribed, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subscriptionKey(sub), CategorySubscription, nil,
		"subscriber", sub.Owner,
		"plan_number", sub.PlanNumber,
		"plan_owner", sub.PlanOwner,
		"msp", sub.GetOwnerMSP(),
	)
}

// OnUnsubscribed implements plugin.OnUnsubscribed.
func (e *Extension) OnUnsubscribed(ctx context.Context, sub *subscription.Subscription) error {
	return e.record(ctx, ActionUnsubscribed, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subscriptionKey(sub), CategorySubscription, nil,
		"subscriber", sub.Owner,
		"plan_number", sub.PlanNumber,
		"plan_owner", sub.PlanOwner,
	)
}

// ──────────────────────────────────────────────────
// Usage hooks
// ──────────────────────────────────────────────────

// OnUsageRecorded implements plugin.OnUsageRecorded.
func (e *Extension) OnUsageRecorded(ctx context.Context, u *usage.Usage) error {
	return e.record(ctx, ActionUsageRecorded, SeverityInfo, OutcomeSuccess,
		ResourceUsage, usageKey(u), CategoryUsage, nil,
		"plan_owner", u.Owner,
		"plan_number", u.PlanNumber,
		"subscriber", u.PlanSubscriber,
		"member", u.PlanMember,
	)
}

// OnUsageCancelled implements plugin.OnUsageCancelled.
func (e *Extension) OnUsageCancelled(ctx context.Context, u *usage.Usage) error {
	return e.record(ctx, ActionUsageCancelled, SeverityWarning, OutcomeSuccess,
		ResourceUsage, usageKey(u), CategoryUsage, nil,
		"plan_owner", u.Owner,
		"plan_number", u.PlanNumber,
		"subscriber", u.PlanSubscriber,
		"member", u.PlanMember,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		ID:         id.NewAuditID().String(),
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}

func planKey(p *plan.Plan) string {
	key, err := statekey.Make(plan.Namespace, p.SplitKey()...)
	if err != nil {
		return ""
	}
	return key
}

func subscriptionKey(sub *subscription.Subscription) string {
	key, err := statekey.Make(subscription.Namespace, sub.SplitKey()...)
	if err != nil {
		return ""
	}
	return key
}

func usageKey(u *usage.Usage) string {
	key, err := statekey.Make(usage.Namespace, u.SplitKey()...)
	if err != nil {
		return ""
	}
	return key
}
