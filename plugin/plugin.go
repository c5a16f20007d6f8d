// Package plugin provides an extensible plugin system for the plan ledger.
// Plugins can hook into asset lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"

	"github.com/gymplannet/planledger/plan"
	"github.com/gymplannet/planledger/subscription"
	"github.com/gymplannet/planledger/usage"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, contract interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Plan lifecycle hooks
// ──────────────────────────────────────────────────

// OnPlanIssued is called after a plan is issued and committed.
type OnPlanIssued interface {
	Plugin
	OnPlanIssued(ctx context.Context, p *plan.Plan) error
}

// OnPlanActivated is called after a plan moves to ACTIVE.
type OnPlanActivated interface {
	Plugin
	OnPlanActivated(ctx context.Context, p *plan.Plan) error
}

// OnPlanExpired is called after a plan moves to EXPIRED.
type OnPlanExpired interface {
	Plugin
	OnPlanExpired(ctx context.Context, p *plan.Plan) error
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscribed is called after an organization subscribes to a plan,
// including re-subscription of a previously unsubscribed record.
type OnSubscribed interface {
	Plugin
	OnSubscribed(ctx context.Context, sub *subscription.Subscription) error
}

// OnUnsubscribed is called after a subscription moves to UNSUBSCRIBED.
type OnUnsubscribed interface {
	Plugin
	OnUnsubscribed(ctx context.Context, sub *subscription.Subscription) error
}

// ──────────────────────────────────────────────────
// Usage hooks
// ──────────────────────────────────────────────────

// OnUsageRecorded is called after a member's usage is recorded.
type OnUsageRecorded interface {
	Plugin
	OnUsageRecorded(ctx context.Context, u *usage.Usage) error
}

// OnUsageCancelled is called after a usage record is cancelled.
type OnUsageCancelled interface {
	Plugin
	OnUsageCancelled(ctx context.Context, u *usage.Usage) error
}

// ──────────────────────────────────────────────────
// Transaction hooks
// ──────────────────────────────────────────────────

// OnCommit is called after any mutating transaction commits, with the
// transaction id and elapsed wall time.
type OnCommit interface {
	Plugin
	OnCommit(ctx context.Context, txID string, elapsed time.Duration) error
}
