// Package observability provides a metrics extension for the plan ledger
// that records lifecycle event counts and commit latency.
package observability

import (
	"context"
	"time"

	"github.com/gymplannet/planledger/plan"
	"github.com/gymplannet/planledger/plugin"
	"github.com/gymplannet/planledger/subscription"
	"github.com/gymplannet/planledger/usage"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin           = (*MetricsExtension)(nil)
	_ plugin.OnInit           = (*MetricsExtension)(nil)
	_ plugin.OnPlanIssued     = (*MetricsExtension)(nil)
	_ plugin.OnPlanActivated  = (*MetricsExtension)(nil)
	_ plugin.OnPlanExpired    = (*MetricsExtension)(nil)
	_ plugin.OnSubscribed     = (*MetricsExtension)(nil)
	_ plugin.OnUnsubscribed   = (*MetricsExtension)(nil)
	_ plugin.OnUsageRecorded  = (*MetricsExtension)(nil)
	_ plugin.OnUsageCancelled = (*MetricsExtension)(nil)
	_ plugin.OnCommit         = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger-wide lifecycle metrics.
// Register it as a Contract plugin to automatically track asset activity.
type MetricsExtension struct {
	factory MetricFactory

	// Plan metrics
	PlansIssued    Counter
	PlansActivated Counter
	PlansExpired   Counter

	// Subscription metrics
	Subscribed   Counter
	Unsubscribed Counter

	// Usage metrics
	UsageRecorded    Counter
	UsageCancelled   Counter
	TrainerSessions  Counter
	ClassAttendances Counter

	// Transaction metrics
	Commits       Counter
	CommitLatency Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Plan metrics
		PlansIssued:    factory.Counter("planledger.plan.issued"),
		PlansActivated: factory.Counter("planledger.plan.activated"),
		PlansExpired:   factory.Counter("planledger.plan.expired"),

		// Subscription metrics
		Subscribed:   factory.Counter("planledger.subscription.subscribed"),
		Unsubscribed: factory.Counter("planledger.subscription.unsubscribed"),

		// Usage metrics
		UsageRecorded:    factory.Counter("planledger.usage.recorded"),
		UsageCancelled:   factory.Counter("planledger.usage.cancelled"),
		TrainerSessions:  factory.Counter("planledger.usage.trainer_sessions"),
		ClassAttendances: factory.Counter("planledger.usage.classes"),

		// Transaction metrics
		Commits:       factory.Counter("planledger.tx.commits"),
		CommitLatency: factory.Histogram("planledger.tx.commit.latency_ms"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Plan lifecycle hooks
// ──────────────────────────────────────────────────

// OnPlanIssued implements plugin.OnPlanIssued.
func (m *MetricsExtension) OnPlanIssued(_ context.Context, _ *plan.Plan) error {
	m.PlansIssued.Inc()
	return nil
}

// OnPlanActivated implements plugin.OnPlanActivated.
func (m *MetricsExtension) OnPlanActivated(_ context.Context, _ *plan.Plan) error {
	m.PlansActivated.Inc()
	return nil
}

// OnPlanExpired implements plugin.OnPlanExpired.
func (m *MetricsExtension) OnPlanExpired(_ context.Context, _ *plan.Plan) error {
	m.PlansExpired.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscribed implements plugin.OnSubscribed.
func (m *MetricsExtension) OnSubscribed(_ context.Context, _ *subscription.Subscription) error {
	m.Subscribed.Inc()
	return nil
}

// OnUnsubscribed implements plugin.OnUnsubscribed.
func (m *MetricsExtension) OnUnsubscribed(_ context.Context, _ *subscription.Subscription) error {
	m.Unsubscribed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Usage hooks
// ──────────────────────────────────────────────────

// OnUsageRecorded implements plugin.OnUsageRecorded.
func (m *MetricsExtension) OnUsageRecorded(_ context.Context, u *usage.Usage) error {
	m.UsageRecorded.Inc()
	m.TrainerSessions.Add(float64(u.TrainerSessions))
	m.ClassAttendances.Add(float64(u.NumClasses))
	return nil
}

// OnUsageCancelled implements plugin.OnUsageCancelled.
func (m *MetricsExtension) OnUsageCancelled(_ context.Context, _ *usage.Usage) error {
	m.UsageCancelled.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Transaction hooks
// ──────────────────────────────────────────────────

// OnCommit implements plugin.OnCommit.
func (m *MetricsExtension) OnCommit(_ context.Context, _ string, elapsed time.Duration) error {
	m.Commits.Inc()
	m.CommitLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}
