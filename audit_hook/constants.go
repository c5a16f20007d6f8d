package audithook

// Action constants for audit events.
const (
	// Plan actions
	ActionPlanIssued    = "plan.issued"
	ActionPlanActivated = "plan.activated"
	ActionPlanExpired   = "plan.expired"

	// Subscription actions
	ActionSubscribed   = "subscription.subscribed"
	ActionUnsubscribed = "subscription.unsubscribed"

	// Usage actions
	ActionUsageRecorded  = "usage.recorded"
	ActionUsageCancelled = "usage.cancelled"
)

// Resource constants for audit events.
const (
	ResourcePlan         = "plan"
	ResourceSubscription = "subscription"
	ResourceUsage        = "usage"
)

// Category constants for audit events.
const (
	CategoryPlan         = "plan"
	CategorySubscription = "subscription"
	CategoryUsage        = "usage"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
