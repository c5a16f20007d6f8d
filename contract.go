package planledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gymplannet/planledger/id"
	"github.com/gymplannet/planledger/plan"
	"github.com/gymplannet/planledger/plugin"
	"github.com/gymplannet/planledger/query"
	"github.com/gymplannet/planledger/statelist"
	"github.com/gymplannet/planledger/store"
	"github.com/gymplannet/planledger/subscription"
	"github.com/gymplannet/planledger/usage"
)

// Contract is the gym plan asset contract. Every operation runs in its
// own transaction against the backing store: mutations stage writes and
// commit atomically, queries run against a read-only transaction view.
type Contract struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
}

// New creates a new Contract instance backed by s.
func New(s store.Store, opts ...Option) *Contract {
	c := &Contract{
		store:   s,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Option configures a Contract instance.
type Option func(*Contract)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Contract) {
		c.logger = logger
		c.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(c *Contract) {
		_ = c.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// Plugins exposes the plugin registry for late registration.
func (c *Contract) Plugins() *plugin.Registry {
	return c.plugins
}

// Instantiate prepares the backing store and initializes plugins. Call
// it once before the first operation.
func (c *Contract) Instantiate(ctx context.Context) error {
	if err := c.store.Migrate(ctx); err != nil {
		return fmt.Errorf("planledger: migrate: %w", err)
	}

	c.plugins.EmitInit(ctx, c)

	c.logger.Info("contract instantiated",
		"rich_queries", c.store.SupportsRichQuery(),
	)

	return nil
}

// Ping checks backend connectivity.
func (c *Contract) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// Close shuts down the contract and releases the store.
func (c *Contract) Close() error {
	c.plugins.EmitShutdown(context.Background())

	return c.store.Close()
}

// ──────────────────────────────────────────────────
// Client identity
// ──────────────────────────────────────────────────

type ctxKey int

const clientMSPKey ctxKey = iota

// WithClientMSP returns a context carrying the invoking organization's
// MSP identifier. Operations that stamp or check ownership require it.
func WithClientMSP(ctx context.Context, mspID string) context.Context {
	return context.WithValue(ctx, clientMSPKey, mspID)
}

// ClientMSP extracts the invoking organization's MSP identifier from
// the context, or "" when none is set.
func ClientMSP(ctx context.Context) string {
	if v := ctx.Value(clientMSPKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func requireClientMSP(ctx context.Context) (string, error) {
	msp := ClientMSP(ctx)
	if msp == "" {
		return "", ErrMissingClientMSP
	}
	return msp, nil
}

// ──────────────────────────────────────────────────
// Plan lifecycle
// ──────────────────────────────────────────────────

// IssuePlan creates a new gym plan in ISSUED state, owned by the
// invoking organization. The (owner, planNumber) pair must be unused.
// A freshly issued plan normally starts with a zero subscriberCount;
// the parameter exists so migrated plans can carry their count over.
func (c *Contract) IssuePlan(ctx context.Context, owner, planNumber, issueDateTime, activeDateTime, expiryDateTime string,
	subscriberCount, totalAwards, trainerSessions, numClasses, gymAccess, poolAccess int) (*plan.Plan, error) {
	msp, err := requireClientMSP(ctx)
	if err != nil {
		return nil, err
	}
	if subscriberCount < 0 {
		return nil, fmt.Errorf("%w: subscriberCount must not be negative", ErrInvalidArguments)
	}

	p := plan.New(owner, planNumber, issueDateTime, activeDateTime, expiryDateTime,
		subscriberCount, totalAwards, trainerSessions, numClasses, gymAccess, poolAccess)
	p.SetIssued()
	p.SetOwnerMSP(msp)

	err = c.inTx(ctx, func(txCtx context.Context, tx store.Tx) error {
		return planList(tx).Add(txCtx, p)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("plan issued",
		"owner", owner,
		"plan_number", planNumber,
		"msp", msp,
	)

	c.plugins.EmitPlanIssued(ctx, p)
	return p, nil
}

// ActivatePlan moves a plan from SUBSCRIBING to ACTIVE. The plan must
// have at least one subscriber.
func (c *Contract) ActivatePlan(ctx context.Context, owner, planNumber string) (*plan.Plan, error) {
	var p *plan.Plan

	err := c.inTx(ctx, func(txCtx context.Context, tx store.Tx) error {
		plans := planList(tx)

		var err error
		p, err = plans.Get(txCtx, owner, planNumber)
		if err != nil {
			return err
		}

		if !p.IsSubscribing() || p.SubscriberCount == 0 {
			return fmt.Errorf("%w: plan %s:%s is %s with %d subscribers, cannot activate",
				ErrIllegalTransition, owner, planNumber, plan.StateLabel(p.CurrentState), p.SubscriberCount)
		}

		p.SetActive()
		return plans.Update(txCtx, p)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("plan activated", "owner", owner, "plan_number", planNumber)

	c.plugins.EmitPlanActivated(ctx, p)
	return p, nil
}

// ExpirePlan moves a plan to EXPIRED from any state. It is the
// operator's override: no precondition is checked, so a plan can be
// retired even while active with subscribers.
func (c *Contract) ExpirePlan(ctx context.Context, owner, planNumber string) (*plan.Plan, error) {
	var p *plan.Plan

	err := c.inTx(ctx, func(txCtx context.Context, tx store.Tx) error {
		plans := planList(tx)

		var err error
		p, err = plans.Get(txCtx, owner, planNumber)
		if err != nil {
			return err
		}

		p.SetExpired()
		return plans.Update(txCtx, p)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("plan expired", "owner", owner, "plan_number", planNumber)

	c.plugins.EmitPlanExpired(ctx, p)
	return p, nil
}

// ──────────────────────────────────────────────────
// Subscriptions
// ──────────────────────────────────────────────────

// Subscribe subscribes an organization to a plan. A first-time
// subscription creates the record; a previously unsubscribed record is
// flipped back to SUBSCRIBED under the same key. The subscription that
// moves an ISSUED plan to SUBSCRIBING also bumps its subscriber count;
// later subscriptions leave the count untouched.
func (c *Contract) Subscribe(ctx context.Context, subscriber, planNumber, planOwner, subscribeDateTime string) (*subscription.Subscription, error) {
	msp, err := requireClientMSP(ctx)
	if err != nil {
		return nil, err
	}

	var sub *subscription.Subscription

	err = c.inTx(ctx, func(txCtx context.Context, tx store.Tx) error {
		plans := planList(tx)
		subs := subscriptionList(tx)

		p, err := plans.Get(txCtx, planOwner, planNumber)
		if err != nil {
			return err
		}
		if p.IsExpired() {
			return fmt.Errorf("%w: plan %s:%s is expired, cannot subscribe",
				ErrIllegalTransition, planOwner, planNumber)
		}

		existing, err := subs.Get(txCtx, subscriber, planNumber, planOwner)
		switch {
		case err == nil:
			if existing.IsSubscribed() {
				return fmt.Errorf("%w: %s to plan %s:%s",
					ErrAlreadySubscribed, subscriber, planOwner, planNumber)
			}
			existing.SetSubscribed()
			existing.SubscribeDateTime = subscribeDateTime
			existing.SetOwnerMSP(msp)
			if err := subs.Update(txCtx, existing); err != nil {
				return err
			}
			sub = existing
		case IsNotFound(err):
			sub = subscription.New(subscriber, planNumber, planOwner, subscribeDateTime)
			sub.SetSubscribed()
			sub.SetOwnerMSP(msp)
			if err := subs.Add(txCtx, sub); err != nil {
				return err
			}
		default:
			return err
		}

		// Only the transition out of ISSUED touches the plan record.
		if p.IsIssued() {
			p.SetSubscribing()
			p.SubscriberCount++
			return plans.Update(txCtx, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("subscribed",
		"subscriber", subscriber,
		"plan_number", planNumber,
		"plan_owner", planOwner,
	)

	c.plugins.EmitSubscribed(ctx, sub)
	return sub, nil
}

// Unsubscribe moves a subscription to UNSUBSCRIBED. The record stays on
// the ledger so a later re-subscription reuses the same key, and the
// plan's subscriber count is untouched.
func (c *Contract) Unsubscribe(ctx context.Context, subscriber, planNumber, planOwner string) (*subscription.Subscription, error) {
	var sub *subscription.Subscription

	err := c.inTx(ctx, func(txCtx context.Context, tx store.Tx) error {
		subs := subscriptionList(tx)

		var err error
		sub, err = subs.Get(txCtx, subscriber, planNumber, planOwner)
		if err != nil {
			return err
		}
		if !sub.IsSubscribed() {
			return fmt.Errorf("%w: %s to plan %s:%s",
				ErrAlreadyUnsubscribed, subscriber, planOwner, planNumber)
		}

		sub.SetUnsubscribed()
		return subs.Update(txCtx, sub)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("unsubscribed",
		"subscriber", subscriber,
		"plan_number", planNumber,
		"plan_owner", planOwner,
	)

	c.plugins.EmitUnsubscribed(ctx, sub)
	return sub, nil
}

// ──────────────────────────────────────────────────
// Usage
// ──────────────────────────────────────────────────

// UsePlan records a member's consumption under a subscription. The plan
// must be ACTIVE and the subscription SUBSCRIBED; each member gets one
// usage record per subscription.
func (c *Contract) UsePlan(ctx context.Context, planOwner, planNumber, planSubscriber, planMember string,
	trainerSessions, numClasses, gymAccess, poolAccess int) (*usage.Usage, error) {
	msp, err := requireClientMSP(ctx)
	if err != nil {
		return nil, err
	}

	var u *usage.Usage

	err = c.inTx(ctx, func(txCtx context.Context, tx store.Tx) error {
		p, err := planList(tx).Get(txCtx, planOwner, planNumber)
		if err != nil {
			return err
		}
		if !p.IsActive() {
			return fmt.Errorf("%w: plan %s:%s is %s, cannot use",
				ErrIllegalTransition, planOwner, planNumber, plan.StateLabel(p.CurrentState))
		}

		sub, err := subscriptionList(tx).Get(txCtx, planSubscriber, planNumber, planOwner)
		if err != nil {
			return err
		}
		if !sub.IsSubscribed() {
			return fmt.Errorf("%w: subscription of %s to plan %s:%s is %s, cannot use",
				ErrIllegalTransition, planSubscriber, planOwner, planNumber,
				subscription.StateLabel(sub.CurrentState))
		}

		u = usage.New(planOwner, planNumber, planSubscriber, planMember,
			trainerSessions, numClasses, gymAccess, poolAccess)
		u.SetConfirmed()
		u.SetOwnerMSP(msp)
		return usageList(tx).Add(txCtx, u)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("plan used",
		"plan_owner", planOwner,
		"plan_number", planNumber,
		"subscriber", planSubscriber,
		"member", planMember,
	)

	c.plugins.EmitUsageRecorded(ctx, u)
	return u, nil
}

// CancelUsePlan cancels a member's CONFIRMED usage record. The plan must
// still be ACTIVE and the subscription still SUBSCRIBED, and only the
// organization that owns the subscription may cancel usage under it.
func (c *Contract) CancelUsePlan(ctx context.Context, planOwner, planNumber, planSubscriber, planMember string) (*usage.Usage, error) {
	msp, err := requireClientMSP(ctx)
	if err != nil {
		return nil, err
	}

	var u *usage.Usage

	err = c.inTx(ctx, func(txCtx context.Context, tx store.Tx) error {
		p, err := planList(tx).Get(txCtx, planOwner, planNumber)
		if err != nil {
			return err
		}
		if !p.IsActive() {
			return fmt.Errorf("%w: plan %s:%s is %s, cannot cancel usage",
				ErrIllegalTransition, planOwner, planNumber, plan.StateLabel(p.CurrentState))
		}

		sub, err := subscriptionList(tx).Get(txCtx, planSubscriber, planNumber, planOwner)
		if err != nil {
			return err
		}
		if !sub.IsSubscribed() {
			return fmt.Errorf("%w: subscription of %s to plan %s:%s is %s, cannot cancel usage",
				ErrIllegalTransition, planSubscriber, planOwner, planNumber,
				subscription.StateLabel(sub.CurrentState))
		}
		if sub.GetOwnerMSP() != msp {
			return fmt.Errorf("%w: %s does not own the subscription of %s to plan %s:%s",
				ErrUnauthorized, msp, planSubscriber, planOwner, planNumber)
		}

		usages := usageList(tx)
		u, err = usages.Get(txCtx, planOwner, planNumber, planSubscriber, planMember)
		if err != nil {
			return err
		}
		if !u.IsConfirmed() {
			return fmt.Errorf("%w: usage by %s is %s, cannot cancel",
				ErrIllegalTransition, planMember, usage.StateLabel(u.CurrentState))
		}

		u.SetCancelled()
		return usages.Update(txCtx, u)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("plan use cancelled",
		"plan_owner", planOwner,
		"plan_number", planNumber,
		"subscriber", planSubscriber,
		"member", planMember,
	)

	c.plugins.EmitUsageCancelled(ctx, u)
	return u, nil
}

// ──────────────────────────────────────────────────
// Direct reads
// ──────────────────────────────────────────────────

// GetPlan retrieves a plan by its composite key.
func (c *Contract) GetPlan(ctx context.Context, owner, planNumber string) (*plan.Plan, error) {
	var p *plan.Plan
	err := c.viewTx(ctx, func(txCtx context.Context, tx store.Tx) error {
		var err error
		p, err = planList(tx).Get(txCtx, owner, planNumber)
		return err
	})
	return p, err
}

// GetSubscription retrieves a subscription by its composite key.
func (c *Contract) GetSubscription(ctx context.Context, subscriber, planNumber, planOwner string) (*subscription.Subscription, error) {
	var sub *subscription.Subscription
	err := c.viewTx(ctx, func(txCtx context.Context, tx store.Tx) error {
		var err error
		sub, err = subscriptionList(tx).Get(txCtx, subscriber, planNumber, planOwner)
		return err
	})
	return sub, err
}

// GetUsage retrieves a usage record by its composite key.
func (c *Contract) GetUsage(ctx context.Context, planOwner, planNumber, planSubscriber, planMember string) (*usage.Usage, error) {
	var u *usage.Usage
	err := c.viewTx(ctx, func(txCtx context.Context, tx store.Tx) error {
		var err error
		u, err = usageList(tx).Get(txCtx, planOwner, planNumber, planSubscriber, planMember)
		return err
	})
	return u, err
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// QueryPartialPlans returns all plans whose key starts with the given
// leading attributes. With a single owner attribute it lists the
// owner's plans; at least one attribute is required.
func (c *Contract) QueryPartialPlans(ctx context.Context, attrs ...string) ([]query.Result, error) {
	return c.runQuery(ctx, plan.Namespace, func(txCtx context.Context, e *query.Engine) ([]query.Result, error) {
		return e.PartialKey(txCtx, attrs...)
	})
}

// QueryPartialSubscriptions returns all subscriptions whose key starts
// with the given leading attributes.
func (c *Contract) QueryPartialSubscriptions(ctx context.Context, attrs ...string) ([]query.Result, error) {
	return c.runQuery(ctx, subscription.Namespace, func(txCtx context.Context, e *query.Engine) ([]query.Result, error) {
		return e.PartialKey(txCtx, attrs...)
	})
}

// QueryPartialUsages returns all usage records whose key starts with
// the given leading attributes.
func (c *Contract) QueryPartialUsages(ctx context.Context, attrs ...string) ([]query.Result, error) {
	return c.runQuery(ctx, usage.Namespace, func(txCtx context.Context, e *query.Engine) ([]query.Result, error) {
		return e.PartialKey(txCtx, attrs...)
	})
}

// QueryPlansByOwner returns all plans whose owner field equals owner.
// Requires a rich-query backend.
func (c *Contract) QueryPlansByOwner(ctx context.Context, owner string) ([]query.Result, error) {
	return c.runQuery(ctx, plan.Namespace, func(txCtx context.Context, e *query.Engine) ([]query.Result, error) {
		return e.ByOwner(txCtx, owner)
	})
}

// QueryAdhoc runs a caller-supplied selector document verbatim.
// Requires a rich-query backend.
func (c *Contract) QueryAdhoc(ctx context.Context, selector map[string]any) ([]query.Result, error) {
	return c.runQuery(ctx, plan.Namespace, func(txCtx context.Context, e *query.Engine) ([]query.Result, error) {
		return e.Adhoc(txCtx, selector)
	})
}

// QueryNamed runs one of the catalogued plan queries: issued,
// subscribing, active, expired, or awards. Requires a rich-query backend.
func (c *Contract) QueryNamed(ctx context.Context, name string) ([]query.Result, error) {
	return c.runQuery(ctx, plan.Namespace, func(txCtx context.Context, e *query.Engine) ([]query.Result, error) {
		return e.Named(txCtx, name)
	})
}

// PlanHistory returns every committed version of a plan, oldest first,
// with lifecycle states decoded.
func (c *Contract) PlanHistory(ctx context.Context, owner, planNumber string) ([]query.HistoryEntry, error) {
	return c.runHistory(ctx, plan.Namespace, owner, planNumber)
}

// SubscriptionHistory returns every committed version of a subscription.
func (c *Contract) SubscriptionHistory(ctx context.Context, subscriber, planNumber, planOwner string) ([]query.HistoryEntry, error) {
	return c.runHistory(ctx, subscription.Namespace, subscriber, planNumber, planOwner)
}

// UsageHistory returns every committed version of a usage record.
func (c *Contract) UsageHistory(ctx context.Context, planOwner, planNumber, planSubscriber, planMember string) ([]query.HistoryEntry, error) {
	return c.runHistory(ctx, usage.Namespace, planOwner, planNumber, planSubscriber, planMember)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func planList(tx store.Tx) *statelist.List[plan.Plan, *plan.Plan] {
	return statelist.New[plan.Plan](tx, plan.Namespace)
}

func subscriptionList(tx store.Tx) *statelist.List[subscription.Subscription, *subscription.Subscription] {
	return statelist.New[subscription.Subscription](tx, subscription.Namespace)
}

func usageList(tx store.Tx) *statelist.List[usage.Usage, *usage.Usage] {
	return statelist.New[usage.Usage](tx, usage.Namespace)
}

// inTx runs fn in a fresh transaction and commits on success.
func (c *Contract) inTx(ctx context.Context, fn func(context.Context, store.Tx) error) error {
	txID := id.NewTxID().String()
	start := time.Now()

	tx, err := c.store.Begin(ctx, txID)
	if err != nil {
		return fmt.Errorf("planledger: begin %s: %w", txID, err)
	}
	defer tx.Discard()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("planledger: commit %s: %w", txID, err)
	}

	elapsed := time.Since(start)
	c.plugins.EmitCommit(ctx, txID, elapsed)

	c.logger.Debug("transaction committed",
		"tx_id", txID,
		"elapsed_ms", elapsed.Milliseconds(),
	)

	return nil
}

// viewTx runs fn against a read-only transaction view and discards it.
func (c *Contract) viewTx(ctx context.Context, fn func(context.Context, store.Tx) error) error {
	tx, err := c.store.Begin(ctx, id.NewTxID().String())
	if err != nil {
		return fmt.Errorf("planledger: begin: %w", err)
	}
	defer tx.Discard()

	return fn(ctx, tx)
}

func (c *Contract) runQuery(ctx context.Context, namespace string,
	fn func(context.Context, *query.Engine) ([]query.Result, error)) ([]query.Result, error) {
	var results []query.Result
	err := c.viewTx(ctx, func(txCtx context.Context, tx store.Tx) error {
		var err error
		results, err = fn(txCtx, query.New(tx, namespace, query.WithLogger(c.logger)))
		return err
	})
	return results, err
}

func (c *Contract) runHistory(ctx context.Context, namespace string, attrs ...string) ([]query.HistoryEntry, error) {
	var entries []query.HistoryEntry
	err := c.viewTx(ctx, func(txCtx context.Context, tx store.Tx) error {
		var err error
		e := query.New(tx, namespace, query.WithLogger(c.logger))
		entries, err = e.History(txCtx, decoderFor(namespace), attrs...)
		return err
	})
	return entries, err
}

// decoderFor selects the state decoder for a namespace. Unknown
// namespaces decode every state as UNKNOWN.
func decoderFor(namespace string) query.Decoder {
	switch namespace {
	case plan.Namespace:
		return plan.StateLabel
	case subscription.Namespace:
		return subscription.StateLabel
	case usage.Namespace:
		return usage.StateLabel
	default:
		return func(int) string { return "UNKNOWN" }
	}
}
