package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/gymplannet/planledger/plan"
	"github.com/gymplannet/planledger/subscription"
	"github.com/gymplannet/planledger/usage"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit           []OnInit
	onShutdown       []OnShutdown
	onPlanIssued     []OnPlanIssued
	onPlanActivated  []OnPlanActivated
	onPlanExpired    []OnPlanExpired
	onSubscribed     []OnSubscribed
	onUnsubscribed   []OnUnsubscribed
	onUsageRecorded  []OnUsageRecorded
	onUsageCancelled []OnUsageCancelled
	onCommit         []OnCommit
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnPlanIssued); ok {
		r.onPlanIssued = append(r.onPlanIssued, v)
	}
	if v, ok := p.(OnPlanActivated); ok {
		r.onPlanActivated = append(r.onPlanActivated, v)
	}
	if v, ok := p.(OnPlanExpired); ok {
		r.onPlanExpired = append(r.onPlanExpired, v)
	}
	if v, ok := p.(OnSubscribed); ok {
		r.onSubscribed = append(r.onSubscribed, v)
	}
	if v, ok := p.(OnUnsubscribed); ok {
		r.onUnsubscribed = append(r.onUnsubscribed, v)
	}
	if v, ok := p.(OnUsageRecorded); ok {
		r.onUsageRecorded = append(r.onUsageRecorded, v)
	}
	if v, ok := p.(OnUsageCancelled); ok {
		r.onUsageCancelled = append(r.onUsageCancelled, v)
	}
	if v, ok := p.(OnCommit); ok {
		r.onCommit = append(r.onCommit, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnPlanIssued)(nil)).Elem(), "OnPlanIssued")
	checkInterface(reflect.TypeOf((*OnPlanActivated)(nil)).Elem(), "OnPlanActivated")
	checkInterface(reflect.TypeOf((*OnPlanExpired)(nil)).Elem(), "OnPlanExpired")
	checkInterface(reflect.TypeOf((*OnSubscribed)(nil)).Elem(), "OnSubscribed")
	checkInterface(reflect.TypeOf((*OnUnsubscribed)(nil)).Elem(), "OnUnsubscribed")
	checkInterface(reflect.TypeOf((*OnUsageRecorded)(nil)).Elem(), "OnUsageRecorded")
	checkInterface(reflect.TypeOf((*OnUsageCancelled)(nil)).Elem(), "OnUsageCancelled")
	checkInterface(reflect.TypeOf((*OnCommit)(nil)).Elem(), "OnCommit")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, contract interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, contract)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPlanIssued emits a plan issued event.
func (r *Registry) EmitPlanIssued(ctx context.Context, pl *plan.Plan) {
	r.mu.RLock()
	plugins := r.onPlanIssued
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPlanIssued(ctx, pl)
		}); err != nil {
			r.logger.Warn("plugin OnPlanIssued failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPlanActivated emits a plan activated event.
func (r *Registry) EmitPlanActivated(ctx context.Context, pl *plan.Plan) {
	r.mu.RLock()
	plugins := r.onPlanActivated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPlanActivated(ctx, pl)
		}); err != nil {
			r.logger.Warn("plugin OnPlanActivated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPlanExpired emits a plan expired event.
func (r *Registry) EmitPlanExpired(ctx context.Context, pl *plan.Plan) {
	r.mu.RLock()
	plugins := r.onPlanExpired
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPlanExpired(ctx, pl)
		}); err != nil {
			r.logger.Warn("plugin OnPlanExpired failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscribed emits a subscribed event.
func (r *Registry) EmitSubscribed(ctx context.Context, sub *subscription.Subscription) {
	r.mu.RLock()
	plugins := r.onSubscribed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscribed(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnSubscribed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitUnsubscribed emits an unsubscribed event.
func (r *Registry) EmitUnsubscribed(ctx context.Context, sub *subscription.Subscription) {
	r.mu.RLock()
	plugins := r.onUnsubscribed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnUnsubscribed(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnUnsubscribed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitUsageRecorded emits a usage recorded event.
func (r *Registry) EmitUsageRecorded(ctx context.Context, u *usage.Usage) {
	r.mu.RLock()
	plugins := r.onUsageRecorded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnUsageRecorded(ctx, u)
		}); err != nil {
			r.logger.Warn("plugin OnUsageRecorded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitUsageCancelled emits a usage cancelled event.
func (r *Registry) EmitUsageCancelled(ctx context.Context, u *usage.Usage) {
	r.mu.RLock()
	plugins := r.onUsageCancelled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnUsageCancelled(ctx, u)
		}); err != nil {
			r.logger.Warn("plugin OnUsageCancelled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCommit emits a transaction committed event.
func (r *Registry) EmitCommit(ctx context.Context, txID string, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onCommit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCommit(ctx, txID, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnCommit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins must never block the transaction pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
