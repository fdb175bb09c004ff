package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
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
	onPlanConfigured []OnPlanConfigured
	onSubscribed     []OnSubscribed
	onRenewed        []OnRenewed
	onUpgraded       []OnUpgraded
	onDowngraded     []OnDowngraded
	onPaymentSettled []OnPaymentSettled
	onRewardAccrued  []OnRewardAccrued
	onRewardsClaimed []OnRewardsClaimed
	onWithdrawn      []OnWithdrawn
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
	if v, ok := p.(OnPlanConfigured); ok {
		r.onPlanConfigured = append(r.onPlanConfigured, v)
	}
	if v, ok := p.(OnSubscribed); ok {
		r.onSubscribed = append(r.onSubscribed, v)
	}
	if v, ok := p.(OnRenewed); ok {
		r.onRenewed = append(r.onRenewed, v)
	}
	if v, ok := p.(OnUpgraded); ok {
		r.onUpgraded = append(r.onUpgraded, v)
	}
	if v, ok := p.(OnDowngraded); ok {
		r.onDowngraded = append(r.onDowngraded, v)
	}
	if v, ok := p.(OnPaymentSettled); ok {
		r.onPaymentSettled = append(r.onPaymentSettled, v)
	}
	if v, ok := p.(OnRewardAccrued); ok {
		r.onRewardAccrued = append(r.onRewardAccrued, v)
	}
	if v, ok := p.(OnRewardsClaimed); ok {
		r.onRewardsClaimed = append(r.onRewardsClaimed, v)
	}
	if v, ok := p.(OnWithdrawn); ok {
		r.onWithdrawn = append(r.onWithdrawn, v)
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

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnPlanConfigured)(nil)).Elem(), "OnPlanConfigured")
	checkInterface(reflect.TypeOf((*OnSubscribed)(nil)).Elem(), "OnSubscribed")
	checkInterface(reflect.TypeOf((*OnRenewed)(nil)).Elem(), "OnRenewed")
	checkInterface(reflect.TypeOf((*OnUpgraded)(nil)).Elem(), "OnUpgraded")
	checkInterface(reflect.TypeOf((*OnDowngraded)(nil)).Elem(), "OnDowngraded")
	checkInterface(reflect.TypeOf((*OnPaymentSettled)(nil)).Elem(), "OnPaymentSettled")
	checkInterface(reflect.TypeOf((*OnRewardAccrued)(nil)).Elem(), "OnRewardAccrued")
	checkInterface(reflect.TypeOf((*OnRewardsClaimed)(nil)).Elem(), "OnRewardsClaimed")
	checkInterface(reflect.TypeOf((*OnWithdrawn)(nil)).Elem(), "OnWithdrawn")

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
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, ledger)
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

// EmitPlanConfigured emits a plan configured event.
func (r *Registry) EmitPlanConfigured(ctx context.Context, plan interface{}) {
	r.mu.RLock()
	plugins := r.onPlanConfigured
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPlanConfigured(ctx, plan)
		}); err != nil {
			r.logger.Warn("plugin OnPlanConfigured failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscribed emits a first-time subscribe event.
func (r *Registry) EmitSubscribed(ctx context.Context, sub interface{}) {
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

// EmitRenewed emits a renewal event.
func (r *Registry) EmitRenewed(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onRenewed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRenewed(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnRenewed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitUpgraded emits an upgrade event.
func (r *Registry) EmitUpgraded(ctx context.Context, sub interface{}, oldTier uint8) {
	r.mu.RLock()
	plugins := r.onUpgraded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnUpgraded(ctx, sub, oldTier)
		}); err != nil {
			r.logger.Warn("plugin OnUpgraded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDowngraded emits a downgrade event.
func (r *Registry) EmitDowngraded(ctx context.Context, sub interface{}, oldTier uint8) {
	r.mu.RLock()
	plugins := r.onDowngraded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDowngraded(ctx, sub, oldTier)
		}); err != nil {
			r.logger.Warn("plugin OnDowngraded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaymentSettled emits a payment settled event.
func (r *Registry) EmitPaymentSettled(ctx context.Context, account string, split interface{}) {
	r.mu.RLock()
	plugins := r.onPaymentSettled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentSettled(ctx, account, split)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentSettled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRewardAccrued emits a reward accrued event.
func (r *Registry) EmitRewardAccrued(ctx context.Context, referrer string, reward int64) {
	r.mu.RLock()
	plugins := r.onRewardAccrued
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRewardAccrued(ctx, referrer, reward)
		}); err != nil {
			r.logger.Warn("plugin OnRewardAccrued failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRewardsClaimed emits a rewards claimed event.
func (r *Registry) EmitRewardsClaimed(ctx context.Context, referrer string, amount int64) {
	r.mu.RLock()
	plugins := r.onRewardsClaimed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRewardsClaimed(ctx, referrer, amount)
		}); err != nil {
			r.logger.Warn("plugin OnRewardsClaimed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitWithdrawn emits a withdrawal event.
func (r *Registry) EmitWithdrawn(ctx context.Context, to string, amount int64) {
	r.mu.RLock()
	plugins := r.onWithdrawn
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnWithdrawn(ctx, to, amount)
		}); err != nil {
			r.logger.Warn("plugin OnWithdrawn failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the settlement pipeline.
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
