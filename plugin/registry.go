package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/cart/event"
	"github.com/xraph/cart/record"
)

// DefaultTimeout bounds each hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit           []OnInit
	onShutdown       []OnShutdown
	onCartLoaded     []OnCartLoaded
	onCartCleared    []OnCartCleared
	onItemChanged    []OnItemChanged
	onAddressChanged []OnAddressChanged
	onRatesRefreshed []OnRatesRefreshed
	onRatesFailed    []OnRatesFailed
	onOrderSubmitted []OnOrderSubmitted
	onOrderRejected  []OnOrderRejected
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
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
	if v, ok := p.(OnCartLoaded); ok {
		r.onCartLoaded = append(r.onCartLoaded, v)
	}
	if v, ok := p.(OnCartCleared); ok {
		r.onCartCleared = append(r.onCartCleared, v)
	}
	if v, ok := p.(OnItemChanged); ok {
		r.onItemChanged = append(r.onItemChanged, v)
	}
	if v, ok := p.(OnAddressChanged); ok {
		r.onAddressChanged = append(r.onAddressChanged, v)
	}
	if v, ok := p.(OnRatesRefreshed); ok {
		r.onRatesRefreshed = append(r.onRatesRefreshed, v)
	}
	if v, ok := p.(OnRatesFailed); ok {
		r.onRatesFailed = append(r.onRatesFailed, v)
	}
	if v, ok := p.(OnOrderSubmitted); ok {
		r.onOrderSubmitted = append(r.onOrderSubmitted, v)
	}
	if v, ok := p.(OnOrderRejected); ok {
		r.onOrderRejected = append(r.onOrderRejected, v)
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
	checkInterface(reflect.TypeOf((*OnCartLoaded)(nil)).Elem(), "OnCartLoaded")
	checkInterface(reflect.TypeOf((*OnCartCleared)(nil)).Elem(), "OnCartCleared")
	checkInterface(reflect.TypeOf((*OnItemChanged)(nil)).Elem(), "OnItemChanged")
	checkInterface(reflect.TypeOf((*OnAddressChanged)(nil)).Elem(), "OnAddressChanged")
	checkInterface(reflect.TypeOf((*OnRatesRefreshed)(nil)).Elem(), "OnRatesRefreshed")
	checkInterface(reflect.TypeOf((*OnRatesFailed)(nil)).Elem(), "OnRatesFailed")
	checkInterface(reflect.TypeOf((*OnOrderSubmitted)(nil)).Elem(), "OnOrderSubmitted")
	checkInterface(reflect.TypeOf((*OnOrderRejected)(nil)).Elem(), "OnOrderRejected")

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

// emit runs call for every plugin in list, logging failures.
func emit[T Plugin](ctx context.Context, r *Registry, list func() []T, hook string, call func(T) error) {
	r.mu.RLock()
	plugins := list()
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return call(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, c any) {
	emit(ctx, r, func() []OnInit { return r.onInit }, "OnInit", func(p OnInit) error {
		return p.OnInit(ctx, c)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, func() []OnShutdown { return r.onShutdown }, "OnShutdown", func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitCartLoaded emits a cart loaded event.
func (r *Registry) EmitCartLoaded(ctx context.Context, rec *record.Record, found bool) {
	emit(ctx, r, func() []OnCartLoaded { return r.onCartLoaded }, "OnCartLoaded", func(p OnCartLoaded) error {
		return p.OnCartLoaded(ctx, rec, found)
	})
}

// EmitCartCleared emits a cart cleared event.
func (r *Registry) EmitCartCleared(ctx context.Context, storeID string) {
	emit(ctx, r, func() []OnCartCleared { return r.onCartCleared }, "OnCartCleared", func(p OnCartCleared) error {
		return p.OnCartCleared(ctx, storeID)
	})
}

// EmitItemChanged emits an item changed event.
func (r *Registry) EmitItemChanged(ctx context.Context, rec *record.Record, change ItemChange) {
	emit(ctx, r, func() []OnItemChanged { return r.onItemChanged }, "OnItemChanged", func(p OnItemChanged) error {
		return p.OnItemChanged(ctx, rec, change)
	})
}

// EmitAddressChanged emits an address changed event.
func (r *Registry) EmitAddressChanged(ctx context.Context, rec *record.Record, kind AddressKind, valid bool) {
	emit(ctx, r, func() []OnAddressChanged { return r.onAddressChanged }, "OnAddressChanged", func(p OnAddressChanged) error {
		return p.OnAddressChanged(ctx, rec, kind, valid)
	})
}

// EmitRatesRefreshed emits a rates refreshed event.
func (r *Registry) EmitRatesRefreshed(ctx context.Context, rec *record.Record, refreshID string, elapsed time.Duration) {
	emit(ctx, r, func() []OnRatesRefreshed { return r.onRatesRefreshed }, "OnRatesRefreshed", func(p OnRatesRefreshed) error {
		return p.OnRatesRefreshed(ctx, rec, refreshID, elapsed)
	})
}

// EmitRatesFailed emits a rates failed event.
func (r *Registry) EmitRatesFailed(ctx context.Context, rec *record.Record, refreshID string, err error) {
	emit(ctx, r, func() []OnRatesFailed { return r.onRatesFailed }, "OnRatesFailed", func(p OnRatesFailed) error {
		return p.OnRatesFailed(ctx, rec, refreshID, err)
	})
}

// EmitOrderSubmitted emits an order submitted event.
func (r *Registry) EmitOrderSubmitted(ctx context.Context, rec *record.Record, result event.OrderResult) {
	emit(ctx, r, func() []OnOrderSubmitted { return r.onOrderSubmitted }, "OnOrderSubmitted", func(p OnOrderSubmitted) error {
		return p.OnOrderSubmitted(ctx, rec, result)
	})
}

// EmitOrderRejected emits an order rejected event.
func (r *Registry) EmitOrderRejected(ctx context.Context, rec *record.Record, reason error) {
	emit(ctx, r, func() []OnOrderRejected { return r.onOrderRejected }, "OnOrderRejected", func(p OnOrderRejected) error {
		return p.OnOrderRejected(ctx, rec, reason)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the cart pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
