// Package observability provides a metrics extension for the cart engine
// that records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/cart/event"
	"github.com/xraph/cart/plugin"
	"github.com/xraph/cart/record"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin           = (*MetricsExtension)(nil)
	_ plugin.OnInit           = (*MetricsExtension)(nil)
	_ plugin.OnCartLoaded     = (*MetricsExtension)(nil)
	_ plugin.OnCartCleared    = (*MetricsExtension)(nil)
	_ plugin.OnItemChanged    = (*MetricsExtension)(nil)
	_ plugin.OnAddressChanged = (*MetricsExtension)(nil)
	_ plugin.OnRatesRefreshed = (*MetricsExtension)(nil)
	_ plugin.OnRatesFailed    = (*MetricsExtension)(nil)
	_ plugin.OnOrderSubmitted = (*MetricsExtension)(nil)
	_ plugin.OnOrderRejected  = (*MetricsExtension)(nil)
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

// MetricsExtension records cart lifecycle metrics.
// Register it as a cart plugin to track item, rate and order activity.
type MetricsExtension struct {
	factory MetricFactory

	// Cart metrics
	CartsOpened   Counter
	CartsRestored Counter
	CartsCleared  Counter

	// Item metrics
	ItemsAdded   Counter
	ItemsUpdated Counter
	ItemsRemoved Counter

	// Address metrics
	AddressChanged Counter
	AddressInvalid Counter

	// Rate metrics
	RatesRefreshed Counter
	RatesFailed    Counter
	RatesLatency   Histogram

	// Order metrics
	OrdersSubmitted Counter
	OrdersRejected  Counter
	OrderTotal      Histogram
	OrderQuantity   Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		CartsOpened:   factory.Counter("cart.opened"),
		CartsRestored: factory.Counter("cart.restored"),
		CartsCleared:  factory.Counter("cart.cleared"),

		ItemsAdded:   factory.Counter("cart.item.added"),
		ItemsUpdated: factory.Counter("cart.item.updated"),
		ItemsRemoved: factory.Counter("cart.item.removed"),

		AddressChanged: factory.Counter("cart.address.changed"),
		AddressInvalid: factory.Counter("cart.address.invalid"),

		RatesRefreshed: factory.Counter("cart.rates.refreshed"),
		RatesFailed:    factory.Counter("cart.rates.failed"),
		RatesLatency:   factory.Histogram("cart.rates.latency_ms"),

		OrdersSubmitted: factory.Counter("cart.order.submitted"),
		OrdersRejected:  factory.Counter("cart.order.rejected"),
		OrderTotal:      factory.Histogram("cart.order.total_amount"),
		OrderQuantity:   factory.Histogram("cart.order.quantity"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	m.CartsOpened.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Cart lifecycle hooks
// ──────────────────────────────────────────────────

// OnCartLoaded implements plugin.OnCartLoaded.
func (m *MetricsExtension) OnCartLoaded(_ context.Context, _ *record.Record, found bool) error {
	if found {
		m.CartsRestored.Inc()
	}
	return nil
}

// OnCartCleared implements plugin.OnCartCleared.
func (m *MetricsExtension) OnCartCleared(_ context.Context, _ string) error {
	m.CartsCleared.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Content hooks
// ──────────────────────────────────────────────────

// OnItemChanged implements plugin.OnItemChanged.
func (m *MetricsExtension) OnItemChanged(_ context.Context, _ *record.Record, change plugin.ItemChange) error {
	switch {
	case change.OldQuantity == 0:
		m.ItemsAdded.Inc()
	case change.NewQuantity == 0:
		m.ItemsRemoved.Inc()
	default:
		m.ItemsUpdated.Inc()
	}
	return nil
}

// OnAddressChanged implements plugin.OnAddressChanged.
func (m *MetricsExtension) OnAddressChanged(_ context.Context, _ *record.Record, _ plugin.AddressKind, valid bool) error {
	m.AddressChanged.Inc()
	if !valid {
		m.AddressInvalid.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Rate refresh hooks
// ──────────────────────────────────────────────────

// OnRatesRefreshed implements plugin.OnRatesRefreshed.
func (m *MetricsExtension) OnRatesRefreshed(_ context.Context, _ *record.Record, _ string, elapsed time.Duration) error {
	m.RatesRefreshed.Inc()
	m.RatesLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnRatesFailed implements plugin.OnRatesFailed.
func (m *MetricsExtension) OnRatesFailed(_ context.Context, _ *record.Record, _ string, _ error) error {
	m.RatesFailed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Order hooks
// ──────────────────────────────────────────────────

// OnOrderSubmitted implements plugin.OnOrderSubmitted.
func (m *MetricsExtension) OnOrderSubmitted(_ context.Context, rec *record.Record, _ event.OrderResult) error {
	m.OrdersSubmitted.Inc()
	total, _ := rec.Pricing.Total.Float64()
	m.OrderTotal.Observe(total)
	m.OrderQuantity.Observe(float64(rec.Pricing.TotalQuantity))
	return nil
}

// OnOrderRejected implements plugin.OnOrderRejected.
func (m *MetricsExtension) OnOrderRejected(_ context.Context, _ *record.Record, _ error) error {
	m.OrdersRejected.Inc()
	return nil
}
