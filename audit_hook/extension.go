// Package audithook bridges cart lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on a
// particular audit system. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/cart/event"
	"github.com/xraph/cart/plugin"
	"github.com/xraph/cart/record"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin           = (*Extension)(nil)
	_ plugin.OnCartLoaded     = (*Extension)(nil)
	_ plugin.OnCartCleared    = (*Extension)(nil)
	_ plugin.OnItemChanged    = (*Extension)(nil)
	_ plugin.OnAddressChanged = (*Extension)(nil)
	_ plugin.OnRatesRefreshed = (*Extension)(nil)
	_ plugin.OnRatesFailed    = (*Extension)(nil)
	_ plugin.OnOrderSubmitted = (*Extension)(nil)
	_ plugin.OnOrderRejected  = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
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

// Extension bridges cart lifecycle events to an audit trail backend.
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
// Cart lifecycle hooks
// ──────────────────────────────────────────────────

// OnCartLoaded implements plugin.OnCartLoaded.
func (e *Extension) OnCartLoaded(ctx context.Context, rec *record.Record, found bool) error {
	action := ActionCartLoaded
	if found {
		action = ActionCartRestored
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceCart, rec.ID.String(), CategoryCart, nil,
		"store_id", rec.StoreID,
		"private", rec.Private,
		"items", len(rec.Items),
	)
}

// OnCartCleared implements plugin.OnCartCleared.
func (e *Extension) OnCartCleared(ctx context.Context, storeID string) error {
	return e.record(ctx, ActionCartCleared, SeverityInfo, OutcomeSuccess,
		ResourceCart, "", CategoryCart, nil,
		"store_id", storeID,
	)
}

// ──────────────────────────────────────────────────
// Content hooks
// ──────────────────────────────────────────────────

// OnItemChanged implements plugin.OnItemChanged.
func (e *Extension) OnItemChanged(ctx context.Context, rec *record.Record, change plugin.ItemChange) error {
	action := ActionItemUpdated
	switch {
	case change.OldQuantity == 0:
		action = ActionItemAdded
	case change.NewQuantity == 0:
		action = ActionItemRemoved
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceItem, change.VariantID, CategoryCart, nil,
		"cart_id", rec.ID.String(),
		"product_key", change.ProductKey,
		"old_quantity", change.OldQuantity,
		"new_quantity", change.NewQuantity,
	)
}

// OnAddressChanged implements plugin.OnAddressChanged.
func (e *Extension) OnAddressChanged(ctx context.Context, rec *record.Record, kind plugin.AddressKind, valid bool) error {
	outcome := OutcomeSuccess
	severity := SeverityInfo
	if !valid {
		outcome, severity = OutcomeFailure, SeverityWarning
	}
	return e.record(ctx, ActionAddressChanged, severity, outcome,
		ResourceAddress, string(kind), CategoryCheckout, nil,
		"cart_id", rec.ID.String(),
		"kind", string(kind),
		"valid", valid,
	)
}

// ──────────────────────────────────────────────────
// Rate refresh hooks
// ──────────────────────────────────────────────────

// OnRatesRefreshed implements plugin.OnRatesRefreshed.
func (e *Extension) OnRatesRefreshed(ctx context.Context, rec *record.Record, refreshID string, elapsed time.Duration) error {
	return e.record(ctx, ActionRatesRefreshed, SeverityInfo, OutcomeSuccess,
		ResourceRates, refreshID, CategoryCheckout, nil,
		"cart_id", rec.ID.String(),
		"tax_rate", rec.Pricing.TaxRate.String(),
		"shipping_amount", rec.Pricing.ShippingAmount.String(),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnRatesFailed implements plugin.OnRatesFailed.
func (e *Extension) OnRatesFailed(ctx context.Context, rec *record.Record, refreshID string, err error) error {
	return e.record(ctx, ActionRatesFailed, SeverityError, OutcomeFailure,
		ResourceRates, refreshID, CategoryCheckout, err,
		"cart_id", rec.ID.String(),
	)
}

// ──────────────────────────────────────────────────
// Order hooks
// ──────────────────────────────────────────────────

// OnOrderSubmitted implements plugin.OnOrderSubmitted.
func (e *Extension) OnOrderSubmitted(ctx context.Context, rec *record.Record, result event.OrderResult) error {
	return e.record(ctx, ActionOrderSubmitted, SeverityInfo, OutcomeSuccess,
		ResourceOrder, result.OrderID.String(), CategoryPayment, nil,
		"cart_id", rec.ID.String(),
		"reference", result.Reference,
		"status", result.Status,
		"total", rec.Pricing.Total.String(),
	)
}

// OnOrderRejected implements plugin.OnOrderRejected.
func (e *Extension) OnOrderRejected(ctx context.Context, rec *record.Record, reason error) error {
	return e.record(ctx, ActionOrderRejected, SeverityCritical, OutcomeFailure,
		ResourceOrder, "", CategoryPayment, reason,
		"cart_id", rec.ID.String(),
		"total", rec.Pricing.Total.String(),
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
