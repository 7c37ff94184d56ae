// Package plugin provides an extensible plugin system for the cart engine.
// Plugins observe cart lifecycle events; they cannot change cart state.
//
// A plugin implements Plugin plus any subset of the hook interfaces below.
// The Registry discovers the implemented hooks once, at registration time.
// Every record passed to a hook is a snapshot and must be treated as
// read-only.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/cart/event"
	"github.com/xraph/cart/record"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when a cart is opened.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, c any) error
}

// OnShutdown is called when a cart is closed.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// OnCartLoaded is called after a record is restored, or created with
// defaults when found is false.
type OnCartLoaded interface {
	Plugin
	OnCartLoaded(ctx context.Context, rec *record.Record, found bool) error
}

// OnCartCleared is called after a cart is reset and its stored record
// removed.
type OnCartCleared interface {
	Plugin
	OnCartCleared(ctx context.Context, storeID string) error
}

// ──────────────────────────────────────────────────
// Content hooks
// ──────────────────────────────────────────────────

// ItemChange describes a quantity change of one line. OldQuantity is 0 for
// an added line, NewQuantity is 0 for a removed one.
type ItemChange struct {
	ProductKey  string
	VariantID   string
	OldQuantity int
	NewQuantity int
}

// OnItemChanged is called after a line is added, changed or removed.
type OnItemChanged interface {
	Plugin
	OnItemChanged(ctx context.Context, rec *record.Record, change ItemChange) error
}

// AddressKind names which address changed.
type AddressKind string

// Address kinds.
const (
	AddressBilling  AddressKind = "billing"
	AddressShipping AddressKind = "shipping"
)

// OnAddressChanged is called after an address is replaced.
type OnAddressChanged interface {
	Plugin
	OnAddressChanged(ctx context.Context, rec *record.Record, kind AddressKind, valid bool) error
}

// ──────────────────────────────────────────────────
// Rate refresh hooks
// ──────────────────────────────────────────────────

// OnRatesRefreshed is called after a rates lookup succeeds.
type OnRatesRefreshed interface {
	Plugin
	OnRatesRefreshed(ctx context.Context, rec *record.Record, refreshID string, elapsed time.Duration) error
}

// OnRatesFailed is called after a rates lookup fails.
type OnRatesFailed interface {
	Plugin
	OnRatesFailed(ctx context.Context, rec *record.Record, refreshID string, err error) error
}

// ──────────────────────────────────────────────────
// Order hooks
// ──────────────────────────────────────────────────

// OnOrderSubmitted is called after the submit handler succeeds.
type OnOrderSubmitted interface {
	Plugin
	OnOrderSubmitted(ctx context.Context, rec *record.Record, result event.OrderResult) error
}

// OnOrderRejected is called when a submission is refused or the submit
// handler fails.
type OnOrderRejected interface {
	Plugin
	OnOrderRejected(ctx context.Context, rec *record.Record, reason error) error
}
