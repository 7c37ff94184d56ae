// Package event implements the cart's hook bus: a closed set of labels, each
// with at most one handler. Registering a handler for a label that already
// has one replaces it.
//
// Labels and their handler types:
//
//	update          UpdateHandler  observes every state change
//	submit          SubmitHandler  turns the cart into an order
//	rates           RatesHandler   looks up tax rate and shipping amount
//	price.tax       PriceHandler   replaces the tax stage of pricing
//	price.shipping  PriceHandler   replaces the shipping stage of pricing
//	price.stripeFee PriceHandler   replaces the processor fee stage of pricing
package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xraph/cart/id"
	"github.com/xraph/cart/pricing"
	"github.com/xraph/cart/record"
	"github.com/xraph/cart/shipment"
)

// Label names a hook slot.
type Label string

// The fixed label set.
const (
	LabelUpdate         Label = "update"
	LabelSubmit         Label = "submit"
	LabelRates          Label = "rates"
	LabelPriceTax       Label = "price.tax"
	LabelPriceShipping  Label = "price.shipping"
	LabelPriceStripeFee Label = "price.stripeFee"
)

// Labels returns every valid label.
func Labels() []Label {
	return []Label{
		LabelUpdate, LabelSubmit, LabelRates,
		LabelPriceTax, LabelPriceShipping, LabelPriceStripeFee,
	}
}

// Valid reports whether l is one of the fixed labels.
func (l Label) Valid() bool {
	switch l {
	case LabelUpdate, LabelSubmit, LabelRates,
		LabelPriceTax, LabelPriceShipping, LabelPriceStripeFee:
		return true
	}
	return false
}

// Bus errors.
var (
	ErrUnknownLabel    = errors.New("cart/event: unknown label")
	ErrInvalidHandler  = errors.New("cart/event: invalid handler")
	ErrNoSubmitHandler = errors.New("cart/event: no submit handler registered")
)

// UpdateHandler receives a snapshot after every state change.
type UpdateHandler func(ctx context.Context, snapshot *record.Record)

// SubmitHandler places an order for the snapshot.
type SubmitHandler func(ctx context.Context, snapshot *record.Record, payload OrderPayload) (OrderResult, error)

// RatesHandler writes Pricing.TaxRate and Pricing.ShippingAmount into rec.
// It may also set Pricing.TaxAmount, Pricing.ShippingCost or
// Pricing.ProcessorFee directly, but each is kept only while the matching
// price.tax, price.shipping or price.stripeFee hook is registered, since
// otherwise the pricing engine recomputes it. rec is a private working
// copy; any other field written to it is discarded.
type RatesHandler func(ctx context.Context, rec *record.Record, req shipment.Request) error

// PriceHandler replaces one pricing stage.
type PriceHandler = pricing.Hook

// OrderPayload is the caller-supplied input to a submission.
type OrderPayload struct {
	// OrderID is assigned by the cart when left nil.
	OrderID id.OrderID `json:"order_id"`
	// PaymentToken is an opaque token from the host's payment SDK.
	PaymentToken string            `json:"payment_token,omitempty"`
	Currency     string            `json:"currency,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// OrderResult is whatever the submit handler reports back.
type OrderResult struct {
	OrderID   id.OrderID        `json:"order_id"`
	Reference string            `json:"reference,omitempty"`
	Status    string            `json:"status,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Bus holds one handler per label. It is safe for concurrent use.
type Bus struct {
	mu        sync.RWMutex
	update    UpdateHandler
	submit    SubmitHandler
	rates     RatesHandler
	tax       PriceHandler
	shipping  PriceHandler
	stripeFee PriceHandler
}

// NewBus returns an empty bus.
func NewBus() *Bus { return &Bus{} }

// Register installs handler under label, replacing any previous handler.
// Plain func literals of the matching signature are accepted.
func (b *Bus) Register(label Label, handler any) error {
	if !label.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %q", ErrInvalidHandler, label)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch label {
	case LabelUpdate:
		h, ok := asUpdate(handler)
		if !ok {
			return invalid(label, handler)
		}
		b.update = h
	case LabelSubmit:
		h, ok := asSubmit(handler)
		if !ok {
			return invalid(label, handler)
		}
		b.submit = h
	case LabelRates:
		h, ok := asRates(handler)
		if !ok {
			return invalid(label, handler)
		}
		b.rates = h
	default:
		h, ok := asPrice(handler)
		if !ok {
			return invalid(label, handler)
		}
		switch label {
		case LabelPriceTax:
			b.tax = h
		case LabelPriceShipping:
			b.shipping = h
		case LabelPriceStripeFee:
			b.stripeFee = h
		}
	}
	return nil
}

// Has reports whether a handler is registered for label.
func (b *Bus) Has(label Label) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	switch label {
	case LabelUpdate:
		return b.update != nil
	case LabelSubmit:
		return b.submit != nil
	case LabelRates:
		return b.rates != nil
	case LabelPriceTax:
		return b.tax != nil
	case LabelPriceShipping:
		return b.shipping != nil
	case LabelPriceStripeFee:
		return b.stripeFee != nil
	}
	return false
}

// TriggerUpdate calls the update handler, if any.
func (b *Bus) TriggerUpdate(ctx context.Context, snapshot *record.Record) {
	b.mu.RLock()
	h := b.update
	b.mu.RUnlock()

	if h != nil {
		h(ctx, snapshot)
	}
}

// TriggerSubmit calls the submit handler and returns its result unchanged.
// It returns ErrNoSubmitHandler when none is registered.
func (b *Bus) TriggerSubmit(ctx context.Context, snapshot *record.Record, payload OrderPayload) (OrderResult, error) {
	b.mu.RLock()
	h := b.submit
	b.mu.RUnlock()

	if h == nil {
		return OrderResult{}, ErrNoSubmitHandler
	}
	return h(ctx, snapshot, payload)
}

// TriggerRates calls the rates handler. The boolean reports whether one was
// registered.
func (b *Bus) TriggerRates(ctx context.Context, rec *record.Record, req shipment.Request) (bool, error) {
	b.mu.RLock()
	h := b.rates
	b.mu.RUnlock()

	if h == nil {
		return false, nil
	}
	return true, h(ctx, rec, req)
}

// Hooks returns the registered pricing overrides.
func (b *Bus) Hooks() pricing.Hooks {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return pricing.Hooks{
		Tax:          b.tax,
		ProcessorFee: b.stripeFee,
		Shipping:     b.shipping,
	}
}

func invalid(label Label, handler any) error {
	return fmt.Errorf("%w: %T cannot handle %q", ErrInvalidHandler, handler, label)
}

func asUpdate(h any) (UpdateHandler, bool) {
	switch fn := h.(type) {
	case UpdateHandler:
		return fn, fn != nil
	case func(context.Context, *record.Record):
		return fn, fn != nil
	}
	return nil, false
}

func asSubmit(h any) (SubmitHandler, bool) {
	switch fn := h.(type) {
	case SubmitHandler:
		return fn, fn != nil
	case func(context.Context, *record.Record, OrderPayload) (OrderResult, error):
		return fn, fn != nil
	}
	return nil, false
}

func asRates(h any) (RatesHandler, bool) {
	switch fn := h.(type) {
	case RatesHandler:
		return fn, fn != nil
	case func(context.Context, *record.Record, shipment.Request) error:
		return fn, fn != nil
	}
	return nil, false
}

func asPrice(h any) (PriceHandler, bool) {
	switch fn := h.(type) {
	case PriceHandler:
		return fn, fn != nil
	case func(*record.Record):
		return fn, fn != nil
	}
	return nil, false
}
