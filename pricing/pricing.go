// Package pricing recomputes the derived monetary fields of a cart record.
//
// The pipeline runs in a fixed order: aggregation, tax, processor fee,
// shipping cost, total. The tax, processor fee and shipping stages each
// consult an optional override hook first; when the hook is set the default
// formula for that stage is skipped and whatever the hook wrote is kept.
//
// An Engine performs no I/O and holds no state, so one value can be shared by
// any number of carts.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xraph/cart/record"
	"github.com/xraph/cart/types"
)

// Hook replaces one pipeline stage. It mutates the record in place.
type Hook func(rec *record.Record)

// Hooks holds the optional stage overrides.
type Hooks struct {
	Tax          Hook
	ProcessorFee Hook
	Shipping     Hook
}

// Engine runs the pricing pipeline.
type Engine struct{}

// NewEngine returns a pricing engine.
func NewEngine() *Engine { return &Engine{} }

// Calculate recomputes every derived field of rec.
func (e *Engine) Calculate(rec *record.Record, hooks Hooks) {
	e.aggregate(rec)

	if hooks.Tax != nil {
		hooks.Tax(rec)
	} else {
		e.tax(rec)
	}

	if hooks.ProcessorFee != nil {
		hooks.ProcessorFee(rec)
	} else {
		e.processorFee(rec)
	}

	if hooks.Shipping != nil {
		hooks.Shipping(rec)
	} else {
		e.shipping(rec)
	}

	e.total(rec)
}

// aggregate recomputes line totals, subtotal, quantity and HasItems.
func (e *Engine) aggregate(rec *record.Record) {
	subtotal := decimal.Zero
	quantity := 0
	for i := range rec.Items {
		rec.Items[i].Recompute()
		subtotal = subtotal.Add(rec.Items[i].LineTotal)
		quantity += rec.Items[i].Quantity
	}
	rec.Pricing.Subtotal = subtotal
	rec.Pricing.TotalQuantity = quantity
	rec.Flags.HasItems = len(rec.Items) > 0
}

func (e *Engine) tax(rec *record.Record) {
	p := &rec.Pricing
	if !p.TaxRate.IsPositive() {
		p.TaxAmount = decimal.Zero
		return
	}
	p.TaxAmount = p.Subtotal.Add(p.ShippingAmount).Mul(p.TaxRate)
}

// processorFee charges the rate on the pre-fee total grossed up by the rate,
// i.e. (t + t*rate) * rate.
func (e *Engine) processorFee(rec *record.Record) {
	p := &rec.Pricing
	if !rec.Config.UseProcessorFee {
		p.ProcessorFee = decimal.Zero
		return
	}
	rate := rec.Config.ProcessorFeeRate
	t := types.Sum(p.Subtotal, p.TaxAmount, p.ShippingAmount)
	p.ProcessorFee = t.Add(t.Mul(rate)).Mul(rate)
}

func (e *Engine) shipping(rec *record.Record) {
	p := &rec.Pricing
	p.ShippingCost = p.ShippingAmount.Add(p.ProcessorFee)
}

// total rounds the tax amount, then sums. Total is rounded too.
func (e *Engine) total(rec *record.Record) {
	p := &rec.Pricing
	p.TaxAmount = types.Round(p.TaxAmount)
	p.Total = types.Round(types.Sum(p.Subtotal, p.TaxAmount, p.ShippingCost, p.AdditionalFee))
}
