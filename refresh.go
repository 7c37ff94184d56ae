package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/cart/event"
	"github.com/xraph/cart/id"
	"github.com/xraph/cart/record"
	"github.com/xraph/cart/shipment"
)

// RefreshRates looks up the tax rate and shipping amount for the current
// contents and billing address, then reprices. It returns
// ErrBillingAddressInvalid when the billing address is missing or not
// valid. A failing rates handler is not an error here: it is logged and
// recorded in Record.Error.
func (c *Cart) RefreshRates(ctx context.Context) error {
	c.mu.Lock()
	ready := billingReady(c.rec)
	c.mu.Unlock()

	if !ready {
		return ErrBillingAddressInvalid
	}
	return c.refreshRates(ctx)
}

// IsRefreshingRates reports whether any rate refresh is in flight.
func (c *Cart) IsRefreshingRates() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight > 0
}

func billingReady(rec *record.Record) bool {
	return rec.BillingAddress != nil && rec.Validity.BillingValid
}

// refreshRates runs one rate refresh. Overlapping refreshes are not queued:
// each works on its own copy of the record and the last to finish wins.
// The returned error only reports persistence failures.
func (c *Cart) refreshRates(ctx context.Context) error {
	c.mu.Lock()
	if !billingReady(c.rec) {
		c.mu.Unlock()
		return nil
	}
	c.inflight++
	c.rec.Flags.IsRefreshingRates = true
	gen := c.generation
	startErr := c.saveLocked(ctx)
	work := c.rec.Clone()
	snap := c.rec.Clone()
	req := shipment.Build(work)
	c.shipment = req.Clone()
	c.mu.Unlock()

	c.bus.TriggerUpdate(ctx, snap)

	refreshID := id.NewRefreshID().String()
	start := c.now()
	called, ratesErr := c.lookupRates(ctx, work, req)
	elapsed := c.now().Sub(start)

	c.mu.Lock()
	c.inflight--
	if gen != c.generation {
		// The record was replaced while the lookup ran.
		c.rec.Flags.IsRefreshingRates = c.inflight > 0
		snap = c.rec.Clone()
		c.mu.Unlock()

		c.logger.Debug("cart: discarding rates for replaced record",
			"store_id", c.storeID,
			"refresh_id", refreshID,
		)
		c.bus.TriggerUpdate(ctx, snap)
		return startErr
	}

	switch {
	case ratesErr != nil:
		c.rec.Error = ratesErr.Error()
		c.logger.Warn("cart: rates lookup failed",
			"store_id", c.storeID,
			"refresh_id", refreshID,
			"error", ratesErr,
		)
	case called:
		mergeRates(c.rec, work, c.bus)
		c.rec.Error = ""
	}
	c.reprice()
	c.rec.Flags.IsRefreshingRates = c.inflight > 0
	endErr := c.saveLocked(ctx)
	snap = c.rec.Clone()
	c.mu.Unlock()

	c.bus.TriggerUpdate(ctx, snap)

	switch {
	case ratesErr != nil:
		c.plugins.EmitRatesFailed(ctx, snap, refreshID, ratesErr)
	case called:
		c.logger.Debug("cart: rates refreshed",
			"store_id", c.storeID,
			"refresh_id", refreshID,
			"tax_rate", snap.Pricing.TaxRate.String(),
			"shipping_amount", snap.Pricing.ShippingAmount.String(),
			"elapsed", elapsed,
		)
		c.plugins.EmitRatesRefreshed(ctx, snap, refreshID, elapsed)
	}

	return errors.Join(startErr, endErr)
}

// mergeRates copies what a rates handler may write from work into rec. A
// stage whose price hook is registered is not recomputed by the engine, so
// the handler's value for it is kept as well.
func mergeRates(rec, work *record.Record, bus *event.Bus) {
	rec.Pricing.ShippingAmount = work.Pricing.ShippingAmount
	rec.Pricing.TaxRate = work.Pricing.TaxRate
	if bus.Has(event.LabelPriceTax) {
		rec.Pricing.TaxAmount = work.Pricing.TaxAmount
	}
	if bus.Has(event.LabelPriceShipping) {
		rec.Pricing.ShippingCost = work.Pricing.ShippingCost
	}
	if bus.Has(event.LabelPriceStripeFee) {
		rec.Pricing.ProcessorFee = work.Pricing.ProcessorFee
	}
}

// Shipment returns the request built for the most recent rate refresh. It
// is the zero Request until a refresh has run.
func (c *Cart) Shipment() shipment.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shipment.Clone()
}

// lookupRates calls the rates handler on work, bounded by the configured
// timeout and ctx. A handler that overruns is abandoned; it only ever
// touches work, which is discarded.
func (c *Cart) lookupRates(ctx context.Context, work *record.Record, req shipment.Request) (bool, error) {
	if !c.bus.Has(event.LabelRates) {
		return false, nil
	}
	if c.ratesTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.ratesTimeout)
		defer cancel()
	}

	type result struct {
		called bool
		err    error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{called: true, err: fmt.Errorf("%w: handler panic: %v", ErrRatesFailed, r)}
			}
		}()
		called, err := c.bus.TriggerRates(ctx, work, req)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrRatesFailed, err)
		}
		done <- result{called: called, err: err}
	}()

	select {
	case r := <-done:
		return r.called, r.err
	case <-ctx.Done():
		return true, fmt.Errorf("%w: %w", ErrRatesFailed, ctx.Err())
	}
}

// RatesTimeout returns the bound applied to each rates lookup.
func (c *Cart) RatesTimeout() time.Duration { return c.ratesTimeout }
