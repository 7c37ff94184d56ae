package cart

import (
	"context"

	"github.com/shopspring/decimal"
)

// SetCoupon stores a coupon code. Pricing is unchanged; redeeming coupons
// is up to the host.
func (c *Cart) SetCoupon(ctx context.Context, code string) error {
	c.mu.Lock()
	c.rec.Coupon = code
	snap, err := c.commit(ctx, false)
	c.mu.Unlock()

	c.bus.TriggerUpdate(ctx, snap)
	return err
}

// SetAdditionalFee sets the flat fee added to the total. Totals are not
// recomputed until the next repricing mutation or Recalculate.
func (c *Cart) SetAdditionalFee(ctx context.Context, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ValidationError{Field: "additional_fee", Message: "must not be negative"}
	}

	c.mu.Lock()
	c.rec.Pricing.AdditionalFee = amount
	snap, err := c.commit(ctx, false)
	c.mu.Unlock()

	c.bus.TriggerUpdate(ctx, snap)
	return err
}

// SetProcessorFee enables or disables the payment processor fee and sets
// its rate. Like SetAdditionalFee it does not reprice.
func (c *Cart) SetProcessorFee(ctx context.Context, enabled bool, rate decimal.Decimal) error {
	if rate.IsNegative() {
		return ValidationError{Field: "processor_fee_rate", Message: "must not be negative"}
	}

	c.mu.Lock()
	c.feeSet, c.feeEnabled, c.feeRate = true, enabled, rate
	c.rec.Config.UseProcessorFee = enabled
	c.rec.Config.ProcessorFeeRate = rate
	snap, err := c.commit(ctx, false)
	c.mu.Unlock()

	c.bus.TriggerUpdate(ctx, snap)
	return err
}

// SetPrivate switches the cart between the public and private partition and
// loads the record stored for the new one. Without partitioning both
// partitions share one key and only the flag changes.
func (c *Cart) SetPrivate(ctx context.Context, private bool) error {
	c.mu.Lock()
	if c.rec.Private == private {
		c.mu.Unlock()
		return nil
	}
	c.private = private
	rec, found := c.persist.Load(ctx, c.storeID, private)
	rec.Private = private
	c.install(rec)
	snap, err := c.commit(ctx, false)
	c.mu.Unlock()

	c.bus.TriggerUpdate(ctx, snap)
	c.plugins.EmitCartLoaded(ctx, snap, found)
	return err
}

// Clear resets the cart to defaults and removes the stored record. The
// processor fee configuration survives.
func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	cfg := c.rec.Config
	rec := c.newRecord()
	rec.Config = cfg
	c.install(rec)
	err := c.persist.Delete(ctx, c.storeID, rec.Private)
	if err != nil {
		c.logger.Error("cart: clear failed",
			"store_id", c.storeID,
			"error", err,
		)
		err = wrapPersist(err)
	}
	snap := c.rec.Clone()
	c.mu.Unlock()

	c.bus.TriggerUpdate(ctx, snap)
	c.plugins.EmitCartCleared(ctx, c.storeID)
	return err
}
