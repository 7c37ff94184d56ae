package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/cart/plugin"
	"github.com/xraph/cart/record"
)

// SetBillingAddress replaces the billing address and its validity. Unless a
// separate shipping address is in use, the shipping address follows. Rates
// are refreshed when the address is valid.
func (c *Cart) SetBillingAddress(ctx context.Context, addr *record.Address, valid bool) error {
	if addr == nil {
		return fmt.Errorf("%w: nil billing address", ErrInvalidInput)
	}

	c.mu.Lock()
	c.rec.BillingAddress = addr.Clone()
	c.rec.Validity.BillingValid = valid
	c.rec.SyncShipping()
	snap, err := c.commit(ctx, false)
	c.mu.Unlock()

	c.addressChanged(ctx, snap, plugin.AddressBilling, valid)
	if !snap.UseDifferentShipping {
		c.plugins.EmitAddressChanged(ctx, snap, plugin.AddressShipping, valid)
	}
	return errors.Join(err, c.refreshRates(ctx))
}

// SetShippingAddress replaces the shipping address and its validity and
// switches the cart to a separate shipping address. Rates are looked up
// against the billing address, so no refresh runs.
func (c *Cart) SetShippingAddress(ctx context.Context, addr *record.Address, valid bool) error {
	if addr == nil {
		return fmt.Errorf("%w: nil shipping address", ErrInvalidInput)
	}

	c.mu.Lock()
	c.rec.UseDifferentShipping = true
	c.rec.ShippingAddress = addr.Clone()
	c.rec.Validity.ShippingValid = valid
	snap, err := c.commit(ctx, false)
	c.mu.Unlock()

	c.addressChanged(ctx, snap, plugin.AddressShipping, valid)
	return err
}

// UseDifferentShipping toggles the separate shipping address. Turning it
// off copies the billing address back into the shipping address.
func (c *Cart) UseDifferentShipping(ctx context.Context, enabled bool) error {
	c.mu.Lock()
	c.rec.UseDifferentShipping = enabled
	c.rec.SyncShipping()
	snap, err := c.commit(ctx, false)
	c.mu.Unlock()

	c.bus.TriggerUpdate(ctx, snap)
	return err
}

func (c *Cart) addressChanged(ctx context.Context, snap *record.Record, kind plugin.AddressKind, valid bool) {
	c.bus.TriggerUpdate(ctx, snap)
	c.plugins.EmitAddressChanged(ctx, snap, kind, valid)
}
