package cart

import (
	"context"
	"errors"
	"slices"

	"github.com/xraph/cart/plugin"
	"github.com/xraph/cart/record"
)

// AddItem adds one unit of p. An existing line for the same variant has its
// quantity incremented; otherwise a new line with quantity 1 is appended.
// Rates are refreshed before AddItem returns.
func (c *Cart) AddItem(ctx context.Context, p record.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}

	c.mu.Lock()
	change := plugin.ItemChange{ProductKey: p.Key, VariantID: p.VariantID}
	if i := c.rec.FindByVariant(p.VariantID); i >= 0 {
		li := &c.rec.Items[i]
		change.OldQuantity = li.Quantity
		li.Quantity++
		li.Recompute()
		change.NewQuantity = li.Quantity
	} else {
		c.rec.Items = append(c.rec.Items, record.NewLineItem(p, 1))
		change.NewQuantity = 1
	}
	c.rec.Flags.HasItems = true
	snap, err := c.commit(ctx, true)
	c.mu.Unlock()

	c.itemChanged(ctx, snap, change)
	return errors.Join(err, c.refreshRates(ctx))
}

// UpdateItem sets the quantity of p's line to amount. Zero removes the line;
// zero for a product not in the cart changes nothing and writes nothing.
func (c *Cart) UpdateItem(ctx context.Context, p record.Product, amount int) error {
	if amount < 0 {
		return ErrInvalidQuantity
	}
	if err := validateProduct(p); err != nil {
		return err
	}

	c.mu.Lock()
	i := c.rec.FindByVariant(p.VariantID)
	if amount == 0 && i < 0 {
		c.mu.Unlock()
		return nil
	}

	change := plugin.ItemChange{ProductKey: p.Key, VariantID: p.VariantID, NewQuantity: amount}
	switch {
	case amount == 0:
		change.OldQuantity = c.rec.Items[i].Quantity
		c.rec.Items = slices.Delete(c.rec.Items, i, i+1)
	case i < 0:
		c.rec.Items = append(c.rec.Items, record.NewLineItem(p, amount))
	default:
		li := &c.rec.Items[i]
		change.OldQuantity = li.Quantity
		li.Quantity = amount
		li.Recompute()
	}
	snap, err := c.commit(ctx, true)
	c.mu.Unlock()

	c.itemChanged(ctx, snap, change)
	return errors.Join(err, c.refreshRates(ctx))
}

// RemoveItem removes the first line whose product key matches p.Key. A
// product that is not in the cart is not an error; the cart is still
// repriced and rates refreshed.
func (c *Cart) RemoveItem(ctx context.Context, p record.Product) error {
	c.mu.Lock()
	var change *plugin.ItemChange
	if i := c.rec.FindByKey(p.Key); i >= 0 {
		li := c.rec.Items[i]
		change = &plugin.ItemChange{ProductKey: li.ProductKey, VariantID: li.VariantID, OldQuantity: li.Quantity}
		c.rec.Items = slices.Delete(c.rec.Items, i, i+1)
	}
	snap, err := c.commit(ctx, true)
	c.mu.Unlock()

	if change != nil {
		c.itemChanged(ctx, snap, *change)
	} else {
		c.bus.TriggerUpdate(ctx, snap)
	}
	return errors.Join(err, c.refreshRates(ctx))
}

// Items returns a copy of the current lines in display order.
func (c *Cart) Items() []record.LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]record.LineItem, len(c.rec.Items))
	for i, li := range c.rec.Items {
		items[i] = li.Clone()
	}
	return items
}

func (c *Cart) itemChanged(ctx context.Context, snap *record.Record, change plugin.ItemChange) {
	c.bus.TriggerUpdate(ctx, snap)
	c.plugins.EmitItemChanged(ctx, snap, change)
}

func validateProduct(p record.Product) error {
	if p.VariantID == "" {
		return ErrInvalidProduct
	}
	if p.Price.IsNegative() {
		return ValidationError{Field: "price", Message: "must not be negative"}
	}
	return nil
}
