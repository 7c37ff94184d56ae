package cart

import (
	"context"
	"fmt"

	"github.com/xraph/cart/event"
	"github.com/xraph/cart/id"
)

// SubmitOrder hands a snapshot of the cart to the submit handler and returns
// its result. It refuses with ErrRatesRefreshing while a rate refresh is in
// flight, without calling the handler, and with ErrNoSubmitHandler when none
// is registered. The cart is never cleared by a submission.
func (c *Cart) SubmitOrder(ctx context.Context, payload event.OrderPayload) (event.OrderResult, error) {
	c.mu.Lock()
	refreshing := c.inflight > 0
	snap := c.rec.Clone()
	c.mu.Unlock()

	if refreshing {
		c.logger.Warn("cart: order refused while rates are refreshing",
			"store_id", c.storeID,
			"error", ErrRatesRefreshing,
		)
		c.plugins.EmitOrderRejected(ctx, snap, ErrRatesRefreshing)
		return event.OrderResult{}, ErrRatesRefreshing
	}
	if !c.bus.Has(event.LabelSubmit) {
		c.logger.Warn("cart: order refused",
			"store_id", c.storeID,
			"error", ErrNoSubmitHandler,
		)
		c.plugins.EmitOrderRejected(ctx, snap, ErrNoSubmitHandler)
		return event.OrderResult{}, ErrNoSubmitHandler
	}

	if payload.OrderID.IsNil() {
		payload.OrderID = id.NewOrderID()
	}

	res, err := c.bus.TriggerSubmit(ctx, snap, payload)
	if err != nil {
		c.logger.Warn("cart: order submission failed",
			"store_id", c.storeID,
			"order_id", payload.OrderID.String(),
			"error", err,
		)
		c.plugins.EmitOrderRejected(ctx, snap, err)
		return res, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	if res.OrderID.IsNil() {
		res.OrderID = payload.OrderID
	}

	c.logger.Info("cart: order submitted",
		"store_id", c.storeID,
		"order_id", res.OrderID.String(),
		"total", snap.Pricing.Total.String(),
	)
	c.plugins.EmitOrderSubmitted(ctx, snap, res)
	return res, nil
}
