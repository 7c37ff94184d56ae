package cart

import (
	"fmt"

	"github.com/xraph/cart/event"
)

// On registers handler for label and returns c for chaining. A handler
// already registered for label is replaced. It panics when label is unknown
// or handler does not match the label's handler type; use Register to get an
// error instead.
func (c *Cart) On(label event.Label, handler any) *Cart {
	if err := c.Register(label, handler); err != nil {
		panic(err)
	}
	return c
}

// Register is On without the panic.
func (c *Cart) Register(label event.Label, handler any) error {
	return c.bus.Register(label, handler)
}

// OnUpdate registers the update handler.
func (c *Cart) OnUpdate(h event.UpdateHandler) *Cart {
	return c.On(event.LabelUpdate, h)
}

// OnSubmit registers the submit handler.
func (c *Cart) OnSubmit(h event.SubmitHandler) *Cart {
	return c.On(event.LabelSubmit, h)
}

// OnRates registers the rates handler.
func (c *Cart) OnRates(h event.RatesHandler) *Cart {
	return c.On(event.LabelRates, h)
}

// OnPrice registers a pricing override. label must be one of the price.*
// labels. Price handlers run while the cart is locked and must not call back
// into it.
func (c *Cart) OnPrice(label event.Label, h event.PriceHandler) *Cart {
	switch label {
	case event.LabelPriceTax, event.LabelPriceShipping, event.LabelPriceStripeFee:
	default:
		panic(fmt.Errorf("%w: %q is not a price label", ErrUnknownLabel, label))
	}
	return c.On(label, h)
}
