// Package cart provides a shopping-cart state engine for Go applications.
//
// Cart is designed as a library, not a service. A host opens one *Cart per
// store and drives it from its own request handlers. It provides:
//
//   - Line items keyed by product variant, with quantities and line totals
//   - A fixed pricing pipeline: subtotal, tax, processor fee, shipping, total
//   - Persistence of the whole cart through a pluggable key-value store
//   - A hook bus for rates lookups, order submission and change notification
//   - Plugins for metrics and audit trails
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/cart"
//	    "github.com/xraph/cart/store/memory"
//	)
//
//	c, err := cart.Open(ctx, memory.New(), "my-store")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	c.OnRates(func(ctx context.Context, rec *cart.Record, req cart.ShipmentRequest) error {
//	    rates, err := taxService.Quote(ctx, req)
//	    if err != nil {
//	        return err
//	    }
//	    rec.Pricing.TaxRate = rates.TaxRate
//	    rec.Pricing.ShippingAmount = rates.Shipping
//	    return nil
//	})
//
//	err = c.AddItem(ctx, cart.Product{Key: "tee", VariantID: "tee-m", Price: decimal.NewFromInt(20)})
//
// # Pricing
//
// Every mutation that changes contents reprices from scratch:
//
//	Subtotal     = Σ UnitPrice × Quantity
//	TaxAmount    = (Subtotal + ShippingAmount) × TaxRate
//	ProcessorFee = (t + t × rate) × rate, t = Subtotal + TaxAmount + ShippingAmount
//	ShippingCost = ShippingAmount + ProcessorFee
//	Total        = Subtotal + TaxAmount + ShippingCost + AdditionalFee
//
// TaxAmount and Total are rounded to cents. The tax, processor fee and
// shipping stages can each be replaced with a price.* hook.
//
// # Rates
//
// Adding, updating or removing items and setting a valid billing address
// start a rates refresh. While any refresh is in flight the record reports
// IsRefreshingRates and SubmitOrder refuses with ErrRatesRefreshing.
//
// # Storage
//
// The record is stored as one JSON document per store under
// "<namespace>_<storeID>_CART" (or _PUBLIC / _PRIVATE with partitioning).
// Backends: memory, sqlite, postgres, mongo (via Grove) and redis.
//
// # Payments
//
// payment.StripeSubmitter turns a submission into a Stripe payment intent
// for the cart total. Register its Submit method with OnSubmit.
//
// # TypeID
//
// Carts, line items, orders and refresh runs use TypeIDs:
//
//	cart_01h2xcejqtf2nbrexx3vqjhp41  // Cart ID
//	li_01h2xcejqtf2nbrexx3vqjhp41    // Line item ID
//	ord_01h455vb4pex5vsknk084sn02q   // Order ID
package cart
