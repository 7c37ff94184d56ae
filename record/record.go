// Package record defines the cart record: the single mutable value an engine
// holds per store, together with its line items, addresses and derived
// pricing fields.
package record

import (
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/xraph/cart/id"
	"github.com/xraph/cart/types"
)

// Record is the cart state for one store identifier.
type Record struct {
	types.Entity

	ID      id.CartID `json:"id"`
	StoreID string    `json:"store_id"`
	Private bool      `json:"private"`

	Items []LineItem `json:"items"`

	BillingAddress       *Address        `json:"billing_address"`
	ShippingAddress      *Address        `json:"shipping_address"`
	UseDifferentShipping bool            `json:"use_different_shipping"`
	Validity             AddressValidity `json:"validity"`

	Coupon string `json:"coupon"`
	// CouponRedeemed is carried for hosts that redeem coupons themselves.
	// The engine never sets it.
	CouponRedeemed bool `json:"coupon_redeemed"`

	Pricing Pricing `json:"pricing"`
	Flags   Flags   `json:"flags"`
	Config  Config  `json:"config"`

	// Error describes the last failed rate refresh. Cleared on success.
	Error string `json:"error,omitempty"`
}

// AddressValidity records the host's verdict on each address.
type AddressValidity struct {
	BillingValid  bool `json:"billing_valid"`
	ShippingValid bool `json:"shipping_valid"`
}

// Pricing holds the derived monetary fields. TaxRate and ShippingAmount are
// inputs written by the rates lookup; everything else is computed.
type Pricing struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	TotalQuantity  int             `json:"total_quantity"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	ShippingAmount decimal.Decimal `json:"shipping_amount"`
	ShippingCost   decimal.Decimal `json:"shipping_cost"`
	ProcessorFee   decimal.Decimal `json:"processor_fee"`
	AdditionalFee  decimal.Decimal `json:"additional_fee"`
	Total          decimal.Decimal `json:"total"`
}

// Flags are the boolean status fields exposed to hosts.
type Flags struct {
	HasItems          bool `json:"has_items"`
	IsRefreshingRates bool `json:"is_refreshing_rates"`
}

// Config controls the processor fee stage of the pricing pipeline.
type Config struct {
	UseProcessorFee  bool            `json:"use_processor_fee"`
	ProcessorFeeRate decimal.Decimal `json:"processor_fee_rate"`
}

// New returns a record in its default state: no items, blank US addresses
// with shipping mirroring billing, zero pricing.
func New(storeID string, private bool) *Record {
	billing := DefaultAddress()
	shipping := billing.Clone()
	return &Record{
		Entity:          types.NewEntity(),
		ID:              id.NewCartID(),
		StoreID:         storeID,
		Private:         private,
		Items:           []LineItem{},
		BillingAddress:  billing,
		ShippingAddress: shipping,
	}
}

// Clone returns a deep copy that shares no mutable state with r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Items = make([]LineItem, len(r.Items))
	for i, it := range r.Items {
		c.Items[i] = it.Clone()
	}
	c.BillingAddress = r.BillingAddress.Clone()
	c.ShippingAddress = r.ShippingAddress.Clone()
	return &c
}

// FindByVariant returns the index of the line with the given variant, or -1.
func (r *Record) FindByVariant(variantID string) int {
	return slices.IndexFunc(r.Items, func(it LineItem) bool {
		return it.VariantID == variantID
	})
}

// FindByKey returns the index of the first line with the given product key,
// or -1.
func (r *Record) FindByKey(key string) int {
	return slices.IndexFunc(r.Items, func(it LineItem) bool {
		return it.ProductKey == key
	})
}

// SyncShipping mirrors the billing address into the shipping address unless
// a separate shipping address is in use.
func (r *Record) SyncShipping() {
	if r.UseDifferentShipping {
		return
	}
	r.ShippingAddress = r.BillingAddress.Clone()
	r.Validity.ShippingValid = r.Validity.BillingValid
}

// cloneAttributes copies a string map, keeping nil as nil.
func cloneAttributes(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}
