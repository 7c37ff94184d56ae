package persist

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/cart/id"
	"github.com/xraph/cart/record"
)

// wireVersion is written into every document.
const wireVersion = 1

// wireRecord is the stored document. Pointer fields distinguish "missing"
// from "zero" on decode.
type wireRecord struct {
	Version int `json:"version"`

	ID      *id.CartID `json:"id,omitempty"`
	StoreID *string    `json:"store_id,omitempty"`
	Private *bool      `json:"private,omitempty"`

	Items *[]wireItem `json:"items,omitempty"`

	BillingAddress       json.RawMessage `json:"billing_address,omitempty"`
	ShippingAddress      json.RawMessage `json:"shipping_address,omitempty"`
	UseDifferentShipping *bool           `json:"use_different_shipping,omitempty"`
	BillingValid         *bool           `json:"billing_valid,omitempty"`
	ShippingValid        *bool           `json:"shipping_valid,omitempty"`

	Coupon         *string `json:"coupon,omitempty"`
	CouponRedeemed *bool   `json:"coupon_redeemed,omitempty"`

	Subtotal       *decimal.Decimal `json:"subtotal,omitempty"`
	TotalQuantity  *int             `json:"total_quantity,omitempty"`
	TaxRate        *decimal.Decimal `json:"tax_rate,omitempty"`
	TaxAmount      *decimal.Decimal `json:"tax_amount,omitempty"`
	ShippingAmount *decimal.Decimal `json:"shipping_amount,omitempty"`
	ShippingCost   *decimal.Decimal `json:"shipping_cost,omitempty"`
	ProcessorFee   *decimal.Decimal `json:"processor_fee,omitempty"`
	AdditionalFee  *decimal.Decimal `json:"additional_fee,omitempty"`
	Total          *decimal.Decimal `json:"total,omitempty"`

	HasItems          *bool `json:"has_items,omitempty"`
	IsRefreshingRates *bool `json:"is_refreshing_rates,omitempty"`

	UseProcessorFee  *bool            `json:"use_processor_fee,omitempty"`
	ProcessorFeeRate *decimal.Decimal `json:"processor_fee_rate,omitempty"`

	Error *string `json:"error,omitempty"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type wireItem struct {
	ID         id.LineItemID     `json:"id"`
	ProductKey string            `json:"product_key"`
	VariantID  string            `json:"variant_id"`
	Name       string            `json:"name"`
	UnitPrice  decimal.Decimal   `json:"unit_price"`
	Quantity   int               `json:"quantity"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func encode(rec *record.Record) wireRecord {
	items := make([]wireItem, len(rec.Items))
	for i, li := range rec.Items {
		items[i] = wireItem{
			ID:         li.ID,
			ProductKey: li.ProductKey,
			VariantID:  li.VariantID,
			Name:       li.Name,
			UnitPrice:  li.UnitPrice,
			Quantity:   li.Quantity,
			Attributes: li.Attributes,
		}
	}

	p := rec.Pricing
	return wireRecord{
		Version:              wireVersion,
		ID:                   &rec.ID,
		StoreID:              &rec.StoreID,
		Private:              &rec.Private,
		Items:                &items,
		BillingAddress:       mustAddress(rec.BillingAddress),
		ShippingAddress:      mustAddress(rec.ShippingAddress),
		UseDifferentShipping: &rec.UseDifferentShipping,
		BillingValid:         &rec.Validity.BillingValid,
		ShippingValid:        &rec.Validity.ShippingValid,
		Coupon:               &rec.Coupon,
		CouponRedeemed:       &rec.CouponRedeemed,
		Subtotal:             &p.Subtotal,
		TotalQuantity:        &p.TotalQuantity,
		TaxRate:              &p.TaxRate,
		TaxAmount:            &p.TaxAmount,
		ShippingAmount:       &p.ShippingAmount,
		ShippingCost:         &p.ShippingCost,
		ProcessorFee:         &p.ProcessorFee,
		AdditionalFee:        &p.AdditionalFee,
		Total:                &p.Total,
		HasItems:             &rec.Flags.HasItems,
		IsRefreshingRates:    &rec.Flags.IsRefreshingRates,
		UseProcessorFee:      &rec.Config.UseProcessorFee,
		ProcessorFeeRate:     &rec.Config.ProcessorFeeRate,
		Error:                &rec.Error,
		CreatedAt:            &rec.CreatedAt,
		UpdatedAt:            &rec.UpdatedAt,
	}
}

// mustAddress encodes an address. Address has only string fields, so
// marshalling cannot fail.
func mustAddress(a *record.Address) json.RawMessage {
	if a == nil {
		return nil
	}
	data, _ := json.Marshal(a) //nolint:errchkjson // plain string struct
	return data
}

// decode applies a stored document onto a default record. The store id and
// partition always come from the caller, never from the document.
func decode(data []byte, storeID string, private bool) (*record.Record, error) {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	rec := record.New(storeID, private)

	if w.ID != nil && w.ID.Is(id.PrefixCart) {
		rec.ID = *w.ID
	}
	if w.Items != nil {
		rec.Items = decodeItems(*w.Items)
	}

	if a, err := decodeAddress(w.BillingAddress); err != nil {
		return nil, err
	} else if a != nil {
		rec.BillingAddress = a
	}
	if a, err := decodeAddress(w.ShippingAddress); err != nil {
		return nil, err
	} else if a != nil {
		rec.ShippingAddress = a
	}
	setBool(&rec.UseDifferentShipping, w.UseDifferentShipping)
	setBool(&rec.Validity.BillingValid, w.BillingValid)
	setBool(&rec.Validity.ShippingValid, w.ShippingValid)

	setString(&rec.Coupon, w.Coupon)
	setBool(&rec.CouponRedeemed, w.CouponRedeemed)

	p := &rec.Pricing
	setDecimal(&p.Subtotal, w.Subtotal)
	if w.TotalQuantity != nil {
		p.TotalQuantity = *w.TotalQuantity
	}
	setDecimal(&p.TaxRate, w.TaxRate)
	setDecimal(&p.TaxAmount, w.TaxAmount)
	setDecimal(&p.ShippingAmount, w.ShippingAmount)
	setDecimal(&p.ShippingCost, w.ShippingCost)
	setDecimal(&p.ProcessorFee, w.ProcessorFee)
	setDecimal(&p.AdditionalFee, w.AdditionalFee)
	setDecimal(&p.Total, w.Total)

	setBool(&rec.Flags.HasItems, w.HasItems)
	// No refresh survives a restart.
	rec.Flags.IsRefreshingRates = false

	setBool(&rec.Config.UseProcessorFee, w.UseProcessorFee)
	setDecimal(&rec.Config.ProcessorFeeRate, w.ProcessorFeeRate)

	setString(&rec.Error, w.Error)

	if w.CreatedAt != nil {
		rec.CreatedAt = *w.CreatedAt
	}
	if w.UpdatedAt != nil {
		rec.UpdatedAt = *w.UpdatedAt
	}

	return rec, nil
}

// decodeItems drops lines that cannot be valid and keeps the first line of
// any duplicated variant.
func decodeItems(in []wireItem) []record.LineItem {
	out := make([]record.LineItem, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, w := range in {
		if w.VariantID == "" || w.Quantity < 1 || seen[w.VariantID] {
			continue
		}
		seen[w.VariantID] = true

		li := record.LineItem{
			ID:         w.ID,
			ProductKey: w.ProductKey,
			VariantID:  w.VariantID,
			Name:       w.Name,
			UnitPrice:  w.UnitPrice,
			Quantity:   w.Quantity,
			Attributes: w.Attributes,
		}
		if !li.ID.Is(id.PrefixLineItem) {
			li.ID = id.NewLineItemID()
		}
		li.Recompute()
		out = append(out, li)
	}
	return out
}

// decodeAddress fills a default address from raw. A missing or null value
// yields nil.
func decodeAddress(raw json.RawMessage) (*record.Address, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil //nolint:nilnil // absent address keeps the default
	}
	a := record.DefaultAddress()
	if err := json.Unmarshal(raw, a); err != nil {
		return nil, fmt.Errorf("%w: address: %w", ErrCorrupt, err)
	}
	return a, nil
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setDecimal(dst *decimal.Decimal, src *decimal.Decimal) {
	if src != nil {
		*dst = *src
	}
}
