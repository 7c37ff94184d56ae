package record

import (
	"github.com/shopspring/decimal"

	"github.com/xraph/cart/id"
)

// Product is the caller-supplied description of something to put in the
// cart. Key identifies the product, VariantID the purchasable variant.
type Product struct {
	Key        string            `json:"key"`
	VariantID  string            `json:"variant_id"`
	Name       string            `json:"name"`
	Price      decimal.Decimal   `json:"price"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// LineItem is one product variant in the cart.
type LineItem struct {
	ID         id.LineItemID     `json:"id"`
	ProductKey string            `json:"product_key"`
	VariantID  string            `json:"variant_id"`
	Name       string            `json:"name"`
	UnitPrice  decimal.Decimal   `json:"unit_price"`
	Quantity   int               `json:"quantity"`
	LineTotal  decimal.Decimal   `json:"line_total"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// NewLineItem builds a line for p with the given quantity.
func NewLineItem(p Product, quantity int) LineItem {
	li := LineItem{
		ID:         id.NewLineItemID(),
		ProductKey: p.Key,
		VariantID:  p.VariantID,
		Name:       p.Name,
		UnitPrice:  p.Price,
		Quantity:   quantity,
		Attributes: cloneAttributes(p.Attributes),
	}
	li.Recompute()
	return li
}

// Recompute sets LineTotal from UnitPrice and Quantity.
func (li *LineItem) Recompute() {
	li.LineTotal = li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Clone returns a copy with its own attribute map.
func (li LineItem) Clone() LineItem {
	li.Attributes = cloneAttributes(li.Attributes)
	return li
}
