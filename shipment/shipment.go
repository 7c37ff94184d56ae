// Package shipment builds the payload handed to a rates lookup: a recipient
// derived from the billing address plus one item per cart line.
//
// The shape follows the order-creation format common to print-on-demand
// fulfilment APIs, so a rates handler can usually forward it unchanged.
package shipment

import (
	"github.com/shopspring/decimal"

	"github.com/xraph/cart/record"
)

// Payload defaults.
const (
	DefaultCurrency = "USD"
	DefaultLocale   = "en_US"
)

// Recipient is the destination of a shipment.
type Recipient struct {
	Name        string `json:"name"`
	Company     string `json:"company"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	City        string `json:"city"`
	StateCode   string `json:"state_code"`
	StateName   string `json:"state_name"`
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	Zip         string `json:"zip"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	TaxNumber   string `json:"tax_number"`
}

// Item is one shippable line.
type Item struct {
	Name       string            `json:"name"`
	ProductKey string            `json:"product_key"`
	VariantID  string            `json:"variant_id"`
	Quantity   int               `json:"quantity"`
	Value      decimal.Decimal   `json:"value"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Request is the rates lookup input.
type Request struct {
	Recipient Recipient `json:"recipient"`
	Items     []Item    `json:"items"`
	Currency  string    `json:"currency"`
	Locale    string    `json:"locale"`
}

// Build derives a request from the record's items and billing address.
// A nil billing address yields an empty recipient.
func Build(rec *record.Record) Request {
	req := Request{
		Items:    make([]Item, 0, len(rec.Items)),
		Currency: DefaultCurrency,
		Locale:   DefaultLocale,
	}

	for _, li := range rec.Items {
		it := li.Clone()
		req.Items = append(req.Items, Item{
			Name:       it.Name,
			ProductKey: it.ProductKey,
			VariantID:  it.VariantID,
			Quantity:   it.Quantity,
			Value:      it.UnitPrice,
			Attributes: it.Attributes,
		})
	}

	if a := rec.BillingAddress; a != nil {
		req.Recipient = Recipient{
			Name:        a.FullName(),
			Address1:    a.Street,
			Address2:    a.AptNo,
			City:        a.City,
			StateCode:   a.State,
			StateName:   a.State,
			CountryCode: a.Country,
			CountryName: a.Country,
			Zip:         a.Zip,
			Phone:       a.Phone,
			Email:       a.Email,
			TaxNumber:   a.TaxNumber,
		}
	}

	return req
}

// TotalQuantity sums the quantity of every item.
func (r Request) TotalQuantity() int {
	n := 0
	for _, it := range r.Items {
		n += it.Quantity
	}
	return n
}

// Clone returns a deep copy of r.
func (r Request) Clone() Request {
	c := r
	if r.Items != nil {
		c.Items = make([]Item, len(r.Items))
		for i, it := range r.Items {
			c.Items[i] = it
			if it.Attributes != nil {
				c.Items[i].Attributes = make(map[string]string, len(it.Attributes))
				for k, v := range it.Attributes {
					c.Items[i].Attributes[k] = v
				}
			}
		}
	}
	return c
}
