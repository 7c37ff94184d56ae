package cart

import (
	"github.com/xraph/cart/event"
	"github.com/xraph/cart/id"
	"github.com/xraph/cart/record"
	"github.com/xraph/cart/shipment"
	"github.com/xraph/cart/types"
)

// Re-export common types for convenience so users don't have to import the
// record and event packages.

// Record is re-exported from record package.
type Record = record.Record

// LineItem is re-exported from record package.
type LineItem = record.LineItem

// Product is re-exported from record package.
type Product = record.Product

// Address is re-exported from record package.
type Address = record.Address

// Label is re-exported from event package.
type Label = event.Label

// Re-export labels
const (
	LabelUpdate         = event.LabelUpdate
	LabelSubmit         = event.LabelSubmit
	LabelRates          = event.LabelRates
	LabelPriceTax       = event.LabelPriceTax
	LabelPriceShipping  = event.LabelPriceShipping
	LabelPriceStripeFee = event.LabelPriceStripeFee
)

// Handler types re-exported from event package.
type (
	UpdateHandler = event.UpdateHandler
	SubmitHandler = event.SubmitHandler
	RatesHandler  = event.RatesHandler
	PriceHandler  = event.PriceHandler
	OrderPayload  = event.OrderPayload
	OrderResult   = event.OrderResult
)

// ShipmentRequest is re-exported from shipment package.
type ShipmentRequest = shipment.Request

// ID is the primary identifier type for all cart entities.
type ID = id.ID

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export constructors
var (
	DefaultAddress = record.DefaultAddress
	NewEntity      = types.NewEntity
)
