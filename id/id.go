// Package id defines TypeID-based identity types for cart entities.
//
// Every ID carries a prefix naming what it identifies, so a line item id can
// never be mistaken for a cart id once persisted. IDs are K-sortable
// (UUIDv7-based) and URL-safe in the format "prefix_suffix".
package id

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefixes used by the cart.
const (
	PrefixCart     Prefix = "cart" // Cart record
	PrefixLineItem Prefix = "li"   // Cart line item
	PrefixOrder    Prefix = "ord"  // Order submission reference
	PrefixRefresh  Prefix = "rref" // Rate refresh run
)

// ID identifies a cart entity. The zero value is Nil.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receiver for UnmarshalText.
type ID struct {
	tid   typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// CartID identifies a cart record.
type CartID = ID

// LineItemID identifies a line in a cart.
type LineItemID = ID

// OrderID is the reference handed to the submit handler.
type OrderID = ID

// RefreshID tags one rates refresh in logs and plugin events.
type RefreshID = ID

// New generates an ID with the given prefix. It panics on a prefix TypeID
// rejects, which only a programming error can produce.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}
	return ID{tid: tid, valid: true}
}

// NewCartID generates a cart ID.
func NewCartID() ID { return New(PrefixCart) }

// NewLineItemID generates a line item ID.
func NewLineItemID() ID { return New(PrefixLineItem) }

// NewOrderID generates an order reference.
func NewOrderID() ID { return New(PrefixOrder) }

// NewRefreshID generates a rates refresh ID.
func NewRefreshID() ID { return New(PrefixRefresh) }

// Parse parses a TypeID string such as "cart_01h2xcejqtf2nbrexx3vqjhp41".
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{tid: tid, valid: true}, nil
}

// ParseWithPrefix parses s and requires its prefix to be expected.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if !parsed.Is(expected) {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}
	return parsed, nil
}

// ParseCartID parses a cart ID.
func ParseCartID(s string) (ID, error) { return ParseWithPrefix(s, PrefixCart) }

// ParseOrderID parses an order reference.
func ParseOrderID(s string) (ID, error) { return ParseWithPrefix(s, PrefixOrder) }

// String returns "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}
	return i.tid.String()
}

// Prefix returns the prefix of i, or "" for Nil.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}
	return Prefix(i.tid.Prefix())
}

// Is reports whether i is set and carries prefix p.
func (i ID) Is(p Prefix) bool {
	return i.valid && i.Prefix() == p
}

// IsNil reports whether i is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler. Nil encodes as "".
func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. "" decodes to Nil.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
