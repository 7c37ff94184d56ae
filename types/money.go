// Package types provides common types used across the cart engine.
package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DisplayPlaces is the number of fraction digits externally visible amounts
// are rounded to.
const DisplayPlaces int32 = 2

// Round rounds an amount to DisplayPlaces fraction digits, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(DisplayPlaces)
}

// IsNonNegative reports whether d is zero or greater.
func IsNonNegative(d decimal.Decimal) bool {
	return !d.IsNegative()
}

// Sum adds all values. The sum of no values is zero.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	result := decimal.Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// MinorUnits converts a major-unit amount into the smallest currency unit
// (cents for USD, yen for JPY), rounding half away from zero.
//
// Examples:
//   - MinorUnits(27.00, "usd") = 2700
//   - MinorUnits(100, "jpy") = 100
func MinorUnits(d decimal.Decimal, currency string) int64 {
	places := int32(currencyDecimals(currency))
	return d.Shift(places).Round(0).IntPart()
}

// FromMinorUnits is the inverse of MinorUnits.
func FromMinorUnits(amount int64, currency string) decimal.Decimal {
	places := int32(currencyDecimals(currency))
	return decimal.New(amount, -places)
}

// FormatMajor returns the major unit string without currency symbol.
// For currencies with 2 decimal places: "49.00" for 49.
// For currencies with 0 decimal places (JPY): "100" for 100.
func FormatMajor(d decimal.Decimal, currency string) string {
	return d.StringFixed(int32(currencyDecimals(currency)))
}

// Format returns a human-readable string with currency symbol.
// Examples: "$49.00", "€199.00", "£99.00", "¥100"
func Format(d decimal.Decimal, currency string) string {
	if d.IsNegative() {
		return "-" + currencySymbol(currency) + FormatMajor(d.Neg(), currency)
	}
	return currencySymbol(currency) + FormatMajor(d, currency)
}

// ParseAmount parses a decimal string such as "19.99". Negative amounts are
// rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("types: parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("types: parse amount %q: negative", s)
	}
	return d, nil
}

// currencySymbol returns the symbol for a currency code.
func currencySymbol(currency string) string {
	symbols := map[string]string{
		"usd": "$",
		"eur": "€",
		"gbp": "£",
		"jpy": "¥",
		"cad": "C$",
		"aud": "A$",
		"chf": "CHF ",
		"cny": "¥",
		"sek": "kr ",
		"nzd": "NZ$",
		"brl": "R$",
	}
	if sym, ok := symbols[strings.ToLower(currency)]; ok {
		return sym
	}
	return strings.ToUpper(currency) + " "
}

// currencyDecimals returns the number of decimal places for a currency.
func currencyDecimals(currency string) int {
	zeroDecimal := map[string]bool{
		"jpy": true, // Japanese Yen
		"krw": true, // Korean Won
		"vnd": true, // Vietnamese Dong
		"clp": true, // Chilean Peso
		"pyg": true, // Paraguayan Guarani
		"idr": true, // Indonesian Rupiah
	}
	if zeroDecimal[strings.ToLower(currency)] {
		return 0
	}
	return 2
}
