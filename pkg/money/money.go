// Package money stores amounts as integer minor units and converts between
// currencies through a reference-currency rate table.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

const defaultExponent int32 = 2

// ISO 4217 minor unit exponents for the supported currencies.
var exponents = map[enums.Currency]int32{
	enums.CurrencyUSD: 2,
	enums.CurrencyEUR: 2,
	enums.CurrencyGBP: 2,
	enums.CurrencyCAD: 2,
	enums.CurrencyAUD: 2,
	enums.CurrencyCHF: 2,
	enums.CurrencyPLN: 2,
	enums.CurrencyJPY: 0,
	enums.CurrencyKRW: 0,
	enums.CurrencyKWD: 3,
}

// Exponent returns the number of decimal places in the currency's minor unit.
func Exponent(currency enums.Currency) int32 {
	if exp, ok := exponents[currency]; ok {
		return exp
	}
	return defaultExponent
}

// Multiplier returns the factor between major and minor units (100 for USD).
func Multiplier(currency enums.Currency) int64 {
	return decimal.New(1, Exponent(currency)).IntPart()
}

// ToMinor converts a display amount into integer minor units, rounding half
// away from zero.
func ToMinor(amount decimal.Decimal, currency enums.Currency) int64 {
	return amount.Shift(Exponent(currency)).Round(0).IntPart()
}

// FromMinor converts stored minor units into a display amount.
func FromMinor(minor int64, currency enums.Currency) decimal.Decimal {
	return decimal.New(minor, -Exponent(currency))
}

// Format renders minor units with the currency's fixed precision, e.g. "12.50 USD".
func Format(minor int64, currency enums.Currency) string {
	return fmt.Sprintf("%s %s", FromMinor(minor, currency).StringFixed(Exponent(currency)), currency)
}
