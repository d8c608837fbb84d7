package core

import "github.com/shopspring/decimal"

// minorUnitDigits is fixed at two decimal places; every supported currency
// in the storefront uses two-decimal minor units.
const minorUnitDigits = 2

// ToMinorUnits converts a major-unit amount (e.g. 129.99) to integer minor
// units (12999) rounding half up. This conversion happens exactly once, at
// the system boundary; everything downstream works in int64 minor units.
func ToMinorUnits(major decimal.Decimal) int64 {
	return major.Shift(minorUnitDigits).Round(0).IntPart()
}
