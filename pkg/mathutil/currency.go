// Package mathutil holds the rounding rules shared by the calculators.
package mathutil

import (
	"math"

	"github.com/iwvelando/loan-leads/pkg/constants"
	"github.com/shopspring/decimal"
)

// Round rounds rates and percentages to two decimals.
func Round(val float64) float64 {
	return RoundTo(val, 2)
}

// RoundCurrency rounds to whole rupiah.
func RoundCurrency(val float64) float64 {
	return RoundTo(val, 0)
}

// RoundTo rounds half away from zero at the given decimal place. The decimal
// round trip keeps 1.005 from landing on 1.00.
func RoundTo(val float64, places int32) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return val
	}
	return decimal.NewFromFloat(val).Round(places).InexactFloat64()
}

// NonNegative clamps val at zero.
func NonNegative(val float64) float64 {
	return math.Max(val, 0)
}

// Percent returns pct percent of value.
func Percent(value, pct float64) float64 {
	return value * pct / constants.PercentageMultiplier
}
