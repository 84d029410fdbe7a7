// Package formulas holds the numeric helpers used by the valuation engine.
package formulas

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of decimal places kept for amounts and rates.
const MoneyPlaces = 2

// Round2 rounds half away from zero to two decimal places.
// Values go through decimal so that 1.005 rounds to 1.01 rather than
// whatever the nearest binary float happens to be.
func Round2(v float64) float64 {
	return RoundTo(v, MoneyPlaces)
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// Product returns a × b computed in decimal.
func Product(a, b float64) float64 {
	f, _ := decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b)).Float64()
	return f
}

// Quotient returns a / b, or 0 when b is zero.
func Quotient(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	f, _ := decimal.NewFromFloat(a).DivRound(decimal.NewFromFloat(b), 12).Float64()
	return f
}

// Percent returns part / whole × 100, or 0 when whole is not positive.
func Percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	f, _ := decimal.NewFromFloat(part).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromFloat(whole), 12).
		Float64()
	return f
}

// Sum adds values in decimal to avoid drift on long series.
func Sum(values []float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	f, _ := total.Float64()
	return f
}
