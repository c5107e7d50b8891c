package pricing

import "math"

// Round2 rounds to currency precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Cents converts a currency amount into whole cents.
func Cents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// PriceTolerance is the largest accepted gap between an asserted and a computed total.
const PriceTolerance = 0.01

// Matches reports whether expected agrees with computed within PriceTolerance.
// The comparison happens in whole cents to stay exact.
func Matches(expected, computed float64) bool {
	diff := Cents(expected) - Cents(computed)
	if diff < 0 {
		diff = -diff
	}
	return diff <= Cents(PriceTolerance)
}
