package normalize

import "math"

// DollarsToCents converts a nullable float64 dollar amount to nullable int64 cents.
// Uses math.Round to avoid truncation bias.
func DollarsToCents(v *float64) *int64 {
	if v == nil {
		return nil
	}
	c := int64(math.Round(*v * 100))
	return &c
}

// CentsToDollars converts nullable int64 cents back to a nullable dollar amount.
func CentsToDollars(v *int64) *float64 {
	if v == nil {
		return nil
	}
	d := float64(*v) / 100
	return &d
}
