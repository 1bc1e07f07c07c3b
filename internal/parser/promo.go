package parser

import "math"

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// PromoPercentage calculates the discount percentage between an original
// and a current price, rounded to 2 decimal places. Returns false when
// either input is missing or non-positive, or when there is no discount.
func PromoPercentage(originalPrice, currentPrice *float64) (float64, bool) {
	if originalPrice == nil || currentPrice == nil {
		return 0, false
	}
	if *originalPrice <= 0 || *currentPrice <= 0 {
		return 0, false
	}
	if *currentPrice >= *originalPrice {
		return 0, false
	}

	discount := ((*originalPrice - *currentPrice) / *originalPrice) * 100
	return round2(discount), true
}

// DropPercentage calculates the percentage change from oldPrice to
// newPrice, rounded to 2 decimal places. A price increase yields a negative
// value. Returns false when either input is missing or oldPrice is not
// positive.
func DropPercentage(oldPrice, newPrice *float64) (float64, bool) {
	if oldPrice == nil || newPrice == nil {
		return 0, false
	}
	if *oldPrice <= 0 {
		return 0, false
	}

	drop := ((*oldPrice - *newPrice) / *oldPrice) * 100
	return round2(drop), true
}

// IsSignificantDrop reports whether the drop from oldPrice to newPrice
// meets or exceeds thresholdPercent. Missing inputs or a non-positive old
// price yield false.
func IsSignificantDrop(oldPrice, newPrice *float64, thresholdPercent float64) bool {
	drop, ok := DropPercentage(oldPrice, newPrice)
	if !ok {
		return false
	}
	return drop >= thresholdPercent
}
