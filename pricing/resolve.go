package pricing

import (
	"sort"

	"nz_propper/models"
)

// ResolvePurchasePrice picks a purchase price in strict priority order:
// the asking price extracted from the price text, else the midpoint of the
// scraped estimate range (when plausible), else the fixed default. It never
// fails; a nil or empty snapshot just means "no market data".
func ResolvePurchasePrice(priceText string, snap *models.MarketSnapshot) float64 {
	if price, ok := ExtractAskingPrice(priceText); ok {
		return price
	}

	if snap != nil && snap.EstimateRange != nil {
		if mid := snap.EstimateRange.Midpoint(); mid >= MinAskingPriceWithMarker {
			return mid
		}
	}

	return DefaultPurchasePrice
}

// ResolveSalePrice turns the snapshot's sold comparables into a single
// defensible sale price. Scraped "sold" data is noisy - it can include
// unrelated or stale comparables - so two guards apply before trusting the
// median:
//
//   - comparables above 1.25x the estimate-range top are dropped as outliers
//   - a median below the purchase price means the comparables are
//     untrustworthy for a flip, so the default wins
func ResolveSalePrice(snap *models.MarketSnapshot, purchasePrice float64) float64 {
	if snap == nil || len(snap.SoldPrices) == 0 {
		return DefaultSalePrice
	}

	prices := snap.SoldPrices
	if snap.EstimateRange != nil {
		cutoff := snap.EstimateRange.High * SoldPriceOutlierMultiplier
		filtered := make([]float64, 0, len(prices))
		for _, p := range prices {
			if p <= cutoff {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) == 0 {
			return DefaultSalePrice
		}
		prices = filtered
	}

	med := median(prices)
	if med < purchasePrice {
		return DefaultSalePrice
	}
	return med
}

// median of a non-empty slice; the average of the two middle values for
// even counts. Does not mutate its input.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
