package pricing

import (
	"testing"

	"nz_propper/models"
)

func snapshotWith(estimate *models.PriceRange, sold ...float64) *models.MarketSnapshot {
	return &models.MarketSnapshot{EstimateRange: estimate, SoldPrices: sold}
}

func TestResolvePurchasePrice_AskingPriceWins(t *testing.T) {
	snap := snapshotWith(&models.PriceRange{Low: 800000, High: 900000})
	got := ResolvePurchasePrice("Asking price $600,000", snap)
	if got != 600000 {
		t.Fatalf("expected asking price 600000, got %v", got)
	}
}

func TestResolvePurchasePrice_EstimateMidpoint(t *testing.T) {
	snap := snapshotWith(&models.PriceRange{Low: 840000, High: 945000})
	got := ResolvePurchasePrice("", snap)
	if got != 892500 {
		t.Fatalf("expected midpoint 892500, got %v", got)
	}
}

func TestResolvePurchasePrice_TinyMidpointIgnored(t *testing.T) {
	snap := snapshotWith(&models.PriceRange{Low: 100, High: 900})
	got := ResolvePurchasePrice("", snap)
	if got != DefaultPurchasePrice {
		t.Fatalf("expected default %v, got %v", DefaultPurchasePrice, got)
	}
}

func TestResolvePurchasePrice_NoData(t *testing.T) {
	if got := ResolvePurchasePrice("", nil); got != DefaultPurchasePrice {
		t.Fatalf("expected default %v, got %v", DefaultPurchasePrice, got)
	}
	if got := ResolvePurchasePrice("by negotiation", &models.MarketSnapshot{}); got != DefaultPurchasePrice {
		t.Fatalf("expected default %v, got %v", DefaultPurchasePrice, got)
	}
}

func TestResolveSalePrice_EmptySoldPrices(t *testing.T) {
	snap := snapshotWith(&models.PriceRange{Low: 500000, High: 600000})
	if got := ResolveSalePrice(snap, 650000); got != DefaultSalePrice {
		t.Fatalf("expected default %v, got %v", DefaultSalePrice, got)
	}
	if got := ResolveSalePrice(nil, 650000); got != DefaultSalePrice {
		t.Fatalf("expected default %v for nil snapshot, got %v", DefaultSalePrice, got)
	}
}

func TestResolveSalePrice_OutlierFilteredThenDistrusted(t *testing.T) {
	// Cutoff is 600000 * 1.25 = 750000, so 2000000 is dropped. The lone
	// remaining comparable (100000) sits below the purchase price, which
	// means the comparables can't be trusted for a flip.
	snap := snapshotWith(&models.PriceRange{Low: 500000, High: 600000}, 100000, 2000000)
	got := ResolveSalePrice(snap, 650000)
	if got != DefaultSalePrice {
		t.Fatalf("expected default %v, got %v", DefaultSalePrice, got)
	}
}

func TestResolveSalePrice_AllFilteredOut(t *testing.T) {
	snap := snapshotWith(&models.PriceRange{Low: 400000, High: 500000}, 900000, 1200000)
	got := ResolveSalePrice(snap, 650000)
	if got != DefaultSalePrice {
		t.Fatalf("expected default %v when every comparable is filtered, got %v", DefaultSalePrice, got)
	}
}

func TestResolveSalePrice_MedianNoEstimateRange(t *testing.T) {
	snap := snapshotWith(nil, 700000, 720000, 740000)
	got := ResolveSalePrice(snap, 650000)
	if got != 720000 {
		t.Fatalf("expected median 720000, got %v", got)
	}
}

func TestResolveSalePrice_EvenCountMedian(t *testing.T) {
	snap := snapshotWith(nil, 700000, 720000, 740000, 760000)
	got := ResolveSalePrice(snap, 650000)
	if got != 730000 {
		t.Fatalf("expected median 730000, got %v", got)
	}
}

func TestResolveSalePrice_DoesNotMutateInput(t *testing.T) {
	snap := snapshotWith(nil, 740000, 700000, 720000)
	ResolveSalePrice(snap, 650000)
	if snap.SoldPrices[0] != 740000 {
		t.Fatalf("sold prices were reordered: %v", snap.SoldPrices)
	}
}
