package pricing

import (
	"context"
	"math"
	"strconv"
	"strings"

	"nz_propper/models"
)

// MarketGateway supplies scraped market data for a listing URL. It must not
// fail for network or parse problems: on any internal failure it returns a
// snapshot with all fields absent, which the engine treats as "no data".
type MarketGateway interface {
	Fetch(ctx context.Context, listingURL string) *models.MarketSnapshot
}

// Engine derives the full flip cost/profit breakdown for a listing.
// Calls are independent and idempotent given the same gateway responses;
// an Engine is safe for concurrent use.
type Engine struct {
	gateway MarketGateway
}

// NewEngine creates an engine. A nil gateway disables market lookups;
// every calculation then runs on extracted prices and defaults only.
func NewEngine(gateway MarketGateway) *Engine {
	return &Engine{gateway: gateway}
}

// Calculate produces a complete CalculationResult for one listing record.
// It never fails: malformed or missing fields degrade to defaults, and
// gateway trouble reads as "no market data".
func (e *Engine) Calculate(ctx context.Context, record *models.ListingRecord) *models.CalculationResult {
	// One fetch per record, shared between purchase and sale resolution.
	var snap *models.MarketSnapshot
	if e.gateway != nil && record.PropertyLink != "" {
		snap = e.gateway.Fetch(ctx, record.PropertyLink)
	}

	purchasePrice := ResolvePurchasePrice(record.Price, snap)

	var salePrice float64
	if record.PropertyLink != "" {
		salePrice = ResolveSalePrice(snap, purchasePrice)
	} else {
		salePrice = DefaultSalePrice
	}

	renovationBudget := purchasePrice * RenovationPct
	holdingCosts := purchasePrice * HoldingCostsPct
	disposalCosts := salePrice * DisposalCostsPct
	contingency := renovationBudget * ContingencyPct

	profit := salePrice - purchasePrice - renovationBudget - holdingCosts - disposalCosts - contingency

	result := &models.CalculationResult{
		DateGMT:         ensureString(record.DateGMT),
		JobLink:         ensureString(record.JobLink),
		OriginURL:       ensureString(record.OriginURL),
		ListingsLimit:   ensureString(record.ListingsLimit),
		Position:        ensureString(record.Position),
		OpenHomeStatus:  ensureString(record.OpenHomeStatus),
		AgentName:       ensureString(record.AgentName),
		AgencyName:      ensureString(record.AgencyName),
		ListingDate:     ensureString(record.ListingDate),
		PropertyTitle:   ensureString(record.PropertyTitle),
		PropertyAddress: ensureString(record.PropertyAddress),
		Bedrooms:        ensureString(record.Bedrooms),
		Bathrooms:       ensureString(record.Bathrooms),
		Area:            ensureString(record.Area),
		Price:           ensureString(record.Price),
		PropertyLink:    ensureString(record.PropertyLink),

		PotentialPurchasePrice: round2(purchasePrice),
		RenovationBudget:       round2(renovationBudget),
		HoldingCosts:           round2(holdingCosts),
		DisposalCosts:          round2(disposalCosts),
		Contingency:            round2(contingency),
		PotentialSalePrice:     round2(salePrice),
		Profit:                 round2(profit),

		IsGoodDeal:        profit > purchasePrice*GoodDealThreshold,
		HasStressKeywords: HasStressKeywords(record.PropertyTitle),
	}

	if snap != nil && snap.RentRange != nil {
		rng := [2]float64{snap.RentRange.Low, snap.RentRange.High}
		yield := round2(snap.RentRange.Midpoint() * rentWeeksPerYear / purchasePrice * 100)
		result.RentalYieldRange = &rng
		result.RentalYieldPercentage = &yield
	}

	return result
}

// ensureString normalizes a passthrough field into the {absent, string}
// union: empty becomes nil, and numeric-looking values render in canonical
// form - an integral float loses its trailing ".0" (spreadsheet parsers
// read "3" as 3.0).
func ensureString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			s := strconv.FormatInt(int64(f), 10)
			return &s
		}
		s := strconv.FormatFloat(f, 'f', -1, 64)
		return &s
	}
	return &value
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
