package pricing

// Fixed numeric policy. The outlier multiplier and the median-below-purchase
// guard are empirical thresholds, kept as tunable constants rather than
// derived values.
const (
	DefaultPurchasePrice = 650000.0
	DefaultSalePrice     = 730000.0

	RenovationPct      = 0.15
	HoldingCostsPct    = 0.04
	DisposalCostsPct   = 0.025
	ContingencyPct     = 0.015
	GoodDealThreshold  = 0.20
	SoldPriceOutlierMultiplier = 1.25

	// A price with a $ marker or "asking price" phrase is trusted from 1000
	// up; a bare digit run is weaker evidence and needs a higher floor so
	// postal codes and bedroom counts don't read as prices.
	MinAskingPriceWithMarker = 1000.0
	MinAskingPriceBareNumber = 10000.0

	// Weeks per year used for annualizing scraped weekly rent.
	rentWeeksPerYear = 52
)

// StressKeywords flag titles that read like a distressed or forced sale.
var StressKeywords = []string{
	"must sell",
	"must be sold",
	"urgent sale",
	"mortgagee",
	"auction",
	"foreclosure",
	"distressed",
	"vendor relocated",
	"relationship split",
}
