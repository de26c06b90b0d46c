package models

// ListingRecord is one row of an uploaded spreadsheet. Every field is
// optional: an empty string means the column was missing or blank, and
// downstream code falls through to defaults rather than erroring.
type ListingRecord struct {
	DateGMT         string `json:"date_gmt"`
	JobLink         string `json:"job_link"`
	OriginURL       string `json:"origin_url"`
	ListingsLimit   string `json:"auckland_property_listings_limit"`
	Position        string `json:"position"`
	OpenHomeStatus  string `json:"open_home_status"`
	AgentName       string `json:"agent_name"`
	AgencyName      string `json:"agency_name"`
	ListingDate     string `json:"listing_date"`
	PropertyTitle   string `json:"property_title"`
	PropertyAddress string `json:"property_address"`
	Bedrooms        string `json:"bedrooms"`
	Bathrooms       string `json:"bathrooms"`
	Area            string `json:"area"`
	Price           string `json:"price"`
	PropertyLink    string `json:"property_link"`
}

// CalculationResult carries the original record fields through unchanged
// (nil = absent) plus the cost breakdown and classification flags.
// Currency amounts are rounded to 2 decimals at assembly; intermediate
// arithmetic is unrounded.
type CalculationResult struct {
	DateGMT         *string `json:"date_gmt"`
	JobLink         *string `json:"job_link"`
	OriginURL       *string `json:"origin_url"`
	ListingsLimit   *string `json:"auckland_property_listings_limit"`
	Position        *string `json:"position"`
	OpenHomeStatus  *string `json:"open_home_status"`
	AgentName       *string `json:"agent_name"`
	AgencyName      *string `json:"agency_name"`
	ListingDate     *string `json:"listing_date"`
	PropertyTitle   *string `json:"property_title"`
	PropertyAddress *string `json:"property_address"`
	Bedrooms        *string `json:"bedrooms"`
	Bathrooms       *string `json:"bathrooms"`
	Area            *string `json:"area"`
	Price           *string `json:"price"`
	PropertyLink    *string `json:"property_link"`

	PotentialPurchasePrice float64 `json:"potential_purchase_price"`
	RenovationBudget       float64 `json:"renovation_budget"`
	HoldingCosts           float64 `json:"holding_costs"`
	DisposalCosts          float64 `json:"disposal_costs"`
	Contingency            float64 `json:"contingency"`
	PotentialSalePrice     float64 `json:"potential_sale_price"`
	Profit                 float64 `json:"profit"`

	RentalYieldPercentage *float64    `json:"rental_yield_percentage,omitempty"`
	RentalYieldRange      *[2]float64 `json:"rental_yield_range,omitempty"`

	IsGoodDeal        bool `json:"is_good_deal"`
	HasStressKeywords bool `json:"has_stress_keywords"`
}

// ProcessResponse is the payload returned by /api/calculate.
type ProcessResponse struct {
	Results           []*CalculationResult `json:"results"`
	TotalProperties   int                  `json:"total_properties"`
	GoodDealsCount    int                  `json:"good_deals_count"`
	StressSalesCount  int                  `json:"stress_sales_count"`
	DuplicatesRemoved int                  `json:"duplicates_removed"`
}
