package models

import "time"

// PriceRange is a (low, high) pair scraped off a listing page. Low <= high.
type PriceRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Midpoint returns the center of the range.
func (r PriceRange) Midpoint() float64 {
	return (r.Low + r.High) / 2
}

// MarketSnapshot is the market data scraped for one listing URL.
// A nil EstimateRange and empty SoldPrices means "no data available" -
// the gateway returns that shape instead of an error on any failure.
type MarketSnapshot struct {
	EstimateRange *PriceRange `json:"estimate_range"`
	SoldPrices    []float64   `json:"sold_prices"`
	RentRange     *PriceRange `json:"rent_range"` // weekly rent
	FetchedAt     time.Time   `json:"fetched_at"`
}

// Empty reports whether the snapshot carries no usable market data.
func (s *MarketSnapshot) Empty() bool {
	return s == nil || (s.EstimateRange == nil && len(s.SoldPrices) == 0 && s.RentRange == nil)
}

type FetchStatus string

const (
	FetchStatusRunning   FetchStatus = "running"
	FetchStatusCompleted FetchStatus = "completed"
	FetchStatusFailed    FetchStatus = "failed"
)

// FetchRun records one gateway fetch for the optional Postgres archive.
type FetchRun struct {
	ID         int64       `json:"id" db:"id"`
	RequestID  string      `json:"request_id" db:"request_id"`
	URL        string      `json:"url" db:"url"`
	StartedAt  time.Time   `json:"started_at" db:"started_at"`
	FinishedAt *time.Time  `json:"finished_at" db:"finished_at"`
	Status     FetchStatus `json:"status" db:"status"`
	CacheHit   bool        `json:"cache_hit" db:"cache_hit"`
	Attempts   int         `json:"attempts" db:"attempts"`
	Error      string      `json:"error" db:"error"`
}
