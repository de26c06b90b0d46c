package scraper

import (
	"context"

	"nz_propper/models"
)

// Gateway fetches market data for a listing URL. Implementations must not
// fail for network or parse problems: on any internal failure they return
// a snapshot with all fields absent, which callers treat as "no data
// available". Timeouts and retries are the gateway's own business; callers
// never retry.
type Gateway interface {
	Fetch(ctx context.Context, listingURL string) *models.MarketSnapshot
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, listingURL string) *models.MarketSnapshot

func (f GatewayFunc) Fetch(ctx context.Context, listingURL string) *models.MarketSnapshot {
	return f(ctx, listingURL)
}
