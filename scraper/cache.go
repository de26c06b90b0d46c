package scraper

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"nz_propper/models"
)

// SnapshotCache persists market snapshots keyed by listing URL.
// Get returns ok=false for a miss or an entry older than maxAge.
type SnapshotCache interface {
	Get(ctx context.Context, url string, maxAge time.Duration) (*models.MarketSnapshot, bool)
	Put(ctx context.Context, url string, snap *models.MarketSnapshot) error
}

// RunRecorder receives a bookkeeping record for each fetch. Optional;
// failures are logged and swallowed so archiving never blocks pricing.
type RunRecorder interface {
	RecordFetchRun(ctx context.Context, run models.FetchRun) error
}

// CachingGateway wraps a Gateway with a snapshot cache. Concurrent fetches
// for the same URL collapse into a single upstream call.
type CachingGateway struct {
	inner    Gateway
	cache    SnapshotCache
	ttl      time.Duration
	recorder RunRecorder

	group singleflight.Group
}

func NewCachingGateway(inner Gateway, cache SnapshotCache, ttl time.Duration) *CachingGateway {
	return &CachingGateway{inner: inner, cache: cache, ttl: ttl}
}

// WithRecorder attaches a fetch-run recorder. Returns the gateway for chaining.
func (g *CachingGateway) WithRecorder(r RunRecorder) *CachingGateway {
	g.recorder = r
	return g
}

func (g *CachingGateway) Fetch(ctx context.Context, listingURL string) *models.MarketSnapshot {
	if listingURL == "" {
		return &models.MarketSnapshot{FetchedAt: time.Now()}
	}

	if snap, ok := g.cache.Get(ctx, listingURL, g.ttl); ok {
		g.record(ctx, listingURL, snap, true, time.Now(), time.Now())
		return snap
	}

	v, _, _ := g.group.Do(listingURL, func() (interface{}, error) {
		started := time.Now()
		snap := g.inner.Fetch(ctx, listingURL)
		finished := time.Now()

		if !snap.Empty() {
			if err := g.cache.Put(ctx, listingURL, snap); err != nil {
				log.Printf("[cache] put failed for %s: %v", listingURL, err)
			}
		}
		g.record(ctx, listingURL, snap, false, started, finished)
		return snap, nil
	})
	return v.(*models.MarketSnapshot)
}

func (g *CachingGateway) record(ctx context.Context, url string, snap *models.MarketSnapshot, cacheHit bool, started, finished time.Time) {
	if g.recorder == nil {
		return
	}

	status := models.FetchStatusCompleted
	if snap.Empty() {
		status = models.FetchStatusFailed
	}
	run := models.FetchRun{
		RequestID:  uuid.NewString(),
		URL:        url,
		StartedAt:  started,
		FinishedAt: &finished,
		Status:     status,
		CacheHit:   cacheHit,
		Attempts:   1,
	}
	if err := g.recorder.RecordFetchRun(ctx, run); err != nil {
		log.Printf("[cache] fetch-run archive failed for %s: %v", url, err)
	}
}
