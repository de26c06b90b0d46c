package scraper

import (
	"context"
	"sync"
	"testing"
	"time"

	"nz_propper/models"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*models.MarketSnapshot
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]*models.MarketSnapshot)}
}

func (c *memoryCache) Get(_ context.Context, url string, maxAge time.Duration) (*models.MarketSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.entries[url]
	if !ok || time.Since(snap.FetchedAt) > maxAge {
		return nil, false
	}
	return snap, true
}

func (c *memoryCache) Put(_ context.Context, url string, snap *models.MarketSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = snap
	return nil
}

type countingGateway struct {
	mu      sync.Mutex
	fetches int
	snap    *models.MarketSnapshot
}

func (g *countingGateway) Fetch(ctx context.Context, url string) *models.MarketSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetches++
	return g.snap
}

func (g *countingGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetches
}

func TestCachingGatewayHitSkipsInner(t *testing.T) {
	inner := &countingGateway{snap: &models.MarketSnapshot{
		EstimateRange: &models.PriceRange{Low: 800000, High: 880000},
		FetchedAt:     time.Now(),
	}}
	gw := NewCachingGateway(inner, newMemoryCache(), time.Hour)
	ctx := context.Background()

	first := gw.Fetch(ctx, "https://example.test/listing/1")
	second := gw.Fetch(ctx, "https://example.test/listing/1")

	if inner.count() != 1 {
		t.Errorf("inner fetches = %d, want 1", inner.count())
	}
	if first.EstimateRange == nil || second.EstimateRange == nil {
		t.Fatal("expected estimate ranges on both fetches")
	}
	if second.EstimateRange.Low != 800000 {
		t.Errorf("cached estimate low = %v, want 800000", second.EstimateRange.Low)
	}
}

func TestCachingGatewayEmptySnapshotNotCached(t *testing.T) {
	inner := &countingGateway{snap: &models.MarketSnapshot{FetchedAt: time.Now()}}
	gw := NewCachingGateway(inner, newMemoryCache(), time.Hour)
	ctx := context.Background()

	gw.Fetch(ctx, "https://example.test/listing/2")
	gw.Fetch(ctx, "https://example.test/listing/2")

	if inner.count() != 2 {
		t.Errorf("inner fetches = %d, want 2 when results are empty", inner.count())
	}
}

func TestCachingGatewayEmptyURL(t *testing.T) {
	inner := &countingGateway{snap: &models.MarketSnapshot{
		SoldPrices: []float64{1},
		FetchedAt:  time.Now(),
	}}
	gw := NewCachingGateway(inner, newMemoryCache(), time.Hour)

	snap := gw.Fetch(context.Background(), "")
	if !snap.Empty() {
		t.Errorf("expected an empty snapshot for an empty url, got %+v", snap)
	}
	if inner.count() != 0 {
		t.Errorf("inner fetches = %d, want 0", inner.count())
	}
}

type slowGateway struct {
	countingGateway
	release chan struct{}
}

func (g *slowGateway) Fetch(ctx context.Context, url string) *models.MarketSnapshot {
	g.mu.Lock()
	g.fetches++
	g.mu.Unlock()
	<-g.release
	return g.snap
}

func TestCachingGatewayCollapsesConcurrentFetches(t *testing.T) {
	inner := &slowGateway{release: make(chan struct{})}
	inner.snap = &models.MarketSnapshot{
		SoldPrices: []float64{650000},
		FetchedAt:  time.Now(),
	}
	gw := NewCachingGateway(inner, newMemoryCache(), time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*models.MarketSnapshot, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = gw.Fetch(ctx, "https://example.test/listing/3")
		}(i)
	}

	// Let all goroutines pile onto the singleflight group before releasing.
	time.Sleep(50 * time.Millisecond)
	close(inner.release)
	wg.Wait()

	if got := inner.count(); got != 1 {
		t.Errorf("inner fetches = %d, want 1 for concurrent callers", got)
	}
	for i, snap := range results {
		if snap == nil || len(snap.SoldPrices) != 1 {
			t.Errorf("result %d = %+v, want the shared snapshot", i, snap)
		}
	}
}

type recordingArchive struct {
	mu   sync.Mutex
	runs []models.FetchRun
}

func (r *recordingArchive) RecordFetchRun(_ context.Context, run models.FetchRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func TestCachingGatewayRecordsRuns(t *testing.T) {
	inner := &countingGateway{snap: &models.MarketSnapshot{
		SoldPrices: []float64{720000},
		FetchedAt:  time.Now(),
	}}
	archive := &recordingArchive{}
	gw := NewCachingGateway(inner, newMemoryCache(), time.Hour).WithRecorder(archive)
	ctx := context.Background()

	gw.Fetch(ctx, "https://example.test/listing/4")
	gw.Fetch(ctx, "https://example.test/listing/4")

	archive.mu.Lock()
	defer archive.mu.Unlock()
	if len(archive.runs) != 2 {
		t.Fatalf("recorded runs = %d, want 2", len(archive.runs))
	}
	if archive.runs[0].CacheHit {
		t.Error("first run should be a cache miss")
	}
	if !archive.runs[1].CacheHit {
		t.Error("second run should be a cache hit")
	}
	if archive.runs[0].Status != models.FetchStatusCompleted {
		t.Errorf("first run status = %q, want %q", archive.runs[0].Status, models.FetchStatusCompleted)
	}
}
