package workers

import (
	"context"
	"log"
	"time"

	"nz_propper/scraper"
	"nz_propper/storage"
)

// RefreshWorker re-fetches cached market snapshots that have gone stale,
// so the next calculation over a known listing starts from warm data.
type RefreshWorker struct {
	store     *storage.SnapshotStore
	gateway   scraper.Gateway
	maxAge    time.Duration
	batchSize int
	triggerCh chan struct{}
}

func NewRefreshWorker(store *storage.SnapshotStore, gateway scraper.Gateway, maxAge time.Duration, batchSize int) *RefreshWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &RefreshWorker{
		store:     store,
		gateway:   gateway,
		maxAge:    maxAge,
		batchSize: batchSize,
		triggerCh: make(chan struct{}, 1),
	}
}

// Trigger causes the worker to run immediately
func (w *RefreshWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// Run starts the refresh loop.
func (w *RefreshWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Refresh worker stopping")
			return
		case <-ticker.C:
			w.processBatch(ctx)
		case <-w.triggerCh:
			log.Println("Refresh worker triggered manually")
			w.processBatch(ctx)
		}
	}
}

func (w *RefreshWorker) processBatch(ctx context.Context) {
	urls, err := w.store.StaleURLs(ctx, w.maxAge, w.batchSize)
	if err != nil {
		log.Printf("Refresh: query error: %v", err)
		return
	}
	if len(urls) == 0 {
		return
	}

	log.Printf("Refresh: re-fetching %d stale snapshots", len(urls))

	var refreshed int
	for _, url := range urls {
		if ctx.Err() != nil {
			return
		}

		snap := w.gateway.Fetch(ctx, url)
		if snap.Empty() {
			log.Printf("Refresh: no data for %s, leaving cached entry", url)
			continue
		}

		if err := w.store.Put(ctx, url, snap); err != nil {
			log.Printf("Refresh: store error for %s: %v", url, err)
			continue
		}
		refreshed++
	}

	log.Printf("Refresh: updated %d/%d snapshots", refreshed, len(urls))
}
