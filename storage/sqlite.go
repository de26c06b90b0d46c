package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"nz_propper/models"
)

// SnapshotStore caches scraped market snapshots in SQLite so repeated
// calculations over the same listings skip the browser.
type SnapshotStore struct {
	db *sql.DB
}

func NewSnapshotStore(dbPath string) (*SnapshotStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SnapshotStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

func (s *SnapshotStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS market_snapshots (
		url TEXT PRIMARY KEY,
		estimate_low REAL,
		estimate_high REAL,
		sold_prices JSON,
		rent_low REAL,
		rent_high REAL,
		fetched_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_fetched ON market_snapshots(fetched_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the cached snapshot for url, or ok=false on a miss or when
// the entry is older than maxAge.
func (s *SnapshotStore) Get(ctx context.Context, url string, maxAge time.Duration) (*models.MarketSnapshot, bool) {
	row := s.db.QueryRowContext(ctx, `
		SELECT estimate_low, estimate_high, sold_prices, rent_low, rent_high, fetched_at
		FROM market_snapshots WHERE url = ?`, url)

	var estLow, estHigh, rentLow, rentHigh sql.NullFloat64
	var soldJSON sql.NullString
	var fetchedAt time.Time
	err := row.Scan(&estLow, &estHigh, &soldJSON, &rentLow, &rentHigh, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		log.Printf("[storage] snapshot read failed for %s: %v", url, err)
		return nil, false
	}
	if time.Since(fetchedAt) > maxAge {
		return nil, false
	}

	snap := &models.MarketSnapshot{FetchedAt: fetchedAt}
	if estLow.Valid && estHigh.Valid {
		snap.EstimateRange = &models.PriceRange{Low: estLow.Float64, High: estHigh.Float64}
	}
	if rentLow.Valid && rentHigh.Valid {
		snap.RentRange = &models.PriceRange{Low: rentLow.Float64, High: rentHigh.Float64}
	}
	if soldJSON.Valid && soldJSON.String != "" {
		if err := json.Unmarshal([]byte(soldJSON.String), &snap.SoldPrices); err != nil {
			log.Printf("[storage] bad sold_prices for %s: %v", url, err)
		}
	}
	return snap, true
}

// Put upserts the snapshot for url.
func (s *SnapshotStore) Put(ctx context.Context, url string, snap *models.MarketSnapshot) error {
	var estLow, estHigh, rentLow, rentHigh sql.NullFloat64
	if snap.EstimateRange != nil {
		estLow = sql.NullFloat64{Float64: snap.EstimateRange.Low, Valid: true}
		estHigh = sql.NullFloat64{Float64: snap.EstimateRange.High, Valid: true}
	}
	if snap.RentRange != nil {
		rentLow = sql.NullFloat64{Float64: snap.RentRange.Low, Valid: true}
		rentHigh = sql.NullFloat64{Float64: snap.RentRange.High, Valid: true}
	}

	soldJSON, err := json.Marshal(snap.SoldPrices)
	if err != nil {
		return fmt.Errorf("marshal sold prices: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO market_snapshots (url, estimate_low, estimate_high, sold_prices, rent_low, rent_high, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			estimate_low = excluded.estimate_low,
			estimate_high = excluded.estimate_high,
			sold_prices = excluded.sold_prices,
			rent_low = excluded.rent_low,
			rent_high = excluded.rent_high,
			fetched_at = excluded.fetched_at`,
		url, estLow, estHigh, string(soldJSON), rentLow, rentHigh, snap.FetchedAt)
	return err
}

// Prune deletes entries older than maxAge and returns how many went.
func (s *SnapshotStore) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM market_snapshots WHERE fetched_at < ?`, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// StaleURLs lists cached URLs whose entries are older than maxAge, for
// the background refresh worker.
func (s *SnapshotStore) StaleURLs(ctx context.Context, maxAge time.Duration, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url FROM market_snapshots
		WHERE fetched_at < ? ORDER BY fetched_at LIMIT ?`,
		time.Now().Add(-maxAge), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

// ImportLegacyJSON loads a cache file from the old flat-file format, a map
// of url to [estimate_midpoint, iso_timestamp] pairs. Entries parse into
// single-point estimate ranges. Unreadable entries are skipped.
func (s *SnapshotStore) ImportLegacyJSON(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var legacy map[string][2]json.RawMessage
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return 0, fmt.Errorf("parse legacy cache: %w", err)
	}

	imported := 0
	for url, entry := range legacy {
		var value float64
		if err := json.Unmarshal(entry[0], &value); err != nil || value <= 0 {
			continue
		}
		var stamp string
		if err := json.Unmarshal(entry[1], &stamp); err != nil {
			continue
		}
		fetchedAt, err := time.Parse(time.RFC3339, stamp)
		if err != nil {
			continue
		}

		snap := &models.MarketSnapshot{
			EstimateRange: &models.PriceRange{Low: value, High: value},
			FetchedAt:     fetchedAt,
		}
		if err := s.Put(ctx, url, snap); err != nil {
			log.Printf("[storage] legacy import failed for %s: %v", url, err)
			continue
		}
		imported++
	}
	return imported, nil
}
