package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"nz_propper/models"
)

// ArchiveStore persists fetch-run bookkeeping and raw snapshots in
// Postgres. Entirely optional; the service runs fine without it.
type ArchiveStore struct {
	pool *pgxpool.Pool
}

func NewArchiveStore(ctx context.Context, connString string) (*ArchiveStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &ArchiveStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (s *ArchiveStore) Close() {
	s.pool.Close()
}

func (s *ArchiveStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS fetch_runs (
		id BIGSERIAL PRIMARY KEY,
		request_id TEXT NOT NULL,
		url TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		status TEXT NOT NULL,
		cache_hit BOOLEAN NOT NULL DEFAULT FALSE,
		attempts INT NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS snapshot_archive (
		id BIGSERIAL PRIMARY KEY,
		url TEXT NOT NULL,
		payload JSONB NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL,
		archived_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_fetch_runs_url ON fetch_runs(url, started_at);
	CREATE INDEX IF NOT EXISTS idx_snapshot_archive_url ON snapshot_archive(url, fetched_at);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *ArchiveStore) RecordFetchRun(ctx context.Context, run models.FetchRun) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO fetch_runs (request_id, url, started_at, finished_at, status, cache_hit, attempts, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.RequestID, run.URL, run.StartedAt, run.FinishedAt, run.Status, run.CacheHit, run.Attempts, run.Error)
	if err != nil {
		return fmt.Errorf("insert fetch run: %w", err)
	}
	return nil
}

func (s *ArchiveStore) ArchiveSnapshot(ctx context.Context, url string, snap *models.MarketSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO snapshot_archive (url, payload, fetched_at)
		VALUES ($1, $2, $3)`,
		url, payload, snap.FetchedAt)
	if err != nil {
		return fmt.Errorf("insert snapshot archive: %w", err)
	}
	return nil
}

// RecentFetchRuns returns the latest runs for a URL, newest first.
func (s *ArchiveStore) RecentFetchRuns(ctx context.Context, url string, limit int) ([]models.FetchRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, request_id, url, started_at, finished_at, status, cache_hit, attempts, error
		FROM fetch_runs WHERE url = $1 ORDER BY started_at DESC LIMIT $2`, url, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.FetchRun
	for rows.Next() {
		var run models.FetchRun
		if err := rows.Scan(&run.ID, &run.RequestID, &run.URL, &run.StartedAt,
			&run.FinishedAt, &run.Status, &run.CacheHit, &run.Attempts, &run.Error); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
