package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"nz_propper/config"
	"nz_propper/storage"
)

// Triggerable allows workers to be triggered manually
type Triggerable interface {
	Trigger()
}

// Scheduler runs periodic cache maintenance: a nightly prune of expired
// snapshots and an optional cron-driven refresh trigger.
type Scheduler struct {
	cfg   *config.SchedulerConfig
	store *storage.SnapshotStore
	cron  *cron.Cron

	refreshWorker Triggerable
}

func New(cfg *config.SchedulerConfig, store *storage.SnapshotStore) *Scheduler {
	return &Scheduler{
		cfg:   cfg,
		store: store,
		cron:  cron.New(),
	}
}

// SetRefreshWorker registers the refresh worker for cron triggering.
func (s *Scheduler) SetRefreshWorker(w Triggerable) {
	s.refreshWorker = w
}

// Start registers the cron entries. Entries older than pruneAge go in
// the nightly prune.
func (s *Scheduler) Start(ctx context.Context, pruneAge time.Duration) error {
	if s.cfg.PruneCron != "" {
		log.Printf("Scheduling cache prune with cron: %s", s.cfg.PruneCron)
		_, err := s.cron.AddFunc(s.cfg.PruneCron, func() {
			removed, err := s.store.Prune(ctx, pruneAge)
			if err != nil {
				log.Printf("Cache prune error: %v", err)
				return
			}
			log.Printf("Cache prune removed %d expired snapshots", removed)
		})
		if err != nil {
			return fmt.Errorf("invalid prune cron expression: %w", err)
		}
	}

	if s.cfg.RefreshCron != "" {
		log.Printf("Scheduling snapshot refresh with cron: %s", s.cfg.RefreshCron)
		_, err := s.cron.AddFunc(s.cfg.RefreshCron, func() {
			if s.refreshWorker != nil {
				s.refreshWorker.Trigger()
				log.Println("Refresh worker triggered on schedule")
			}
		})
		if err != nil {
			return fmt.Errorf("invalid refresh cron expression: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
