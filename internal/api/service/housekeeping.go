package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/clinic/internal/api/store"
	"github.com/aussiebroadwan/clinic/pkg/metrics"
	"github.com/robfig/cron/v3"
)

const DefaultHousekeepingSchedule = "@hourly"

// HousekeepingService purges settled and long-expired invites on a cron
// schedule to prevent unbounded growth of the invites table.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Schedule  string
	Retention time.Duration
	Timeout   time.Duration

	cron *cron.Cron
	wg   sync.WaitGroup
}

// NewHousekeepingService creates a housekeeping service. An empty schedule
// defaults to hourly. A zero retention disables purging.
func NewHousekeepingService(store store.Store, logger *slog.Logger, m *metrics.Metrics, schedule string, retention time.Duration) *HousekeepingService {
	if schedule == "" {
		schedule = DefaultHousekeepingSchedule
	}
	return &HousekeepingService{
		Store:     store,
		Logger:    logger,
		Metrics:   m,
		Schedule:  schedule,
		Retention: retention,
		Timeout:   time.Minute,
	}
}

// Start registers the purge job and starts the scheduler. It runs one
// cleanup immediately. Call Stop to shut it down.
func (s *HousekeepingService) Start() error {
	if s.Retention <= 0 {
		s.Logger.Info("housekeeping disabled", "reason", "retention is zero")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.Schedule, s.run); err != nil {
		return err
	}
	s.cron = c
	c.Start()

	s.wg.Go(s.run)
	s.Logger.Info("housekeeping service started",
		"schedule", s.Schedule,
		"retention", s.Retention,
	)
	return nil
}

// Stop halts the scheduler and waits for a running cleanup to finish.
func (s *HousekeepingService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if _, err := s.Cleanup(ctx, time.Now().UTC()); err != nil {
		s.Logger.Error("housekeeping cleanup failed", "error", err)
	}
}

// Cleanup deletes invites that were revoked, or expired, more than Retention
// before now. Accepted invites are never purged.
func (s *HousekeepingService) Cleanup(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-s.Retention)
	n, err := s.Store.Invites().DeleteInvitesBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.Metrics.Purged(n)
	s.Logger.Info("housekeeping cleanup completed",
		"invites_deleted", n,
		"cutoff", cutoff,
	)
	return n, nil
}
