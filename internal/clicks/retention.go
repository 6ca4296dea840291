package clicks

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/shortlinker/shortlinker/internal/storage"
)

// RetentionScheduler sweeps raw click_logs rows older than the configured
// retention window, gated on that window's hourly rollup already existing
// — it never deletes a raw row before its aggregate is durable.
type RetentionScheduler struct {
	store  storage.Gateway
	window time.Duration
	cron   *cron.Cron
	log    *zap.Logger
}

// NewRetentionScheduler builds a scheduler with the given retention
// window (default 90 days).
func NewRetentionScheduler(store storage.Gateway, window time.Duration, log *zap.Logger) *RetentionScheduler {
	if window <= 0 {
		window = 90 * 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RetentionScheduler{store: store, window: window, cron: cron.New(cron.WithLocation(time.UTC)), log: log}
}

// Start schedules the sweep to run once daily at 01:00 UTC, after the
// daily rollup job.
func (s *RetentionScheduler) Start() error {
	_, err := s.cron.AddFunc("0 1 * * *", s.sweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop waits for an in-flight sweep to finish and halts the scheduler.
func (s *RetentionScheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *RetentionScheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-s.window)
	cutoffHour := cutoff.Truncate(time.Hour)

	exists, err := s.store.HourlyRollupExists(ctx, cutoffHour)
	if err != nil {
		s.log.Error("retention: check rollup existence failed", zap.Error(err))
		return
	}
	if !exists {
		s.log.Warn("retention: skipping sweep, rollup not yet computed for cutoff hour", zap.Time("cutoff_hour", cutoffHour))
		return
	}

	deleted, err := s.store.DeleteClickLogsBefore(ctx, cutoff)
	if err != nil {
		s.log.Error("retention: sweep failed", zap.Error(err))
		return
	}
	s.log.Info("retention: swept old click logs", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
}
