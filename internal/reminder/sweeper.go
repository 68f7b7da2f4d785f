package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// JobPurger drops finished queue jobs. Optional for the sweeper.
type JobPurger interface {
	PurgeFinished(ctx context.Context, before time.Time) (int64, error)
}

type SweepConfig struct {
	Interval     time.Duration // between ticks, 30m
	Window       time.Duration // backfill look-back, 30m
	Drift        time.Duration // clock skew tolerance on both window ends, 5m
	Retention    time.Duration // reminder records, 25h
	JobRetention time.Duration // finished jobs, 72h
}

var DefaultSweepConfig = SweepConfig{
	Interval:     30 * time.Minute,
	Window:       30 * time.Minute,
	Drift:        5 * time.Minute,
	Retention:    25 * time.Hour,
	JobRetention: 72 * time.Hour,
}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultSweepConfig.Interval
	}
	if c.Window <= 0 {
		c.Window = DefaultSweepConfig.Window
	}
	if c.Drift < 0 {
		c.Drift = 0
	}
	if c.Retention <= 0 {
		c.Retention = DefaultSweepConfig.Retention
	}
	if c.JobRetention <= 0 {
		c.JobRetention = DefaultSweepConfig.JobRetention
	}
	return c
}

// Sweeper re-enqueues reminders whose job never delivered and prunes old
// records. It races with the worker pool; the claim keeps that safe.
type Sweeper struct {
	Repo   *Repo
	Queue  Queue
	Jobs   JobPurger
	Config SweepConfig
	Logger *slog.Logger

	Now func() time.Time
}

func (s *Sweeper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Sweeper) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// BackfillWindow returns [now - (window + drift), now + drift].
func (s *Sweeper) BackfillWindow() (time.Time, time.Time) {
	cfg := s.Config.withDefaults()
	now := s.now()
	return now.Add(-(cfg.Window + cfg.Drift)), now.Add(cfg.Drift)
}

// Backfill enqueues an immediate, high-priority job for every unsent record
// inside the backfill window and returns how many were enqueued.
func (s *Sweeper) Backfill(ctx context.Context) (int, error) {
	start, end := s.BackfillWindow()
	due, err := s.Repo.FindDue(ctx, start, end)
	if err != nil {
		return 0, fmt.Errorf("find due reminders: %w", err)
	}

	var (
		n    int
		errs []error
	)
	for i := range due {
		d := deliveryFor(&due[i])
		d.Backfill = true
		if _, err := s.Queue.Enqueue(ctx, d, 0); err != nil {
			errs = append(errs, fmt.Errorf("backfill reminder %d: %w", d.ReminderID, err))
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// Cleanup deletes stale reminder records and, when a purger is set, finished jobs.
func (s *Sweeper) Cleanup(ctx context.Context) (int64, error) {
	cfg := s.Config.withDefaults()
	now := s.now()

	n, err := s.Repo.DeleteStale(ctx, now.Add(-cfg.Retention))
	if err != nil {
		return 0, fmt.Errorf("delete stale reminders: %w", err)
	}

	if s.Jobs != nil {
		purged, err := s.Jobs.PurgeFinished(ctx, now.Add(-cfg.JobRetention))
		if err != nil {
			return n, fmt.Errorf("purge finished jobs: %w", err)
		}
		if purged > 0 {
			s.logger().Info("finished jobs purged", slog.Int64("count", purged))
		}
	}
	return n, nil
}

// Tick runs both sweeps. Errors are logged, never returned.
func (s *Sweeper) Tick(ctx context.Context) {
	log := s.logger()

	n, err := s.Backfill(ctx)
	if err != nil {
		log.Error("reminder backfill", slog.String("error", err.Error()))
	}
	if n > 0 {
		log.Info("reminders backfilled", slog.Int("count", n))
	}

	deleted, err := s.Cleanup(ctx)
	if err != nil {
		log.Error("reminder cleanup", slog.String("error", err.Error()))
	}
	if deleted > 0 {
		log.Info("stale reminders deleted", slog.Int64("count", deleted))
	}
}

// Run ticks once immediately, to cover reminders missed while the process was
// down, then on every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	cfg := s.Config.withDefaults()

	s.Tick(ctx)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc("@every "+cfg.Interval.String(), func() { s.Tick(ctx) }); err != nil {
		return fmt.Errorf("schedule reminder sweep: %w", err)
	}
	c.Start()
	s.logger().Info("reminder sweeper started", slog.Duration("interval", cfg.Interval))

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger().Info("reminder sweeper stopped")
	return nil
}
