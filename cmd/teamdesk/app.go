package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"teamdesk/internal/auth"
	"teamdesk/internal/entity"
	"teamdesk/internal/jobs"
	"teamdesk/internal/notify"
	"teamdesk/internal/reminder"
)

// app is the wired object graph shared by serve and sweep.
type app struct {
	db        *gorm.DB
	jwt       *auth.JWT
	reminders *reminder.Repo
	entities  *entity.Service
	pool      *jobs.Pool
	sweeper   *reminder.Sweeper
}

func (c *cli) wire(gdb *gorm.DB, rdb *redis.Client) *app {
	cfg := c.cfg
	log := c.log

	jobsRepo := &jobs.Repo{DB: gdb}
	reminders := &reminder.Repo{DB: gdb}
	queue := &reminder.JobQueue{
		Jobs: jobsRepo,
		Retry: jobs.RetryPolicy{
			MaxAttempts: cfg.Worker.MaxAttempts,
			BackoffBase: cfg.Worker.BackoffBase,
		},
	}

	scheduler := &reminder.Scheduler{
		Repo:   reminders,
		Queue:  queue,
		Logger: log.With(slog.String("component", "scheduler")),
	}

	var cache reminder.SentCache = &reminder.MemorySentCache{}
	if rdb != nil {
		cache = &reminder.RedisSentCache{Client: rdb}
	}

	dispatcher := &reminder.Dispatcher{
		Repo:     reminders,
		Entities: &entity.Store{DB: gdb},
		Notifier: c.notifier(),
		Cache:    cache,
		Logger:   log.With(slog.String("component", "dispatcher")),
	}

	pool := &jobs.Pool{
		Repo:         jobsRepo,
		Concurrency:  cfg.Worker.Concurrency,
		PollInterval: cfg.Worker.PollInterval,
		LockTimeout:  cfg.Worker.LockTimeout,
		Logger:       log.With(slog.String("component", "worker")),
	}
	pool.Handle(reminder.JobTypeDispatch, dispatcher.Handle)

	sweeper := &reminder.Sweeper{
		Repo:  reminders,
		Queue: queue,
		Jobs:  jobsRepo,
		Config: reminder.SweepConfig{
			Interval:     cfg.Sweep.Interval,
			Window:       cfg.Sweep.BackfillWindow,
			Drift:        cfg.Sweep.BackfillDrift,
			Retention:    cfg.Sweep.ReminderRetention,
			JobRetention: cfg.Sweep.JobRetention,
		},
		Logger: log.With(slog.String("component", "sweeper")),
	}

	return &app{
		db:        gdb,
		jwt:       auth.NewJWT(cfg.JWTSecret),
		reminders: reminders,
		entities:  &entity.Service{DB: gdb, Hooks: scheduler},
		pool:      pool,
		sweeper:   sweeper,
	}
}

// notifier picks postmark when it is configured and the log notifier otherwise.
func (c *cli) notifier() reminder.Notifier {
	logN := notify.NewLog(c.log.With(slog.String("component", "notifier")))
	if c.cfg.PostmarkServerToken == "" {
		return logN
	}

	pm, err := notify.NewPostmark(notify.PostmarkConfig{
		ServerToken:  c.cfg.PostmarkServerToken,
		AccountToken: c.cfg.PostmarkAccountToken,
		SenderEmail:  c.cfg.SenderEmail,
	})
	if err != nil {
		c.log.Warn("postmark disabled", slog.String("error", err.Error()))
		return logN
	}
	return notify.Multi{pm, logN}
}

// openRedis returns nil when no REDIS_URL is configured.
func (c *cli) openRedis(ctx context.Context) (*redis.Client, error) {
	if c.cfg.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(c.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}
