package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HandlerFunc processes one job payload. A returned error schedules a retry
// until the job's attempts are exhausted.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// Pool runs Concurrency workers that poll the jobs table and dispatch claimed
// jobs to the handler registered for their type.
type Pool struct {
	Repo *Repo

	Concurrency  int
	PollInterval time.Duration
	LockTimeout  time.Duration
	Logger       *slog.Logger

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func (p *Pool) Handle(jobType string, h HandlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handlers == nil {
		p.handlers = make(map[string]HandlerFunc)
	}
	p.handlers[jobType] = h
}

// Run blocks until ctx is cancelled and all workers returned.
// In-flight jobs finish before Run returns.
func (p *Pool) Run(ctx context.Context) error {
	n := p.Concurrency
	if n <= 0 {
		n = 5
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(workerID string) {
			defer wg.Done()
			p.work(ctx, workerID)
		}(fmt.Sprintf("worker-%d-%s", i+1, uuid.NewString()[:8]))
	}

	p.logger().Info("worker pool started", slog.Int("concurrency", n))
	wg.Wait()
	p.logger().Info("worker pool stopped")
	return nil
}

func (p *Pool) work(ctx context.Context, workerID string) {
	ticker := time.NewTicker(p.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// drain everything that is due before waiting for the next tick
			for ctx.Err() == nil {
				ok, err := p.RunOnce(ctx, workerID)
				if err != nil {
					p.logger().Error("worker claim error",
						slog.String("worker_id", workerID),
						slog.String("error", err.Error()))
				}
				if !ok {
					break
				}
			}
		}
	}
}

// RunOnce claims and processes at most one job. It reports whether a job was claimed.
func (p *Pool) RunOnce(ctx context.Context, workerID string) (bool, error) {
	job, err := p.Repo.Claim(ctx, workerID, p.lockTimeout())
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	p.process(job, workerID)
	return true, nil
}

func (p *Pool) process(job *Job, workerID string) {
	log := p.logger().With(
		slog.String("worker_id", workerID),
		slog.String("job_id", job.ID.String()),
		slog.String("job_type", job.Type))

	p.mu.RLock()
	h, ok := p.handlers[job.Type]
	p.mu.RUnlock()

	// Handlers run detached from the pool context so shutdown lets them finish.
	ctx, cancel := context.WithTimeout(context.Background(), p.lockTimeout())
	defer cancel()

	if !ok {
		log.Error("no handler registered for job type")
		if err := p.Repo.MarkFailed(ctx, job.ID, workerID, job.Attempts+1, "unknown job type"); err != nil {
			log.Error("mark failed", slog.String("error", err.Error()))
		}
		return
	}

	start := time.Now()
	if err := p.call(ctx, h, job); err != nil {
		p.retry(ctx, log, job, workerID, err)
		return
	}

	if err := p.Repo.MarkDone(ctx, job.ID, workerID); err != nil {
		log.Error("mark done", slog.String("error", err.Error()))
		return
	}
	log.Debug("job done", slog.Duration("duration", time.Since(start)))
}

func (p *Pool) call(ctx context.Context, h HandlerFunc, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in handler: %v", r)
		}
	}()
	return h(ctx, json.RawMessage(job.Payload))
}

func (p *Pool) retry(ctx context.Context, log *slog.Logger, job *Job, workerID string, cause error) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		log.Warn("job failed permanently",
			slog.Int("attempts", attempts),
			slog.String("error", cause.Error()))
		if err := p.Repo.MarkFailed(ctx, job.ID, workerID, attempts, cause.Error()); err != nil {
			log.Error("mark failed", slog.String("error", err.Error()))
		}
		return
	}

	delay := Backoff(job.BackoffBase(), attempts)
	log.Warn("job failed, retrying",
		slog.Int("attempts", attempts),
		slog.Duration("backoff", delay),
		slog.String("error", cause.Error()))

	if err := p.Repo.RetryLater(ctx, job.ID, workerID, attempts, p.Repo.now().Add(delay), cause.Error()); err != nil {
		log.Error("retry later", slog.String("error", err.Error()))
	}
}

func (p *Pool) pollInterval() time.Duration {
	if p.PollInterval > 0 {
		return p.PollInterval
	}
	return 800 * time.Millisecond
}

func (p *Pool) lockTimeout() time.Duration {
	if p.LockTimeout > 0 {
		return p.LockTimeout
	}
	return 5 * time.Minute
}

func (p *Pool) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
