package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPayloadMarshal = errors.New("failed to marshal job payload")
	// ErrLockLost is returned when a worker settles a job it no longer holds.
	ErrLockLost = errors.New("job lock lost")
)

type Repo struct {
	DB *gorm.DB

	// Now is overridable in tests. Times are stored in UTC.
	Now func() time.Time
}

func (r *Repo) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

// Enqueue stores a new PENDING job and returns its id.
func (r *Repo) Enqueue(ctx context.Context, jobType, key string, payload any, opts ...EnqueueOption) (uuid.UUID, error) {
	o := &enqueueOptions{retry: DefaultRetryPolicy}
	for _, opt := range opts {
		opt(o)
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, errors.Join(ErrPayloadMarshal, err)
	}

	now := r.now()
	runAt := now.Add(o.delay)
	if o.runAt != nil {
		runAt = o.runAt.UTC()
	}

	j := Job{
		ID:            uuid.New(),
		Type:          jobType,
		Key:           key,
		Payload:       b,
		Priority:      o.priority,
		RunAt:         runAt,
		Status:        StatusPending,
		MaxAttempts:   o.retry.MaxAttempts,
		BackoffBaseMS: o.retry.BackoffBase.Milliseconds(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.DB.WithContext(ctx).Create(&j).Error; err != nil {
		return uuid.Nil, fmt.Errorf("enqueue %s job: %w", jobType, err)
	}
	return j.ID, nil
}

// Cancel moves a PENDING job to CANCELLED. It reports false when the job is
// unknown or already claimed; callers treat that as advisory, not as an error.
func (r *Repo) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]any{"status": StatusCancelled, "updated_at": r.now()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	var j Job
	if err := r.DB.WithContext(ctx).Where("id = ?", id).Take(&j).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &j, nil
}

// Claim one due job atomically.
// RUNNING jobs whose lock is older than lockTimeout are returned to PENDING
// first, so a crashed worker's job is delivered again; the expired run
// counts as an attempt.
// On Postgres the candidate row is locked with SKIP LOCKED; on every dialect
// the final status flip is a compare-and-set on status = PENDING.
func (r *Repo) Claim(ctx context.Context, workerID string, lockTimeout time.Duration) (*Job, error) {
	now := r.now()
	var claimed *Job

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stuck := func() *gorm.DB {
			return tx.Model(&Job{}).
				Where("status = ? AND locked_at IS NOT NULL AND locked_at < ?", StatusRunning, now.Add(-lockTimeout))
		}
		if err := stuck().
			Where("attempts + 1 >= max_attempts").
			Updates(map[string]any{
				"status":     StatusFailed,
				"attempts":   gorm.Expr("attempts + 1"),
				"last_error": "lock expired",
				"locked_by":  nil,
				"locked_at":  nil,
				"updated_at": now,
			}).Error; err != nil {
			return fmt.Errorf("fail stuck jobs: %w", err)
		}
		if err := stuck().
			Updates(map[string]any{
				"status":     StatusPending,
				"attempts":   gorm.Expr("attempts + 1"),
				"last_error": "lock expired",
				"locked_by":  nil,
				"locked_at":  nil,
				"updated_at": now,
			}).Error; err != nil {
			return fmt.Errorf("requeue stuck jobs: %w", err)
		}

		q := tx.Where("status = ? AND run_at <= ?", StatusPending, now).
			Order("priority desc").
			Order("run_at asc").
			Limit(1)
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		var job Job
		if err := q.Take(&job).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		res := tx.Model(&Job{}).
			Where("id = ? AND status = ?", job.ID, StatusPending).
			Updates(map[string]any{
				"status":     StatusRunning,
				"locked_by":  workerID,
				"locked_at":  now,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// another worker won the row
			return nil
		}

		job.Status = StatusRunning
		job.LockedBy = &workerID
		job.LockedAt = &now
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// settle applies the final update of a run, provided workerID still holds
// the job. A worker whose lock expired gets ErrLockLost.
func (r *Repo) settle(ctx context.Context, id uuid.UUID, workerID string, fields map[string]any) error {
	fields["locked_by"] = nil
	fields["locked_at"] = nil
	fields["updated_at"] = r.now()

	res := r.DB.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ? AND locked_by = ?", id, StatusRunning, workerID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLockLost
	}
	return nil
}

func (r *Repo) MarkDone(ctx context.Context, id uuid.UUID, workerID string) error {
	return r.settle(ctx, id, workerID, map[string]any{"status": StatusDone})
}

func (r *Repo) MarkFailed(ctx context.Context, id uuid.UUID, workerID string, attempts int, errMsg string) error {
	return r.settle(ctx, id, workerID, map[string]any{
		"status":     StatusFailed,
		"attempts":   attempts,
		"last_error": errMsg,
	})
}

func (r *Repo) RetryLater(ctx context.Context, id uuid.UUID, workerID string, attempts int, runAt time.Time, errMsg string) error {
	return r.settle(ctx, id, workerID, map[string]any{
		"status":     StatusPending,
		"attempts":   attempts,
		"run_at":     runAt.UTC(),
		"last_error": errMsg,
	})
}

// PurgeFinished deletes DONE, FAILED and CANCELLED jobs last touched before cutoff.
func (r *Repo) PurgeFinished(ctx context.Context, before time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", []Status{StatusDone, StatusFailed, StatusCancelled}, before.UTC()).
		Delete(&Job{})
	return res.RowsAffected, res.Error
}
