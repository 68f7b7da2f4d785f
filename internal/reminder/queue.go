package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"teamdesk/internal/jobs"
)

const JobTypeDispatch = "REMINDER_DISPATCH"

// backfillPriority lets recovery jobs jump ahead of regularly scheduled ones.
const backfillPriority = 10

// Delivery is the job payload that asks a worker to deliver one reminder revision.
type Delivery struct {
	ReminderID       uint64     `json:"reminder_id"`
	EntityType       EntityType `json:"entity_type"`
	EntityID         uint64     `json:"entity_id"`
	ThresholdMinutes int        `json:"threshold_minutes"`
	Revision         uint64     `json:"revision"`
	Backfill         bool       `json:"backfill,omitempty"`
}

func deliveryFor(rec *Record) Delivery {
	return Delivery{
		ReminderID:       rec.ID,
		EntityType:       rec.EntityType,
		EntityID:         rec.EntityID,
		ThresholdMinutes: rec.ThresholdMinutes,
		Revision:         rec.Revision,
	}
}

// Queue is the delayed job queue as seen by the engine: delivery is at least
// once and cancellation is advisory.
type Queue interface {
	Enqueue(ctx context.Context, d Delivery, delay time.Duration) (string, error)
	Cancel(ctx context.Context, jobID string) (bool, error)
}

// JobQueue adapts the jobs table to Queue.
type JobQueue struct {
	Jobs  *jobs.Repo
	Retry jobs.RetryPolicy
}

func (q *JobQueue) Enqueue(ctx context.Context, d Delivery, delay time.Duration) (string, error) {
	key := fmt.Sprintf("reminder:%d:%d", d.ReminderID, d.Revision)
	prio := 0
	if d.Backfill {
		prio = backfillPriority
		key += ":backfill"
	}

	id, err := q.Jobs.Enqueue(ctx, JobTypeDispatch, key, d,
		jobs.WithDelay(delay),
		jobs.WithPriority(prio),
		jobs.WithRetry(q.Retry),
	)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (q *JobQueue) Cancel(ctx context.Context, jobID string) (bool, error) {
	id, err := uuid.Parse(jobID)
	if err != nil {
		return false, fmt.Errorf("parse job id %q: %w", jobID, err)
	}
	return q.Jobs.Cancel(ctx, id)
}
