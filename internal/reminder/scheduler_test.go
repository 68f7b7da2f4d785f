package reminder_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamdesk/internal/reminder"
)

func newScheduler(t *testing.T) (*reminder.Scheduler, *fakeQueue, *clock) {
	t.Helper()
	repo, _, c := newRepo(t)
	q := &fakeQueue{}
	return &reminder.Scheduler{Repo: repo, Queue: q, Now: c.Now}, q, c
}

func records(t *testing.T, s *reminder.Scheduler, typ reminder.EntityType, id uint64) map[int]reminder.Record {
	t.Helper()
	list, err := s.Repo.ListForEntity(context.Background(), typ, id)
	require.NoError(t, err)
	out := make(map[int]reminder.Record, len(list))
	for _, r := range list {
		out[r.ThresholdMinutes] = r
	}
	return out
}

func TestScheduler_HighPriorityThresholds(t *testing.T) {
	ctx := context.Background()
	s, q, c := newScheduler(t)
	due := c.Now().Add(25 * time.Hour)

	require.NoError(t, s.OnEntityUpsert(ctx, reminder.EntityTask, 1, &due, reminder.PriorityHigh))

	recs := records(t, s, reminder.EntityTask, 1)
	require.Len(t, recs, 4)
	for _, th := range []int{1440, 720, 180, 60} {
		rec, ok := recs[th]
		require.True(t, ok, "threshold %d", th)
		assert.True(t, rec.FireAt.Equal(due.Add(-time.Duration(th)*time.Minute)), "threshold %d", th)
		assert.Nil(t, rec.SentAt)
		assert.NotEmpty(t, rec.JobID)
	}

	jobs := q.Enqueued()
	require.Len(t, jobs, 4)
	for _, j := range jobs {
		rec := recs[j.Delivery.ThresholdMinutes]
		assert.Equal(t, rec.ID, j.Delivery.ReminderID)
		assert.Equal(t, rec.JobID, j.JobID)
		assert.Equal(t, rec.Revision, j.Delivery.Revision)
		assert.Equal(t, rec.FireAt.Sub(c.Now()), j.Delay)
		assert.False(t, j.Delivery.Backfill)
	}
}

func TestScheduler_IdempotentReconcile(t *testing.T) {
	ctx := context.Background()
	s, q, c := newScheduler(t)
	due := c.Now().Add(30 * time.Hour)

	require.NoError(t, s.OnEntityUpsert(ctx, reminder.EntityTask, 2, &due, reminder.PriorityMedium))
	before := records(t, s, reminder.EntityTask, 2)
	enqueues := len(q.Enqueued())

	c.Advance(time.Minute)
	require.NoError(t, s.OnEntityUpsert(ctx, reminder.EntityTask, 2, &due, reminder.PriorityMedium))

	after := records(t, s, reminder.EntityTask, 2)
	assert.Len(t, q.Enqueued(), enqueues, "no new jobs")
	assert.Empty(t, q.Cancelled())
	for th, rec := range before {
		assert.True(t, rec.FireAt.Equal(after[th].FireAt))
		assert.Equal(t, rec.JobID, after[th].JobID)
		assert.Equal(t, rec.Revision, after[th].Revision)
	}
}

func TestScheduler_SkipsPastThresholds(t *testing.T) {
	ctx := context.Background()
	s, q, c := newScheduler(t)

	due := c.Now().Add(30 * time.Minute)
	require.NoError(t, s.OnEntityUpsert(ctx, reminder.EntityTask, 3, &due, reminder.PriorityLow))
	assert.Empty(t, records(t, s, reminder.EntityTask, 3))
	assert.Empty(t, q.Enqueued())

	due = c.Now().Add(90 * time.Minute)
	require.NoError(t, s.OnEntityUpsert(ctx, reminder.EntityTask, 4, &due, reminder.PriorityHigh))
	recs := records(t, s, reminder.EntityTask, 4)
	require.Len(t, recs, 1)
	assert.Contains(t, recs, 60)

	// a fire time exactly at now is in the past
	due = c.Now().Add(60 * time.Minute)
	require.NoError(t, s.OnEntityUpsert(ctx, reminder.EntityTask, 5, &due, reminder.PriorityHigh))
	assert.Empty(t, records(t, s, reminder.EntityTask, 5))
}

func TestScheduler_PriorityDowngrade(t *testing.T) {
	ctx := context.Background()
	s, q, c := newScheduler(t)
	due := c.Now().Add(48 * time.Hour)

	require.NoError(t, s.OnEntityUpsert(ctx, reminder.EntityTask, 6, &due, reminder.PriorityHigh))
	before := records(t, s, reminder.EntityTask, 6)
	require.Len(t, before, 4)

	require.NoError(t, s.OnEntityUpsert(ctx, reminder.EntityTask, 6, &due, reminder.PriorityLow))

	after := records(t, s, reminder.EntityTask, 6)
	require.Len(t, after, 2)
	for _, th := range []int{1440, 720} {
		assert.Equal(t, before[th].ID, after[th].ID)
		assert.Equal(t, before[th].JobID, after[th].JobID)
		assert.True(t, before[th].FireAt.Equal(after[th].FireAt))
	}
	assert.ElementsMatch(t, []string{before[180].JobID, before[60].JobID}, q.Cancelled())
	assert.Len(t, q.Enqueued(), 4, "downgrade enqueues nothing")
}

func TestScheduler_DueDateChange(t *testing.T) {
	ctx := context.Background()
	s, q, c := newScheduler(t)
	due := c.Now().Add(48 * time.Hour)

	require.NoError(t, s.OnEntityUpsert(ctx, reminder.EntityTask, 7, &due, reminder.PriorityLow))
	before := records(t, s, reminder.EntityTask, 7)

	// the 1440 reminder was already delivered
	won, err := s.Repo.Claim(ctx, before[1440].ID)
	require.NoError(t, err)
	require.True(t, won)

	later := due.Add(6 * time.Hour)
	require.NoError(t, s.OnEntityUpsert(ctx, reminder.EntityTask, 7, &later, reminder.PriorityLow))

	after := records(t, s, reminder.EntityTask, 7)
	require.Len(t, after, 2)
	for _, th := range []int{1440, 720} {
		rec := after[th]
		assert.True(t, rec.FireAt.Equal(later.Add(-time.Duration(th)*time.Minute)))
		assert.Nil(t, rec.SentAt, "rescheduled reminders are unsent again")
		assert.Equal(t, before[th].Revision+1, rec.Revision)
		assert.NotEqual(t, before[th].JobID, rec.JobID)
	}
	assert.ElementsMatch(t, []string{before[1440].JobID, before[720].JobID}, q.Cancelled())
	assert.Len(t, q.Enqueued(), 4)
}

func TestScheduler_RescheduleIntoPastDropsRecord(t *testing.T) {
	ctx := context.Background()
	s, q, c := newScheduler(t)
	due := c.Now().Add(48 * time.Hour)

	require.NoError(t, s.OnEntityUpsert(ctx, reminder.EntityTask, 8, &due, reminder.PriorityLow))
	before := records(t, s, reminder.EntityTask, 8)

	sooner := c.Now().Add(13 * time.Hour)
	require.NoError(t, s.OnEntityUpsert(ctx, reminder.EntityTask, 8, &sooner, reminder.PriorityLow))

	after := records(t, s, reminder.EntityTask, 8)
	require.Len(t, after, 1)
	assert.Contains(t, after, 720)
	assert.Contains(t, q.Cancelled(), before[1440].JobID)
}

func TestScheduler_ClearAndRemove(t *testing.T) {
	ctx := context.Background()
	s, q, c := newScheduler(t)
	due := c.Now().Add(48 * time.Hour)

	require.NoError(t, s.OnEntityUpsert(ctx, reminder.EntityProject, 9, &due, ""))
	require.Len(t, records(t, s, reminder.EntityProject, 9), 4)

	require.NoError(t, s.OnEntityUpsert(ctx, reminder.EntityProject, 9, nil, ""))
	assert.Empty(t, records(t, s, reminder.EntityProject, 9))
	assert.Len(t, q.Cancelled(), 4)

	require.NoError(t, s.OnEntityUpsert(ctx, reminder.EntityProject, 9, &due, ""))
	require.NoError(t, s.OnEntityRemoved(ctx, reminder.EntityProject, 9))
	assert.Empty(t, records(t, s, reminder.EntityProject, 9))
	assert.Len(t, q.Cancelled(), 8)
}

func TestScheduler_EnqueueFailureIsRepaired(t *testing.T) {
	ctx := context.Background()
	s, q, c := newScheduler(t)
	due := c.Now().Add(48 * time.Hour)

	q.enqueueErr = errQueueDown
	err := s.OnEntityUpsert(ctx, reminder.EntityTask, 10, &due, reminder.PriorityLow)
	require.ErrorIs(t, err, errQueueDown)

	recs := records(t, s, reminder.EntityTask, 10)
	require.NotEmpty(t, recs)
	for _, rec := range recs {
		assert.Empty(t, rec.JobID)
	}

	q.enqueueErr = nil
	require.NoError(t, s.OnEntityUpsert(ctx, reminder.EntityTask, 10, &due, reminder.PriorityLow))

	recs = records(t, s, reminder.EntityTask, 10)
	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.NotEmpty(t, rec.JobID)
	}
}

func TestScheduler_DowngradeDropsRecordsWhenEnqueueFails(t *testing.T) {
	ctx := context.Background()
	s, q, c := newScheduler(t)
	due := c.Now().Add(25 * time.Hour)

	require.NoError(t, s.OnEntityUpsert(ctx, reminder.EntityTask, 12, &due, reminder.PriorityHigh))
	before := records(t, s, reminder.EntityTask, 12)
	require.Len(t, before, 4)

	q.enqueueErr = errQueueDown
	later := due.Add(time.Hour)
	err := s.OnEntityUpsert(ctx, reminder.EntityTask, 12, &later, reminder.PriorityLow)
	require.ErrorIs(t, err, errQueueDown)

	after := records(t, s, reminder.EntityTask, 12)
	assert.Len(t, after, 2)
	assert.NotContains(t, after, 180)
	assert.NotContains(t, after, 60)
	assert.Contains(t, q.Cancelled(), before[180].JobID)
	assert.Contains(t, q.Cancelled(), before[60].JobID)

	// nothing is left for the backfill sweep at the old 60 minute fire time
	c.Set(before[60].FireAt)
	due60, err := s.Repo.FindDue(ctx, c.Now().Add(-35*time.Minute), c.Now().Add(5*time.Minute))
	require.NoError(t, err)
	for _, rec := range due60 {
		assert.NotEqual(t, 60, rec.ThresholdMinutes)
		assert.NotEqual(t, 180, rec.ThresholdMinutes)
	}
}

func TestScheduler_CancelFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	s, q, c := newScheduler(t)
	due := c.Now().Add(48 * time.Hour)

	require.NoError(t, s.OnEntityUpsert(ctx, reminder.EntityTask, 11, &due, reminder.PriorityHigh))

	q.cancelErr = errQueueDown
	require.NoError(t, s.OnEntityUpsert(ctx, reminder.EntityTask, 11, &due, reminder.PriorityLow))
	assert.Len(t, records(t, s, reminder.EntityTask, 11), 2)

	require.NoError(t, s.OnEntityRemoved(ctx, reminder.EntityTask, 11))
	assert.Empty(t, records(t, s, reminder.EntityTask, 11))
}

func TestScheduler_InvalidEntityType(t *testing.T) {
	s, _, c := newScheduler(t)
	due := c.Now().Add(time.Hour)

	err := s.OnEntityUpsert(context.Background(), "invoice", 1, &due, "")
	assert.ErrorIs(t, err, reminder.ErrInvalidEntityType)

	err = s.OnEntityRemoved(context.Background(), "invoice", 1)
	assert.ErrorIs(t, err, reminder.ErrInvalidEntityType)
}
