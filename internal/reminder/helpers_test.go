package reminder_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"teamdesk/internal/db/dbtest"
	"teamdesk/internal/reminder"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *clock) Advance(d time.Duration) { c.Set(c.Now().Add(d)) }

type enqueued struct {
	JobID    string
	Delivery reminder.Delivery
	Delay    time.Duration
}

// fakeQueue records calls instead of storing jobs.
type fakeQueue struct {
	mu         sync.Mutex
	enqueued   []enqueued
	cancelled  []string
	enqueueErr error
	cancelErr  error
	seq        int
}

func (q *fakeQueue) Enqueue(_ context.Context, d reminder.Delivery, delay time.Duration) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqueueErr != nil {
		return "", q.enqueueErr
	}
	q.seq++
	id := fmt.Sprintf("job-%d", q.seq)
	q.enqueued = append(q.enqueued, enqueued{JobID: id, Delivery: d, Delay: delay})
	return id, nil
}

func (q *fakeQueue) Cancel(_ context.Context, jobID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cancelled = append(q.cancelled, jobID)
	return q.cancelErr == nil, q.cancelErr
}

func (q *fakeQueue) Enqueued() []enqueued {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]enqueued(nil), q.enqueued...)
}

func (q *fakeQueue) Cancelled() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.cancelled...)
}

var errQueueDown = errors.New("queue unavailable")

func newRepo(t *testing.T) (*reminder.Repo, *gorm.DB, *clock) {
	t.Helper()
	c := newClock()
	gdb := dbtest.Open(t)
	return &reminder.Repo{DB: gdb, Now: c.Now}, gdb, c
}

func ptr[T any](v T) *T { return &v }

func mustParseJobID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("parse job id %q: %v", s, err)
	}
	return id
}
