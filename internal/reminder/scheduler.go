package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// Entity is the scheduling view of a task or project.
type Entity struct {
	Type     EntityType
	ID       uint64
	DueDate  *time.Time
	Priority Priority
}

// Scheduler keeps the reminder records of an entity in line with its due
// date and priority. It runs inline with entity mutations.
type Scheduler struct {
	Repo   *Repo
	Queue  Queue
	Logger *slog.Logger

	Now func() time.Time
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// OnEntityUpsert must be called whenever an entity's due date, priority or
// existence changes.
func (s *Scheduler) OnEntityUpsert(ctx context.Context, t EntityType, id uint64, dueDate *time.Time, p Priority) error {
	return s.Reconcile(ctx, Entity{Type: t, ID: id, DueDate: dueDate, Priority: p})
}

// OnEntityRemoved must be called when an entity is deleted or completed.
func (s *Scheduler) OnEntityRemoved(ctx context.Context, t EntityType, id uint64) error {
	return s.DeleteAll(ctx, t, id)
}

// Reconcile computes the thresholds in force for e and applies the difference
// to the stored records. Calling it twice with the same input is a no-op.
func (s *Scheduler) Reconcile(ctx context.Context, e Entity) error {
	if !e.Type.Valid() {
		return ErrInvalidEntityType
	}
	if e.DueDate == nil {
		return s.DeleteAll(ctx, e.Type, e.ID)
	}

	now := s.now()
	target := Thresholds(e.Type, e.Priority)

	existing, err := s.Repo.ListForEntity(ctx, e.Type, e.ID)
	if err != nil {
		return fmt.Errorf("list reminders: %w", err)
	}

	current := make(map[int]*Record, len(existing))
	var drop []int
	for i := range existing {
		rec := &existing[i]
		if slices.Contains(target, rec.ThresholdMinutes) {
			current[rec.ThresholdMinutes] = rec
			continue
		}
		s.cancelJob(ctx, rec)
		drop = append(drop, rec.ThresholdMinutes)
	}
	if err := s.drop(ctx, e, drop...); err != nil {
		return err
	}

	for _, th := range target {
		fireAt := normalizeTime(e.DueDate.Add(-time.Duration(th) * time.Minute))
		rec := current[th]

		if !fireAt.After(now) {
			// Never schedule into the past. A record still pointing at an
			// older fire time is obsolete; one matching it is left for the
			// backfill sweep or the audit trail.
			if rec != nil && !rec.FireAt.Equal(fireAt) {
				s.cancelJob(ctx, rec)
				if err := s.drop(ctx, e, th); err != nil {
					return err
				}
			}
			continue
		}

		if err := s.upsertReminder(ctx, e, th, fireAt, rec, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) drop(ctx context.Context, e Entity, thresholds ...int) error {
	if len(thresholds) == 0 {
		return nil
	}
	if _, err := s.Repo.Delete(ctx, e.Type, e.ID, thresholds...); err != nil {
		return fmt.Errorf("delete reminders: %w", err)
	}
	return nil
}

func (s *Scheduler) upsertReminder(ctx context.Context, e Entity, threshold int, fireAt time.Time, existing *Record, now time.Time) error {
	if existing != nil && existing.FireAt.Equal(fireAt) {
		if existing.JobID != "" || existing.Sent() {
			return nil
		}
		// an earlier enqueue failed; give the record a job now
		return s.schedule(ctx, existing, fireAt.Sub(now))
	}

	if existing != nil {
		s.cancelJob(ctx, existing)
	}

	rec, err := s.Repo.Upsert(ctx, UpsertParams{
		EntityType: e.Type,
		EntityID:   e.ID,
		Threshold:  threshold,
		FireAt:     fireAt,
	})
	if err != nil {
		return fmt.Errorf("upsert reminder: %w", err)
	}
	return s.schedule(ctx, rec, fireAt.Sub(now))
}

func (s *Scheduler) schedule(ctx context.Context, rec *Record, delay time.Duration) error {
	jobID, err := s.Queue.Enqueue(ctx, deliveryFor(rec), delay)
	if err != nil {
		return fmt.Errorf("enqueue reminder %d: %w", rec.ID, err)
	}
	if err := s.Repo.SetJobID(ctx, rec.ID, rec.Revision, jobID); err != nil {
		return fmt.Errorf("attach job to reminder %d: %w", rec.ID, err)
	}
	rec.JobID = jobID

	s.logger().Debug("reminder scheduled",
		slog.Uint64("reminder_id", rec.ID),
		slog.String("entity_type", string(rec.EntityType)),
		slog.Uint64("entity_id", rec.EntityID),
		slog.Int("threshold_minutes", rec.ThresholdMinutes),
		slog.Time("fire_at", rec.FireAt),
		slog.String("job_id", jobID))
	return nil
}

// DeleteAll cancels every job of the entity and deletes its records.
func (s *Scheduler) DeleteAll(ctx context.Context, t EntityType, id uint64) error {
	if !t.Valid() {
		return ErrInvalidEntityType
	}

	existing, err := s.Repo.ListForEntity(ctx, t, id)
	if err != nil {
		return fmt.Errorf("list reminders: %w", err)
	}
	for i := range existing {
		s.cancelJob(ctx, &existing[i])
	}

	if _, err := s.Repo.Delete(ctx, t, id); err != nil {
		return fmt.Errorf("delete reminders: %w", err)
	}
	return nil
}

// cancelJob is best-effort: a job that escapes cancellation loses the claim later.
func (s *Scheduler) cancelJob(ctx context.Context, rec *Record) {
	if rec.JobID == "" {
		return
	}
	if _, err := s.Queue.Cancel(ctx, rec.JobID); err != nil {
		s.logger().Warn("cancel reminder job",
			slog.Uint64("reminder_id", rec.ID),
			slog.String("job_id", rec.JobID),
			slog.String("error", err.Error()))
	}
}
