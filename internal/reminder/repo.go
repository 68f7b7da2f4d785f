package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	DB *gorm.DB

	// Now is overridable in tests.
	Now func() time.Time
}

type UpsertParams struct {
	EntityType EntityType
	EntityID   uint64
	Threshold  int
	FireAt     time.Time
	JobID      string
}

// normalizeTime keeps stored timestamps comparable across dialects.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func (r *Repo) now() time.Time {
	if r.Now != nil {
		return normalizeTime(r.Now())
	}
	return normalizeTime(time.Now())
}

func entityScope(t EntityType, id uint64) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("entity_type = ? AND entity_id = ?", t, id)
	}
}

// Upsert creates the record for (entity, threshold) or updates its scheduling
// fields. A changed FireAt makes the reminder unsent again and bumps Revision;
// an unchanged FireAt leaves SentAt alone and only replaces a non-empty JobID.
func (r *Repo) Upsert(ctx context.Context, p UpsertParams) (*Record, error) {
	if !p.EntityType.Valid() {
		return nil, ErrInvalidEntityType
	}

	var (
		out *Record
		err error
	)
	// a concurrent first insert may win the unique index; the retry sees its row
	for attempt := 0; attempt < 2; attempt++ {
		out, err = r.upsert(ctx, p)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	return out, err
}

func (r *Repo) upsert(ctx context.Context, p UpsertParams) (*Record, error) {
	now := r.now()
	fireAt := normalizeTime(p.FireAt)

	var out Record
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Scopes(entityScope(p.EntityType, p.EntityID)).
			Where("threshold_minutes = ?", p.Threshold).
			Take(&out).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			out = Record{
				EntityType:       p.EntityType,
				EntityID:         p.EntityID,
				ThresholdMinutes: p.Threshold,
				FireAt:           fireAt,
				JobID:            p.JobID,
				Revision:         1,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			return tx.Create(&out).Error
		}
		if err != nil {
			return err
		}

		if out.FireAt.Equal(fireAt) {
			if p.JobID == "" || p.JobID == out.JobID {
				return nil
			}
			out.JobID = p.JobID
			out.UpdatedAt = now
			return tx.Model(&Record{}).Where("id = ?", out.ID).
				Updates(map[string]any{"job_id": p.JobID, "updated_at": now}).Error
		}

		out.FireAt = fireAt
		out.JobID = p.JobID
		out.SentAt = nil
		out.Revision++
		out.UpdatedAt = now
		return tx.Model(&Record{}).Where("id = ?", out.ID).
			Updates(map[string]any{
				"fire_at":    fireAt,
				"job_id":     p.JobID,
				"sent_at":    nil,
				"revision":   out.Revision,
				"updated_at": now,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetJobID attaches a queue job to a record, provided the record was not
// rescheduled in the meantime.
func (r *Repo) SetJobID(ctx context.Context, id, revision uint64, jobID string) error {
	return r.DB.WithContext(ctx).Model(&Record{}).
		Where("id = ? AND revision = ?", id, revision).
		Updates(map[string]any{"job_id": jobID, "updated_at": r.now()}).Error
}

// Claim atomically marks the reminder sent. Only one caller ever gets true.
func (r *Repo) Claim(ctx context.Context, id uint64) (bool, error) {
	return r.claim(ctx, "id = ? AND sent_at IS NULL", id)
}

// ClaimRevision is Claim restricted to the given revision, so jobs scheduled
// for a superseded fire time never deliver.
func (r *Repo) ClaimRevision(ctx context.Context, id, revision uint64) (bool, error) {
	return r.claim(ctx, "id = ? AND revision = ? AND sent_at IS NULL", id, revision)
}

func (r *Repo) claim(ctx context.Context, cond string, args ...any) (bool, error) {
	now := r.now()
	res := r.DB.WithContext(ctx).Model(&Record{}).
		Where(cond, args...).
		Updates(map[string]any{"sent_at": now, "updated_at": now})
	if res.Error != nil {
		return false, fmt.Errorf("claim reminder: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *Repo) Get(ctx context.Context, id uint64) (*Record, error) {
	var rec Record
	if err := r.DB.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *Repo) Find(ctx context.Context, t EntityType, entityID uint64, threshold int) (*Record, error) {
	var rec Record
	err := r.DB.WithContext(ctx).
		Scopes(entityScope(t, entityID)).
		Where("threshold_minutes = ?", threshold).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// ListForEntity returns the entity's records, largest threshold first.
func (r *Repo) ListForEntity(ctx context.Context, t EntityType, entityID uint64) ([]Record, error) {
	var out []Record
	err := r.DB.WithContext(ctx).
		Scopes(entityScope(t, entityID)).
		Order("threshold_minutes desc").
		Find(&out).Error
	return out, err
}

// Delete removes the given thresholds of an entity, or all of its records
// when none are given.
func (r *Repo) Delete(ctx context.Context, t EntityType, entityID uint64, thresholds ...int) (int64, error) {
	q := r.DB.WithContext(ctx).Scopes(entityScope(t, entityID))
	if len(thresholds) > 0 {
		q = q.Where("threshold_minutes IN ?", thresholds)
	}
	res := q.Delete(&Record{})
	return res.RowsAffected, res.Error
}

// FindDue returns unsent records whose fire time lies in [start, end].
func (r *Repo) FindDue(ctx context.Context, start, end time.Time) ([]Record, error) {
	var out []Record
	err := r.DB.WithContext(ctx).
		Where("sent_at IS NULL AND fire_at >= ? AND fire_at <= ?", start.UTC(), end.UTC()).
		Order("fire_at asc").
		Find(&out).Error
	return out, err
}

// Stale records are delivered ones older than cutoff, and undelivered ones
// whose fire time is older than cutoff.
const staleCond = "(sent_at IS NOT NULL AND sent_at < ?) OR (sent_at IS NULL AND fire_at < ?)"

func (r *Repo) FindStale(ctx context.Context, cutoff time.Time) ([]Record, error) {
	var out []Record
	cutoff = cutoff.UTC()
	err := r.DB.WithContext(ctx).
		Where(staleCond, cutoff, cutoff).
		Order("id asc").
		Find(&out).Error
	return out, err
}

func (r *Repo) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoff = cutoff.UTC()
	res := r.DB.WithContext(ctx).Where(staleCond, cutoff, cutoff).Delete(&Record{})
	return res.RowsAffected, res.Error
}
