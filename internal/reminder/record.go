package reminder

import (
	"errors"
	"time"
)

var (
	ErrEntityNotFound    = errors.New("entity not found")
	ErrInvalidEntityType = errors.New("invalid entity type")
)

type EntityType string

const (
	EntityTask    EntityType = "task"
	EntityProject EntityType = "project"
)

func (t EntityType) Valid() bool {
	return t == EntityTask || t == EntityProject
}

// Record is the durable source of truth for one reminder of one entity.
// (EntityType, EntityID, ThresholdMinutes) is unique.
type Record struct {
	ID uint64 `gorm:"primaryKey"`

	EntityType       EntityType `gorm:"type:text;not null;uniqueIndex:uq_reminders_entity_threshold,priority:1"`
	EntityID         uint64     `gorm:"not null;uniqueIndex:uq_reminders_entity_threshold,priority:2"`
	ThresholdMinutes int        `gorm:"not null;uniqueIndex:uq_reminders_entity_threshold,priority:3"`

	FireAt time.Time `gorm:"index;not null"`
	JobID  string    `gorm:"type:text;not null;default:''"`

	// Revision changes whenever FireAt does; jobs carry it so a job scheduled
	// for an older fire time loses the claim.
	Revision uint64 `gorm:"not null;default:1"`

	SentAt *time.Time `gorm:"index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Record) TableName() string { return "reminders" }

func (r *Record) Sent() bool { return r.SentAt != nil }

// Missed reports whether the reminder should have fired by now but was never delivered.
func (r *Record) Missed(now time.Time) bool {
	return r.SentAt == nil && !r.FireAt.After(now)
}
