package jobs

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusDone      Status = "DONE"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Job is a delayed unit of work. Rows are ephemeral: handlers must tolerate
// a job being delivered twice or never.
type Job struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Type    string `gorm:"type:text;not null"` // REMINDER_DISPATCH
	Key     string `gorm:"type:text;index;not null;default:''"`
	Payload []byte `gorm:"not null"`

	Priority int       `gorm:"not null;default:0"`
	RunAt    time.Time `gorm:"index;not null"`
	Status   Status    `gorm:"type:text;index;not null;default:'PENDING'"`

	Attempts      int   `gorm:"not null;default:0"`
	MaxAttempts   int   `gorm:"not null;default:3"`
	BackoffBaseMS int64 `gorm:"not null;default:2000"`

	LockedBy *string `gorm:"type:text"`
	LockedAt *time.Time

	LastError *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (j *Job) BackoffBase() time.Duration {
	return time.Duration(j.BackoffBaseMS) * time.Millisecond
}
