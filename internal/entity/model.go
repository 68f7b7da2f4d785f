package entity

import (
	"time"

	"teamdesk/internal/reminder"
)

type Task struct {
	ID        uint64  `gorm:"primaryKey"`
	OwnerID   uint64  `gorm:"index;not null"`
	ProjectID *uint64 `gorm:"index"`

	Title         string            `gorm:"type:text;not null"`
	AssigneeEmail string            `gorm:"type:text;not null;default:''"`
	Priority      reminder.Priority `gorm:"type:text;not null;default:'low'"`
	DueDate       *time.Time
	Completed     bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type Project struct {
	ID      uint64 `gorm:"primaryKey"`
	OwnerID uint64 `gorm:"index;not null"`

	Name     string `gorm:"type:text;not null"`
	DueDate  *time.Time
	Archived bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ProjectMember receives the project's deadline reminders.
type ProjectMember struct {
	ProjectID uint64    `gorm:"primaryKey"`
	Email     string    `gorm:"primaryKey;type:text"`
	CreatedAt time.Time `gorm:"not null"`
}
