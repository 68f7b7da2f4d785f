package entity

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"teamdesk/internal/reminder"
)

// Store resolves reminder snapshots from the tasks and projects tables.
type Store struct {
	DB *gorm.DB
}

func (s *Store) GetEntity(ctx context.Context, t reminder.EntityType, id uint64) (reminder.Snapshot, error) {
	switch t {
	case reminder.EntityTask:
		return s.taskSnapshot(ctx, id)
	case reminder.EntityProject:
		return s.projectSnapshot(ctx, id)
	default:
		return reminder.Snapshot{}, reminder.ErrInvalidEntityType
	}
}

func (s *Store) taskSnapshot(ctx context.Context, id uint64) (reminder.Snapshot, error) {
	db := s.DB.WithContext(ctx)

	var task Task
	if err := db.Where("id = ?", id).Take(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reminder.Snapshot{}, reminder.ErrEntityNotFound
		}
		return reminder.Snapshot{}, err
	}
	if task.Completed {
		return reminder.Snapshot{}, reminder.ErrEntityNotFound
	}

	snap := reminder.Snapshot{
		Type:     reminder.EntityTask,
		ID:       task.ID,
		Title:    task.Title,
		DueDate:  task.DueDate,
		Priority: task.Priority,
	}

	if task.AssigneeEmail != "" {
		snap.Recipients = []string{task.AssigneeEmail}
		return snap, nil
	}

	// unassigned tasks remind their owner
	email, err := s.ownerEmail(db, task.OwnerID)
	if err != nil {
		return reminder.Snapshot{}, err
	}
	if email != "" {
		snap.Recipients = []string{email}
	}
	return snap, nil
}

func (s *Store) projectSnapshot(ctx context.Context, id uint64) (reminder.Snapshot, error) {
	db := s.DB.WithContext(ctx)

	var p Project
	if err := db.Where("id = ?", id).Take(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reminder.Snapshot{}, reminder.ErrEntityNotFound
		}
		return reminder.Snapshot{}, err
	}
	if p.Archived {
		return reminder.Snapshot{}, reminder.ErrEntityNotFound
	}

	snap := reminder.Snapshot{
		Type:    reminder.EntityProject,
		ID:      p.ID,
		Title:   p.Name,
		DueDate: p.DueDate,
	}

	var emails []string
	if err := db.Model(&ProjectMember{}).
		Where("project_id = ?", p.ID).
		Order("email asc").
		Pluck("email", &emails).Error; err != nil {
		return reminder.Snapshot{}, err
	}
	if len(emails) == 0 {
		email, err := s.ownerEmail(db, p.OwnerID)
		if err != nil {
			return reminder.Snapshot{}, err
		}
		if email != "" {
			emails = []string{email}
		}
	}
	snap.Recipients = emails
	return snap, nil
}

func (s *Store) ownerEmail(db *gorm.DB, ownerID uint64) (string, error) {
	var emails []string
	if err := db.Table("users").Where("id = ?", ownerID).Pluck("email", &emails).Error; err != nil {
		return "", err
	}
	if len(emails) == 0 {
		return "", nil
	}
	return emails[0], nil
}
