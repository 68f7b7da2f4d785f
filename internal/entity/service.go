package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"teamdesk/internal/reminder"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	// ErrScheduling wraps hook failures. The entity change itself was
	// committed when it is returned.
	ErrScheduling = errors.New("reminder scheduling failed")
)

// Hooks is notified of every change that can affect reminders.
type Hooks interface {
	OnEntityUpsert(ctx context.Context, t reminder.EntityType, id uint64, dueDate *time.Time, p reminder.Priority) error
	OnEntityRemoved(ctx context.Context, t reminder.EntityType, id uint64) error
}

type Service struct {
	DB    *gorm.DB
	Hooks Hooks
}

type CreateTaskInput struct {
	Title         string
	AssigneeEmail string
	ProjectID     *uint64
	Priority      reminder.Priority
	DueDate       *time.Time
}

type UpdateTaskInput struct {
	Title         *string
	AssigneeEmail *string
	Priority      *reminder.Priority
	DueDate       *time.Time
	ClearDueDate  bool
}

func normalizeEmail(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

func (s *Service) CreateTask(ctx context.Context, ownerID uint64, in CreateTaskInput) (*Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, ErrInvalidInput
	}
	if in.Priority == "" {
		in.Priority = reminder.PriorityLow
	}

	t := Task{
		OwnerID:       ownerID,
		ProjectID:     in.ProjectID,
		Title:         in.Title,
		AssigneeEmail: normalizeEmail(in.AssigneeEmail),
		Priority:      in.Priority,
		DueDate:       in.DueDate,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.ProjectID != nil {
			if err := ownedProject(tx, ownerID, *in.ProjectID, &Project{}); err != nil {
				return err
			}
		}
		return tx.Create(&t).Error
	})
	if err != nil {
		return nil, err
	}

	return &t, s.upserted(ctx, reminder.EntityTask, t.ID, t.DueDate, t.Priority)
}

func (s *Service) GetTask(ctx context.Context, ownerID, id uint64) (*Task, error) {
	var t Task
	if err := ownedTask(s.DB.WithContext(ctx), ownerID, id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Service) UpdateTask(ctx context.Context, ownerID, id uint64, in UpdateTaskInput) (*Task, error) {
	var (
		t       Task
		touched bool
	)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ownedTask(forUpdate(tx), ownerID, id, &t); err != nil {
			return err
		}

		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if title == "" {
				return ErrInvalidInput
			}
			t.Title = title
		}
		if in.AssigneeEmail != nil {
			t.AssigneeEmail = normalizeEmail(*in.AssigneeEmail)
		}
		if in.Priority != nil {
			t.Priority = *in.Priority
			touched = true
		}
		switch {
		case in.ClearDueDate:
			t.DueDate = nil
			touched = true
		case in.DueDate != nil:
			t.DueDate = in.DueDate
			touched = true
		}

		return tx.Save(&t).Error
	})
	if err != nil {
		return nil, err
	}

	// Reconcile is idempotent, so a repeated update also repairs reminders
	// left behind by an earlier scheduling failure.
	if touched && !t.Completed {
		return &t, s.upserted(ctx, reminder.EntityTask, t.ID, t.DueDate, t.Priority)
	}
	return &t, nil
}

// CompleteTask marks the task done and drops its reminders.
func (s *Service) CompleteTask(ctx context.Context, ownerID, id uint64) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t Task
		if err := ownedTask(tx, ownerID, id, &t); err != nil {
			return err
		}
		return tx.Model(&Task{}).Where("id = ?", id).
			Updates(map[string]any{"completed": true, "updated_at": time.Now()}).Error
	})
	if err != nil {
		return err
	}
	return s.removed(ctx, reminder.EntityTask, id)
}

func (s *Service) DeleteTask(ctx context.Context, ownerID, id uint64) error {
	res := s.DB.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return s.removed(ctx, reminder.EntityTask, id)
}

type CreateProjectInput struct {
	Name    string
	DueDate *time.Time
	Members []string
}

type UpdateProjectInput struct {
	Name         *string
	DueDate      *time.Time
	ClearDueDate bool
	Archived     *bool
}

func (s *Service) CreateProject(ctx context.Context, ownerID uint64, in CreateProjectInput) (*Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrInvalidInput
	}

	p := Project{OwnerID: ownerID, Name: in.Name, DueDate: in.DueDate}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		for _, m := range in.Members {
			if err := addMember(tx, p.ID, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &p, s.upserted(ctx, reminder.EntityProject, p.ID, p.DueDate, "")
}

func (s *Service) GetProject(ctx context.Context, ownerID, id uint64) (*Project, error) {
	var p Project
	if err := ownedProject(s.DB.WithContext(ctx), ownerID, id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) UpdateProject(ctx context.Context, ownerID, id uint64, in UpdateProjectInput) (*Project, error) {
	var (
		p       Project
		touched bool
	)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ownedProject(forUpdate(tx), ownerID, id, &p); err != nil {
			return err
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return ErrInvalidInput
			}
			p.Name = name
		}
		switch {
		case in.ClearDueDate:
			p.DueDate = nil
			touched = true
		case in.DueDate != nil:
			p.DueDate = in.DueDate
			touched = true
		}
		if in.Archived != nil {
			p.Archived = *in.Archived
			touched = true
		}

		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, err
	}

	if !touched {
		return &p, nil
	}
	if p.Archived {
		return &p, s.removed(ctx, reminder.EntityProject, p.ID)
	}
	return &p, s.upserted(ctx, reminder.EntityProject, p.ID, p.DueDate, "")
}

func (s *Service) AddMember(ctx context.Context, ownerID, projectID uint64, email string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ownedProject(tx, ownerID, projectID, &Project{}); err != nil {
			return err
		}
		return addMember(tx, projectID, email)
	})
}

func (s *Service) DeleteProject(ctx context.Context, ownerID, id uint64) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ownedProject(tx, ownerID, id, &Project{}); err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&ProjectMember{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&Project{}).Error
	})
	if err != nil {
		return err
	}
	return s.removed(ctx, reminder.EntityProject, id)
}

func (s *Service) upserted(ctx context.Context, t reminder.EntityType, id uint64, due *time.Time, p reminder.Priority) error {
	if s.Hooks == nil {
		return nil
	}
	if err := s.Hooks.OnEntityUpsert(ctx, t, id, due, p); err != nil {
		return fmt.Errorf("%w: %s %d: %w", ErrScheduling, t, id, err)
	}
	return nil
}

func (s *Service) removed(ctx context.Context, t reminder.EntityType, id uint64) error {
	if s.Hooks == nil {
		return nil
	}
	if err := s.Hooks.OnEntityRemoved(ctx, t, id); err != nil {
		return fmt.Errorf("%w: %s %d: %w", ErrScheduling, t, id, err)
	}
	return nil
}

func addMember(tx *gorm.DB, projectID uint64, email string) error {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return ErrInvalidInput
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&ProjectMember{ProjectID: projectID, Email: email, CreatedAt: time.Now()}).Error
}

func ownedTask(db *gorm.DB, ownerID, id uint64, out *Task) error {
	if err := db.Where("id = ? AND owner_id = ?", id, ownerID).Take(out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func ownedProject(db *gorm.DB, ownerID, id uint64, out *Project) error {
	if err := db.Where("id = ? AND owner_id = ?", id, ownerID).Take(out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// forUpdate row-locks the selected entity where the dialect supports it.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
