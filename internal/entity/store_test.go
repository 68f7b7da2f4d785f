package entity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamdesk/internal/entity"
	"teamdesk/internal/reminder"
)

func TestStore_GetEntity(t *testing.T) {
	ctx := context.Background()
	svc, _, gdb := newService(t)
	store := &entity.Store{DB: gdb}
	owner := createUser(t, gdb, "owner@example.com")

	t.Run("assigned task", func(t *testing.T) {
		due := dueIn(time.Hour)
		task, err := svc.CreateTask(ctx, owner, entity.CreateTaskInput{
			Title:         "Assigned",
			AssigneeEmail: "ann@example.com",
			Priority:      reminder.PriorityMedium,
			DueDate:       due,
		})
		require.NoError(t, err)

		snap, err := store.GetEntity(ctx, reminder.EntityTask, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "Assigned", snap.Title)
		assert.Equal(t, reminder.PriorityMedium, snap.Priority)
		assert.Equal(t, []string{"ann@example.com"}, snap.Recipients)
		require.NotNil(t, snap.DueDate)
		assert.True(t, snap.DueDate.Equal(*due))
	})

	t.Run("unassigned task reminds owner", func(t *testing.T) {
		task, err := svc.CreateTask(ctx, owner, entity.CreateTaskInput{Title: "Mine"})
		require.NoError(t, err)

		snap, err := store.GetEntity(ctx, reminder.EntityTask, task.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"owner@example.com"}, snap.Recipients)
	})

	t.Run("completed task is gone", func(t *testing.T) {
		task, err := svc.CreateTask(ctx, owner, entity.CreateTaskInput{Title: "Done"})
		require.NoError(t, err)
		require.NoError(t, svc.CompleteTask(ctx, owner, task.ID))

		_, err = store.GetEntity(ctx, reminder.EntityTask, task.ID)
		assert.ErrorIs(t, err, reminder.ErrEntityNotFound)
	})

	t.Run("project members", func(t *testing.T) {
		p, err := svc.CreateProject(ctx, owner, entity.CreateProjectInput{
			Name:    "Launch",
			Members: []string{"zed@example.com", "amy@example.com"},
		})
		require.NoError(t, err)

		snap, err := store.GetEntity(ctx, reminder.EntityProject, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Launch", snap.Title)
		assert.Equal(t, []string{"amy@example.com", "zed@example.com"}, snap.Recipients)
	})

	t.Run("project without members reminds owner", func(t *testing.T) {
		p, err := svc.CreateProject(ctx, owner, entity.CreateProjectInput{Name: "Solo"})
		require.NoError(t, err)

		snap, err := store.GetEntity(ctx, reminder.EntityProject, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"owner@example.com"}, snap.Recipients)
	})

	t.Run("archived project is gone", func(t *testing.T) {
		p, err := svc.CreateProject(ctx, owner, entity.CreateProjectInput{Name: "Old"})
		require.NoError(t, err)
		archived := true
		_, err = svc.UpdateProject(ctx, owner, p.ID, entity.UpdateProjectInput{Archived: &archived})
		require.NoError(t, err)

		_, err = store.GetEntity(ctx, reminder.EntityProject, p.ID)
		assert.ErrorIs(t, err, reminder.ErrEntityNotFound)
	})

	t.Run("missing and invalid", func(t *testing.T) {
		_, err := store.GetEntity(ctx, reminder.EntityTask, 9999)
		assert.ErrorIs(t, err, reminder.ErrEntityNotFound)

		_, err = store.GetEntity(ctx, "invoice", 1)
		assert.ErrorIs(t, err, reminder.ErrInvalidEntityType)
	})
}
