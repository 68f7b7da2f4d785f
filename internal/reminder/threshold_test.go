package reminder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"teamdesk/internal/reminder"
)

func TestThresholds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		typ  reminder.EntityType
		p    reminder.Priority
		want []int
	}{
		{"task high", reminder.EntityTask, reminder.PriorityHigh, []int{1440, 720, 180, 60}},
		{"task medium", reminder.EntityTask, reminder.PriorityMedium, []int{1440, 720, 180}},
		{"task low", reminder.EntityTask, reminder.PriorityLow, []int{1440, 720}},
		{"task without priority", reminder.EntityTask, "", []int{1440, 720}},
		{"project ignores priority", reminder.EntityProject, reminder.PriorityLow, []int{1440, 720, 180, 60}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reminder.Thresholds(tt.typ, tt.p))
		})
	}
}

func TestThresholds_ReturnsCopy(t *testing.T) {
	t.Parallel()

	got := reminder.Thresholds(reminder.EntityTask, reminder.PriorityHigh)
	got[0] = 1
	assert.Equal(t, 1440, reminder.Thresholds(reminder.EntityTask, reminder.PriorityHigh)[0])
}

func TestParsePriority(t *testing.T) {
	t.Parallel()

	assert.Equal(t, reminder.PriorityHigh, reminder.ParsePriority(" HIGH "))
	assert.Equal(t, reminder.PriorityHigh, reminder.ParsePriority("urgent"))
	assert.Equal(t, reminder.PriorityMedium, reminder.ParsePriority("Medium"))
	assert.Equal(t, reminder.PriorityMedium, reminder.ParsePriority("normal"))
	assert.Equal(t, reminder.PriorityLow, reminder.ParsePriority("low"))
	assert.Equal(t, reminder.PriorityLow, reminder.ParsePriority(""))
	assert.Equal(t, reminder.PriorityLow, reminder.ParsePriority("whenever"))
}
