package reminder

import (
	"slices"
	"strings"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority maps free-form input to a Priority; anything unknown is low.
func ParsePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityHigh, "urgent":
		return PriorityHigh
	case PriorityMedium, "normal":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

var (
	allThresholds    = []int{1440, 720, 180, 60}
	mediumThresholds = []int{1440, 720, 180}
	lowThresholds    = []int{1440, 720}
)

// Thresholds returns the minutes-before-due at which reminders fire,
// largest first. Projects carry no priority and always get every threshold.
func Thresholds(t EntityType, p Priority) []int {
	if t == EntityProject {
		return slices.Clone(allThresholds)
	}
	switch p {
	case PriorityHigh:
		return slices.Clone(allThresholds)
	case PriorityMedium:
		return slices.Clone(mediumThresholds)
	default:
		return slices.Clone(lowThresholds)
	}
}
