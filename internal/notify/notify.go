// Package notify holds the reminder.Notifier implementations.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"teamdesk/internal/reminder"
)

var (
	ErrInvalidConfig = errors.New("notify: invalid config")
	ErrSendFailed    = errors.New("notify: send failed")
)

// Subject renders the one-line summary used by every notifier.
func Subject(n reminder.Notification) string {
	return fmt.Sprintf("%s %q is due in %s", kind(n.EntityType), n.Title, Lead(n.ThresholdMinutes))
}

// Body renders the plain-text message body.
func Body(n reminder.Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi,\n\nThis is a reminder that the %s %q is due in %s.\n",
		strings.ToLower(kind(n.EntityType)), n.Title, Lead(n.ThresholdMinutes))
	if n.DueDate != nil {
		fmt.Fprintf(&b, "Due: %s\n", n.DueDate.UTC().Format(time.RFC1123))
	}
	b.WriteString("\n-- teamdesk\n")
	return b.String()
}

// Lead formats a threshold as the largest whole unit that divides it.
func Lead(minutes int) string {
	switch {
	case minutes >= 24*60 && minutes%(24*60) == 0:
		return plural(minutes/(24*60), "day")
	case minutes >= 60 && minutes%60 == 0:
		return plural(minutes/60, "hour")
	default:
		return plural(minutes, "minute")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func kind(t reminder.EntityType) string {
	switch t {
	case reminder.EntityTask:
		return "Task"
	case reminder.EntityProject:
		return "Project"
	}
	return string(t)
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []reminder.Notifier

func (m Multi) Notify(ctx context.Context, n reminder.Notification) error {
	var errs []error
	for _, nt := range m {
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
