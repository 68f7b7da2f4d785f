package notify

import (
	"context"
	"log/slog"

	"teamdesk/internal/reminder"
)

// Log writes reminders to a structured logger. It is the development
// notifier and never fails.
type Log struct {
	Logger *slog.Logger
}

func NewLog(l *slog.Logger) *Log {
	if l == nil {
		l = slog.Default()
	}
	return &Log{Logger: l}
}

func (l *Log) Notify(ctx context.Context, n reminder.Notification) error {
	l.Logger.InfoContext(ctx, "reminder notification",
		slog.String("to", n.Recipient),
		slog.String("subject", Subject(n)),
		slog.String("entity_type", string(n.EntityType)),
		slog.Uint64("entity_id", n.EntityID),
		slog.Int("threshold_minutes", n.ThresholdMinutes))
	return nil
}
