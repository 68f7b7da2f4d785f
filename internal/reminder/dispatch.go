package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Snapshot is what the dispatcher needs to know about an entity at fire time.
type Snapshot struct {
	Type       EntityType
	ID         uint64
	Title      string
	DueDate    *time.Time
	Priority   Priority
	Recipients []string
}

// EntityStore resolves the current state of a task or project.
// It returns ErrEntityNotFound for entities that no longer exist.
type EntityStore interface {
	GetEntity(ctx context.Context, t EntityType, id uint64) (Snapshot, error)
}

type Notification struct {
	Recipient        string
	EntityType       EntityType
	EntityID         uint64
	Title            string
	ThresholdMinutes int
	DueDate          *time.Time
}

// Notifier delivers one reminder to one recipient.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Dispatcher is the worker-side handler for REMINDER_DISPATCH jobs.
type Dispatcher struct {
	Repo     *Repo
	Entities EntityStore
	Notifier Notifier
	Cache    SentCache
	Logger   *slog.Logger
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d *Dispatcher) cache() SentCache {
	if d.Cache != nil {
		return d.Cache
	}
	return NopSentCache{}
}

// Handle decodes the job payload and delivers it. It matches jobs.HandlerFunc.
func (d *Dispatcher) Handle(ctx context.Context, payload json.RawMessage) error {
	var del Delivery
	if err := json.Unmarshal(payload, &del); err != nil {
		return fmt.Errorf("decode delivery: %w", err)
	}
	return d.Deliver(ctx, del)
}

// Deliver notifies the recipients of one reminder revision at most once.
//
// The claim happens before the notifier is called. A notifier failure is
// returned so the job is retried, but the retry loses the claim: a reminder
// whose notification fails after the claim stays undelivered.
func (d *Dispatcher) Deliver(ctx context.Context, del Delivery) error {
	log := d.logger().With(
		slog.Uint64("reminder_id", del.ReminderID),
		slog.Uint64("revision", del.Revision),
		slog.String("entity_type", string(del.EntityType)),
		slog.Uint64("entity_id", del.EntityID),
		slog.Int("threshold_minutes", del.ThresholdMinutes),
		slog.Bool("backfill", del.Backfill))

	key := sentKey(del)
	seen, err := d.cache().Seen(ctx, key)
	if err != nil {
		log.Warn("sent cache lookup", slog.String("error", err.Error()))
	}
	if seen {
		log.Debug("reminder already sent (cache)")
		return nil
	}

	won, err := d.Repo.ClaimRevision(ctx, del.ReminderID, del.Revision)
	if err != nil {
		return err
	}
	d.mark(ctx, log, key)
	if !won {
		log.Debug("reminder already claimed")
		return nil
	}

	snap, err := d.Entities.GetEntity(ctx, del.EntityType, del.EntityID)
	if err != nil {
		if errors.Is(err, ErrEntityNotFound) {
			log.Warn("reminder entity is gone, dropping")
			return nil
		}
		log.Error("load reminder entity", slog.String("error", err.Error()))
		return fmt.Errorf("load %s %d: %w", del.EntityType, del.EntityID, err)
	}
	if len(snap.Recipients) == 0 {
		log.Warn("reminder has no recipients, dropping")
		return nil
	}

	var errs []error
	for _, to := range snap.Recipients {
		err := d.Notifier.Notify(ctx, Notification{
			Recipient:        to,
			EntityType:       snap.Type,
			EntityID:         snap.ID,
			Title:            snap.Title,
			ThresholdMinutes: del.ThresholdMinutes,
			DueDate:          snap.DueDate,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", to, err))
		}
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		log.Error("reminder delivery failed after claim", slog.String("error", err.Error()))
		return err
	}

	log.Info("reminder sent", slog.Int("recipients", len(snap.Recipients)))
	return nil
}

func (d *Dispatcher) mark(ctx context.Context, log *slog.Logger, key string) {
	if err := d.cache().Mark(ctx, key); err != nil {
		log.Warn("sent cache mark", slog.String("error", err.Error()))
	}
}
