package notify_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamdesk/internal/notify"
	"teamdesk/internal/reminder"
)

type recorder struct {
	got []reminder.Notification
	err error
}

func (r *recorder) Notify(_ context.Context, n reminder.Notification) error {
	r.got = append(r.got, n)
	return r.err
}

func sample() reminder.Notification {
	due := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	return reminder.Notification{
		Recipient:        "ann@example.com",
		EntityType:       reminder.EntityTask,
		EntityID:         9,
		Title:            "Ship release",
		ThresholdMinutes: 1440,
		DueDate:          &due,
	}
}

func TestLead(t *testing.T) {
	t.Parallel()

	tests := map[int]string{
		10:    "10 minutes",
		1:     "1 minute",
		60:    "1 hour",
		90:    "90 minutes",
		180:   "3 hours",
		1440:  "1 day",
		10080: "7 days",
	}
	for in, want := range tests {
		assert.Equal(t, want, notify.Lead(in), "minutes=%d", in)
	}
}

func TestSubjectAndBody(t *testing.T) {
	t.Parallel()

	n := sample()
	assert.Equal(t, `Task "Ship release" is due in 1 day`, notify.Subject(n))

	body := notify.Body(n)
	assert.Contains(t, body, `the task "Ship release" is due in 1 day`)
	assert.Contains(t, body, "Mon, 02 Mar 2026 15:00:00 UTC")

	n.EntityType = reminder.EntityProject
	n.DueDate = nil
	assert.Equal(t, `Project "Ship release" is due in 1 day`, notify.Subject(n))
	assert.NotContains(t, notify.Body(n), "Due:")
}

func TestLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := notify.NewLog(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, l.Notify(context.Background(), sample()))
	assert.Contains(t, buf.String(), `"to":"ann@example.com"`)
	assert.Contains(t, buf.String(), `"threshold_minutes":1440`)
}

func TestMulti(t *testing.T) {
	t.Parallel()

	a := &recorder{}
	b := &recorder{err: errors.New("smtp down")}
	c := &recorder{}

	err := notify.Multi{a, b, c}.Notify(context.Background(), sample())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)
	assert.Len(t, c.got, 1, "a failing notifier must not stop the others")

	assert.NoError(t, notify.Multi{a, c}.Notify(context.Background(), sample()))
}

func TestNewPostmark(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		p, err := notify.NewPostmark(notify.PostmarkConfig{
			ServerToken: "server",
			SenderEmail: "reminders@example.com",
		})
		require.NoError(t, err)
		assert.NotNil(t, p)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := notify.NewPostmark(notify.PostmarkConfig{SenderEmail: "reminders@example.com"})
		assert.ErrorIs(t, err, notify.ErrInvalidConfig)
	})

	t.Run("bad sender", func(t *testing.T) {
		_, err := notify.NewPostmark(notify.PostmarkConfig{ServerToken: "server", SenderEmail: "nope"})
		assert.ErrorIs(t, err, notify.ErrInvalidConfig)
	})
}
