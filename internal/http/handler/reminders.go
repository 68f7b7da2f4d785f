package handler

import (
	"net/http"
	"time"

	"teamdesk/internal/auth"
	"teamdesk/internal/entity"
	"teamdesk/internal/reminder"
)

// ReminderReadHandler lists the reminder records of an owned entity.
type ReminderReadHandler struct {
	Svc   *entity.Service
	Repo  *reminder.Repo
	Clock func() time.Time
}

type reminderDTO struct {
	ID               uint64     `json:"id"`
	ThresholdMinutes int        `json:"threshold_minutes"`
	FireAt           time.Time  `json:"fire_at"`
	JobID            string     `json:"job_id,omitempty"`
	SentAt           *time.Time `json:"sent_at"`
	Missed           bool       `json:"missed"`
}

func (h *ReminderReadHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now()
}

func (h *ReminderReadHandler) Task(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if _, err := h.Svc.GetTask(r.Context(), uid, id); err != nil {
		writeServiceError(w, err)
		return
	}
	h.list(w, r, reminder.EntityTask, id)
}

func (h *ReminderReadHandler) Project(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if _, err := h.Svc.GetProject(r.Context(), uid, id); err != nil {
		writeServiceError(w, err)
		return
	}
	h.list(w, r, reminder.EntityProject, id)
}

func (h *ReminderReadHandler) list(w http.ResponseWriter, r *http.Request, t reminder.EntityType, id uint64) {
	rows, err := h.Repo.ListForEntity(r.Context(), t, id)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	now := h.now()
	out := make([]reminderDTO, 0, len(rows))
	for i := range rows {
		rec := &rows[i]
		out = append(out, reminderDTO{
			ID:               rec.ID,
			ThresholdMinutes: rec.ThresholdMinutes,
			FireAt:           rec.FireAt,
			JobID:            rec.JobID,
			SentAt:           rec.SentAt,
			Missed:           rec.Missed(now),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
