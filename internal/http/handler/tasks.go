package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"teamdesk/internal/auth"
	"teamdesk/internal/entity"
	"teamdesk/internal/reminder"
)

type TaskHandler struct {
	Svc    *entity.Service
	Logger *slog.Logger
}

type taskDTO struct {
	ID            uint64     `json:"id"`
	ProjectID     *uint64    `json:"project_id"`
	Title         string     `json:"title"`
	AssigneeEmail string     `json:"assignee_email"`
	Priority      string     `json:"priority"`
	DueDate       *time.Time `json:"due_date"`
	Completed     bool       `json:"completed"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toTaskDTO(t *entity.Task) taskDTO {
	return taskDTO{
		ID:            t.ID,
		ProjectID:     t.ProjectID,
		Title:         t.Title,
		AssigneeEmail: t.AssigneeEmail,
		Priority:      string(t.Priority),
		DueDate:       t.DueDate,
		Completed:     t.Completed,
		UpdatedAt:     t.UpdatedAt,
	}
}

type createTaskReq struct {
	Title         string  `json:"title"`
	AssigneeEmail string  `json:"assignee_email"`
	ProjectID     *uint64 `json:"project_id"`
	Priority      string  `json:"priority"`
	DueDate       *string `json:"due_date"` // RFC3339 optional
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createTaskReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	due, _, err := parseDueDate(req.DueDate)
	if err != nil {
		http.Error(w, "invalid due_date (RFC3339)", http.StatusBadRequest)
		return
	}

	t, err := h.Svc.CreateTask(r.Context(), uid, entity.CreateTaskInput{
		Title:         req.Title,
		AssigneeEmail: req.AssigneeEmail,
		ProjectID:     req.ProjectID,
		Priority:      reminder.ParsePriority(req.Priority),
		DueDate:       due,
	})
	if failed(w, h.Logger, err) {
		return
	}
	writeJSON(w, http.StatusCreated, toTaskDTO(t))
}

type updateTaskReq struct {
	Title         *string `json:"title"`
	AssigneeEmail *string `json:"assignee_email"`
	Priority      *string `json:"priority"`
	DueDate       *string `json:"due_date"` // "" clears
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateTaskReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	due, clearDue, err := parseDueDate(req.DueDate)
	if err != nil {
		http.Error(w, "invalid due_date (RFC3339)", http.StatusBadRequest)
		return
	}

	in := entity.UpdateTaskInput{
		Title:         req.Title,
		AssigneeEmail: req.AssigneeEmail,
		DueDate:       due,
		ClearDueDate:  clearDue,
	}
	if req.Priority != nil {
		p := reminder.ParsePriority(*req.Priority)
		in.Priority = &p
	}

	t, err := h.Svc.UpdateTask(r.Context(), uid, id, in)
	if failed(w, h.Logger, err) {
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTO(t))
}

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if failed(w, h.Logger, h.Svc.CompleteTask(r.Context(), uid, id)) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if failed(w, h.Logger, h.Svc.DeleteTask(r.Context(), uid, id)) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
