package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"teamdesk/internal/auth"
	"teamdesk/internal/entity"
)

type ProjectHandler struct {
	Svc    *entity.Service
	Logger *slog.Logger
}

type projectDTO struct {
	ID        uint64     `json:"id"`
	Name      string     `json:"name"`
	DueDate   *time.Time `json:"due_date"`
	Archived  bool       `json:"archived"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func toProjectDTO(p *entity.Project) projectDTO {
	return projectDTO{
		ID:        p.ID,
		Name:      p.Name,
		DueDate:   p.DueDate,
		Archived:  p.Archived,
		UpdatedAt: p.UpdatedAt,
	}
}

type createProjectReq struct {
	Name    string   `json:"name"`
	DueDate *string  `json:"due_date"` // RFC3339 optional
	Members []string `json:"members"`
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createProjectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	due, _, err := parseDueDate(req.DueDate)
	if err != nil {
		http.Error(w, "invalid due_date (RFC3339)", http.StatusBadRequest)
		return
	}

	p, err := h.Svc.CreateProject(r.Context(), uid, entity.CreateProjectInput{
		Name:    req.Name,
		DueDate: due,
		Members: req.Members,
	})
	if failed(w, h.Logger, err) {
		return
	}
	writeJSON(w, http.StatusCreated, toProjectDTO(p))
}

type updateProjectReq struct {
	Name     *string `json:"name"`
	DueDate  *string `json:"due_date"` // "" clears
	Archived *bool   `json:"archived"`
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateProjectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	due, clearDue, err := parseDueDate(req.DueDate)
	if err != nil {
		http.Error(w, "invalid due_date (RFC3339)", http.StatusBadRequest)
		return
	}

	p, err := h.Svc.UpdateProject(r.Context(), uid, id, entity.UpdateProjectInput{
		Name:         req.Name,
		DueDate:      due,
		ClearDueDate: clearDue,
		Archived:     req.Archived,
	})
	if failed(w, h.Logger, err) {
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(p))
}

type addMemberReq struct {
	Email string `json:"email"`
}

func (h *ProjectHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req addMemberReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if failed(w, h.Logger, h.Svc.AddMember(r.Context(), uid, id, req.Email)) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if failed(w, h.Logger, h.Svc.DeleteProject(r.Context(), uid, id)) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
