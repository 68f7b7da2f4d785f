package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"teamdesk/internal/entity"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps entity errors to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, entity.ErrInvalidInput):
		http.Error(w, "invalid input", http.StatusBadRequest)
	default:
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}

// failed writes the error response for err and reports whether it did.
// A scheduling failure is logged and reported as a server error even
// though the entity itself was stored.
func failed(w http.ResponseWriter, log *slog.Logger, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, entity.ErrScheduling) {
		if log == nil {
			log = slog.Default()
		}
		log.Error("reminder scheduling failed", slog.String("error", err.Error()))
		http.Error(w, "reminder scheduling failed", http.StatusInternalServerError)
		return true
	}
	writeServiceError(w, err)
	return true
}

func idParam(r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// parseDueDate reads an optional RFC3339 field. An empty string means clear.
func parseDueDate(s *string) (due *time.Time, clearDue bool, err error) {
	if s == nil {
		return nil, false, nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil, true, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, false, err
	}
	t = t.UTC()
	return &t, false, nil
}
