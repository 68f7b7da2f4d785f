package handler

import (
	"net/http"
	"time"

	"gorm.io/gorm"

	"teamdesk/internal/auth"
)

type MeHandler struct {
	DB *gorm.DB
}

type meDTO struct {
	UserID    uint64    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var u auth.User
	if err := h.DB.WithContext(r.Context()).Take(&u, uid).Error; err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, meDTO{UserID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt})
}
