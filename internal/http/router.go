package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"

	"teamdesk/internal/auth"
	"teamdesk/internal/config"
	"teamdesk/internal/entity"
	"teamdesk/internal/http/handler"
	mw "teamdesk/internal/http/middleware"
	"teamdesk/internal/reminder"
)

type Deps struct {
	DB        *gorm.DB
	JWT       *auth.JWT
	Entities  *entity.Service
	Reminders *reminder.Repo
	Logger    *slog.Logger
}

func NewRouter(cfg config.Config, d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if d.Logger != nil {
		r.Use(mw.AccessLog(d.Logger))
	}
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: d.DB, JWT: d.JWT}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{DB: d.DB}
	r.With(auth.RequireAuth(d.JWT)).Get("/me", me.Me)

	taskH := &handler.TaskHandler{Svc: d.Entities, Logger: d.Logger}
	projectH := &handler.ProjectHandler{Svc: d.Entities, Logger: d.Logger}
	remindersH := &handler.ReminderReadHandler{Svc: d.Entities, Repo: d.Reminders}

	r.Route("/tasks", func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWT))

		r.Post("/", taskH.Create)
		r.Patch("/{id}", taskH.Update)
		r.Delete("/{id}", taskH.Delete)
		r.Post("/{id}/complete", taskH.Complete)
		r.Get("/{id}/reminders", remindersH.Task)
	})

	r.Route("/projects", func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWT))

		r.Post("/", projectH.Create)
		r.Patch("/{id}", projectH.Update)
		r.Delete("/{id}", projectH.Delete)
		r.Post("/{id}/members", projectH.AddMember)
		r.Get("/{id}/reminders", remindersH.Project)
	})

	return r
}
