package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/caldermed/triage/internal/api"
	"github.com/caldermed/triage/internal/api/handlers"
	"github.com/caldermed/triage/internal/api/middleware"
)

type RouterConfig struct {
	AssessmentHandler *handlers.AssessmentHandler
	ChatHandler       *handlers.ChatHandler
	PatientHandler    *handlers.PatientHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/patients", cfg.PatientHandler.List)
	r.Post("/assess", cfg.AssessmentHandler.Assess)

	r.Post("/chat", cfg.ChatHandler.Chat)
	r.Get("/chat/{session_id}/history", cfg.ChatHandler.History)
	r.Delete("/chat/{session_id}", cfg.ChatHandler.Clear)

	return r
}
