package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/evorag-ai/evorag/internal/api"
	"github.com/evorag-ai/evorag/internal/api/handlers"
	"github.com/evorag-ai/evorag/internal/api/middleware"
)

type RouterConfig struct {
	AskHandler         *handlers.AskHandler
	EvaluationsHandler *handlers.EvaluationsHandler
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

	r.Post("/ask", cfg.AskHandler.Ask)

	r.Route("/evaluations", func(r chi.Router) {
		r.Get("/", cfg.EvaluationsHandler.List)
		r.Get("/{interaction_id}", cfg.EvaluationsHandler.Get)
	})

	return r
}
