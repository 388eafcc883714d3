package api

import (
	"encoding/json"
	"net/http"

	"github.com/answerdesk/answerdesk/internal/api/handlers"
	"github.com/answerdesk/answerdesk/internal/api/middleware"
	"github.com/answerdesk/answerdesk/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the HTTP router with all API routes.
func NewRouter(cfg *config.Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	auth := middleware.NewAPIKeyAuth()
	if cfg.Auth.APIKey != "" {
		auth.AddKey(cfg.Auth.APIKey)
	}
	r.Use(auth.Middleware)

	// Health & info
	r.Get("/health", h.Health)
	r.Get("/version", versionHandler(cfg))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/answer", h.Answer)
		r.Post("/feedback", h.CreateFeedback)
		r.Post("/ingest", h.Ingest)

		r.Get("/thresholds", h.GetThresholds)

		r.Route("/learning", func(r chi.Router) {
			r.Post("/run", h.RunLearning)
			r.Get("/gaps", h.KnowledgeGaps)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/{sessionID}/messages", h.ListSessionMessages)
		})
	})

	return r
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"version": cfg.Version,
			"service": "answerdesk",
		})
	}
}
