package server

import (
	"net/http"

	"github.com/archiva-labs/doclib/internal/api/handlers"
	"github.com/archiva-labs/doclib/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	DocumentHandler  *handlers.DocumentHandler
	QueryHandler     *handlers.QueryHandler
	AnalyticsHandler *handlers.AnalyticsHandler
	HealthHandler    *handlers.HealthHandler
	MaxBodyBytes     int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = 12 * 1024 * 1024
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Sentry)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", cfg.HealthHandler.Health)
	r.Get("/health/live", cfg.HealthHandler.Live)
	r.Get("/health/ready", cfg.HealthHandler.Ready)

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", cfg.DocumentHandler.Upload)
		r.Post("/text", cfg.DocumentHandler.UploadText)
		r.Get("/", cfg.DocumentHandler.List)
		r.Get("/{id}", cfg.DocumentHandler.Get)
		r.Delete("/{id}", cfg.DocumentHandler.Delete)
	})

	r.Route("/queries", func(r chi.Router) {
		r.Post("/", cfg.QueryHandler.Ask)
		r.Get("/", cfg.QueryHandler.History)
		r.Get("/{id}", cfg.QueryHandler.Get)
	})

	r.Route("/analytics", func(r chi.Router) {
		r.Get("/", cfg.AnalyticsHandler.Stats)
		r.Get("/documents", cfg.AnalyticsHandler.Documents)
		r.Get("/queries", cfg.AnalyticsHandler.Queries)
	})

	return r
}
