package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthTimeout bounds the database ping behind GET /health.
const healthTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		// Boards authenticate with the ingest API key in the body.
		r.Post("/sensors/data", s.handleIngest)

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/me", s.handleGetProfile)
			r.Patch("/auth/me", s.handleUpdateProfile)
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Route("/incubations", func(r chi.Router) {
				r.Get("/", s.handleListIncubations)
				r.Post("/", s.handleCreateIncubation)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetIncubation)
					r.Patch("/", s.handleUpdateIncubation)
					r.Delete("/", s.handleDeleteIncubation)
					r.Get("/stats", s.handleIncubationStats)
				})
			})

			r.Route("/sensors/{incubationId}", func(r chi.Router) {
				r.Get("/latest", s.handleLatestReading)
				r.Get("/history", s.handleReadingHistory)
			})

			r.Route("/actuators/{incubationId}", func(r chi.Router) {
				r.Get("/", s.handleGetActuator)
				r.Put("/", s.handleUpdateActuator)
				r.Post("/turn", s.handleTurnEggs)
			})

			r.Route("/alerts", func(r chi.Router) {
				r.Get("/", s.handleListAlerts)
				r.Put("/read-all", s.handleMarkAllAlertsRead)
				r.Put("/{id}/read", s.handleMarkAlertRead)
			})
		})
	})

	return r
}

// handleHealth reports server health, including database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.db.HealthCheck(ctx); err != nil {
			s.logger.Warn("health check failed", "error", err)
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"ws_clients": s.hub.ClientCount(),
	})
}
