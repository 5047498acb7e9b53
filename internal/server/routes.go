package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes sets up the router with all endpoints.
func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/health", s.healthHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.limiter.middleware)

		r.Get("/launches", s.GetAllLaunchesHandler)
		r.Post("/launches", s.CreateLaunchHandler)
		r.Delete("/launches/{id}", s.AbortLaunchHandler)

		r.Get("/planets", s.GetAllPlanetsHandler)
	})

	return r
}

// healthHandler provides health information.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := s.db.Health()
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	respondWithJSON(w, status, stats)
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
