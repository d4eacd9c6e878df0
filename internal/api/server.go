// Package api exposes the operational HTTP surface of the frontier
// bridge: health, queue diagnostics, and Prometheus metrics.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/crawlkit/frontier/internal/frontier"
)

// Server wires HTTP handlers to the backend facade.
type Server struct {
	router  chi.Router
	backend *frontier.Backend
	logger  *zap.Logger
}

// NewServer constructs a Server with routes attached.
func NewServer(backend *frontier.Backend, logger *zap.Logger) *Server {
	s := &Server{
		backend: backend,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Route("/frontier", func(r chi.Router) {
		r.Get("/count", s.count)
		r.Get("/queue-size", s.queueSize)
	})
	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// count reads every partition non-destructively. A lower-bound estimate,
// and potentially slow: it performs remote reads on the request path.
func (s *Server) count(w http.ResponseWriter, r *http.Request) {
	count := s.backend.Queue().Count(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (s *Server) queueSize(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"queue_size": s.backend.QueueSize()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
