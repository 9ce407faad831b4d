// Package diagnostics serves the host's operational HTTP surface:
// health, readiness, lifecycle state and Prometheus metrics. This is
// host plumbing, not part of the bootstrap core's own API.
package diagnostics

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"appshell/internal/lifecycle"
	"appshell/internal/observability"
	"appshell/internal/registry"
)

// Server exposes diagnostics over HTTP.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewServer builds the diagnostics server.
func NewServer(addr string, state *lifecycle.State, reg *registry.Registry, metrics *observability.Collector, logger *zap.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if state.IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		http.Error(w, state.CurrentPhase(), http.StatusServiceUnavailable)
	})

	r.Get("/state", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(state.Snapshot())
	})

	r.Get("/services", func(w http.ResponseWriter, _ *http.Request) {
		names := reg.Names()
		sort.Strings(names)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(names)
	})

	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Handler exposes the route tree, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves until Shutdown. It returns http.ErrServerClosed on a
// clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("diagnostics server starting", zap.String("addr", s.srv.Addr))
	return s.srv.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
