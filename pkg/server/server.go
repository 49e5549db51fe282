package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mnohosten/storagecore/pkg/metrics"
	"github.com/mnohosten/storagecore/pkg/storage"
)

// Server is the debug HTTP surface: a liveness check and a Prometheus
// metrics dump over a running storage engine. It never touches tuple data.
type Server struct {
	config    *Config
	engine    *storage.StorageEngine
	router    *chi.Mux
	httpSrv   *http.Server
	startTime time.Time
	exporter  *metrics.PrometheusExporter
}

// New creates a debug server over an already-open storage engine.
func New(config *Config, engine *storage.StorageEngine) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("server: storage engine must not be nil")
	}

	collector := metrics.NewCollector(engine)
	srv := &Server{
		config:    config,
		engine:    engine,
		router:    chi.NewRouter(),
		startTime: time.Now(),
		exporter:  metrics.NewPrometheusExporter(collector),
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	srv.httpSrv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      srv.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return srv, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	if s.config.EnableLogging {
		s.router.Use(middleware.Logger)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/stats", s.handleStats)
}

// handleHealthz reports liveness: 200 once the storage engine has an open
// database file.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

// handleStats writes buffer pool and disk manager counters in Prometheus
// text exposition format.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	if err := s.exporter.WriteMetrics(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Start begins serving HTTP requests. It blocks until the server stops.
func (s *Server) Start() error {
	err := s.httpSrv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("debug server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server, waiting up to ctx's deadline
// for in-flight requests to complete. It does not close the storage engine.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
