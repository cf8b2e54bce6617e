// Package server assembles the harvester HTTP API: routing, middleware,
// lifecycle, and graceful shutdown.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/vihaankulkarni29/NCBI-MetadataHarvester/internal/errors"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/internal/server/handlers"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/internal/server/middleware"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/jobstore"
)

// VersionInfo is reported by GET /version.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

// Timeouts configures the listener's read/write/idle/shutdown budgets.
type Timeouts struct {
	Read     time.Duration
	Write    time.Duration
	Idle     time.Duration
	Shutdown time.Duration
}

func defaultTimeouts() Timeouts {
	return Timeouts{
		Read:     30 * time.Second,
		Write:    30 * time.Second,
		Idle:     120 * time.Second,
		Shutdown: 10 * time.Second,
	}
}

// Option configures optional server dependencies.
type Option func(*Server)

// WithJobs mounts the job endpoints backed by store and runner. runCtx
// bounds the lifetime of spawned pipeline goroutines.
func WithJobs(runCtx context.Context, store *jobstore.Store, runner handlers.JobRunner) Option {
	return func(s *Server) {
		s.jobs = handlers.NewJobs(runCtx, store, runner, s.log)
	}
}

// WithLogger installs the service logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithVersion sets the build information reported by /version.
func WithVersion(info VersionInfo) Option {
	return func(s *Server) {
		s.version = info
	}
}

// WithTimeouts overrides the default listener timeouts.
func WithTimeouts(t Timeouts) Option {
	return func(s *Server) {
		s.timeouts = t
	}
}

// Server is the harvester HTTP API server.
type Server struct {
	host    string
	port    int
	log     *zap.Logger
	version VersionInfo

	timeouts Timeouts
	jobs     *handlers.Jobs
	router   chi.Router
}

// New creates a server listening on host:port once Start is called.
func New(host string, port int, opts ...Option) *Server {
	s := &Server{
		host:     host,
		port:     port,
		log:      zap.NewNop(),
		version:  VersionInfo{Version: "dev"},
		timeouts: defaultTimeouts(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.buildRouter()
	return s
}

// Port returns the configured listen port.
func (s *Server) Port() int {
	return s.port
}

// Handler returns the root handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)

	r.NotFound(apperrors.NotFoundHandler)
	r.MethodNotAllowed(apperrors.MethodNotAllowedHandler)

	r.Get("/healthz", handlers.HealthzHandler)
	r.Get("/health", handlers.HealthHandler)
	r.Get("/health/live", handlers.LivenessHandler)
	r.Get("/health/ready", handlers.ReadinessHandler)
	r.Get("/health/startup", handlers.StartupHandler)
	r.Get("/version", s.versionHandler)

	if s.jobs != nil {
		r.Route("/api/v1", s.jobs.Routes)
	}

	return r
}

func (s *Server) versionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.version)
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully within the shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.timeouts.Read,
		WriteTimeout: s.timeouts.Write,
		IdleTimeout:  s.timeouts.Idle,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeouts.Shutdown)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
