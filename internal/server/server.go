package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akbaridria/obrix/internal/domain"
	"github.com/akbaridria/obrix/internal/server/handler"
	"github.com/akbaridria/obrix/internal/server/middleware"
	"github.com/akbaridria/obrix/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // guards POST /api/jobs; empty disables auth
	RateLimit   int    // requests per minute per client IP; 0 disables
}

// Handlers aggregates the HTTP handlers the server registers. Archives is
// nil when object storage is disabled.
type Handlers struct {
	Health   *handler.HealthHandler
	Metrics  *handler.MetricsHandler
	Alerts   *handler.AlertHandler
	Jobs     *handler.JobHandler
	Archives *handler.ArchiveHandler
}

// Deps are the non-handler collaborators of the server. Every field is
// optional.
type Deps struct {
	Hub      *ws.Hub
	Limiter  domain.RateLimiter
	Gatherer prometheus.Gatherer
}

// Server is the HTTP + WebSocket API in front of the metrics store.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered.
func NewServer(cfg Config, handlers Handlers, deps Deps, logger *slog.Logger) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewHandler(cfg, handlers, deps, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return &Server{httpServer: srv, logger: logger}
}

// NewHandler builds the routed and middleware-wrapped handler.
func NewHandler(cfg Config, handlers Handlers, deps Deps, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("GET /api/metrics", handlers.Metrics.ListMetrics)
	mux.HandleFunc("GET /api/metrics/{id}", handlers.Metrics.GetMetrics)

	mux.HandleFunc("GET /api/pools/count", handlers.Metrics.CountPools)
	mux.HandleFunc("GET /api/pools/{id}/metrics/latest", handlers.Metrics.LatestForPool)

	mux.HandleFunc("GET /api/alerts", handlers.Alerts.ListAlerts)

	mux.Handle("POST /api/jobs", middleware.Auth(cfg.APIKey)(http.HandlerFunc(handlers.Jobs.EnqueueJob)))

	if handlers.Archives != nil {
		mux.HandleFunc("GET /api/pools/{id}/archives", handlers.Archives.ListArchives)
		mux.HandleFunc("GET /api/archives/{path...}", handlers.Archives.GetArchive)
	}

	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	if deps.Hub != nil {
		mux.HandleFunc("GET /ws", deps.Hub.HandleWS)
	}

	var h http.Handler = mux

	if deps.Limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(deps.Limiter, cfg.RateLimit, time.Minute)(h)
	}

	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return h
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
