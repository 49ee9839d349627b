// Package server provides HTTP server initialization and lifecycle management
// for the seedgraph query API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scrypster/seedgraph/internal/config"
	"github.com/scrypster/seedgraph/internal/engine"
	"github.com/scrypster/seedgraph/internal/metrics"
	"github.com/scrypster/seedgraph/internal/storage"
	"github.com/scrypster/seedgraph/web/handlers"
)

// Version is reported by the health endpoint.
var Version = "dev"

// Deps are the collaborators the server is built from.
type Deps struct {
	// Backend answers queries and stores elements. Required.
	Backend storage.Backend

	// Logger defaults to a discarding logger.
	Logger *slog.Logger

	// Metrics and Gatherer are optional. /metrics is served only when
	// Gatherer is set.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// breakerStater is implemented by backends guarded by a circuit breaker.
type breakerStater interface {
	State() string
}

// Server is the seedgraph HTTP server.
type Server struct {
	cfg     *config.Config
	backend storage.Backend
	logger  *slog.Logger
	hub     *handlers.WebSocketHub
	handler http.Handler
}

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// New builds the server and its routes. Nothing is started until Start.
func New(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		cfg:     cfg,
		backend: deps.Backend,
		logger:  logger,
		hub:     handlers.NewWebSocketHub(logger, cfg.Server.AllowedOrigins),
	}

	evaluator := engine.NewEvaluator(deps.Backend,
		engine.WithLogger(logger),
		engine.WithMetrics(deps.Metrics),
	)
	queryHandlers := handlers.NewQueryHandlers(evaluator, deps.Backend, logger)
	queryHandlers.SetAllowedOrigins(cfg.Server.AllowedOrigins)
	queryHandlers.SetEventHub(s.hub)

	// API routes (require auth in production mode)
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/v1/query", queryHandlers.Query)
	apiMux.HandleFunc("POST /api/v1/query/all", queryHandlers.QueryAll)
	apiMux.HandleFunc("GET /api/v1/query/stream", queryHandlers.Stream)
	apiMux.HandleFunc("POST /api/v1/elements", queryHandlers.AddElements)
	apiMux.Handle("GET /api/v1/events", s.hub)

	mux := http.NewServeMux()
	mux.Handle("/api/", handlers.RequireAuth(apiMux, cfg))

	// Health endpoint - no auth required, used by monitoring
	mux.HandleFunc("GET /healthz", s.health)

	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	var limiter *handlers.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = handlers.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	}

	// Rate limiting innermost, then instrumentation, request IDs and
	// security headers.
	handler := handlers.RateLimitMiddleware(mux, limiter)
	handler = handlers.Instrument(handler, logger, deps.Metrics)
	handler = handlers.RequestID(handler)
	s.handler = securityHeadersMiddleware(handler)

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Publish sends ev to every /api/v1/events subscriber.
func (s *Server) Publish(ev handlers.Event) {
	s.hub.Broadcast(ev)
}

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Breaker string `json:"breaker,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", Version: Version}
	status := http.StatusOK
	if b, ok := s.backend.(breakerStater); ok {
		resp.Breaker = b.State()
		if resp.Breaker == "open" {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

// Start listens on the configured address and serves until ctx is done,
// then shuts down gracefully. It returns the actual address being listened
// on, which differs from the configured one when the port is 0.
func (s *Server) Start(ctx context.Context) (string, <-chan error, error) {
	addr := s.cfg.Server.Addr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No read or write timeout: streamed queries hold their connection
		// for as long as the client keeps reading.
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	actualAddr := listener.Addr().String()

	go s.hub.Run()

	done := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
			done <- err
		}
		close(done)
	}()

	go func() {
		<-ctx.Done()
		timeout := s.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.hub.Stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown error", "error", err)
		}
	}()

	s.logger.Info("server listening", "addr", actualAddr)
	return actualAddr, done, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
