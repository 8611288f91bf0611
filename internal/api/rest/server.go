package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fraudscope/transaction-scoring-backend/internal/infrastructure/cache"
	"github.com/fraudscope/transaction-scoring-backend/internal/infrastructure/config"
	"github.com/fraudscope/transaction-scoring-backend/internal/service/scoring"
)

// Middleware wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Deps carries everything the transport needs from the composition
// root. RateLimiter, MetricsHandler, HTTPMetrics and Hub are optional.
type Deps struct {
	Scoring        scoring.Service
	Logger         *slog.Logger
	RateLimiter    cache.RateLimiter
	MetricsHandler http.Handler
	HTTPMetrics    Middleware
	Hub            *StreamHub
	ModelVersion   string
}

// Server is the HTTP front of the scoring pipeline: a thin wrapper
// that parses, validates, and maps errors; all scoring semantics live
// in the service.
type Server struct {
	config     *config.Config
	httpServer *http.Server
	handler    *Handler
	logger     *slog.Logger
}

// NewServer assembles the HTTP server with its middleware chain.
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Scoring == nil {
		return nil, fmt.Errorf("scoring service is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handler := NewHandler(deps.Scoring, logger, deps.ModelVersion)

	health := NewHealthService()
	health.Register(NewModelHealthChecker(deps.Scoring))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.ReadinessHandler())
	mux.HandleFunc("GET /healthz", health.LivenessHandler())
	mux.HandleFunc("GET /ready", health.ReadinessHandler())
	if deps.MetricsHandler != nil {
		mux.Handle("GET /metrics", deps.MetricsHandler)
	}

	mux.HandleFunc("POST /api/v1/score", handler.handleScore)
	mux.HandleFunc("GET /api/v1/stats/{user_id}", handler.handleEntityStats)
	if deps.Hub != nil {
		mux.HandleFunc("GET /api/v1/stream", deps.Hub.handleStream)
	}

	// Compatibility alias for clients of the original endpoint.
	mux.HandleFunc("POST /predict", handler.handleScore)

	middlewares := []Middleware{
		requestIDMiddleware,
		loggingMiddleware,
	}
	if deps.HTTPMetrics != nil {
		middlewares = append(middlewares, deps.HTTPMetrics)
	}
	middlewares = append(middlewares,
		tracingMiddleware(),
		recoveryMiddleware,
	)
	if deps.RateLimiter != nil {
		middlewares = append(middlewares, conditionalMiddleware(
			rateLimitMiddleware(deps.RateLimiter, cfg.RateLimit),
			isScoringEndpoint,
		))
	}
	middlewares = append(middlewares, conditionalMiddleware(
		timeoutMiddleware(cfg.Server.RequestTimeout),
		func(r *http.Request) bool {
			// The websocket stream is long-lived and must not inherit
			// the per-request deadline.
			return r.URL.Path != "/api/v1/stream"
		},
	))

	var h http.Handler = mux
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}

	server := &Server{
		config:  cfg,
		handler: handler,
		logger:  logger,
		httpServer: &http.Server{
			Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:        h,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			IdleTimeout:    cfg.Server.IdleTimeout,
			MaxHeaderBytes: 1 << 20,
		},
	}
	return server, nil
}

// Start runs the server until an error or a shutdown signal.
func (s *Server) Start() error {
	s.logger.Info("starting API server",
		"address", s.httpServer.Addr,
		"environment", s.config.Environment,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown()
	}
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown server", "error", err)
		return err
	}
	s.logger.Info("server shutdown complete")
	return nil
}

func isScoringEndpoint(r *http.Request) bool {
	return r.URL.Path == "/predict" || strings.HasPrefix(r.URL.Path, "/api/v1/score")
}

// conditionalMiddleware applies mw only when condition holds
func conditionalMiddleware(mw Middleware, condition func(*http.Request) bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if condition(r) {
				mw(next).ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
