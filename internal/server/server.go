// Package server exposes an analyzed report over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aaronlmathis/cpuplot/internal/analyzer"
	"github.com/aaronlmathis/cpuplot/internal/config"
)

// shutdownTimeout bounds graceful shutdown once the serve context is done
const shutdownTimeout = 30 * time.Second

// Server represents the report API server
type Server struct {
	logger  *zap.Logger
	config  *config.Config
	router  chi.Router
	report  *analyzer.Report
	limiter *RateLimiter
	etag    *ETagMiddleware
}

// New creates a server for an already analyzed report
func New(logger *zap.Logger, cfg *config.Config, report *analyzer.Report) *Server {
	s := &Server{
		logger:  logger,
		config:  cfg,
		router:  chi.NewRouter(),
		report:  report,
		limiter: NewRateLimiter(logger, cfg.Server.RequestsPerMinute),
		etag:    NewETagMiddleware(logger, time.Now()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(RequestIDResponseMiddleware)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(PrometheusMiddleware)
}

func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.Get("/healthz", s.handleHealth)

	// Version endpoint
	s.router.Get("/version", s.handleVersion)

	// Metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.limiter.Middleware)
		r.Use(s.etag.Middleware)

		r.Get("/report", s.handleGetReport)
		r.Get("/series", s.handleListSeries)
		r.Get("/series/{window}", s.handleGetSeries)
	})
}

// Run serves on the configured address until ctx is done, then shuts down
// gracefully
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.config.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", s.config.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	s.logger.Info("Server exited")
	return nil
}

// requestLogger logs each request through zap at debug level
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug("HTTP request",
			zap.String("requestId", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}
