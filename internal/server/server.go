// Package server exposes the read API and admin endpoints over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
	"github.com/teejy22/liquidlab-revenue/internal/server/handler"
	"github.com/teejy22/liquidlab-revenue/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// AdminKey guards the mutating admin endpoints. When empty they respond
	// 403.
	AdminKey string
	// RateLimit caps requests per client IP per RateWindow. Zero disables
	// limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Platforms *handler.PlatformHandler
	Revenue   *handler.RevenueHandler
	Payouts   *handler.PayoutHandler
	Pipeline  *handler.PipelineHandler
}

// Server is the headless HTTP API server for the revenue service.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, rate limiting) and guards admin
// routes with the admin key. limiter may be nil.
func NewServer(cfg Config, handlers Handlers, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	admin := adminGuard(cfg.AdminKey)

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Platform registry.
	mux.HandleFunc("GET /api/platforms", handlers.Platforms.ListPlatforms)
	mux.HandleFunc("GET /api/platforms/{id}", handlers.Platforms.GetPlatform)
	mux.Handle("POST /api/platforms", admin(http.HandlerFunc(handlers.Platforms.CreatePlatform)))
	mux.Handle("PATCH /api/platforms/{id}/active", admin(http.HandlerFunc(handlers.Platforms.SetActive)))

	// Ledger and revenue reads.
	mux.HandleFunc("GET /api/platforms/{id}/transactions", handlers.Revenue.ListTransactions)
	mux.HandleFunc("GET /api/platforms/{id}/revenue", handlers.Revenue.GetRevenue)
	mux.HandleFunc("GET /api/leaderboard", handlers.Revenue.Leaderboard)
	mux.Handle("PATCH /api/transactions/{id}/status", admin(http.HandlerFunc(handlers.Revenue.SetTransactionStatus)))

	// Payouts.
	mux.HandleFunc("GET /api/platforms/{id}/payouts", handlers.Payouts.ListPayouts)
	mux.HandleFunc("GET /api/platforms/{id}/payouts/pending", handlers.Payouts.PendingPayout)
	mux.Handle("POST /api/payouts/run", admin(http.HandlerFunc(handlers.Payouts.RunPayouts)))
	mux.Handle("PATCH /api/payouts/{id}/status", admin(http.HandlerFunc(handlers.Payouts.SetPayoutStatus)))

	// Pipeline trigger.
	mux.Handle("POST /api/pipeline/trigger", admin(http.HandlerFunc(handlers.Pipeline.TriggerJob)))

	// Build the middleware chain.
	var h http.Handler = mux

	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)(h)
	}

	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
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

// adminGuard protects mutating endpoints with the admin key. An empty key
// disables the endpoints entirely rather than leaving them open.
func adminGuard(adminKey string) func(http.Handler) http.Handler {
	if adminKey == "" {
		return func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":"admin endpoints are disabled"}`))
			})
		}
	}
	return middleware.Auth(adminKey)
}
