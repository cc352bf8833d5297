// Package httpapi exposes the scheduler over HTTP. It provides submission,
// status, result, cancellation, and stats endpoints on a gin router, with
// structured request logging, panic recovery, and a global rate limit in
// front of per-user quota admission.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/xraph/tierq/sched"
)

// Server serves the tierq HTTP API.
type Server struct {
	sched      *sched.Scheduler
	router     *gin.Engine
	logger     *slog.Logger
	limiter    *rate.Limiter
	httpServer *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the structured logger. Defaults to slog.Default().
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithGlobalRateLimit installs a process-wide request rate limit in front
// of all endpoints. This is a blunt overload guard; per-user fairness is
// enforced by the scheduler's quota tracker.
func WithGlobalRateLimit(l *rate.Limiter) ServerOption {
	return func(s *Server) { s.limiter = l }
}

// NewServer creates a Server for the given scheduler.
func NewServer(s *sched.Scheduler, opts ...ServerOption) *Server {
	gin.SetMode(gin.ReleaseMode)

	srv := &Server{
		sched:  s,
		router: gin.New(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.setupMiddleware()
	srv.setupRoutes()
	return srv
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(s.logger))
	if s.limiter != nil {
		s.router.Use(globalRateLimit(s.limiter))
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)

	v1 := s.router.Group("/v1")
	{
		v1.POST("/requests", s.submitRequest)
		v1.GET("/requests/:id", s.getRequest)
		v1.GET("/requests/:id/result", s.getResult)
		v1.POST("/requests/:id/cancel", s.cancelRequest)
		v1.DELETE("/requests/completed", s.clearCompleted)

		v1.GET("/stats", s.stats)
		v1.GET("/tiers", s.listTiers)
		v1.GET("/handlers", s.listHandlers)

		v1.PUT("/users/:id/tier", s.setUserTier)
		v1.GET("/users/:id/usage", s.userUsage)
	}
}

// Handler returns the assembled http.Handler, for embedding and tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run starts the HTTP server on addr and blocks until it stops.
func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("http api listening", slog.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "tierq",
	})
}
