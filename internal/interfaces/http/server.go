// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/coselection/internal/application/service"
	"github.com/garyjia/coselection/internal/domain/permission"
	"github.com/garyjia/coselection/internal/infrastructure/worker"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Authenticator turns a bearer token into the actor behind the request
type Authenticator interface {
	Verify(token string) (permission.Actor, error)
}

// Metrics records served requests and exposes the scrape endpoint
type Metrics interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
	Handler() http.Handler
}

// Sweeper runs every time-driven pass once
type Sweeper interface {
	RunOnce(ctx context.Context) (worker.SweepSummary, error)
}

// Services groups the application services the handlers call
type Services struct {
	Leads    service.LeadService
	Earnings service.EarningsService
	Payouts  service.PayoutService
	Disputes service.DisputeService
	Accounts service.AccountService
	Sweeper  Sweeper
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	auth       Authenticator
	metrics    Metrics
	logger     Logger
}

// NewServer creates a new HTTP server with the given services. metrics may be nil.
func NewServer(config ServerConfig, services Services, auth Authenticator, metrics Metrics, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		services: services,
		auth:     auth,
		metrics:  metrics,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.corsMiddleware())
	s.router.Use(s.loggingMiddleware())
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.logger)

	s.router.GET("/health", h.HealthCheck)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := s.router.Group("/api/v1")
	{
		ref := api.Group("/reference")
		ref.GET("/reasons", h.ListReasons)
		ref.GET("/permissions", h.ListPermissions)
		ref.GET("/machines", h.ListMachines)
	}

	authed := api.Group("")
	authed.Use(s.authMiddleware())
	{
		authed.POST("/leads", h.CreateLead)
		authed.GET("/leads", h.ListLeads)
		authed.GET("/leads/:id", h.GetLead)
		authed.PUT("/leads/:id", h.UpdateLead)
		authed.GET("/leads/:id/transitions", h.LeadTargets)
		authed.POST("/leads/:id/transitions", h.TransitionLead)
		authed.POST("/leads/:id/claim", h.ClaimLead)
		authed.POST("/leads/:id/release", h.ReleaseLead)

		authed.POST("/transactions", h.RecordTransaction)
		authed.GET("/transactions", h.ListTransactions)
		authed.POST("/transactions/sweep", h.RunSweep)
		authed.GET("/transactions/:id", h.GetTransaction)
		authed.POST("/transactions/:id/transitions", h.TransitionTransaction)

		authed.POST("/payouts", h.RequestPayout)
		authed.GET("/payouts", h.ListPayouts)
		authed.GET("/payouts/:id", h.GetPayout)
		authed.POST("/payouts/:id/transitions", h.TransitionPayout)

		authed.POST("/disputes", h.OpenDispute)
		authed.GET("/disputes", h.ListDisputes)
		authed.GET("/disputes/:id", h.GetDispute)
		authed.POST("/disputes/:id/transitions", h.TransitionDispute)

		authed.POST("/accounts", h.RegisterAccount)
		authed.GET("/accounts/:id", h.GetAccount)
		authed.PUT("/accounts/:id/verification", h.SetVerification)
	}
}

// Start starts the HTTP server and blocks until ctx is done or the listener fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
