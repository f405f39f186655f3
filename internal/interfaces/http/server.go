// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/auth"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	// MaxBodyBytes caps multipart uploads held in memory
	MaxBodyBytes int64
	Version      string
	Impact       ImpactConfig
	// IngestToken is the shared bearer token remote wizard hosts send with
	// POST /submissions. Empty refuses every ingest request.
	IngestToken string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		MaxBodyBytes: 8 << 20,
		Version:      "dev",
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	tokens     *auth.Tokens
	logger     Logger
}

// NewServer creates a new HTTP server with the given services. tokens may be
// nil, which leaves every admin endpoint answering 401.
func NewServer(config ServerConfig, services Services, tokens *auth.Tokens, logger Logger) *Server {
	// Set gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	if config.MaxBodyBytes > 0 {
		router.MaxMultipartMemory = config.MaxBodyBytes
	}

	server := &Server{
		config:   config,
		router:   router,
		handlers: NewHandlers(services, config.Impact, config.Version, logger),
		tokens:   tokens,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	// Locale first so the access log and every handler see it
	s.router.Use(localeMiddleware())
	s.router.Use(s.loggingMiddleware())
	if len(s.config.AllowedOrigins) > 0 {
		s.router.Use(corsMiddleware(s.config.AllowedOrigins))
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api/v1")
	{
		api.GET("/flows", h.ListFlows)
		api.GET("/i18n/messages", h.Messages)
		api.PUT("/locale", h.SetLocale)

		wizards := api.Group("/wizards")
		{
			wizards.POST("", h.StartWizard)
			wizards.GET("/:id", h.GetWizard)
			wizards.DELETE("/:id", h.CloseWizard)
			wizards.POST("/:id/advance", h.AdvanceWizard)
			wizards.POST("/:id/retreat", h.RetreatWizard)
			wizards.POST("/:id/skip", h.SkipStep)
			wizards.PATCH("/:id/fields", h.SetFields)
			wizards.POST("/:id/code", h.ResendCode)
			wizards.POST("/:id/attachments", h.AddAttachment)
			wizards.PUT("/:id/attachments/:att", h.ReplaceAttachment)
			wizards.DELETE("/:id/attachments/:att", h.RemoveAttachment)
			wizards.POST("/:id/submit", h.SubmitWizard)
			wizards.GET("/:id/receipt", h.WizardReceipt)
			wizards.POST("/:id/receipt/retry", h.RetryWizardReceipt)
		}

		api.POST("/submissions", s.ingestMiddleware(), h.CreateSubmission)
		api.GET("/submissions/:ref", h.GetSubmission)

		api.GET("/receipts/:ref", h.GetReceipt)
		api.GET("/receipts/:ref/download", h.DownloadReceipt)
		api.POST("/receipts/:ref/retry", h.RetryReceipt)

		api.GET("/content/testimonials", h.ListTestimonials)
		api.GET("/content/milestones", h.ListMilestones)
		api.GET("/content/impact-metrics", h.ListImpactMetrics)
		api.GET("/pages/:slug", h.GetPage)
		api.GET("/impact/stream", h.ImpactStream)

		admin := api.Group("/admin", s.adminMiddleware())
		{
			admin.POST("/content/:kind", h.SaveContent)
			admin.PUT("/content/:kind/:id", h.SaveContent)
			admin.DELETE("/content/:kind/:id", h.DeleteContent)
			admin.GET("/submissions", h.ListSubmissions)
			admin.GET("/submissions/:ref", h.GetSubmissionDetail)
			admin.PATCH("/submissions/:ref", h.ReviewSubmission)
		}
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// listener fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or error
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
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
