// Package server exposes the analysis pipeline as a JSON HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nvoss/leakscope/internal/analysis"
	"github.com/nvoss/leakscope/internal/ingest"
	"github.com/nvoss/leakscope/internal/report"
	"github.com/nvoss/leakscope/internal/repository"
)

// Config holds HTTP server configuration.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// LiveMonitoring gates the run-history endpoints. It is an explicit
	// capability handed in at construction, not ambient subscription state.
	LiveMonitoring bool
}

// Server is the HTTP adapter over the analysis stages.
type Server struct {
	config     Config
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	logger     *zap.Logger
}

// Deps bundles the stage and storage dependencies of the HTTP surface.
type Deps struct {
	Classifier   *analysis.Classifier
	Extractor    *analysis.Extractor
	Reconciler   *analysis.Reconciler
	Orchestrator *analysis.Orchestrator
	Chat         *analysis.ChatStage
	Reader       *ingest.Reader
	Excel        *report.ExcelWriter
	Runs         *repository.RunRepository
}

// New creates the HTTP server and wires middleware and routes.
func New(cfg Config, deps Deps, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		config:   cfg,
		router:   router,
		handlers: NewHandlers(deps, cfg.LiveMonitoring, logger),
		logger:   logger,
	}

	router.Use(gin.Recovery())
	router.Use(s.loggingMiddleware())
	router.Use(corsMiddleware())

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handlers.HealthCheck)

	api := s.router.Group("/api/v1")
	{
		api.POST("/classify", s.handlers.Classify)
		api.POST("/extract", s.handlers.Extract)
		api.POST("/reconcile", s.handlers.Reconcile)
		api.POST("/reconcile/export", s.handlers.ExportReconciliation)
		api.POST("/analyze", s.handlers.AnalyzeBatch)
		api.POST("/ingest", s.handlers.Ingest)
		api.POST("/chat", s.handlers.Chat)
		api.GET("/runs", s.handlers.ListRuns)
		api.GET("/runs/:id", s.handlers.GetRun)
	}
}

// Start begins serving. Blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the underlying handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// corsMiddleware adds permissive CORS headers and answers preflight requests
// with an empty body.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
