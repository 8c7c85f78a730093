package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shiv122/brand-detector/internal/config"
	"github.com/shiv122/brand-detector/internal/detector"
	"github.com/shiv122/brand-detector/internal/logger"
	"github.com/shiv122/brand-detector/internal/pipeline"
)

// Server is the HTTP API for image and video detection
type Server struct {
	config     *config.Config
	logger     *logger.Logger
	httpServer *http.Server
	router     *gin.Engine

	settings *config.Settings
	registry *detector.Registry
	client   *detector.Client
	pipeline *pipeline.Pipeline

	version   string
	startTime time.Time
}

// Dependencies are the services the API surfaces
type Dependencies struct {
	Settings *config.Settings
	Registry *detector.Registry
	Client   *detector.Client
	Pipeline *pipeline.Pipeline
}

// NewServer creates the web server with its routes registered
func NewServer(cfg *config.Config, deps Dependencies, log *logger.Logger) *Server {
	// Release mode by default; debug can be enabled via GIN_MODE
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	s := &Server{
		config:    cfg,
		logger:    log,
		router:    router,
		settings:  deps.Settings,
		registry:  deps.Registry,
		client:    deps.Client,
		pipeline:  deps.Pipeline,
		version:   "dev",
		startTime: time.Now(),
	}
	s.setupRoutes()
	return s
}

// SetVersion sets the application version reported by the root endpoint
func (s *Server) SetVersion(version string) {
	s.version = version
}

// Start starts the web server
func (s *Server) Start(ctx context.Context) error {
	// WriteTimeout and IdleTimeout stay disabled: the video endpoint
	// streams events for as long as a pipeline run takes.
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  0,
	}

	go func() {
		s.logger.Info("Starting web server", "address", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Web server error", "error", err, "address", addr)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(100 * time.Millisecond):
		s.logger.Info("Web server started", "address", addr)
		return nil
	}
}

// Stop shuts the web server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("Stopping web server")
	return s.httpServer.Shutdown(ctx)
}

// setupRoutes sets up all API routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/", s.handleRoot)
		api.GET("/health", s.handleHealth)
		api.GET("/device", s.handleDevice)

		api.GET("/config", s.handleGetConfig)
		api.POST("/config", s.handleUpdateConfig)

		api.GET("/weights", s.handleListWeights)
		api.POST("/weights/switch", s.handleSwitchWeight)

		api.POST("/images/detect", s.handleDetectImages)
		api.POST("/video/detect", s.handleDetectVideo)
	}

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Sampled frame previews and processed videos
	s.router.Static("/static", s.config.Storage.StaticDir)
}

// ginLogger creates a Gin middleware for logging
func ginLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", latency,
			"client_ip", c.ClientIP(),
		)
	}
}

// corsMiddleware creates a CORS middleware for browser clients
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
