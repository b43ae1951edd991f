package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"PulseWatch/internal/backend/dependencies"
	"PulseWatch/internal/backend/handlers"
	"PulseWatch/pkg/uuidutil"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	router     *gin.Engine
	config     *Config
	container  *dependencies.Container
	handlers   *handlers.Handlers
	httpServer *http.Server
	logger     *slog.Logger
}

type Config struct {
	Port    int
	Mode    string
	Version string
}

// New создает сервер с dependency injection
func New(config *Config, container *dependencies.Container) *Server {
	if config.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := container.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := &Server{
		router:    gin.New(),
		config:    config,
		container: container,
		handlers:  handlers.NewHandlers(container),
		logger:    logger.With("component", "server"),
	}

	server.setupMiddlewares()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddlewares() {
	// Recovery middleware
	s.router.Use(gin.Recovery())

	// Logger middleware
	s.router.Use(s.loggerMiddleware())

	// CORS middleware
	s.router.Use(s.corsMiddleware())

	// Request ID middleware
	s.router.Use(s.requestIDMiddleware())
}

func (s *Server) setupRoutes() {
	// Health checks
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/ready", s.readyCheck)

	// Prometheus
	if s.container.Telemetry != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.container.Telemetry.Registry(), promhttp.HandlerOpts{})))
	}

	// API v1 group
	api := s.router.Group("/api/v1")
	{
		api.GET("/intervals", s.handlers.ListIntervals)

		owned := api.Group("")
		owned.Use(s.handlers.OwnerMiddleware())

		// Monitors routes
		monitors := owned.Group("/monitors")
		{
			monitors.POST("", s.handlers.CreateMonitor)
			monitors.GET("", s.handlers.ListMonitors)
			monitors.GET("/:id", s.handlers.GetMonitor)
			monitors.DELETE("/:id", s.handlers.DeleteMonitor)
			monitors.POST("/:id/pause", s.handlers.PauseMonitor)
			monitors.POST("/:id/resume", s.handlers.ResumeMonitor)
			monitors.PUT("/:id/interval", s.handlers.UpdateInterval)
			monitors.GET("/:id/assertions", s.handlers.GetAssertions)
			monitors.PUT("/:id/assertions", s.handlers.UpdateAssertions)
			monitors.GET("/:id/metrics", s.handlers.GetMetrics)

			monitors.GET("/:id/slo", s.handlers.GetSLOConfig)
			monitors.PUT("/:id/slo", s.handlers.UpdateSLOConfig)
			monitors.GET("/:id/slo/summary", s.handlers.GetSLOSummary)

			monitors.POST("/:id/maintenance", s.handlers.CreateMaintenance)
			monitors.GET("/:id/maintenance", s.handlers.ListMaintenance)

			monitors.GET("/:id/incidents", s.handlers.ListIncidents)
		}

		// Maintenance routes
		owned.POST("/maintenance/:window_id/cancel", s.handlers.CancelMaintenance)

		// Incidents routes
		incidents := owned.Group("/incidents")
		{
			incidents.GET("", s.handlers.ListIncidents)
			incidents.POST("/hide", s.handlers.HideIncident)
		}

		// Engine routes (для оператора)
		engine := api.Group("/engine")
		{
			engine.GET("/telemetry", s.handlers.GetTelemetry)
			engine.GET("/failsafe", s.handlers.GetFailsafe)
			engine.POST("/failsafe/reset", s.handlers.ResetFailsafe)
			engine.POST("/validate-target", s.handlers.ValidateTarget)
		}
	}

	// WebSocket routes
	ws := s.router.Group("/ws")
	{
		ws.GET("/transitions", s.handlers.TransitionsWebSocket)
	}

	// 404 handler
	s.router.NoRoute(s.notFoundHandler)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   "pulsewatch",
		"version":   s.config.Version,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) readyCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	// Проверяем подключение к БД
	if err := s.container.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"error":  "Database not connected",
		})
		return
	}

	failsafe := s.container.Failsafe != nil && s.container.Failsafe.Triggered()

	c.JSON(http.StatusOK, gin.H{
		"status":             "ready",
		"storage":            s.container.Config.Storage.Driver,
		"failsafe_triggered": failsafe,
		"timestamp":          time.Now().UTC(),
	})
}

func (s *Server) notFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":   "not_found",
		"message": "Endpoint not found",
		"path":    c.Request.URL.Path,
	})
}

func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// Продолжаем обработку
		c.Next()

		// Логируем после обработки
		latency := time.Since(start)
		statusCode := c.Writer.Status()

		if query != "" {
			path = path + "?" + query
		}

		level := slog.LevelInfo
		if statusCode >= 400 {
			level = slog.LevelWarn
		}
		if statusCode >= 500 {
			level = slog.LevelError
		}

		s.logger.Log(c.Request.Context(), level, "HTTP request",
			"status", statusCode,
			"method", c.Request.Method,
			"path", path,
			"ip", c.ClientIP(),
			"latency", latency,
			"request_id", c.GetString("request_id"),
			"error", c.Errors.ByType(gin.ErrorTypePrivate).String(),
		)
	}
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, "+handlers.OwnerHeader)
		c.Header("Access-Control-Expose-Headers", "X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" || len(requestID) > 128 {
			requestID = uuidutil.New()
		}

		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// Start запускает HTTP сервер
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// Без WriteTimeout: websocket соединения живут долго
		IdleTimeout: 60 * time.Second,
	}

	s.logger.Info("Starting HTTP server",
		"port", s.config.Port,
		"mode", s.config.Mode,
		"address", addr,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown выполняет graceful shutdown сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// GetRouter возвращает router для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
