// Package httpapi exposes the progression engine over HTTP: a completion
// event intake endpoint for platform services and read endpoints for UI
// collaborators.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/pianova-hub/piano-progression-hub/config"
	"github.com/pianova-hub/piano-progression-hub/pkg/logger"
)

// Server wraps the echo router with lifecycle management.
type Server struct {
	echo *echo.Echo
	cfg  config.HTTPConfig
	log  *logger.Logger
}

// NewServer creates the HTTP server and mounts all routes.
func NewServer(cfg config.HTTPConfig, api *ProgressionAPI, health *HealthAPI, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger(log))
	e.HTTPErrorHandler = errorHandler(log)

	health.Register(e)

	v1 := e.Group("/api/v1")
	api.Register(v1)

	return &Server{echo: e, cfg: cfg, log: log}
}

// Start begins serving. Blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("http server starting", logger.String("addr", s.cfg.Addr()))

	s.echo.Server.ReadTimeout = s.cfg.ReadTimeout
	s.echo.Server.WriteTimeout = s.cfg.WriteTimeout
	s.echo.Server.IdleTimeout = s.cfg.IdleTimeout

	err := s.echo.Start(s.cfg.Addr())
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(ctx)
}

// requestLogger logs one line per request with method, path, status and latency.
func requestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			log.Info("http request",
				logger.String("method", c.Request().Method),
				logger.String("path", c.Request().URL.Path),
				logger.Int("status", c.Response().Status),
				logger.Latency(time.Since(start)),
			)
			return nil
		}
	}
}
