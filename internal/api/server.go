// Package api provides the HTTP API for crucible.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cruciblelabs/crucible/internal/evaluate"
	"github.com/cruciblelabs/crucible/internal/pipeline"
)

// Pipeline is the engine surface the API exposes.
type Pipeline interface {
	Start(description string) (*pipeline.Run, error)
	Status(id string) (*pipeline.Run, error)
	Stop(id string) (*pipeline.Run, error)
	Report(id string) (*evaluate.Report, error)
}

// Server provides HTTP endpoints for crucible.
type Server struct {
	echo     *echo.Echo
	pipeline Pipeline
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(p Pipeline, logger *zap.Logger, cfg *Config) (*Server, error) {
	if p == nil {
		return nil, fmt.Errorf("pipeline cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		pipeline: p,
		logger:   logger,
		config:   cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/workflows", s.handleStart)
	v1.GET("/workflows/:id", s.handleStatus)
	v1.POST("/workflows/:id/stop", s.handleStop)
	v1.GET("/workflows/:id/report", s.handleReport)
}

// StartRequest is the request body for POST /api/v1/workflows.
type StartRequest struct {
	Description string `json:"description"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleStart(c echo.Context) error {
	var req StartRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid workflow request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	run, err := s.pipeline.Start(req.Description)
	if err != nil {
		s.logger.Error("starting workflow", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "could not start workflow")
	}

	s.logger.Info("workflow started", zap.String("workflow_id", run.ID))
	return c.JSON(http.StatusAccepted, run)
}

func (s *Server) handleStatus(c echo.Context) error {
	run, err := s.pipeline.Status(c.Param("id"))
	if err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "unknown workflow")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not load workflow")
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) handleStop(c echo.Context) error {
	run, err := s.pipeline.Stop(c.Param("id"))
	if err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "unknown workflow")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not stop workflow")
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) handleReport(c echo.Context) error {
	rep, err := s.pipeline.Report(c.Param("id"))
	if err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "unknown workflow")
		}
		if errors.Is(err, pipeline.ErrNoReport) {
			return echo.NewHTTPError(http.StatusNotFound, "no report yet")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not load report")
	}
	return c.JSON(http.StatusOK, rep)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
