// Package http provides the HTTP API for sectiond.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sectiond/internal/engine"
)

// Server provides HTTP endpoints for sectiond.
type Server struct {
	echo   *echo.Echo
	engine *engine.Engine
	logger *zap.Logger
	config *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host           string
	Port           int
	MaxUploadBytes int64
}

// NewServer creates a new HTTP server.
func NewServer(eng *engine.Engine, logger *zap.Logger, cfg *Config) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host:           "localhost",
			Port:           9090,
			MaxUploadBytes: 64 << 20,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if cfg.MaxUploadBytes > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%d", cfg.MaxUploadBytes)))
	}
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
		echo:   e,
		engine: eng,
		logger: logger,
		config: cfg,
	}

	// Register routes
	s.registerRoutes()

	return s, nil
}

// Echo exposes the underlying echo instance for extra route registration
// (metrics handler in the daemon wiring).
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	// Health check
	s.echo.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")
	v1.POST("/process", s.handleProcess)
	v1.POST("/similar", s.handleSimilar)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleProcess ingests the uploaded documents and ranks their sections
// against the persona/job query.
//
// Page numbers in the response are 0-based; any 1-based display adjustment
// belongs to the presentation layer.
func (s *Server) handleProcess(c echo.Context) error {
	persona := c.FormValue("persona")
	job := c.FormValue("job_to_be_done")
	if job == "" {
		job = c.FormValue("job")
	}

	form, err := c.MultipartForm()
	if err != nil {
		s.logger.Warn("invalid process request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "multipart form required")
	}

	files := form.File["documents"]
	if len(files) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no documents provided")
	}

	docs := make([]engine.DocumentInput, 0, len(files))
	for _, fh := range files {
		data, err := readUpload(fh)
		if err != nil {
			s.logger.Warn("failed to read upload",
				zap.String("document", fh.Filename),
				zap.Error(err))
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("reading %s: %v", fh.Filename, err))
		}
		docs = append(docs, engine.DocumentInput{Name: fh.Filename, Data: data})
	}

	result, err := s.engine.Process(c.Request().Context(), docs, persona, job)
	if err != nil {
		return s.mapError(err)
	}

	return c.JSON(http.StatusOK, newProcessResponse(result))
}

// handleSimilar ranks indexed sections by closeness to the given text.
func (s *Server) handleSimilar(c echo.Context) error {
	var req SimilarRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid similar request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text field is required")
	}

	results, err := s.engine.FindSimilar(c.Request().Context(), req.Text)
	if err != nil {
		return s.mapError(err)
	}

	// An empty list is a meaningful answer (nothing above the similarity
	// floor), not an error.
	return c.JSON(http.StatusOK, results)
}

// mapError translates engine errors to HTTP status codes.
func (s *Server) mapError(err error) error {
	switch {
	case errors.Is(err, engine.ErrInvalidQuery):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrNoCorpus):
		return echo.NewHTTPError(http.StatusConflict, "no corpus indexed; call process first")
	default:
		s.logger.Error("request failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// readUpload reads one multipart file into memory.
func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
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
