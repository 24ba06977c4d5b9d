// Package httpapi exposes the suggestion service over HTTP.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gyeh/codesuggest/internal/model"
	"github.com/gyeh/codesuggest/internal/suggest"
)

// MaxNoteBytes is the largest note accepted by POST /api/v1/suggest.
const MaxNoteBytes = 20000

// Service is the pipeline the server fronts.
type Service interface {
	Suggest(ctx context.Context, note string, topK int) model.SuggestResponse
	ValidateSelection(codes []string) suggest.SelectionResult
	Reload(ctx context.Context) model.Versions
	MetricsSnapshot() model.MetricsSnapshot
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// Gatherer backs GET /metrics. The route is not registered when nil.
	Gatherer prometheus.Gatherer
}

// Server provides the HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	service Service
	log     zerolog.Logger
	config  Config
}

// NewServer creates a server with its routes registered.
func NewServer(service Service, log zerolog.Logger, cfg Config) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		service: service,
		log:     log.With().Str("component", "http").Logger(),
		config:  cfg,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit("64K"))
	e.Use(s.accessLog)

	s.registerRoutes()
	return s, nil
}

func (s *Server) accessLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.log.Info().
			Str("method", c.Request().Method).
			Str("uri", c.Request().RequestURI).
			Int("status", c.Response().Status).
			Dur("duration", time.Since(start)).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Msg("http request")
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	if s.config.Gatherer != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.echo.Group("/api/v1")
	v1.POST("/suggest", s.handleSuggest)
	v1.POST("/selection/validate", s.handleValidateSelection)
	v1.POST("/admin/reload", s.handleReload)
	v1.GET("/metrics", s.handleMetrics)
}

// Echo returns the underlying router.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status   string         `json:"status"`
	Versions model.Versions `json:"versions"`
}

// SuggestRequest is the request body for POST /api/v1/suggest.
type SuggestRequest struct {
	Note string `json:"note"`
	TopK *int   `json:"top_k,omitempty"`
}

// SelectionRequest is the request body for POST /api/v1/selection/validate.
type SelectionRequest struct {
	Codes []string `json:"codes"`
}

// ReloadResponse is the response body for POST /api/v1/admin/reload.
type ReloadResponse struct {
	Versions model.Versions `json:"versions"`
}

// handleHealth reports "degraded" when a catalog collection failed to load.
func (s *Server) handleHealth(c echo.Context) error {
	snap := s.service.MetricsSnapshot()
	status := "ok"
	if snap.Versions.Degraded() {
		status = "degraded"
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: status, Versions: snap.Versions})
}

func (s *Server) handleSuggest(c echo.Context) error {
	var req SuggestRequest
	if err := c.Bind(&req); err != nil {
		s.log.Warn().Err(err).Msg("invalid suggest request")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Note) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "note field is required")
	}
	if len(req.Note) > MaxNoteBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("note exceeds %d bytes", MaxNoteBytes))
	}
	topK := 0
	if req.TopK != nil {
		if *req.TopK < 1 || *req.TopK > suggest.MaxTopK {
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("top_k must be between 1 and %d", suggest.MaxTopK))
		}
		topK = *req.TopK
	}

	resp := s.service.Suggest(c.Request().Context(), req.Note, topK)
	c.Response().Header().Set("X-Suggest-Request-Id", resp.Meta.RequestID)
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleValidateSelection(c echo.Context) error {
	var req SelectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Codes) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "codes field is required")
	}
	return c.JSON(http.StatusOK, s.service.ValidateSelection(req.Codes))
}

func (s *Server) handleReload(c echo.Context) error {
	v := s.service.Reload(c.Request().Context())
	s.log.Info().Str("items_version", v.Items).Str("rules_version", v.Rules).Msg("catalog reload requested")
	return c.JSON(http.StatusOK, ReloadResponse{Versions: v})
}

func (s *Server) handleMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.service.MetricsSnapshot())
}

// Start listens on the configured address. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.log.Info().Str("addr", addr).Msg("starting http server")
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down http server")
	return s.echo.Shutdown(ctx)
}
