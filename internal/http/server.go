// Package http serves health, Prometheus metrics, update status and a JSON
// search API for ragmemory.
package http

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

	"github.com/fyrsmithlabs/ragmemory/internal/ingest"
	"github.com/fyrsmithlabs/ragmemory/internal/search"
	"github.com/fyrsmithlabs/ragmemory/internal/updater"
	"github.com/fyrsmithlabs/ragmemory/internal/vectorstore"
)

// UpdateStatus reports the last update run.
type UpdateStatus interface {
	Last() *updater.Summary
}

// Server provides the HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	search  *search.Service
	updates UpdateStatus
	logger  *zap.Logger
	config  *Config
}

// Config holds HTTP server configuration.
type Config struct {
	// Addr is the listen address (default: "localhost:9090").
	Addr string

	Version string

	// DefaultCollection, DefaultTopK and MaxTopK apply to search requests.
	DefaultCollection string
	DefaultTopK       int
	MaxTopK           int
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:9090"
	}
	if c.DefaultCollection == "" {
		c.DefaultCollection = "chatgpt_conversations"
	}
	if c.MaxTopK <= 0 {
		c.MaxTopK = 10
	}
	if c.DefaultTopK <= 0 {
		c.DefaultTopK = 3
	}
	if c.DefaultTopK > c.MaxTopK {
		c.DefaultTopK = c.MaxTopK
	}
}

// NewServer creates a new HTTP server. updates may be nil when no updater
// runs in the process.
func NewServer(svc *search.Service, updates UpdateStatus, logger *zap.Logger, cfg *Config) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("search service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	c := *cfg
	c.applyDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:    e,
		search:  svc,
		updates: updates,
		logger:  logger,
		config:  &c,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/status", s.handleStatus)
	v1.GET("/collections", s.handleCollections)
	v1.POST("/search", s.handleSearch)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleStatus reports collections and the last update. An unreachable
// index degrades the status instead of failing the request.
func (s *Server) handleStatus(c echo.Context) error {
	resp := StatusResponse{Status: "ok", Version: s.config.Version}

	infos, err := s.search.Collections(c.Request().Context())
	if err != nil {
		s.logger.Warn("status: listing collections failed", zap.Error(err))
		resp.Status = "degraded"
	} else {
		resp.Collections = infos
	}
	if s.updates != nil {
		resp.LastUpdate = s.updates.Last()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCollections(c echo.Context) error {
	infos, err := s.search.Collections(c.Request().Context())
	if err != nil {
		return s.searchError(err)
	}
	if infos == nil {
		infos = []vectorstore.CollectionInfo{}
	}
	return c.JSON(http.StatusOK, CollectionsResponse{Collections: infos})
}

func (s *Server) handleSearch(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid search request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	collection := req.Collection
	if collection == "" {
		collection = s.config.DefaultCollection
	}
	topK := s.config.DefaultTopK
	if req.TopK != nil {
		topK = max(1, min(*req.TopK, s.config.MaxTopK))
	}

	results, err := s.search.Search(c.Request().Context(), req.Query, collection, topK)
	if err != nil {
		return s.searchError(err)
	}

	resp := SearchResponse{
		Query:      req.Query,
		Collection: collection,
		TopK:       topK,
		Results:    make([]SearchHit, len(results)),
	}
	for i, r := range results {
		resp.Results[i] = SearchHit{
			Rank:              i + 1,
			Score:             r.Score,
			ID:                r.ID.String(),
			Text:              r.Chunk.Text,
			ConversationID:    r.Chunk.ConversationID,
			ConversationTitle: r.Chunk.ConversationTitle,
			Source:            string(r.Chunk.Source),
			Timestamp:         r.Chunk.Timestamp,
			ChunkIndex:        r.Chunk.Index,
			MessageIDs:        r.Chunk.MessageIDs,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// searchError maps the error taxonomy onto HTTP status codes.
func (s *Server) searchError(err error) error {
	switch {
	case errors.Is(err, search.ErrEmptyQuery), errors.Is(err, search.ErrInvalidTopK),
		errors.Is(err, vectorstore.ErrInvalidCollectionName):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, vectorstore.ErrCollectionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ingest.ErrEmbedding), errors.Is(err, ingest.ErrIndex):
		s.logger.Warn("search backend failure", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("search failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.config.Addr))
	if err := s.echo.Start(s.config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
