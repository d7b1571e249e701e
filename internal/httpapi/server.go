// Package httpapi exposes a small read-only status API over the posting
// ledger. It never triggers pipeline runs; posting stays in the CLI.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/agentwire/internal/db"
	"horse.fit/agentwire/internal/globaltime"
	"horse.fit/agentwire/internal/ledger"
)

const (
	defaultPostsLimit = 25
	maxPostsLimit     = 200
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	pool   *db.Pool
	ledger *ledger.Ledger
	logger zerolog.Logger
	opts   Options
}

type postItem struct {
	Fingerprint    string    `json:"fingerprint"`
	CanonicalURL   string    `json:"canonical_url"`
	Title          string    `json:"title"`
	Source         string    `json:"source"`
	Domain         string    `json:"domain,omitempty"`
	PublishedAt    time.Time `json:"published_at"`
	PostedAt       time.Time `json:"posted_at"`
	RelevanceScore float64   `json:"relevance_score"`
}

func NewServer(pool *db.Pool, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		pool:   pool,
		ledger: ledger.New(pool, logger),
		logger: logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.buildEcho()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("agentwire status server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("agentwire status server stopped")
	return nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Info()
			if v.Error != nil {
				event = s.logger.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)
	api.GET("/posts", s.handlePosts)

	return e
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.pool.Ping(c.Request().Context()); err != nil {
		s.logger.Error().Err(err).Msg("health check ping failed")
		return internalError(c, "Database unreachable")
	}
	return success(c, map[string]any{
		"service": "agentwire",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.ledger.QueryStats(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query ledger stats failed")
		return internalError(c, "Failed to load stats")
	}
	return success(c, stats)
}

func (s *Server) handlePosts(c echo.Context) error {
	limit := defaultPostsLimit
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return fail(c, http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}
	if limit > maxPostsLimit {
		limit = maxPostsLimit
	}

	rows, err := s.ledger.Recent(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("query recent posts failed")
		return internalError(c, "Failed to load recent posts")
	}

	items := make([]postItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, postItem{
			Fingerprint:    row.Fingerprint,
			CanonicalURL:   row.CanonicalURL,
			Title:          row.Title,
			Source:         row.Source,
			Domain:         row.Domain,
			PublishedAt:    row.PublishedAt,
			PostedAt:       row.PostedAt,
			RelevanceScore: row.RelevanceScore,
		})
	}

	return success(c, map[string]any{
		"items": items,
	})
}
