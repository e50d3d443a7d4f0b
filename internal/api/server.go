// Package api exposes the search federation over HTTP with echo.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer"
	"github.com/TheDragonShaman/AuralArchive-sub002/internal/search"
)

// Server handles HTTP requests for the AuralArchive API.
type Server struct {
	echo    *echo.Echo
	logger  zerolog.Logger
	search  *search.Service
	manager *indexer.Manager
}

// NewServer wires the API around the search service and indexer manager.
func NewServer(searchSvc *search.Service, manager *indexer.Manager, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		logger:  logger.With().Str("component", "api").Logger(),
		search:  searchSvc,
		manager: manager,
	}

	e.Use(middleware.Recover())
	e.Use(s.requestLogger())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.echo.Group("/api")
	api.POST("/search", s.handleSearch)
	api.GET("/search/history", s.handleHistory)
	api.POST("/search/test", s.handleSearchTest)
	api.GET("/status", s.handleStatus)
	api.GET("/indexers", s.handleIndexers)
	api.POST("/indexers/test", s.handleTestIndexers)
	api.POST("/indexers/reload", s.handleReloadIndexers)
	s.echo.GET("/healthz", s.handleHealthz)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			evt := s.logger.Debug()
			if v.Error != nil || v.Status >= 500 {
				evt = s.logger.Warn().Err(v.Error)
			}
			evt.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Msg("Request")
			return nil
		},
	})
}

// Start begins serving on addr and blocks until shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("API server starting")
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
