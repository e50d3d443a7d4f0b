package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/search"
)

type searchRequest struct {
	Title  string      `json:"title"`
	Author string      `json:"author"`
	Mode   search.Mode `json:"mode"`
}

func (s *Server) handleSearch(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	outcome, err := s.search.SearchForAudiobook(c.Request().Context(), req.Title, req.Author, req.Mode)
	if err != nil {
		if errors.Is(err, search.ErrEmptyQuery) {
			return c.JSON(http.StatusBadRequest, outcome)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, outcome)
}

func (s *Server) handleHistory(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"outcomes": s.search.History(),
	})
}

func (s *Server) handleSearchTest(c echo.Context) error {
	return c.JSON(http.StatusOK, s.search.TestSearchFunctionality(c.Request().Context()))
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.search.Status())
}

func (s *Server) handleIndexers(c echo.Context) error {
	return c.JSON(http.StatusOK, s.manager.Status())
}

func (s *Server) handleTestIndexers(c echo.Context) error {
	return c.JSON(http.StatusOK, s.manager.TestAll(c.Request().Context()))
}

func (s *Server) handleReloadIndexers(c echo.Context) error {
	if err := s.manager.Reload(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, s.manager.Status())
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
