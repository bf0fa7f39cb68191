package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// SearchShows handles GET /api/show/search.
//
// Query: title (substring), movieId, time ("upcoming" default or "any"),
// page (from 1) and pageSize (1..100, default 20).
func (h *ShowHandler) SearchShows(c echo.Context) error {
	timeFilter := strings.ToLower(strings.TrimSpace(c.QueryParam("time")))
	if timeFilter == "" {
		timeFilter = "upcoming"
	}
	if timeFilter != "upcoming" && timeFilter != "any" {
		return fail(c, http.StatusBadRequest, "time must be upcoming or any")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	ps, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if ps < 1 {
		ps = 20
	}
	if ps > 100 {
		ps = 100
	}

	q := repository.ShowSearchQuery{
		Title:      strings.TrimSpace(c.QueryParam("title")),
		MovieID:    strings.TrimSpace(c.QueryParam("movieId")),
		TimeFilter: timeFilter,
		Now:        h.now().UTC(),
		Page:       page,
		PageSize:   ps,
	}
	items, total, err := h.Shows.Search(c.Request().Context(), q)
	if err != nil {
		h.Log.Error("search shows failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "database error")
	}
	if items == nil {
		items = []*model.Show{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"shows":    items,
		"total":    total,
		"page":     page,
		"pageSize": ps,
	})
}
