package handler

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// ShowCatalog is the show persistence used by ShowHandler.
type ShowCatalog interface {
	GetByID(ctx context.Context, id string) (*model.Show, error)
	ListUpcoming(ctx context.Context, now time.Time, limit int) ([]*model.Show, error)
	CreateBatch(ctx context.Context, shows []*model.Show) error
	UpdatePrice(ctx context.Context, id string, price model.Cents) error
	Search(ctx context.Context, q repository.ShowSearchQuery) ([]*model.Show, int64, error)
}

// ShowAnnouncer publishes new-show events.
type ShowAnnouncer interface {
	PublishShowAdded(ctx context.Context, ev queue.ShowAddedEvent) error
}

const upcomingLimit = 200

// ShowHandler serves show browsing and the admin show endpoints.
type ShowHandler struct {
	Shows  ShowCatalog
	Events ShowAnnouncer
	Log    *zap.Logger
	now    func() time.Time
}

// NewShowHandler constructs a ShowHandler and panics if any dependency is nil.
func NewShowHandler(shows ShowCatalog, events ShowAnnouncer, log *zap.Logger) *ShowHandler {
	if shows == nil || events == nil || log == nil {
		panic("nil dependency passed to NewShowHandler")
	}
	return &ShowHandler{Shows: shows, Events: events, Log: log.Named("show"), now: time.Now}
}

// ListShows handles GET /api/show/all and returns shows that have not
// started yet, soonest first.
func (h *ShowHandler) ListShows(c echo.Context) error {
	shows, err := h.Shows.ListUpcoming(c.Request().Context(), h.now().UTC(), upcomingLimit)
	if err != nil {
		h.Log.Error("list shows failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "database error")
	}
	if shows == nil {
		shows = []*model.Show{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "shows": shows})
}

// GetShow handles GET /api/show/:id.
func (h *ShowHandler) GetShow(c echo.Context) error {
	s, err := h.Shows.GetByID(c.Request().Context(), c.Param("id"))
	if errors.Is(err, repository.ErrShowNotFound) {
		return fail(c, http.StatusNotFound, "show not found")
	}
	if err != nil {
		h.Log.Error("get show failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "database error")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "show": s})
}

type showInput struct {
	Date  string   `json:"date"`
	Times []string `json:"time"`
}

type addShowRequest struct {
	MovieID    string      `json:"movieId"`
	MovieTitle string      `json:"movieTitle"`
	ShowsInput []showInput `json:"showsInput"`
	ShowPrice  *float64    `json:"showPrice"`
}

// AddShow handles POST /api/show/add.  Each date/time pair becomes one show
// with an empty seat map.  Dates are YYYY-MM-DD and times HH:MM, in UTC.
func (h *ShowHandler) AddShow(c echo.Context) error {
	var req addShowRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	req.MovieID = strings.TrimSpace(req.MovieID)
	req.MovieTitle = strings.TrimSpace(req.MovieTitle)
	if req.MovieID == "" {
		return fail(c, http.StatusBadRequest, "movieId is required")
	}
	if req.MovieTitle == "" {
		req.MovieTitle = req.MovieID
	}
	price, ok := toCents(req.ShowPrice)
	if !ok {
		return fail(c, http.StatusBadRequest, priceMessage)
	}

	starts, err := parseShowTimes(req.ShowsInput)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	now := h.now().UTC()
	if starts[0].Before(now) {
		return fail(c, http.StatusBadRequest, "show times must be in the future")
	}

	shows := make([]*model.Show, 0, len(starts))
	ids := make([]string, 0, len(starts))
	for _, at := range starts {
		s := &model.Show{
			ID:            uuid.NewString(),
			MovieID:       req.MovieID,
			MovieTitle:    req.MovieTitle,
			StartsAt:      at,
			PriceCents:    price,
			OccupiedSeats: map[string]string{},
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		shows = append(shows, s)
		ids = append(ids, s.ID)
	}

	ctx := c.Request().Context()
	if err := h.Shows.CreateBatch(ctx, shows); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fail(c, http.StatusConflict, "a show for this movie already exists at one of these times")
		}
		h.Log.Error("create shows failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "database error")
	}

	ev := queue.ShowAddedEvent{
		MovieID:    req.MovieID,
		MovieTitle: req.MovieTitle,
		ShowIDs:    ids,
		StartsAt:   starts,
		PriceCents: int64(price),
		AddedAt:    now,
	}
	if err := h.Events.PublishShowAdded(context.WithoutCancel(ctx), ev); err != nil {
		h.Log.Warn("publish show added failed", zap.String("movie_id", req.MovieID), zap.Error(err))
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "message": "Show Added successfully.", "showIds": ids})
}

type updatePriceRequest struct {
	ShowPrice *float64 `json:"showPrice"`
}

// UpdatePrice handles PATCH /api/show/:id/price.  Existing bookings keep the
// amount computed when they were made.
func (h *ShowHandler) UpdatePrice(c echo.Context) error {
	var req updatePriceRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	price, ok := toCents(req.ShowPrice)
	if !ok {
		return fail(c, http.StatusBadRequest, priceMessage)
	}
	err := h.Shows.UpdatePrice(c.Request().Context(), c.Param("id"), price)
	if errors.Is(err, repository.ErrShowNotFound) {
		return fail(c, http.StatusNotFound, "show not found")
	}
	if err != nil {
		h.Log.Error("update price failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "database error")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

var priceMessage = "showPrice must be a number between 0 and " + model.MaxPriceCents.Decimal()

// toCents converts a decimal price to cents within the allowed range.
func toCents(p *float64) (model.Cents, bool) {
	if p == nil {
		return 0, false
	}
	c, err := model.CentsFromDecimal(*p)
	return c, err == nil
}

// parseShowTimes flattens the date/time groups into sorted, distinct instants.
func parseShowTimes(in []showInput) ([]time.Time, error) {
	seen := make(map[time.Time]bool)
	var out []time.Time
	for _, g := range in {
		for _, t := range g.Times {
			at, err := time.ParseInLocation("2006-01-02 15:04", strings.TrimSpace(g.Date)+" "+strings.TrimSpace(t), time.UTC)
			if err != nil {
				return nil, errors.New("invalid date or time: " + g.Date + " " + t)
			}
			if !seen[at] {
				seen[at] = true
				out = append(out, at)
			}
		}
	}
	if len(out) == 0 {
		return nil, errors.New("showsInput must contain at least one time")
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}
