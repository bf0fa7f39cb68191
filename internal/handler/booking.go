package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/reservation"
)

// Reserver is the part of the reservation engine the booking endpoints use.
type Reserver interface {
	RequestHold(ctx context.Context, showID string, seats []string, userID string) (*model.Booking, error)
	GetOccupiedSeats(ctx context.Context, showID string) ([]string, error)
}

// UserUpserter records the caller's contact details.
type UserUpserter interface {
	Upsert(ctx context.Context, u *model.User) error
}

// BookingLister lists a user's bookings with their shows.
type BookingLister interface {
	ListByUser(ctx context.Context, userID string) ([]model.BookingWithShow, error)
}

// BookingHandler serves seat holds, seat maps and the caller's bookings.
type BookingHandler struct {
	Engine   Reserver
	Users    UserUpserter
	Bookings BookingLister
	Log      *zap.Logger
}

// NewBookingHandler constructs a BookingHandler and panics if any dependency
// is nil.
func NewBookingHandler(engine Reserver, users UserUpserter, bookings BookingLister, log *zap.Logger) *BookingHandler {
	if engine == nil || users == nil || bookings == nil || log == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Engine: engine, Users: users, Bookings: bookings, Log: log.Named("booking")}
}

type createBookingRequest struct {
	ShowID        string   `json:"showId"`
	SelectedSeats []string `json:"selectedSeats"`
}

// CreateBooking handles POST /api/booking/create.  It holds the selected
// seats for the caller and answers with the checkout URL to redirect to.
// Seat labels are matched case-insensitively.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	req.ShowID = strings.TrimSpace(req.ShowID)
	if req.ShowID == "" {
		return fail(c, http.StatusBadRequest, "showId is required")
	}
	seats := make([]string, len(req.SelectedSeats))
	for i, s := range req.SelectedSeats {
		seats[i] = strings.ToUpper(strings.TrimSpace(s))
	}

	ctx := c.Request().Context()
	if id.Email != "" {
		if err := h.Users.Upsert(ctx, &model.User{ID: id.UserID, Email: id.Email, Name: id.Name}); err != nil {
			// only notifications depend on it
			h.Log.Warn("upsert user failed", zap.String("user_id", id.UserID), zap.Error(err))
		}
	}

	b, err := h.Engine.RequestHold(ctx, req.ShowID, seats, id.UserID)
	if err != nil {
		return h.holdFailed(c, b, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "url": b.PaymentURL, "bookingId": b.ID})
}

func (h *BookingHandler) holdFailed(c echo.Context, b *model.Booking, err error) error {
	status := statusFor(err)
	var conflict *reservation.SeatConflictError
	switch {
	case errors.As(err, &conflict):
		return c.JSON(status, echo.Map{
			"success": false,
			"message": "Selected seats are not available.",
			"seats":   conflict.Seats,
		})
	case status == http.StatusBadGateway && b != nil:
		// The seats stay held until the hold expires.
		return c.JSON(status, echo.Map{
			"success":   false,
			"message":   "payment is temporarily unavailable, try again shortly",
			"bookingId": b.ID,
		})
	case status == http.StatusInternalServerError:
		h.Log.Error("request hold failed", zap.Error(err))
		return fail(c, status, "could not create booking")
	default:
		return fail(c, status, err.Error())
	}
}

// OccupiedSeats handles GET /api/booking/seats/:showId.
func (h *BookingHandler) OccupiedSeats(c echo.Context) error {
	seats, err := h.Engine.GetOccupiedSeats(c.Request().Context(), c.Param("showId"))
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.Log.Error("load occupied seats failed", zap.Error(err))
			return fail(c, status, "database error")
		}
		return fail(c, status, err.Error())
	}
	if seats == nil {
		seats = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "occupiedSeats": seats})
}

// UserBookings handles GET /api/user/bookings, newest first.
func (h *BookingHandler) UserBookings(c echo.Context) error {
	userID := middleware.CurrentUserID(c)
	if userID == "" {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	list, err := h.Bookings.ListByUser(c.Request().Context(), userID)
	if err != nil {
		h.Log.Error("list bookings failed", zap.String("user_id", userID), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "database error")
	}
	if list == nil {
		list = []model.BookingWithShow{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "bookings": list})
}
