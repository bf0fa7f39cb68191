package handler // handler defines http handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/reservation"
)

// fail writes the error envelope used by every endpoint.
func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}

// statusFor maps engine errors onto HTTP status codes.  Anything it does not
// recognise is a 500.
func statusFor(err error) int {
	switch {
	case reservation.IsInvalidInput(err):
		return http.StatusBadRequest
	case reservation.IsNotFound(err):
		return http.StatusNotFound
	case reservation.IsConflict(err):
		return http.StatusConflict
	case reservation.IsUpstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems to verify that the service is running.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
