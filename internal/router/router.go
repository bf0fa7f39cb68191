package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
)

// AdminRole is the role claim required by show administration endpoints.
const AdminRole = "admin"

// RegisterRoutes registers routes that do not belong to any feature area.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterBooking registers the seat booking endpoints.  limit throttles
// booking creation per user; pass nil to disable it.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	// Seat maps are public so guests can preview availability.
	e.GET("/api/booking/seats/:showId", h.OccupiedSeats)

	auth := e.Group("/api", middleware.JWTAuth(jwtSecret))
	if limit != nil {
		auth.POST("/booking/create", h.CreateBooking, limit)
	} else {
		auth.POST("/booking/create", h.CreateBooking)
	}
	auth.GET("/user/bookings", h.UserBookings)
}

// RegisterShows registers show browsing and administration.  cache wraps the
// public GET endpoints; pass nil to serve them uncached.
func RegisterShows(e *echo.Echo, h *handler.ShowHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	var mw []echo.MiddlewareFunc
	if cache != nil {
		mw = append(mw, cache)
	}
	e.GET("/api/show/all", h.ListShows, mw...)
	e.GET("/api/show/search", h.SearchShows, mw...)
	e.GET("/api/show/:id", h.GetShow, mw...)

	admin := e.Group("/api/show", middleware.JWTAuth(jwtSecret), middleware.RequireRole(AdminRole))
	admin.POST("/add", h.AddShow)
	admin.PATCH("/:id/price", h.UpdatePrice)
}

// RegisterPayments registers the payment provider webhook.  It is
// authenticated by the provider's signature, not a bearer token.
func RegisterPayments(e *echo.Echo, h *handler.PaymentWebhookHandler) {
	e.POST("/api/stripe", h.Handle)
}

// RegisterUsers registers the signed-in user's favorites.
func RegisterUsers(e *echo.Echo, h *handler.UserHandler, jwtSecret string) {
	g := e.Group("/api/user", middleware.JWTAuth(jwtSecret))
	g.POST("/update-favorite", h.UpdateFavorite)
	g.GET("/favorites", h.ListFavorites)
}

// RegisterIdentity registers the identity provider's user sync webhook.
func RegisterIdentity(e *echo.Echo, h *handler.IdentityWebhookHandler) {
	e.POST("/api/identity/webhook", h.Handle)
}
