package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/identity"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// FavoriteStore keeps the movies each user starred.
type FavoriteStore interface {
	ToggleFavorite(ctx context.Context, userID, movieID string) (bool, error)
	ListFavorites(ctx context.Context, userID string) ([]model.Favorite, error)
}

// UserHandler serves the signed-in user's favorites.
type UserHandler struct {
	Favorites FavoriteStore
	Log       *zap.Logger
}

func NewUserHandler(favs FavoriteStore, log *zap.Logger) *UserHandler {
	if favs == nil || log == nil {
		panic("nil dependency passed to NewUserHandler")
	}
	return &UserHandler{Favorites: favs, Log: log.Named("user")}
}

type updateFavoriteRequest struct {
	MovieID string `json:"movieId"`
}

// UpdateFavorite handles POST /api/user/update-favorite.  It toggles the
// movie and reports "added" or "removed".
func (h *UserHandler) UpdateFavorite(c echo.Context) error {
	userID := middleware.CurrentUserID(c)
	if userID == "" {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	var req updateFavoriteRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	movieID := strings.TrimSpace(req.MovieID)
	if movieID == "" {
		return fail(c, http.StatusBadRequest, "movieId is required")
	}

	added, err := h.Favorites.ToggleFavorite(c.Request().Context(), userID, movieID)
	if err != nil {
		h.Log.Error("toggle favorite failed", zap.String("user_id", userID), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "database error")
	}
	action, msg := "removed", "Movie removed from favorites successfully"
	if added {
		action, msg = "added", "Movie added to favorites successfully"
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": msg, "action": action})
}

// ListFavorites handles GET /api/user/favorites.
func (h *UserHandler) ListFavorites(c echo.Context) error {
	userID := middleware.CurrentUserID(c)
	if userID == "" {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	favs, err := h.Favorites.ListFavorites(c.Request().Context(), userID)
	if err != nil {
		h.Log.Error("list favorites failed", zap.String("user_id", userID), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "database error")
	}
	if favs == nil {
		favs = []model.Favorite{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "movies": favs})
}

// UserEventParser verifies identity provider deliveries.
type UserEventParser interface {
	ParseUserEvent(h http.Header, body []byte) (*identity.UserEvent, error)
}

// UserSync applies identity provider changes to the local user table.
type UserSync interface {
	Upsert(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id string) (bool, error)
}

// IdentityWebhookHandler keeps users in step with the identity provider so
// deleted accounts stop receiving announcements.
type IdentityWebhookHandler struct {
	Parser UserEventParser
	Users  UserSync
	Log    *zap.Logger
}

func NewIdentityWebhookHandler(p UserEventParser, users UserSync, log *zap.Logger) *IdentityWebhookHandler {
	if p == nil || users == nil || log == nil {
		panic("nil dependency passed to NewIdentityWebhookHandler")
	}
	return &IdentityWebhookHandler{Parser: p, Users: users, Log: log.Named("identity_webhook")}
}

// Handle serves POST /api/identity/webhook.
func (h *IdentityWebhookHandler) Handle(c echo.Context) error {
	body, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fail(c, http.StatusRequestEntityTooLarge, "Webhook Error: payload too large")
		}
		return fail(c, http.StatusBadRequest, "unreadable body")
	}
	ev, err := h.Parser.ParseUserEvent(c.Request().Header, body)
	switch {
	case errors.Is(err, identity.ErrInvalidSignature), errors.Is(err, identity.ErrStaleTimestamp):
		h.Log.Warn("rejected identity webhook", zap.Error(err))
		return fail(c, http.StatusBadRequest, "Webhook Error: invalid signature")
	case err != nil:
		return fail(c, http.StatusBadRequest, "Webhook Error: malformed event")
	}

	ctx := c.Request().Context()
	log := h.Log.With(zap.String("type", ev.Type), zap.String("user_id", ev.User.ID))
	switch ev.Type {
	case identity.UserCreated, identity.UserUpdated:
		if err := h.Users.Upsert(ctx, &ev.User); err != nil {
			log.Error("sync user failed", zap.Error(err))
			return fail(c, http.StatusInternalServerError, "database error")
		}
		log.Info("user synced")
	case identity.UserDeleted:
		existed, err := h.Users.Delete(ctx, ev.User.ID)
		if err != nil {
			log.Error("delete user failed", zap.Error(err))
			return fail(c, http.StatusInternalServerError, "database error")
		}
		log.Info("user deleted", zap.Bool("existed", existed))
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
