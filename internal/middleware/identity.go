package middleware

// identity.go exposes the authenticated caller to handlers.  JWTAuth fills
// these context keys; nothing else writes them.

import "github.com/labstack/echo/v4"

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxEmail  = "email"
	ctxName   = "name"
)

// Identity is the verified caller as carried by the bearer token.
type Identity struct {
	UserID string
	Role   string
	Email  string
	Name   string
}

// CurrentIdentity returns the caller stored by JWTAuth.  ok is false when the
// request is anonymous.
func CurrentIdentity(c echo.Context) (Identity, bool) {
	id := Identity{
		UserID: ctxString(c, ctxUserID),
		Role:   ctxString(c, ctxRole),
		Email:  ctxString(c, ctxEmail),
		Name:   ctxString(c, ctxName),
	}
	return id, id.UserID != ""
}

// CurrentUserID returns the authenticated user id or "" for anonymous requests.
func CurrentUserID(c echo.Context) string {
	return ctxString(c, ctxUserID)
}

func ctxString(c echo.Context, key string) string {
	if s, ok := c.Get(key).(string); ok {
		return s
	}
	return ""
}
