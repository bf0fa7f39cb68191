package utils // package utils provides helper functions for token creation

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// Subject describes whom a token is issued to.  UserID becomes the "sub"
// claim; the rest are copied verbatim.
type Subject struct {
	UserID string
	Role   string
	Email  string
	Name   string
}

// NewAccessToken builds and signs an HS256 JWT shaped like the identity
// provider's: sub, role, email, name, exp and iat.  It is used by local
// tooling and tests; production tokens come from the provider.
func NewAccessToken(secret string, s Subject, ttl time.Duration) (AccessToken, error) {
	if s.UserID == "" {
		return AccessToken{}, errors.New("token subject is required")
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub": s.UserID,
		"exp": exp.Unix(),
		"iat": now.Unix(),
	}
	if s.Role != "" {
		claims["role"] = s.Role
	}
	if s.Email != "" {
		claims["email"] = s.Email
	}
	if s.Name != "" {
		claims["name"] = s.Name
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}
