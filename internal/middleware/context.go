package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/utils"
)

// Context keys set by the guards.
const (
	claimsKey       = "auth.claims"
	sessionKey      = "auth.session"
	refreshTokenKey = "auth.refresh_token"
)

// ClaimsFrom returns the claims stored by AccessGuard or RefreshGuard,
// or nil on unauthenticated routes.
func ClaimsFrom(c echo.Context) *utils.AuthClaims {
	cl, _ := c.Get(claimsKey).(*utils.AuthClaims)
	return cl
}

// SessionFrom returns the session row matched by a guard.
func SessionFrom(c echo.Context) *model.Session {
	s, _ := c.Get(sessionKey).(*model.Session)
	return s
}

// RefreshTokenFrom returns the raw refresh token accepted by RefreshGuard.
func RefreshTokenFrom(c echo.Context) string {
	s, _ := c.Get(refreshTokenKey).(string)
	return s
}

// bearer extracts the token from "Authorization: Bearer <token>".
func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}
