package middleware

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/apperr"
	"github.com/iliyamo/storefront-api/internal/repository"
	"github.com/iliyamo/storefront-api/internal/utils"
)

// RefreshCookie is the name of the HttpOnly cookie holding the refresh token.
const RefreshCookie = "refreshToken"

// RefreshGuard authenticates the refresh endpoint from the refreshToken
// cookie. The session named in the token must belong to its user, hold
// exactly this token and carry the same device hash.
func RefreshGuard(codec *utils.TokenCodec, users UserFinder, sessions SessionFinder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ck, err := c.Cookie(RefreshCookie)
			if err != nil || ck.Value == "" {
				return apperr.ErrMissingRefreshToken
			}
			raw := ck.Value

			claims, err := codec.VerifyRefreshToken(raw)
			if err != nil {
				return apperr.ErrInvalidRefreshToken
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), lookupTimeout)
			defer cancel()

			if _, err := users.FindByID(ctx, claims.ID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return apperr.ErrUserNotFound
				}
				return apperr.Unexpected(err)
			}

			sess, err := sessions.FindByID(ctx, claims.SessionID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return apperr.Unexpected(err)
			}
			if sess == nil || sess.UserID != claims.ID ||
				sess.DeviceHash != claims.DeviceHash || !sess.HasRefreshToken(raw) {
				return apperr.ErrInvalidSession
			}

			c.Set(claimsKey, claims)
			c.Set(sessionKey, sess)
			c.Set(refreshTokenKey, raw)
			return next(c)
		}
	}
}
