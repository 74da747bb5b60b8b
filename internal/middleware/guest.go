package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/apperr"
	"github.com/iliyamo/storefront-api/internal/utils"
)

// BlockIfAuthenticated rejects register and login calls from a client
// that already holds a live session. Missing or unusable tokens and
// lookup failures pass through.
func BlockIfAuthenticated(codec *utils.TokenCodec, sessions SessionFinder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return next(c)
			}
			claims, err := codec.VerifyAccessToken(raw)
			if err != nil {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), lookupTimeout)
			defer cancel()

			sess, err := sessions.FindByID(ctx, claims.SessionID)
			if err == nil && sess.Active() {
				return apperr.ErrAlreadyLoggedIn
			}
			return next(c)
		}
	}
}
