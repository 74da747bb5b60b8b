package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/apperr"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/repository"
	"github.com/iliyamo/storefront-api/internal/utils"
)

// lookupTimeout bounds the store calls a guard makes per request.
const lookupTimeout = 5 * time.Second

// UserFinder loads the account a token was minted for.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// SessionFinder loads a session row by id.
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// AccessGuard authenticates requests carrying "Authorization: Bearer
// <access token>". The token must verify, its user must exist, and its
// session must belong to that user and device, still hold a refresh
// token and carry the same token_version as the claim. On success the
// claims and session are available through ClaimsFrom and SessionFrom.
func AccessGuard(codec *utils.TokenCodec, users UserFinder, sessions SessionFinder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return apperr.ErrMissingAuth
			}
			claims, err := codec.VerifyAccessToken(raw)
			if err != nil {
				return apperr.ErrInvalidOrExpiredToken
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
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return apperr.ErrSessionNotFound
			case err != nil:
				return apperr.Unexpected(err)
			}
			if sess.UserID != claims.ID || sess.DeviceHash != claims.DeviceHash {
				return apperr.ErrSessionNotFound
			}
			if !sess.Active() {
				return apperr.ErrSessionInvalidated
			}
			if sess.TokenVersion != claims.TokenVersion {
				return apperr.ErrTokenSuperseded
			}

			c.Set(claimsKey, claims)
			c.Set(sessionKey, sess)
			return next(c)
		}
	}
}
