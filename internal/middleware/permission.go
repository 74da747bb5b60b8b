package middleware

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/apperr"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/repository"
)

// PermissionFinder loads a user joined with role and permissions.
type PermissionFinder interface {
	FindWithPermissions(ctx context.Context, id string) (*model.User, error)
}

// RequirePermission allows the request when the caller's role grants at
// least one of perms. Permissions are re-read on every request so that
// role changes apply immediately. It must run after AccessGuard.
func RequirePermission(users PermissionFinder, perms ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ClaimsFrom(c)
			if claims == nil {
				return apperr.ErrUnauthorized
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), lookupTimeout)
			defer cancel()

			user, err := users.FindWithPermissions(ctx, claims.ID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return apperr.ErrRoleNotFound
				}
				return apperr.Unexpected(err)
			}
			if user.Role == nil {
				return apperr.ErrRoleNotFound
			}

			granted := user.Role.PermissionNames()
			for _, p := range perms {
				if _, ok := granted[p]; ok {
					return next(c)
				}
			}
			return apperr.ErrForbidden
		}
	}
}
