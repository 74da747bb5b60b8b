package handler

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/apperr"
	"github.com/iliyamo/storefront-api/internal/middleware"
)

// requestTimeout bounds the store calls made by one request.
const requestTimeout = 5 * time.Second

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// bind decodes the request body and maps decode failures to a 400.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apperr.Validation("Invalid request body.")
	}
	return nil
}

// currentUserID returns the authenticated user id set by the guards.
func currentUserID(c echo.Context) (string, error) {
	cl := middleware.ClaimsFrom(c)
	if cl == nil || cl.ID == "" {
		return "", apperr.ErrUnauthorized
	}
	return cl.ID, nil
}

// slugify lower-cases s, keeps ASCII letters and digits and joins the
// remaining words with single dashes.
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
