// Package response writes the JSON envelopes every endpoint returns:
// {"message", "data"} on success and {"message", "details"} on failure.
package response

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/apperr"
	"github.com/iliyamo/storefront-api/internal/logging"
)

// Body is the success envelope.
type Body struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorBody is the failure envelope.
type ErrorBody struct {
	Message string              `json:"message"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// Success writes status with message and optional data.
func Success(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Body{Message: message, Data: data})
}

// Error renders err. *apperr.Error values are written as they are;
// anything else is logged and answered with a generic 500.
func Error(c echo.Context, log logging.Logger, err error) error {
	ae, ok := apperr.As(err)
	if !ok {
		ae = apperr.Unexpected(err)
	}
	if ae.Kind == apperr.KindUnexpected && log != nil {
		log.Error(c.Request().Context(), "unexpected_error",
			"method", c.Request().Method, "path", c.Path(), "error", err)
	}
	return c.JSON(ae.Status, ErrorBody{Message: ae.Message, Details: ae.Details})
}

// HTTPErrorHandler routes errors returned by handlers and middleware, and
// Echo's own 404/405/bind errors, through the same envelope.
func HTTPErrorHandler(log logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := http.StatusText(he.Code)
			if s, ok := he.Message.(string); ok && s != "" {
				msg = s
			} else if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
			if c.Request().Method == http.MethodHead {
				_ = c.NoContent(he.Code)
				return
			}
			_ = c.JSON(he.Code, ErrorBody{Message: msg})
			return
		}
		_ = Error(c, log, err)
	}
}
