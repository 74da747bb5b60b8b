package middleware

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/storefront-api/internal/logging"
)

// RequestLogger writes one structured record per request.
func RequestLogger(log logging.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"ip", v.RemoteIP,
				"userAgent", v.UserAgent,
			}
			ctx := c.Request().Context()
			if v.Error != nil {
				log.Warn(ctx, "http_request", append(args, "error", v.Error.Error())...)
				return nil
			}
			log.Info(ctx, "http_request", args...)
			return nil
		},
	})
}
