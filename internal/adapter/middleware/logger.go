package middleware

import (
	"sme-escrow/internal/infrastructure/logging"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Logger puts log on the request context, tagged with the request's
// method, path and X-Request-ID when present.
func Logger(log *zap.Logger) echo.MiddlewareFunc {
	log = logging.OrNop(log)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			l := log.With(zap.String("method", req.Method), zap.String("path", req.URL.Path))
			if rid := req.Header.Get(echo.HeaderXRequestID); rid != "" {
				l = l.With(zap.String("request_id", rid))
			}
			c.SetRequest(req.WithContext(logging.WithLogger(req.Context(), l)))
			return next(c)
		}
	}
}
