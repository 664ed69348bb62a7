package middleware

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/t3clone/t3chat/server/auth"
	"github.com/t3clone/t3chat/server/internal/observability"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-Id"

// RequestContext attaches an observability.RequestContext to every request and
// logs its outcome.
func RequestContext(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(HeaderRequestID)
			if requestID == "" || len(requestID) > 64 {
				requestID = uuid.NewString()
			}
			c.Response().Header().Set(HeaderRequestID, requestID)

			ctx := c.Request().Context()
			reqCtx := observability.NewRequestContextWithID(logger, requestID, c.Path(), auth.GetUserID(ctx))
			c.SetRequest(c.Request().WithContext(observability.WithRequestContext(ctx, reqCtx)))

			err := next(c)
			if err != nil {
				c.Error(err)
			}
			attrs := []slog.Attr{
				slog.String("method", c.Request().Method),
				slog.Int("status", c.Response().Status),
				slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
			}
			if c.Response().Status >= 500 {
				reqCtx.Warn("request failed", attrs...)
			} else {
				reqCtx.Debug("request completed", attrs...)
			}
			return nil
		}
	}
}
