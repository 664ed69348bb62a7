package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	apperrors "github.com/t3clone/t3chat/server/internal/errors"
	"github.com/t3clone/t3chat/server/internal/observability"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError logs err and writes it as a {code, message} JSON body.
func writeError(c echo.Context, err error) error {
	aiErr := toAIError(err)
	logError(c, aiErr)
	if aiErr.Code == apperrors.ErrCodeContextCanceled {
		// The client is gone, there is nobody to answer.
		return nil
	}
	return c.JSON(aiErr.HTTPStatus(), errorResponse{Code: string(aiErr.Code), Message: aiErr.Message})
}

// HTTPErrorHandler answers errors raised by echo itself, such as unknown
// routes, with the same {code, message} body as the handlers.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if werr := writeError(c, err); werr != nil {
		c.Logger().Error(werr)
	}
}

func toAIError(err error) *apperrors.AIError {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg := http.StatusText(httpErr.Code)
		if m, ok := httpErr.Message.(string); ok && m != "" {
			msg = m
		}
		return apperrors.FromHTTPStatus(httpErr.Code, msg)
	}
	return apperrors.From(err, apperrors.ErrCodeInternal, "internal error")
}

func logError(c echo.Context, aiErr *apperrors.AIError) {
	status := aiErr.HTTPStatus()
	attrs := []slog.Attr{
		slog.String(observability.LogFieldErrorCode, string(aiErr.Code)),
		slog.Int("status", status),
	}
	if aiErr.Cause != nil {
		attrs = append(attrs, slog.String("error", aiErr.Cause.Error()))
	}
	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	ctx := c.Request().Context()
	observability.LoggerFromContext(ctx).LogAttrs(ctx, level, aiErr.Message, attrs...)
}

func bindJSON(c echo.Context, out any) error {
	if err := c.Bind(out); err != nil {
		return apperrors.InvalidArgument("invalid request body")
	}
	return nil
}
