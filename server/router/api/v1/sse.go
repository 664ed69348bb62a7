package v1

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/t3clone/t3chat/server/internal/errors"
	"github.com/t3clone/t3chat/server/service/chat"
)

// sseWriter writes chat events as server-sent events. Headers are sent with
// the first event so that errors before it can still be plain JSON responses.
type sseWriter struct {
	c       echo.Context
	started bool
}

func newSSEWriter(c echo.Context) *sseWriter {
	return &sseWriter{c: c}
}

// Send writes one event and flushes it to the client.
func (w *sseWriter) Send(event chat.Event) error {
	resp := w.c.Response()
	if !w.started {
		h := resp.Header()
		h.Set(echo.HeaderContentType, "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		resp.WriteHeader(http.StatusOK)
		w.started = true
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return err
	}
	resp.Flush()
	return nil
}

// fail reports err to the client: as JSON before the stream started, as an
// error event after.
func (w *sseWriter) fail(err error) error {
	if !w.started {
		return writeError(w.c, err)
	}
	aiErr := toAIError(err)
	logError(w.c, aiErr)
	if aiErr.Code == apperrors.ErrCodeContextCanceled {
		return nil
	}
	return w.Send(chat.Event{Type: chat.EventError, Code: string(aiErr.Code), Message: aiErr.Message})
}
