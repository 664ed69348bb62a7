package v1

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "github.com/t3clone/t3chat/server/internal/errors"
	"github.com/t3clone/t3chat/server/service/chat"
)

// ListChats lists the chats of the user, pinned first.
// GET /api/chats?archived=&pinned=&tag=
func (s *APIV1Service) ListChats(c echo.Context) error {
	var filter chat.ChatFilter
	var err error
	if filter.Archived, err = parseBoolQuery(c, "archived"); err != nil {
		return writeError(c, err)
	}
	if filter.Pinned, err = parseBoolQuery(c, "pinned"); err != nil {
		return writeError(c, err)
	}
	if tag := c.QueryParam("tag"); tag != "" {
		filter.Tag = &tag
	}
	list, err := s.ChatService.ListChats(c.Request().Context(), currentUserID(c), filter)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]*Chat, 0, len(list))
	for _, item := range list {
		out = append(out, convertChatFromStore(item))
	}
	return c.JSON(http.StatusOK, out)
}

// GetChat returns a chat with its messages and attachments.
// GET /api/chats/:id
func (s *APIV1Service) GetChat(c echo.Context) error {
	detail, err := s.ChatService.GetChat(c.Request().Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, convertChatDetail(detail.Chat, detail.Messages, detail.Attachments))
}

type updateChatRequest struct {
	Title    *string   `json:"title"`
	Pinned   *bool     `json:"pinned"`
	Archived *bool     `json:"archived"`
	Tags     *[]string `json:"tags"`
}

// UpdateChat edits the title, flags or tags of a chat.
// PATCH /api/chats/:id
func (s *APIV1Service) UpdateChat(c echo.Context) error {
	var req updateChatRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, err)
	}
	updated, err := s.ChatService.UpdateChat(c.Request().Context(), currentUserID(c), c.Param("id"), &chat.ChatPatch{
		Title:    req.Title,
		Pinned:   req.Pinned,
		Archived: req.Archived,
		Tags:     req.Tags,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, convertChatFromStore(updated))
}

// DeleteChat deletes a chat with everything attached to it.
// DELETE /api/chats/:id
func (s *APIV1Service) DeleteChat(c echo.Context) error {
	if err := s.ChatService.DeleteChat(c.Request().Context(), currentUserID(c), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type shareResponse struct {
	ShareID string `json:"shareId"`
	URL     string `json:"url"`
}

// ShareChat publishes a read-only link to a chat.
// POST /api/chats/:id/share
func (s *APIV1Service) ShareChat(c echo.Context) error {
	shared, err := s.ChatService.ShareChat(c.Request().Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, shareResponse{ShareID: shared.ShareID, URL: "/api/shared/" + shared.ShareID})
}

// UnshareChat revokes the public link of a chat.
// DELETE /api/chats/:id/share
func (s *APIV1Service) UnshareChat(c echo.Context) error {
	if _, err := s.ChatService.UnshareChat(c.Request().Context(), currentUserID(c), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ExportChat downloads a chat as Markdown, JSON or HTML.
// GET /api/chats/:id/export?format=
func (s *APIV1Service) ExportChat(c echo.Context) error {
	export, err := s.ChatService.ExportChat(c.Request().Context(), currentUserID(c), c.Param("id"), c.QueryParam("format"))
	if err != nil {
		return writeError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.FileName))
	return c.Blob(http.StatusOK, export.ContentType, export.Body)
}

// GetSharedChat returns a shared chat without authentication.
// GET /api/shared/:shareId
func (s *APIV1Service) GetSharedChat(c echo.Context) error {
	detail, err := s.ChatService.GetSharedChat(c.Request().Context(), c.Param("shareId"))
	if err != nil {
		return writeError(c, err)
	}
	out := convertChatDetail(detail.Chat, detail.Messages, nil)
	out.Chat.ShareID = ""
	return c.JSON(http.StatusOK, out)
}

func parseBoolQuery(c echo.Context, name string) (*bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("%s must be a boolean", name))
	}
	return &v, nil
}
