package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	apperrors "github.com/t3clone/t3chat/server/internal/errors"
	"github.com/t3clone/t3chat/server/service/chat"
)

// HeaderChatID tells the client which chat a streamed turn belongs to.
const HeaderChatID = "X-Chat-Id"

type chatRequest struct {
	ChatID        string                 `json:"chatId"`
	Messages      []chat.IncomingMessage `json:"messages"`
	ModelID       string                 `json:"modelId"`
	AttachmentIDs []string               `json:"attachmentIds"`
}

// Chat streams one chat turn.
// POST /api/chat
func (s *APIV1Service) Chat(c echo.Context) error {
	var req chatRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx := c.Request().Context()
	turn, err := s.ChatService.Prepare(ctx, &chat.StreamRequest{
		UserID:        currentUserID(c),
		ChatID:        req.ChatID,
		ModelID:       req.ModelID,
		Messages:      req.Messages,
		AttachmentIDs: req.AttachmentIDs,
	})
	if err != nil {
		return writeError(c, err)
	}
	c.Response().Header().Set(HeaderChatID, turn.Chat.ID)
	c.Response().Header().Set(echo.HeaderAccessControlExposeHeaders, HeaderChatID)

	stream := newSSEWriter(c)
	if _, err := s.ChatService.Stream(ctx, turn, stream.Send); err != nil {
		return stream.fail(err)
	}
	return nil
}

type autocompleteRequest struct {
	Prompt  string `json:"prompt"`
	ModelID string `json:"modelId"`
}

// Autocomplete streams a short continuation of the prompt.
// POST /api/autocomplete
func (s *APIV1Service) Autocomplete(c echo.Context) error {
	var req autocompleteRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, err)
	}
	stream := newSSEWriter(c)
	_, err := s.ChatService.Autocomplete(c.Request().Context(), &chat.AutocompleteRequest{
		UserID:  currentUserID(c),
		Prompt:  req.Prompt,
		ModelID: req.ModelID,
	}, stream.Send)
	if errors.Is(err, chat.ErrAutocompleteDisabled) {
		return c.NoContent(http.StatusNoContent)
	}
	if err != nil {
		return stream.fail(err)
	}
	return nil
}

type convertCodeRequest struct {
	MessageID      string `json:"messageId"`
	TargetLanguage string `json:"targetLanguage"`
	BlockIndex     int    `json:"blockIndex"`
	ModelID        string `json:"modelId"`
}

// ConvertCode translates a code block of a message and stores the result.
// POST /api/convert-code
func (s *APIV1Service) ConvertCode(c echo.Context) error {
	var req convertCodeRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, err)
	}
	conversion, err := s.ChatService.Convert(c.Request().Context(), &chat.ConvertRequest{
		UserID:         currentUserID(c),
		MessageID:      req.MessageID,
		BlockIndex:     req.BlockIndex,
		TargetLanguage: req.TargetLanguage,
		ModelID:        req.ModelID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, convertCodeConversionFromStore(conversion))
}

// ListCodeConversions lists the conversions of a message.
// GET /api/convert-code?messageId=
func (s *APIV1Service) ListCodeConversions(c echo.Context) error {
	list, err := s.ChatService.ListConversions(c.Request().Context(), currentUserID(c), c.QueryParam("messageId"))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]*CodeConversion, 0, len(list))
	for _, conversion := range list {
		out = append(out, convertCodeConversionFromStore(conversion))
	}
	return c.JSON(http.StatusOK, out)
}

type indexChatRequest struct {
	ChatID string `json:"chatId"`
}

// IndexChat runs the chat indexer synchronously.
// POST /api/chat-index
func (s *APIV1Service) IndexChat(c echo.Context) error {
	var req indexChatRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, err)
	}
	if req.ChatID == "" {
		return writeError(c, apperrors.InvalidArgument("chatId is required"))
	}
	rows, err := s.ChatService.Index(c.Request().Context(), req.ChatID, currentUserID(c), false)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, convertChatIndexFromStore(rows))
}

// ListChatIndex lists the important messages of a chat.
// GET /api/chat-index?chatId=
func (s *APIV1Service) ListChatIndex(c echo.Context) error {
	chatID := c.QueryParam("chatId")
	if chatID == "" {
		return writeError(c, apperrors.InvalidArgument("chatId is required"))
	}
	rows, err := s.ChatService.ListIndex(c.Request().Context(), chatID, currentUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, convertChatIndexFromStore(rows))
}
