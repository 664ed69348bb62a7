package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/t3clone/t3chat/plugin/ai"
	"github.com/t3clone/t3chat/plugin/markdown"
	apperrors "github.com/t3clone/t3chat/server/internal/errors"
	"github.com/t3clone/t3chat/store"
)

// ConvertRequest asks to translate one fenced code block of a stored message.
type ConvertRequest struct {
	UserID         string
	MessageID      string
	BlockIndex     int
	TargetLanguage string
	ModelID        string
}

// Convert translates a code block into the target language and stores the result.
func (s *Service) Convert(ctx context.Context, req *ConvertRequest) (conversion *store.CodeConversion, err error) {
	start := time.Now()
	defer func() { s.recordRequest(ctx, "convert-code", start, err) }()

	target := strings.TrimSpace(req.TargetLanguage)
	if target == "" {
		return nil, apperrors.InvalidArgument("targetLanguage is required")
	}
	if req.MessageID == "" {
		return nil, apperrors.InvalidArgument("messageId is required")
	}
	if req.BlockIndex < 0 {
		return nil, apperrors.InvalidArgument("blockIndex must not be negative")
	}
	if !s.registry.Enabled() {
		return nil, apperrors.ServiceUnavailable("AI is not configured")
	}

	message, err := s.store.GetMessage(ctx, &store.FindMessage{ID: &req.MessageID, UserID: &req.UserID})
	if err != nil {
		return nil, notFoundOr(err, "message")
	}
	blocks := markdown.ExtractCodeBlocks(message.Content)
	if req.BlockIndex >= len(blocks) {
		return nil, apperrors.NotFound("code block not found")
	}
	block := blocks[req.BlockIndex]

	modelID := req.ModelID
	if modelID == "" {
		modelID = s.userSetting(ctx, req.UserID).DefaultModel
	}
	model, err := s.registry.Resolve(modelID)
	if err != nil {
		return nil, errLLMUnavailable(err)
	}
	llm, err := s.llmFor(model)
	if err != nil {
		return nil, err
	}
	resp, err := llm.Chat(ctx, &ai.ChatRequest{
		Model:    model.APIModelName(),
		Messages: ai.BuildCodeConversionPrompt(block.Code, block.Language, target),
	})
	if err != nil {
		return nil, errLLMUnavailable(err)
	}

	converted := extractConvertedCode(resp.Content)
	if converted == "" {
		return nil, apperrors.LLMUnavailable("model returned no code", nil)
	}

	conversion, err = s.store.CreateCodeConversion(ctx, &store.CodeConversion{
		ID:             uuid.NewString(),
		MessageID:      message.ID,
		UserID:         req.UserID,
		SourceLanguage: block.Language,
		TargetLanguage: strings.ToLower(target),
		SourceCode:     block.Code,
		ConvertedCode:  converted,
		ModelID:        model.ID,
	})
	if err != nil {
		return nil, apperrors.Internal("failed to save code conversion", err)
	}
	return conversion, nil
}

// ListConversions returns the stored conversions of a message owned by the user.
func (s *Service) ListConversions(ctx context.Context, userID, messageID string) ([]*store.CodeConversion, error) {
	if messageID == "" {
		return nil, apperrors.InvalidArgument("messageId is required")
	}
	list, err := s.store.ListCodeConversions(ctx, &store.FindCodeConversion{MessageID: &messageID, UserID: &userID})
	if err != nil {
		return nil, apperrors.Internal("failed to list code conversions", err)
	}
	return list, nil
}

// extractConvertedCode takes the first fenced block of a reply, or the whole
// reply when the model forgot the fence.
func extractConvertedCode(content string) string {
	if blocks := markdown.ExtractCodeBlocks(content); len(blocks) > 0 {
		return blocks[0].Code
	}
	return strings.TrimSpace(content)
}
