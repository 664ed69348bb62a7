package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/t3clone/t3chat/plugin/ai"
	apperrors "github.com/t3clone/t3chat/server/internal/errors"
	"github.com/t3clone/t3chat/server/internal/observability"
	"github.com/t3clone/t3chat/store"
)

// DefaultChatTitle is the title of a chat until the indexer names it.
const DefaultChatTitle = "New Chat"

// IncomingMessage is a message of the history sent by the client.
type IncomingMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamRequest is one chat turn. The last message is the new user message.
type StreamRequest struct {
	UserID        string
	ChatID        string
	ModelID       string
	Messages      []IncomingMessage
	AttachmentIDs []string
}

// Turn is a validated chat turn whose chat and user message are stored.
type Turn struct {
	Chat        *store.Chat
	IsNew       bool
	Model       ai.ModelInfo
	UserMessage *store.Message
	Attachments []*store.Attachment

	prompt []ai.Message
}

// StreamResult is the outcome of a streamed turn.
type StreamResult struct {
	AssistantMessage *store.Message
	ToolInvocations  []ToolInvocation
	FinishReason     string
	Steps            int
}

// Prepare validates the request, creates the chat when needed, stores the user
// message with its attachments and builds the prompt.
func (s *Service) Prepare(ctx context.Context, req *StreamRequest) (*Turn, error) {
	if !s.registry.Enabled() {
		return nil, apperrors.ServiceUnavailable("AI is not configured")
	}
	if len(req.Messages) == 0 {
		return nil, apperrors.InvalidArgument("messages are required")
	}
	for _, m := range req.Messages {
		if !store.MessageRole(m.Role).IsValid() {
			return nil, apperrors.InvalidArgument(fmt.Sprintf("invalid message role %q", m.Role))
		}
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != string(store.MessageRoleUser) {
		return nil, apperrors.InvalidArgument("the last message must come from the user")
	}
	if strings.TrimSpace(last.Content) == "" && len(req.AttachmentIDs) == 0 {
		return nil, apperrors.InvalidArgument("message content is empty")
	}

	setting := s.userSetting(ctx, req.UserID)
	modelID := req.ModelID
	if modelID == "" {
		modelID = setting.DefaultModel
	}
	model, err := s.registry.Resolve(modelID)
	if err != nil {
		return nil, errLLMUnavailable(err)
	}

	chat, isNew, err := s.getOrCreateChat(ctx, req.UserID, req.ChatID, model.ID)
	if err != nil {
		return nil, err
	}

	userMessage, err := s.store.CreateMessage(ctx, &store.Message{
		ID:      uuid.NewString(),
		ChatID:  chat.ID,
		UserID:  req.UserID,
		Role:    store.MessageRoleUser,
		Content: last.Content,
		ModelID: model.ID,
	})
	if err != nil {
		return nil, apperrors.Internal("failed to save message", err)
	}

	var attachments []*store.Attachment
	if s.attachments != nil {
		attachments, err = s.attachments.Link(ctx, req.UserID, chat.ID, userMessage.ID, req.AttachmentIDs)
		if err != nil {
			return nil, apperrors.Internal("failed to link attachments", err)
		}
	}

	return &Turn{
		Chat:        chat,
		IsNew:       isNew,
		Model:       model,
		UserMessage: userMessage,
		Attachments: attachments,
		prompt:      s.buildPrompt(ctx, setting, req.Messages, attachments, model),
	}, nil
}

func (s *Service) getOrCreateChat(ctx context.Context, userID, chatID, modelID string) (*store.Chat, bool, error) {
	if chatID != "" {
		chat, err := s.store.GetChat(ctx, &store.FindChat{ID: &chatID})
		if err == nil {
			if chat.UserID != userID {
				return nil, false, apperrors.NotFound("chat not found")
			}
			return chat, false, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, false, apperrors.Internal("failed to load chat", err)
		}
	} else {
		chatID = uuid.NewString()
	}

	now := s.now().Unix()
	chat, err := s.store.CreateChat(ctx, &store.Chat{
		ID:        chatID,
		UserID:    userID,
		Title:     DefaultChatTitle,
		ModelID:   modelID,
		Tags:      []string{},
		CreatedTs: now,
		UpdatedTs: now,
	})
	if err != nil {
		return nil, false, apperrors.Internal("failed to create chat", err)
	}
	return chat, true, nil
}

func (s *Service) buildPrompt(ctx context.Context, setting *store.UserSetting, history []IncomingMessage, attachments []*store.Attachment, model ai.ModelInfo) []ai.Message {
	messages := make([]ai.Message, 0, len(history)+1)
	messages = append(messages, ai.SystemPrompt(ai.BuildChatSystemPrompt(setting.CustomInstructions, s.now())))
	for _, m := range history[:len(history)-1] {
		messages = append(messages, ai.Message{Role: m.Role, Content: m.Content})
	}

	last := history[len(history)-1]
	content := last.Content
	var images []ai.ContentPart
	for _, a := range attachments {
		part, err := s.attachments.LoadForPrompt(ctx, a)
		if err != nil {
			slog.WarnContext(ctx, "failed to load attachment for prompt",
				slog.String("attachment_id", a.ID),
				slog.String("error", err.Error()))
			continue
		}
		switch {
		case part.Text != "":
			content += fmt.Sprintf("\n\n<attachment name=%q>\n%s\n</attachment>", part.FileName, part.Text)
		case part.ImageDataURL != "" && model.SupportsVision:
			images = append(images, ai.ContentPart{Type: "image_url", ImageURL: part.ImageDataURL})
		case part.ImageDataURL != "":
			content += fmt.Sprintf("\n\n[Image %q omitted: the selected model cannot read images.]", part.FileName)
		default:
			content += fmt.Sprintf("\n\n[Attachment %q (%s) cannot be read as text.]", part.FileName, a.ContentType)
		}
	}

	userMessage := ai.UserMessage(content)
	if len(images) > 0 {
		userMessage.Parts = append([]ai.ContentPart{{Type: "text", Text: content}}, images...)
	}
	return append(messages, userMessage)
}

// Stream runs the model with tools for a prepared turn, emitting events as they
// happen, then stores the assistant message and schedules indexing.
func (s *Service) Stream(ctx context.Context, turn *Turn, emit EmitFunc) (result *StreamResult, err error) {
	start := time.Now()
	defer func() { s.recordRequest(ctx, "chat", start, err) }()

	logger := observability.LoggerFromContext(ctx).With(
		slog.String(observability.LogFieldChatID, turn.Chat.ID),
		slog.String(observability.LogFieldModel, turn.Model.ID))

	llm, err := s.llmFor(turn.Model)
	if err != nil {
		return nil, err
	}
	var toolDefs []ai.ToolDefinition
	if turn.Model.SupportsTools && s.tools != nil {
		toolDefs = s.tools.Definitions()
	}

	messages := append([]ai.Message(nil), turn.prompt...)
	var text strings.Builder
	invocations := []ToolInvocation{}
	finishReason := ""
	steps := 0

	for step := 1; step <= s.maxToolSteps; step++ {
		steps = step
		stepText, calls, finish, err := s.streamStep(ctx, llm, &ai.ChatRequest{
			Model:    turn.Model.APIModelName(),
			Messages: messages,
			Tools:    toolDefs,
		}, emit)
		if err != nil {
			return nil, err
		}
		text.WriteString(stepText)
		finishReason = finish
		if len(calls) == 0 {
			break
		}

		messages = append(messages, ai.Message{Role: ai.RoleAssistant, Content: stepText, ToolCalls: calls})
		for _, call := range calls {
			call := call
			if err := emit(Event{Type: EventToolCall, ToolCall: &call}); err != nil {
				return nil, err
			}
			inv := s.runTool(ctx, step, call)
			invocations = append(invocations, inv)
			if err := emit(Event{Type: EventToolResult, ToolResult: &inv}); err != nil {
				return nil, err
			}
			messages = append(messages, ai.Message{Role: ai.RoleTool, ToolCallID: call.ID, Name: call.Name, Content: inv.Result})
		}
		logger.Debug("tool step completed", slog.Int(observability.LogFieldStep, step), slog.Int("tool_calls", len(calls)))
	}

	// The turn is complete; keep it even if the client is gone.
	persistCtx := context.WithoutCancel(ctx)
	assistant, err := s.saveAssistantMessage(persistCtx, turn, text.String(), invocations)
	if err != nil {
		return nil, err
	}
	modelID := turn.Model.ID
	if _, err := s.store.UpdateChat(persistCtx, &store.UpdateChat{ID: turn.Chat.ID, UserID: turn.Chat.UserID, ModelID: &modelID}); err != nil {
		logger.Warn("failed to touch chat", slog.String("error", err.Error()))
	}
	s.IndexAsync(turn.Chat.ID, turn.Chat.UserID, turn.IsNew)

	if err := emit(Event{Type: EventFinish, FinishReason: finishReason, ChatID: turn.Chat.ID, MessageID: assistant.ID}); err != nil {
		return nil, err
	}
	logger.Info("chat turn completed",
		slog.Int("steps", steps),
		slog.Int("tool_calls", len(invocations)),
		slog.Int64(observability.LogFieldDuration, time.Since(start).Milliseconds()))

	return &StreamResult{
		AssistantMessage: assistant,
		ToolInvocations:  invocations,
		FinishReason:     finishReason,
		Steps:            steps,
	}, nil
}

// streamStep streams one model call, forwarding text deltas.
func (s *Service) streamStep(ctx context.Context, llm ai.LLMService, req *ai.ChatRequest, emit EmitFunc) (string, []ai.ToolCall, string, error) {
	stepCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks, errs := llm.ChatStream(stepCtx, req)
	var text strings.Builder
	var calls []ai.ToolCall
	finishReason := ""
	var emitErr error
	for chunk := range chunks {
		if emitErr != nil {
			continue
		}
		if chunk.Content != "" {
			text.WriteString(chunk.Content)
			if err := emit(Event{Type: EventText, Text: chunk.Content}); err != nil {
				emitErr = err
				cancel()
				continue
			}
		}
		if chunk.FinishReason != "" || len(chunk.ToolCalls) > 0 {
			calls = chunk.ToolCalls
			finishReason = chunk.FinishReason
		}
	}
	streamErr := <-errs
	if emitErr != nil {
		return "", nil, "", emitErr
	}
	if streamErr != nil {
		return "", nil, "", apperrors.From(streamErr, apperrors.ErrCodeLLMUnavailable, "model stream failed")
	}
	return text.String(), calls, finishReason, nil
}

func (s *Service) runTool(ctx context.Context, step int, call ai.ToolCall) ToolInvocation {
	inv := ToolInvocation{Step: step, ToolCallID: call.ID, Name: call.Name, Arguments: call.Arguments}
	tool, ok := s.tools.Get(call.Name)
	if !ok {
		inv.Result = fmt.Sprintf("Error: unknown tool %q", call.Name)
		return inv
	}
	result, err := s.executor.Execute(ctx, tool, call.Arguments)
	if err != nil {
		inv.Result = "Error: " + err.Error()
		return inv
	}
	inv.Result, inv.Success = result.Output, result.Success
	return inv
}

func (s *Service) saveAssistantMessage(ctx context.Context, turn *Turn, content string, invocations []ToolInvocation) (*store.Message, error) {
	raw, err := json.Marshal(invocations)
	if err != nil {
		return nil, apperrors.Internal("failed to encode tool invocations", err)
	}
	// Strictly after the user message so the pair keeps its order.
	createdTs := max(s.now().UnixMilli(), turn.UserMessage.CreatedTs+1)
	msg, err := s.store.CreateMessage(ctx, &store.Message{
		ID:              uuid.NewString(),
		ChatID:          turn.Chat.ID,
		UserID:          turn.Chat.UserID,
		Role:            store.MessageRoleAssistant,
		Content:         content,
		ModelID:         turn.Model.ID,
		ToolInvocations: string(raw),
		CreatedTs:       createdTs,
	})
	if err != nil {
		return nil, apperrors.Internal("failed to save assistant message", err)
	}
	return msg, nil
}
