package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/sashabaranov/go-openai"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ContentPart is one piece of a multi-part user message.
type ContentPart struct {
	Type     string // "text" or "image_url"
	Text     string
	ImageURL string
}

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant, tool
	Content string
	// Parts replaces Content when set, e.g. for image attachments.
	Parts      []ContentPart
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

// ToolCall is a fully assembled function call requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition advertises a tool to the model. Parameters is a JSON schema.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  any
}

type ChatRequest struct {
	Model       string
	Messages    []Message
	Tools       []ToolDefinition
	MaxTokens   int
	Temperature *float32
	// JSONMode asks the provider for a single JSON object.
	JSONMode bool
}

type ChatResponse struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
}

// StreamChunk is either a text delta, or the terminal chunk of a step carrying
// the assembled tool calls and the finish reason.
type StreamChunk struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
}

// LLMService is the LLM service interface.
type LLMService interface {
	// Chat performs synchronous chat.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// ChatStream performs streaming chat. Both channels are closed when the stream ends.
	ChatStream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, <-chan error)
}

type llmService struct {
	client      *openai.Client
	provider    string
	maxTokens   int
	temperature float32
}

// NewLLMService creates a new LLMService. Every supported provider speaks the OpenAI wire protocol.
func NewLLMService(cfg *LLMConfig) (LLMService, error) {
	switch cfg.Provider {
	case ProviderOpenAI, ProviderDeepSeek, ProviderOpenRouter, ProviderGemini, ProviderOllama:
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &llmService{
		client:      openai.NewClientWithConfig(clientConfig),
		provider:    cfg.Provider,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (s *llmService) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	resp, err := s.client.CreateChatCompletion(ctx, s.buildRequest(req, false))
	if err != nil {
		return nil, fmt.Errorf("%s chat completion: %w", s.provider, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response")
	}

	choice := resp.Choices[0]
	out := &ChatResponse{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	return out, nil
}

func (s *llmService) ChatStream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, <-chan error) {
	chunkChan := make(chan StreamChunk)
	errChan := make(chan error, 1)

	go func() {
		defer close(chunkChan)
		defer close(errChan)

		stream, err := s.client.CreateChatCompletionStream(ctx, s.buildRequest(req, true))
		if err != nil {
			errChan <- fmt.Errorf("%s chat stream: %w", s.provider, err)
			return
		}
		defer stream.Close()

		send := func(chunk StreamChunk) bool {
			select {
			case chunkChan <- chunk:
				return true
			case <-ctx.Done():
				errChan <- ctx.Err()
				return false
			}
		}

		acc := newToolCallAccumulator()
		finishReason := ""
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				errChan <- fmt.Errorf("%s chat stream: %w", s.provider, err)
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}

			choice := resp.Choices[0]
			for _, tc := range choice.Delta.ToolCalls {
				acc.add(tc)
			}
			if choice.FinishReason != "" {
				finishReason = string(choice.FinishReason)
			}
			if choice.Delta.Content != "" {
				if !send(StreamChunk{Content: choice.Delta.Content}) {
					return
				}
			}
		}

		send(StreamChunk{ToolCalls: acc.calls(), FinishReason: finishReason})
	}()

	return chunkChan, errChan
}

func (s *llmService) buildRequest(req *ChatRequest, stream bool) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    convertMessages(req.Messages),
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		Stream:      stream,
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		out.Temperature = *req.Temperature
	}
	if req.JSONMode {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}
		if len(m.Parts) > 0 {
			for _, p := range m.Parts {
				switch p.Type {
				case "image_url":
					msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: p.ImageURL, Detail: openai.ImageURLDetailAuto},
					})
				default:
					msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: p.Text})
				}
			}
		} else {
			msg.Content = m.Content
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:       tc.ID,
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: tc.Name, Arguments: tc.Arguments},
			})
		}
		out[i] = msg
	}
	return out
}

// toolCallAccumulator stitches streamed tool call fragments back together by index.
type toolCallAccumulator struct {
	byIndex map[int]*ToolCall
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{byIndex: map[int]*ToolCall{}}
}

func (a *toolCallAccumulator) add(delta openai.ToolCall) {
	index := 0
	if delta.Index != nil {
		index = *delta.Index
	}
	call, ok := a.byIndex[index]
	if !ok {
		call = &ToolCall{}
		a.byIndex[index] = call
	}
	if delta.ID != "" {
		call.ID = delta.ID
	}
	if delta.Function.Name != "" {
		call.Name = delta.Function.Name
	}
	call.Arguments += delta.Function.Arguments
}

func (a *toolCallAccumulator) calls() []ToolCall {
	if len(a.byIndex) == 0 {
		return nil
	}
	indexes := make([]int, 0, len(a.byIndex))
	for i := range a.byIndex {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	out := make([]ToolCall, 0, len(indexes))
	for _, i := range indexes {
		call := *a.byIndex[i]
		if call.ID == "" {
			call.ID = fmt.Sprintf("call_%d", i)
		}
		out = append(out, call)
	}
	return out
}

// Helper for creating system prompts
func SystemPrompt(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// Helper for creating user messages
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Helper for creating assistant messages
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
