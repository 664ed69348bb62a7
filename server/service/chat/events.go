package chat

import "github.com/t3clone/t3chat/plugin/ai"

// EventType is the kind of a chat stream event.
type EventType string

const (
	EventText       EventType = "text"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventFinish     EventType = "finish"
	EventError      EventType = "error"
)

// Event is one item of the chat stream sent to the client.
type Event struct {
	Type EventType `json:"type"`
	// Text is set for text events.
	Text       string          `json:"text,omitempty"`
	ToolCall   *ai.ToolCall    `json:"toolCall,omitempty"`
	ToolResult *ToolInvocation `json:"toolResult,omitempty"`
	// Finish event fields.
	FinishReason string `json:"finishReason,omitempty"`
	ChatID       string `json:"chatId,omitempty"`
	MessageID    string `json:"messageId,omitempty"`
	// Error event fields.
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ToolInvocation records one tool call and its result. Stored with the assistant message.
type ToolInvocation struct {
	Step       int    `json:"step"`
	ToolCallID string `json:"toolCallId"`
	Name       string `json:"toolName"`
	Arguments  string `json:"args"`
	Result     string `json:"result"`
	Success    bool   `json:"success"`
}

// EmitFunc receives stream events. Returning an error aborts the stream.
type EmitFunc func(Event) error
