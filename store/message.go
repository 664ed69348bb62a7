package store

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
	MessageRoleTool      MessageRole = "tool"
)

// IsValid reports whether the role is one the chat route accepts from clients.
// System and tool messages are only ever produced by the server.
func (r MessageRole) IsValid() bool {
	switch r {
	case MessageRoleUser, MessageRoleAssistant:
		return true
	}
	return false
}

type Message struct {
	ID      string
	ChatID  string
	UserID  string
	Role    MessageRole
	Content string
	ModelID string
	// ToolInvocations is a JSON array of the tool calls made while producing the message.
	ToolInvocations string
	// CreatedTs is in unix milliseconds so that a user message and its reply keep their order.
	CreatedTs int64
}

type FindMessage struct {
	ID     *string
	ChatID *string
	UserID *string
}

type DeleteMessage struct {
	ID     *string
	ChatID *string
}
