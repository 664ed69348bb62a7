package store

// ChatIndex marks an important message of a chat with a short summary.
type ChatIndex struct {
	ID        int32
	ChatID    string
	MessageID string
	Summary   string
	CreatedTs int64
}

type FindChatIndex struct {
	ChatID *string
}

type DeleteChatIndex struct {
	ChatID string
}
