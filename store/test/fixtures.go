package test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/t3clone/t3chat/store"
)

func createTestingChat(ctx context.Context, ts *store.Store, userID string) (*store.Chat, error) {
	now := time.Now().Unix()
	return ts.CreateChat(ctx, &store.Chat{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     "New Chat",
		ModelID:   "gpt-4o-mini",
		CreatedTs: now,
		UpdatedTs: now,
	})
}

func createTestingMessage(ctx context.Context, ts *store.Store, chat *store.Chat, role store.MessageRole, content string) (*store.Message, error) {
	return ts.CreateMessage(ctx, &store.Message{
		ID:      uuid.NewString(),
		ChatID:  chat.ID,
		UserID:  chat.UserID,
		Role:    role,
		Content: content,
	})
}
