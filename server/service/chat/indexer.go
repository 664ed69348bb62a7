package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/t3clone/t3chat/plugin/ai"
	"github.com/t3clone/t3chat/store"
)

const (
	maxTitleRunes = 80
	maxTags       = 3
	maxTagRunes   = 24
)

type indexResult struct {
	Title     string   `json:"title"`
	Tags      []string `json:"tags"`
	Important []struct {
		MessageID string `json:"messageId"`
		Summary   string `json:"summary"`
	} `json:"important"`
}

// IndexAsync indexes a chat in the background. Failures are only logged.
func (s *Service) IndexAsync(chatID, userID string, isNew bool) {
	s.indexWG.Add(1)
	go func() {
		defer s.indexWG.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.indexTimeout)
		defer cancel()
		if err := s.indexSem.Acquire(ctx, 1); err != nil {
			slog.Warn("index job dropped", slog.String("chat_id", chatID), slog.String("error", err.Error()))
			return
		}
		defer s.indexSem.Release(1)

		if _, err := s.Index(ctx, chatID, userID, isNew); err != nil {
			slog.Warn("failed to index chat", slog.String("chat_id", chatID), slog.String("error", err.Error()))
		}
	}()
}

// Index asks the utility model which messages of the chat matter and stores
// them in the chat index. With updateTitle, or while the chat still has the
// default title, the chat title and tags are replaced by the generated ones.
func (s *Service) Index(ctx context.Context, chatID, userID string, updateTitle bool) (rows []*store.ChatIndex, err error) {
	start := time.Now()
	defer func() { s.recordRequest(ctx, "chat-index", start, err) }()

	chat, err := s.store.GetChat(ctx, &store.FindChat{ID: &chatID, UserID: &userID})
	if err != nil {
		return nil, notFoundOr(err, "chat")
	}
	messages, err := s.store.ListMessages(ctx, &store.FindMessage{ChatID: &chat.ID})
	if err != nil {
		return nil, notFoundOr(err, "messages")
	}

	promptMessages := make([]ai.IndexPromptMessage, 0, len(messages))
	known := make(map[string]bool, len(messages))
	for _, m := range messages {
		if m.Role != store.MessageRoleUser && m.Role != store.MessageRoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		known[m.ID] = true
		promptMessages = append(promptMessages, ai.IndexPromptMessage{ID: m.ID, Role: string(m.Role), Content: m.Content})
	}
	if len(promptMessages) == 0 {
		return s.listIndex(ctx, chat.ID)
	}

	model, err := s.registry.ResolveUtility(chat.ModelID)
	if err != nil {
		return nil, errLLMUnavailable(err)
	}
	llm, err := s.llmFor(model)
	if err != nil {
		return nil, err
	}
	var result indexResult
	if err := ai.GenerateObject(ctx, llm, &ai.ChatRequest{
		Model:    model.APIModelName(),
		Messages: ai.BuildIndexPrompt(promptMessages),
	}, &result); err != nil {
		return nil, errLLMUnavailable(err)
	}

	if updateTitle || chat.Title == DefaultChatTitle {
		update := &store.UpdateChat{ID: chat.ID, UserID: userID}
		if title := sanitizeTitle(result.Title); title != "" {
			update.Title = &title
		}
		if tags := sanitizeTags(result.Tags); len(tags) > 0 {
			update.Tags = &tags
		}
		if update.Title != nil || update.Tags != nil {
			if _, err := s.store.UpdateChat(ctx, update); err != nil {
				return nil, notFoundOr(err, "chat")
			}
		}
	}

	for _, important := range result.Important {
		summary := strings.TrimSpace(important.Summary)
		if !known[important.MessageID] || summary == "" {
			continue
		}
		if _, err := s.store.UpsertChatIndex(ctx, &store.ChatIndex{
			ChatID:    chat.ID,
			MessageID: important.MessageID,
			Summary:   summary,
		}); err != nil {
			return nil, notFoundOr(err, "chat index")
		}
	}
	return s.listIndex(ctx, chat.ID)
}

// ListIndex returns the index rows of a chat owned by userID.
func (s *Service) ListIndex(ctx context.Context, chatID, userID string) ([]*store.ChatIndex, error) {
	if _, err := s.store.GetChat(ctx, &store.FindChat{ID: &chatID, UserID: &userID}); err != nil {
		return nil, notFoundOr(err, "chat")
	}
	return s.listIndex(ctx, chatID)
}

func (s *Service) listIndex(ctx context.Context, chatID string) ([]*store.ChatIndex, error) {
	rows, err := s.store.ListChatIndexes(ctx, &store.FindChatIndex{ChatID: &chatID})
	if err != nil {
		return nil, notFoundOr(err, "chat index")
	}
	return rows, nil
}

func sanitizeTitle(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	title = strings.Trim(title, "\"'`")
	title = strings.TrimRight(title, ".!?:; ")
	if utf8.RuneCountInString(title) > maxTitleRunes {
		title = strings.TrimSpace(string([]rune(title)[:maxTitleRunes]))
	}
	return title
}

func sanitizeTags(tags []string) []string {
	out := make([]string, 0, maxTags)
	seen := make(map[string]bool)
	for _, tag := range tags {
		tag = normalizeTag(tag)
		if tag == "" || seen[tag] || utf8.RuneCountInString(tag) > maxTagRunes {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
		if len(out) == maxTags {
			break
		}
	}
	return out
}
