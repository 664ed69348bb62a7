package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/t3clone/t3chat/server/internal/errors"
	"github.com/t3clone/t3chat/store"
)

// ChatFilter narrows the chat list. Nil fields do not filter.
type ChatFilter struct {
	Pinned   *bool
	Archived *bool
	Tag      *string
}

// ChatDetail is a chat with its messages and attachments.
type ChatDetail struct {
	Chat        *store.Chat
	Messages    []*store.Message
	Attachments []*store.Attachment
}

// ChatPatch holds the user editable fields of a chat.
type ChatPatch struct {
	Title    *string
	Pinned   *bool
	Archived *bool
	Tags     *[]string
}

// ListChats returns the chats of the user, pinned first then most recent.
func (s *Service) ListChats(ctx context.Context, userID string, filter ChatFilter) ([]*store.Chat, error) {
	find := &store.FindChat{
		UserID:   &userID,
		Pinned:   filter.Pinned,
		Archived: filter.Archived,
	}
	if filter.Tag != nil {
		// Stored tags are normalized, so the filter must be too.
		tag := normalizeTag(*filter.Tag)
		find.Tag = &tag
	}
	list, err := s.store.ListChats(ctx, find)
	if err != nil {
		return nil, apperrors.Internal("failed to list chats", err)
	}
	return list, nil
}

// GetChat loads a chat of the user with its messages and attachments.
func (s *Service) GetChat(ctx context.Context, userID, chatID string) (*ChatDetail, error) {
	detail := &ChatDetail{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		chat, err := s.store.GetChat(gctx, &store.FindChat{ID: &chatID, UserID: &userID})
		if err != nil {
			return notFoundOr(err, "chat")
		}
		detail.Chat = chat
		return nil
	})
	g.Go(func() error {
		messages, err := s.store.ListMessages(gctx, &store.FindMessage{ChatID: &chatID, UserID: &userID})
		if err != nil {
			return apperrors.Internal("failed to list messages", err)
		}
		detail.Messages = messages
		return nil
	})
	g.Go(func() error {
		attachments, err := s.store.ListAttachments(gctx, &store.FindAttachment{ChatID: &chatID, UserID: &userID})
		if err != nil {
			return apperrors.Internal("failed to list attachments", err)
		}
		detail.Attachments = attachments
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return detail, nil
}

// UpdateChat applies a patch to a chat of the user.
func (s *Service) UpdateChat(ctx context.Context, userID, chatID string, patch *ChatPatch) (*store.Chat, error) {
	update := &store.UpdateChat{ID: chatID, UserID: userID, Pinned: patch.Pinned, Archived: patch.Archived}
	if patch.Title != nil {
		title := sanitizeTitle(*patch.Title)
		if title == "" {
			return nil, apperrors.InvalidArgument("title must not be empty")
		}
		update.Title = &title
	}
	if patch.Tags != nil {
		tags := normalizeTags(*patch.Tags)
		update.Tags = &tags
	}
	chat, err := s.store.UpdateChat(ctx, update)
	if err != nil {
		return nil, notFoundOr(err, "chat")
	}
	return chat, nil
}

// DeleteChat removes a chat of the user with its messages, index rows,
// conversions and attachment files.
func (s *Service) DeleteChat(ctx context.Context, userID, chatID string) error {
	var attachments []*store.Attachment
	if s.attachments != nil {
		list, err := s.attachments.ListForChat(ctx, userID, chatID)
		if err != nil {
			return apperrors.Internal("failed to list attachments", err)
		}
		attachments = list
	}
	if err := s.store.DeleteChat(ctx, &store.DeleteChat{ID: chatID, UserID: userID}); err != nil {
		return notFoundOr(err, "chat")
	}
	if s.attachments != nil {
		s.attachments.RemoveFiles(attachments...)
	}
	return nil
}

// ShareChat publishes a chat under a share id. Sharing twice keeps the id.
func (s *Service) ShareChat(ctx context.Context, userID, chatID string) (*store.Chat, error) {
	chat, err := s.store.GetChat(ctx, &store.FindChat{ID: &chatID, UserID: &userID})
	if err != nil {
		return nil, notFoundOr(err, "chat")
	}
	if chat.ShareID != "" {
		return chat, nil
	}
	shareID := shortuuid.New()
	chat, err = s.store.UpdateChat(ctx, &store.UpdateChat{ID: chatID, UserID: userID, ShareID: &shareID})
	if err != nil {
		return nil, notFoundOr(err, "chat")
	}
	slog.Info("chat shared", slog.String("chat_id", chatID), slog.String("share_id", shareID))
	return chat, nil
}

// UnshareChat revokes the share id of a chat.
func (s *Service) UnshareChat(ctx context.Context, userID, chatID string) (*store.Chat, error) {
	empty := ""
	chat, err := s.store.UpdateChat(ctx, &store.UpdateChat{ID: chatID, UserID: userID, ShareID: &empty})
	if err != nil {
		return nil, notFoundOr(err, "chat")
	}
	return chat, nil
}

// GetSharedChat returns a shared chat with its user and assistant messages.
func (s *Service) GetSharedChat(ctx context.Context, shareID string) (*ChatDetail, error) {
	if shareID == "" {
		return nil, apperrors.NotFound("chat not found")
	}
	chat, err := s.store.GetChat(ctx, &store.FindChat{ShareID: &shareID})
	if err != nil {
		return nil, notFoundOr(err, "chat")
	}
	messages, err := s.store.ListMessages(ctx, &store.FindMessage{ChatID: &chat.ID})
	if err != nil {
		return nil, apperrors.Internal("failed to list messages", err)
	}
	visible := make([]*store.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == store.MessageRoleUser || m.Role == store.MessageRoleAssistant {
			visible = append(visible, m)
		}
	}
	return &ChatDetail{Chat: chat, Messages: visible}, nil
}

// normalizeTags cleans user supplied tags. Unlike generated tags the count is not capped.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool)
	for _, tag := range tags {
		tag = normalizeTag(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// normalizeTag lowercases a tag, drops a leading "#" and joins its words with "-".
func normalizeTag(tag string) string {
	tag = strings.TrimLeft(strings.ToLower(strings.TrimSpace(tag)), "#")
	return strings.Join(strings.Fields(tag), "-")
}
