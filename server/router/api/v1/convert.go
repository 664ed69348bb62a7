package v1

import (
	"encoding/json"
	"time"

	"github.com/t3clone/t3chat/store"
)

type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ModelID   string    `json:"modelId"`
	Pinned    bool      `json:"pinned"`
	Archived  bool      `json:"archived"`
	Tags      []string  `json:"tags"`
	ShareID   string    `json:"shareId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Message struct {
	ID              string          `json:"id"`
	ChatID          string          `json:"chatId"`
	Role            string          `json:"role"`
	Content         string          `json:"content"`
	ModelID         string          `json:"modelId,omitempty"`
	ToolInvocations json.RawMessage `json:"toolInvocations"`
	Attachments     []*Attachment   `json:"attachments,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type Attachment struct {
	ID           string    `json:"id"`
	ChatID       string    `json:"chatId,omitempty"`
	MessageID    string    `json:"messageId,omitempty"`
	FileName     string    `json:"fileName"`
	ContentType  string    `json:"contentType"`
	Size         int64     `json:"size"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ChatIndexEntry struct {
	MessageID string    `json:"messageId"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
}

type CodeConversion struct {
	ID             string    `json:"id"`
	MessageID      string    `json:"messageId"`
	SourceLanguage string    `json:"sourceLanguage"`
	TargetLanguage string    `json:"targetLanguage"`
	SourceCode     string    `json:"sourceCode"`
	ConvertedCode  string    `json:"convertedCode"`
	ModelID        string    `json:"modelId"`
	CreatedAt      time.Time `json:"createdAt"`
}

type UserSetting struct {
	DefaultModel        string    `json:"defaultModel"`
	Theme               string    `json:"theme"`
	CustomInstructions  string    `json:"customInstructions"`
	AutocompleteEnabled bool      `json:"autocompleteEnabled"`
	UpdatedAt           time.Time `json:"updatedAt,omitzero"`
}

type UserProfile struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	AvatarURL   string    `json:"avatarUrl"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// ChatDetail is a chat with its messages; attachments are nested under their message.
type ChatDetail struct {
	Chat     *Chat      `json:"chat"`
	Messages []*Message `json:"messages"`
	// Attachments lists uploads of the chat not linked to a message yet.
	Attachments []*Attachment `json:"attachments,omitempty"`
}

func convertChatFromStore(chat *store.Chat) *Chat {
	tags := chat.Tags
	if tags == nil {
		tags = []string{}
	}
	return &Chat{
		ID:        chat.ID,
		Title:     chat.Title,
		ModelID:   chat.ModelID,
		Pinned:    chat.Pinned,
		Archived:  chat.Archived,
		Tags:      tags,
		ShareID:   chat.ShareID,
		CreatedAt: time.Unix(chat.CreatedTs, 0).UTC(),
		UpdatedAt: time.Unix(chat.UpdatedTs, 0).UTC(),
	}
}

func convertMessageFromStore(message *store.Message) *Message {
	invocations := json.RawMessage("[]")
	if message.ToolInvocations != "" && json.Valid([]byte(message.ToolInvocations)) {
		invocations = json.RawMessage(message.ToolInvocations)
	}
	return &Message{
		ID:              message.ID,
		ChatID:          message.ChatID,
		Role:            string(message.Role),
		Content:         message.Content,
		ModelID:         message.ModelID,
		ToolInvocations: invocations,
		CreatedAt:       time.UnixMilli(message.CreatedTs).UTC(),
	}
}

func convertAttachmentFromStore(attachment *store.Attachment) *Attachment {
	a := &Attachment{
		ID:          attachment.ID,
		ChatID:      attachment.ChatID,
		MessageID:   attachment.MessageID,
		FileName:    attachment.FileName,
		ContentType: attachment.ContentType,
		Size:        attachment.Size,
		URL:         "/api/attachments/" + attachment.ID,
		CreatedAt:   time.Unix(attachment.CreatedTs, 0).UTC(),
	}
	if attachment.ThumbnailPath != "" {
		a.ThumbnailURL = a.URL + "/thumbnail"
	}
	return a
}

func convertChatDetail(chat *store.Chat, messages []*store.Message, attachments []*store.Attachment) *ChatDetail {
	byMessage := make(map[string][]*Attachment)
	detail := &ChatDetail{Chat: convertChatFromStore(chat), Messages: make([]*Message, 0, len(messages))}
	for _, a := range attachments {
		if a.MessageID == "" {
			detail.Attachments = append(detail.Attachments, convertAttachmentFromStore(a))
			continue
		}
		byMessage[a.MessageID] = append(byMessage[a.MessageID], convertAttachmentFromStore(a))
	}
	for _, m := range messages {
		msg := convertMessageFromStore(m)
		msg.Attachments = byMessage[m.ID]
		detail.Messages = append(detail.Messages, msg)
	}
	return detail
}

func convertChatIndexFromStore(rows []*store.ChatIndex) []*ChatIndexEntry {
	out := make([]*ChatIndexEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, &ChatIndexEntry{
			MessageID: row.MessageID,
			Summary:   row.Summary,
			CreatedAt: time.Unix(row.CreatedTs, 0).UTC(),
		})
	}
	return out
}

func convertCodeConversionFromStore(c *store.CodeConversion) *CodeConversion {
	return &CodeConversion{
		ID:             c.ID,
		MessageID:      c.MessageID,
		SourceLanguage: c.SourceLanguage,
		TargetLanguage: c.TargetLanguage,
		SourceCode:     c.SourceCode,
		ConvertedCode:  c.ConvertedCode,
		ModelID:        c.ModelID,
		CreatedAt:      time.Unix(c.CreatedTs, 0).UTC(),
	}
}

func convertUserSettingFromStore(setting *store.UserSetting) *UserSetting {
	s := &UserSetting{
		DefaultModel:        setting.DefaultModel,
		Theme:               setting.Theme,
		CustomInstructions:  setting.CustomInstructions,
		AutocompleteEnabled: setting.AutocompleteEnabled,
	}
	if setting.UpdatedTs > 0 {
		s.UpdatedAt = time.Unix(setting.UpdatedTs, 0).UTC()
	}
	return s
}

func convertUserProfileFromStore(p *store.UserProfile) *UserProfile {
	out := &UserProfile{
		ID:          p.ID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
	}
	if p.CreatedTs > 0 {
		out.CreatedAt = time.Unix(p.CreatedTs, 0).UTC()
		out.UpdatedAt = time.Unix(p.UpdatedTs, 0).UTC()
	}
	return out
}
