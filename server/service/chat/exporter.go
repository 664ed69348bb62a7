package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"

	"github.com/t3clone/t3chat/plugin/markdown"
	apperrors "github.com/t3clone/t3chat/server/internal/errors"
	"github.com/t3clone/t3chat/store"
)

// Export formats.
const (
	ExportMarkdown = "markdown"
	ExportJSON     = "json"
	ExportHTML     = "html"
)

// Export is a rendered chat ready for download.
type Export struct {
	FileName    string
	ContentType string
	Body        []byte
}

type exportedMessage struct {
	ID              string          `json:"id"`
	Role            string          `json:"role"`
	Content         string          `json:"content"`
	ModelID         string          `json:"modelId,omitempty"`
	ToolInvocations json.RawMessage `json:"toolInvocations,omitempty"`
	CreatedAt       string          `json:"createdAt"`
}

type exportedChat struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	ModelID   string            `json:"modelId"`
	Tags      []string          `json:"tags"`
	CreatedAt string            `json:"createdAt"`
	UpdatedAt string            `json:"updatedAt"`
	Messages  []exportedMessage `json:"messages"`
}

var htmlExportTemplate = template.Must(template.New("chat").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,sans-serif;max-width:48rem;margin:2rem auto;padding:0 1rem;line-height:1.5}
.message{border-top:1px solid #ddd;padding:1rem 0}
.role{font-weight:600;text-transform:capitalize}
pre{background:#f5f5f5;padding:.75rem;overflow-x:auto}
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Messages}}<div class="message">
<div class="role">{{.Role}}{{if .ModelID}} <small>({{.ModelID}})</small>{{end}}</div>
{{.Body}}
</div>
{{end}}</body>
</html>
`))

var unsafeFileChars = regexp.MustCompile(`[^a-z0-9]+`)

// ExportChat renders a chat of the user as Markdown, JSON or HTML.
func (s *Service) ExportChat(ctx context.Context, userID, chatID, format string) (*Export, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "", "md":
		format = ExportMarkdown
	case ExportMarkdown, ExportJSON, ExportHTML:
	default:
		return nil, apperrors.InvalidArgument(fmt.Sprintf("unsupported export format %q", format))
	}

	detail, err := s.GetChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	messages := make([]*store.Message, 0, len(detail.Messages))
	for _, m := range detail.Messages {
		if m.Role == store.MessageRoleUser || m.Role == store.MessageRoleAssistant {
			messages = append(messages, m)
		}
	}

	base := exportFileName(detail.Chat.Title)
	switch format {
	case ExportJSON:
		body, err := exportJSON(detail.Chat, messages)
		if err != nil {
			return nil, apperrors.Internal("failed to export chat", err)
		}
		return &Export{FileName: base + ".json", ContentType: "application/json", Body: body}, nil
	case ExportHTML:
		body, err := exportHTML(detail.Chat, messages)
		if err != nil {
			return nil, apperrors.Internal("failed to export chat", err)
		}
		return &Export{FileName: base + ".html", ContentType: "text/html; charset=utf-8", Body: body}, nil
	default:
		return &Export{FileName: base + ".md", ContentType: "text/markdown; charset=utf-8", Body: exportMarkdown(detail.Chat, messages)}, nil
	}
}

func exportMarkdown(chat *store.Chat, messages []*store.Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", chat.Title)
	if len(chat.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n\n", strings.Join(chat.Tags, ", "))
	}
	for _, m := range messages {
		heading := "User"
		if m.Role == store.MessageRoleAssistant {
			heading = "Assistant"
			if m.ModelID != "" {
				heading += " (" + m.ModelID + ")"
			}
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", heading, strings.TrimSpace(m.Content))
	}
	return b.Bytes()
}

func exportJSON(chat *store.Chat, messages []*store.Message) ([]byte, error) {
	out := exportedChat{
		ID:        chat.ID,
		Title:     chat.Title,
		ModelID:   chat.ModelID,
		Tags:      chat.Tags,
		CreatedAt: time.Unix(chat.CreatedTs, 0).UTC().Format(time.RFC3339),
		UpdatedAt: time.Unix(chat.UpdatedTs, 0).UTC().Format(time.RFC3339),
		Messages:  make([]exportedMessage, 0, len(messages)),
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	for _, m := range messages {
		em := exportedMessage{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			ModelID:   m.ModelID,
			CreatedAt: time.UnixMilli(m.CreatedTs).UTC().Format(time.RFC3339Nano),
		}
		if m.ToolInvocations != "" && m.ToolInvocations != "[]" && json.Valid([]byte(m.ToolInvocations)) {
			em.ToolInvocations = json.RawMessage(m.ToolInvocations)
		}
		out.Messages = append(out.Messages, em)
	}
	return json.MarshalIndent(out, "", "  ")
}

func exportHTML(chat *store.Chat, messages []*store.Message) ([]byte, error) {
	type htmlMessage struct {
		Role    string
		ModelID string
		Body    template.HTML
	}
	data := struct {
		Title    string
		Messages []htmlMessage
	}{Title: chat.Title}
	for _, m := range messages {
		rendered, err := markdown.RenderHTML(m.Content)
		if err != nil {
			return nil, err
		}
		// RenderHTML drops raw HTML from the source, so the output is safe to embed.
		data.Messages = append(data.Messages, htmlMessage{Role: string(m.Role), ModelID: m.ModelID, Body: template.HTML(rendered)})
	}
	var b bytes.Buffer
	if err := htmlExportTemplate.Execute(&b, data); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func exportFileName(title string) string {
	name := strings.Trim(unsafeFileChars.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if name == "" {
		return "chat"
	}
	if len(name) > 60 {
		name = strings.TrimRight(name[:60], "-")
	}
	return name
}
