package ai

import (
	"fmt"
	"strings"
	"time"
)

const chatSystemPrompt = `You are T3 Chat, a helpful assistant.
Answer in Markdown. Put code in fenced code blocks tagged with their language.
Use the calculator tool for arithmetic you cannot do exactly in your head.
Use the wikipedia tool when the user asks about facts you are unsure of, and cite the article.`

// BuildChatSystemPrompt renders the system prompt for the chat route.
func BuildChatSystemPrompt(customInstructions string, now time.Time) string {
	var b strings.Builder
	b.WriteString(chatSystemPrompt)
	fmt.Fprintf(&b, "\n\nCurrent date: %s.", now.UTC().Format("Monday, January 2, 2006"))
	if s := strings.TrimSpace(customInstructions); s != "" {
		b.WriteString("\n\nThe user gave these instructions, follow them unless they conflict with the rules above:\n")
		b.WriteString(s)
	}
	return b.String()
}

// IndexPromptMessage is one message shown to the indexing model.
type IndexPromptMessage struct {
	ID      string
	Role    string
	Content string
}

const indexSystemPrompt = `You organise chat conversations.
Return a JSON object with the keys:
  "title": a title of at most 6 words, no quotes, no trailing punctuation
  "tags": 1 to 3 lowercase single-word topic tags
  "important": a list of {"messageId": string, "summary": string} for the messages worth jumping back to
     (decisions, final answers, code the user kept). Summaries are at most 12 words.
Only use message ids that appear in the conversation. Return an empty list when nothing stands out.`

// BuildIndexPrompt renders the messages asking for title, tags and the chat index.
func BuildIndexPrompt(messages []IndexPromptMessage) []Message {
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.ID, m.Role, truncate(m.Content, 2000))
	}
	return []Message{
		SystemPrompt(indexSystemPrompt),
		UserMessage("Conversation:\n" + b.String()),
	}
}

// BuildCodeConversionPrompt renders the messages asking to translate code.
func BuildCodeConversionPrompt(code, sourceLanguage, targetLanguage string) []Message {
	source := sourceLanguage
	if source == "" {
		source = "the detected language"
	}
	system := fmt.Sprintf(`You translate source code from %s to %s.
Keep behaviour, names and comments. Use idiomatic %s.
Reply with the translated code only, in a single fenced code block tagged %s.`, source, targetLanguage, targetLanguage, strings.ToLower(targetLanguage))
	return []Message{
		SystemPrompt(system),
		UserMessage(code),
	}
}

const autocompleteSystemPrompt = `You complete the user's text as they type.
Reply with only the continuation of the text, at most one short sentence.
Do not repeat the input. Start with a space if the continuation begins a new word.`

// BuildAutocompletePrompt renders the messages for inline text suggestions.
func BuildAutocompletePrompt(prompt string) []Message {
	return []Message{
		SystemPrompt(autocompleteSystemPrompt),
		UserMessage(prompt),
	}
}
