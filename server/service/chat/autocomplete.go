package chat

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/t3clone/t3chat/plugin/ai"
	apperrors "github.com/t3clone/t3chat/server/internal/errors"
)

// ErrAutocompleteDisabled is returned when the user turned suggestions off.
var ErrAutocompleteDisabled = errors.New("autocomplete is disabled")

const (
	maxAutocompletePromptRunes = 2000
	autocompleteMaxTokens      = 48
)

var autocompleteTemperature float32 = 0.2

// AutocompleteRequest asks for a continuation of the text being typed.
type AutocompleteRequest struct {
	UserID  string
	Prompt  string
	ModelID string
}

// Autocomplete streams a short continuation of the prompt as text events
// followed by a finish event. Answers are memoised per model and prompt.
func (s *Service) Autocomplete(ctx context.Context, req *AutocompleteRequest, emit EmitFunc) (suggestion string, err error) {
	start := time.Now()
	defer func() {
		if !errors.Is(err, ErrAutocompleteDisabled) {
			s.recordRequest(ctx, "autocomplete", start, err)
		}
	}()

	prompt := req.Prompt
	if strings.TrimSpace(prompt) == "" {
		return "", apperrors.InvalidArgument("prompt is required")
	}
	if r := []rune(prompt); len(r) > maxAutocompletePromptRunes {
		prompt = string(r[len(r)-maxAutocompletePromptRunes:])
	}
	if !s.registry.Enabled() {
		return "", apperrors.ServiceUnavailable("AI is not configured")
	}
	if !s.userSetting(ctx, req.UserID).AutocompleteEnabled {
		return "", ErrAutocompleteDisabled
	}

	model, err := s.registry.ResolveUtility(req.ModelID)
	if err != nil {
		return "", errLLMUnavailable(err)
	}
	key := "autocomplete:" + model.ID + ":" + prompt
	if cached, ok := s.autocompleteCache.Get(key); ok {
		suggestion = string(cached)
		if suggestion != "" {
			if err := emit(Event{Type: EventText, Text: suggestion}); err != nil {
				return "", err
			}
		}
		return suggestion, emit(Event{Type: EventFinish, FinishReason: "stop"})
	}

	llm, err := s.llmFor(model)
	if err != nil {
		return "", err
	}
	temperature := autocompleteTemperature
	text, _, finishReason, err := s.streamStep(ctx, llm, &ai.ChatRequest{
		Model:       model.APIModelName(),
		Messages:    ai.BuildAutocompletePrompt(prompt),
		MaxTokens:   autocompleteMaxTokens,
		Temperature: &temperature,
	}, emit)
	if err != nil {
		return "", err
	}
	s.autocompleteCache.Set(key, []byte(text), 0)
	return text, emit(Event{Type: EventFinish, FinishReason: finishReason})
}
