package ai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// GenerateObject asks the model for a single JSON object and decodes it into out.
func GenerateObject(ctx context.Context, llm LLMService, req *ChatRequest, out any) error {
	req.JSONMode = true
	resp, err := llm.Chat(ctx, req)
	if err != nil {
		return errors.Wrap(err, "failed to generate object")
	}

	raw := stripCodeFence(resp.Content)
	if raw == "" {
		return errors.New("model returned an empty object")
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return errors.Wrapf(err, "failed to decode model output %q", truncate(raw, 200))
	}
	return nil
}

// stripCodeFence removes a ```json fence some models wrap JSON output in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
