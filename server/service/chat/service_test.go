package chat

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t3clone/t3chat/plugin/ai"
	"github.com/t3clone/t3chat/plugin/ai/aitest"
	"github.com/t3clone/t3chat/plugin/ai/metrics"
	"github.com/t3clone/t3chat/plugin/ai/tools"
	"github.com/t3clone/t3chat/server/service/attachment"
	"github.com/t3clone/t3chat/store"
	teststore "github.com/t3clone/t3chat/store/test"
)

type testEnv struct {
	svc     *Service
	store   *store.Store
	chatLLM *aitest.ScriptedLLM
	utilLLM *aitest.ScriptedLLM
	metrics *metrics.Service
}

// newTestEnv wires the service to two scripted providers: chat models go to
// chatLLM and the utility model (titles, index, autocomplete) to utilLLM.
func newTestEnv(t *testing.T, chatLLM, utilLLM *aitest.ScriptedLLM, opts ...Option) *testEnv {
	t.Helper()
	ts := teststore.NewTestingStore(context.Background(), t)

	cfg := &ai.Config{
		Enabled:      true,
		DefaultModel: "gpt-4o-mini",
		UtilityModel: "deepseek-chat",
		Providers: map[string]ai.LLMConfig{
			ai.ProviderOpenAI:   {Provider: ai.ProviderOpenAI, APIKey: "k", BaseURL: "http://openai.invalid/v1"},
			ai.ProviderDeepSeek: {Provider: ai.ProviderDeepSeek, APIKey: "k", BaseURL: "http://deepseek.invalid"},
		},
	}
	registry := ai.NewRegistryWithServices(cfg, map[string]ai.LLMService{
		ai.ProviderOpenAI:   chatLLM,
		ai.ProviderDeepSeek: utilLLM,
	})
	calculator, err := tools.NewCalculatorTool()
	require.NoError(t, err)

	metricsService := metrics.NewService()
	svc := NewService(ts, registry, tools.NewRegistry(calculator),
		attachment.NewService(ts, filepath.Join(t.TempDir(), "attachments"), 1<<20),
		metricsService, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Wait(ctx)
	})
	return &testEnv{svc: svc, store: ts, chatLLM: chatLLM, utilLLM: utilLLM, metrics: metricsService}
}

type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) emit(e Event) error {
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) types() []EventType {
	out := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (env *testEnv) createChat(t *testing.T, userID, title string) *store.Chat {
	t.Helper()
	now := time.Now().Unix()
	chat, err := env.store.CreateChat(context.Background(), &store.Chat{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		ModelID:   "gpt-4o-mini",
		Tags:      []string{},
		CreatedTs: now,
		UpdatedTs: now,
	})
	require.NoError(t, err)
	return chat
}

func (env *testEnv) createMessage(t *testing.T, chat *store.Chat, id string, role store.MessageRole, content string, createdTs int64) *store.Message {
	t.Helper()
	msg, err := env.store.CreateMessage(context.Background(), &store.Message{
		ID:        id,
		ChatID:    chat.ID,
		UserID:    chat.UserID,
		Role:      role,
		Content:   content,
		ModelID:   "gpt-4o-mini",
		CreatedTs: createdTs,
	})
	require.NoError(t, err)
	return msg
}

func TestServiceModels(t *testing.T) {
	env := newTestEnv(t, aitest.NewScriptedLLM(), aitest.NewScriptedLLM())
	for _, m := range env.svc.Models() {
		assert.Contains(t, []string{ai.ProviderOpenAI, ai.ProviderDeepSeek}, m.Provider)
	}
}

func TestEventJSON(t *testing.T) {
	raw, err := json.Marshal(Event{Type: EventToolResult, ToolResult: &ToolInvocation{Step: 1, ToolCallID: "c1", Name: "calculator", Arguments: "{}", Result: "2", Success: true}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"tool_result","toolResult":{"step":1,"toolCallId":"c1","toolName":"calculator","args":"{}","result":"2","success":true}}`, string(raw))
}
