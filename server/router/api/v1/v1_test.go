package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t3clone/t3chat/internal/profile"
	"github.com/t3clone/t3chat/plugin/ai"
	"github.com/t3clone/t3chat/plugin/ai/aitest"
	"github.com/t3clone/t3chat/plugin/ai/metrics"
	"github.com/t3clone/t3chat/plugin/ai/tools"
	"github.com/t3clone/t3chat/server/auth"
	"github.com/t3clone/t3chat/server/service/attachment"
	"github.com/t3clone/t3chat/server/service/chat"
	"github.com/t3clone/t3chat/store"
	teststore "github.com/t3clone/t3chat/store/test"
)

const testJWTSecret = "test-secret"

type testAPI struct {
	e       *echo.Echo
	svc     *APIV1Service
	store   *store.Store
	chatLLM *aitest.ScriptedLLM
	utilLLM *aitest.ScriptedLLM
}

// newTestAPI serves the API with chat models routed to chatLLM and the
// utility model to utilLLM.
func newTestAPI(t *testing.T, chatLLM, utilLLM *aitest.ScriptedLLM) *testAPI {
	t.Helper()
	ts := teststore.NewTestingStore(context.Background(), t)
	prof := &profile.Profile{
		Mode:           "dev",
		Version:        "0.3.0",
		JWTSecret:      testJWTSecret,
		MaxUploadBytes: 1 << 20,
		AIDefaultModel: "gpt-4o-mini",
	}

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
	attachmentService := attachment.NewService(ts, filepath.Join(t.TempDir(), "attachments"), prof.MaxUploadBytes)
	chatService := chat.NewService(ts, registry, tools.NewRegistry(calculator), attachmentService, metricsService)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = chatService.Wait(ctx)
	})

	svc := NewAPIV1Service(prof, ts, chatService, attachmentService, metricsService)
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler
	svc.RegisterRoutes(e)
	return &testAPI{e: e, svc: svc, store: ts, chatLLM: chatLLM, utilLLM: utilLLM}
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateAccessToken(testJWTSecret, userID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return "Bearer " + token
}

// do sends a request as userID; an empty userID sends no token.
func (api *testAPI) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if userID != "" {
		req.Header.Set(echo.HeaderAuthorization, bearer(t, userID))
	}
	rec := httptest.NewRecorder()
	api.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (api *testAPI) createChat(t *testing.T, userID, title string) *store.Chat {
	t.Helper()
	now := time.Now().Unix()
	created, err := api.store.CreateChat(context.Background(), &store.Chat{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		ModelID:   "gpt-4o-mini",
		Tags:      []string{},
		CreatedTs: now,
		UpdatedTs: now,
	})
	require.NoError(t, err)
	return created
}

func (api *testAPI) createMessage(t *testing.T, c *store.Chat, id string, role store.MessageRole, content string) *store.Message {
	t.Helper()
	msg, err := api.store.CreateMessage(context.Background(), &store.Message{
		ID:        id,
		ChatID:    c.ID,
		UserID:    c.UserID,
		Role:      role,
		Content:   content,
		ModelID:   "gpt-4o-mini",
		CreatedTs: time.Now().UnixMilli(),
	})
	require.NoError(t, err)
	return msg
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t, aitest.NewScriptedLLM(), aitest.NewScriptedLLM())
	rec := api.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","version":"0.3.0"}`, rec.Body.String())
}

func TestRequireAuth(t *testing.T) {
	api := newTestAPI(t, aitest.NewScriptedLLM(), aitest.NewScriptedLLM())

	rec := api.do(t, http.MethodGet, "/api/chats", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decode[errorResponse](t, rec).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-token")
	rec = httptest.NewRecorder()
	api.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/chats", "user-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEchoErrorsKeepTheirStatus(t *testing.T) {
	api := newTestAPI(t, aitest.NewScriptedLLM(), aitest.NewScriptedLLM())

	rec := api.do(t, http.MethodGet, "/api/unknown", "user-1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[errorResponse](t, rec).Code)

	rec = api.do(t, http.MethodPatch, "/healthz", "", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", decode[errorResponse](t, rec).Code)

	aiErr := toAIError(echo.NewHTTPError(http.StatusRequestEntityTooLarge, "body too big"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, aiErr.HTTPStatus())
	assert.Equal(t, "body too big", aiErr.Message)
}

func TestListModels(t *testing.T) {
	api := newTestAPI(t, aitest.NewScriptedLLM(), aitest.NewScriptedLLM())
	rec := api.do(t, http.MethodGet, "/api/models", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[listModelsResponse](t, rec)
	assert.Equal(t, "gpt-4o-mini", resp.DefaultModel)
	require.NotEmpty(t, resp.Models)
	for _, m := range resp.Models {
		assert.Contains(t, []string{ai.ProviderOpenAI, ai.ProviderDeepSeek}, m.Provider)
	}
}

func TestMetricsOverview(t *testing.T) {
	api := newTestAPI(t, aitest.NewScriptedLLM(), aitest.NewScriptedLLM())
	api.svc.MetricsService.RecordRequest(context.Background(), "chat", 100*time.Millisecond, true)
	api.svc.MetricsService.RecordRequest(context.Background(), "chat", 300*time.Millisecond, false)

	rec := api.do(t, http.MethodGet, "/api/metrics?range=1h", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[MetricsOverviewResponse](t, rec)
	assert.Equal(t, int64(2), resp.TotalRequests)
	assert.Equal(t, int64(1), resp.ErrorCount)
	assert.InDelta(t, 0.5, resp.SuccessRate, 0.001)
	assert.Equal(t, "1h", resp.TimeRange)
	require.Contains(t, resp.Routes, "chat")
	assert.Equal(t, int64(2), resp.Routes["chat"].Count)

	rec = api.do(t, http.MethodGet, "/api/metrics?range=1y", "user-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseTimeRange(t *testing.T) {
	now := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"1h", time.Hour},
		{"24h", 24 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"30d", 30 * 24 * time.Hour},
	}
	for _, tt := range tests {
		start, err := parseTimeRange(tt.input, now)
		require.NoError(t, err)
		assert.Equal(t, tt.want, now.Sub(start), tt.input)
	}
	_, err := parseTimeRange("2w", now)
	assert.Error(t, err)
}
