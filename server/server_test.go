package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t3clone/t3chat/internal/profile"
	teststore "github.com/t3clone/t3chat/store/test"
)

func TestNewServer_AIDisabled(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	s, err := NewServer(ctx, &profile.Profile{
		Mode:             "dev",
		Version:          "0.3.0",
		Data:             t.TempDir(),
		JWTSecret:        "secret",
		MaxUploadBytes:   1 << 20,
		WikipediaBaseURL: "http://wikipedia.invalid",
	}, ts)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"models":[],"defaultModel":""}`, rec.Body.String())
}

func TestNewServer_InvalidAIConfig(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	_, err := NewServer(ctx, &profile.Profile{
		Mode:           "dev",
		Data:           t.TempDir(),
		AIEnabled:      true,
		AIDefaultModel: "gpt-4o",
		// No provider credentials.
	}, ts)
	assert.Error(t, err)
}
