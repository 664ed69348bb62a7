package v1

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t3clone/t3chat/plugin/ai/aitest"
)

func TestUserSetting(t *testing.T) {
	api := newTestAPI(t, aitest.NewScriptedLLM(), aitest.NewScriptedLLM())

	rec := api.do(t, http.MethodGet, "/api/settings", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	setting := decode[UserSetting](t, rec)
	assert.Equal(t, "system", setting.Theme)
	assert.True(t, setting.AutocompleteEnabled)
	assert.Empty(t, setting.DefaultModel)

	rec = api.do(t, http.MethodPut, "/api/settings", "user-1", map[string]any{
		"defaultModel":        "gpt-4o",
		"theme":               "dark",
		"autocompleteEnabled": false,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Fields left out keep their value.
	rec = api.do(t, http.MethodPut, "/api/settings", "user-1", map[string]any{"customInstructions": "Be brief."})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/settings", "user-1", nil)
	setting = decode[UserSetting](t, rec)
	assert.Equal(t, "gpt-4o", setting.DefaultModel)
	assert.Equal(t, "dark", setting.Theme)
	assert.False(t, setting.AutocompleteEnabled)
	assert.Equal(t, "Be brief.", setting.CustomInstructions)
	assert.False(t, setting.UpdatedAt.IsZero())

	rec = api.do(t, http.MethodPut, "/api/settings", "user-1", map[string]any{"defaultModel": "gpt-9"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(t, http.MethodPut, "/api/settings", "user-1", map[string]any{"theme": "blue"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Other users still see the defaults.
	rec = api.do(t, http.MethodGet, "/api/settings", "user-2", nil)
	assert.Equal(t, "system", decode[UserSetting](t, rec).Theme)
}

func TestUserProfile(t *testing.T) {
	api := newTestAPI(t, aitest.NewScriptedLLM(), aitest.NewScriptedLLM())

	rec := api.do(t, http.MethodGet, "/api/profile", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[UserProfile](t, rec)
	assert.Equal(t, "user-1", p.ID)
	assert.Empty(t, p.Username)

	rec = api.do(t, http.MethodPut, "/api/profile", "user-1", map[string]any{
		"username":    "ada_l",
		"displayName": " Ada Lovelace ",
		"avatarUrl":   "https://example.com/ada.png",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p = decode[UserProfile](t, rec)
	assert.Equal(t, "ada_l", p.Username)
	assert.Equal(t, "Ada Lovelace", p.DisplayName)
	assert.False(t, p.CreatedAt.IsZero())

	rec = api.do(t, http.MethodPut, "/api/profile", "user-1", map[string]any{"username": "bad name!"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(t, http.MethodPut, "/api/profile", "user-1", map[string]any{"avatarUrl": "javascript:alert(1)"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/profile", "user-1", nil)
	assert.Equal(t, "ada_l", decode[UserProfile](t, rec).Username)
}
