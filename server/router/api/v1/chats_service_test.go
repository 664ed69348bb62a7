package v1

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t3clone/t3chat/plugin/ai/aitest"
	"github.com/t3clone/t3chat/store"
)

func TestChats_ListAndUpdate(t *testing.T) {
	api := newTestAPI(t, aitest.NewScriptedLLM(), aitest.NewScriptedLLM())
	first := api.createChat(t, "user-1", "First")
	second := api.createChat(t, "user-1", "Second")
	api.createChat(t, "user-2", "Other")

	rec := api.do(t, http.MethodGet, "/api/chats", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]Chat](t, rec), 2)

	rec = api.do(t, http.MethodPatch, "/api/chats/"+second.ID, "user-1", map[string]any{
		"title":  "Renamed",
		"pinned": true,
		"tags":   []string{"Go Lang", "#go lang", "tips"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[Chat](t, rec)
	assert.Equal(t, "Renamed", updated.Title)
	assert.True(t, updated.Pinned)
	assert.Equal(t, []string{"go-lang", "tips"}, updated.Tags)

	rec = api.do(t, http.MethodGet, "/api/chats?pinned=true", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pinned := decode[[]Chat](t, rec)
	require.Len(t, pinned, 1)
	assert.Equal(t, second.ID, pinned[0].ID)

	rec = api.do(t, http.MethodGet, "/api/chats?tag=tips", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]Chat](t, rec), 1)

	rec = api.do(t, http.MethodGet, "/api/chats?archived=maybe", "user-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPatch, "/api/chats/"+first.ID, "user-1", map[string]any{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPatch, "/api/chats/"+first.ID, "user-2", map[string]any{"pinned": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChats_GetAndDelete(t *testing.T) {
	api := newTestAPI(t, aitest.NewScriptedLLM(), aitest.NewScriptedLLM())
	c := api.createChat(t, "user-1", "Chat")
	api.createMessage(t, c, "m1", store.MessageRoleUser, "Hi")

	rec := api.do(t, http.MethodGet, "/api/chats/"+c.ID, "user-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/chats/"+c.ID, "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[ChatDetail](t, rec)
	assert.Equal(t, "Chat", detail.Chat.Title)
	require.Len(t, detail.Messages, 1)

	rec = api.do(t, http.MethodDelete, "/api/chats/"+c.ID, "user-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodDelete, "/api/chats/"+c.ID, "user-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/chats/"+c.ID, "user-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChats_Share(t *testing.T) {
	api := newTestAPI(t, aitest.NewScriptedLLM(), aitest.NewScriptedLLM())
	c := api.createChat(t, "user-1", "Shared")
	api.createMessage(t, c, "m1", store.MessageRoleUser, "Hi")
	api.createMessage(t, c, "m2", store.MessageRoleAssistant, "Hello")

	rec := api.do(t, http.MethodPost, "/api/chats/"+c.ID+"/share", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	shared := decode[shareResponse](t, rec)
	require.NotEmpty(t, shared.ShareID)
	assert.Equal(t, "/api/shared/"+shared.ShareID, shared.URL)

	// Sharing again keeps the link.
	rec = api.do(t, http.MethodPost, "/api/chats/"+c.ID+"/share", "user-1", nil)
	assert.Equal(t, shared.ShareID, decode[shareResponse](t, rec).ShareID)

	rec = api.do(t, http.MethodGet, "/api/shared/"+shared.ShareID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[ChatDetail](t, rec)
	assert.Equal(t, "Shared", detail.Chat.Title)
	assert.Empty(t, detail.Chat.ShareID)
	assert.Len(t, detail.Messages, 2)

	rec = api.do(t, http.MethodDelete, "/api/chats/"+c.ID+"/share", "user-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/shared/"+shared.ShareID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChats_Export(t *testing.T) {
	api := newTestAPI(t, aitest.NewScriptedLLM(), aitest.NewScriptedLLM())
	c := api.createChat(t, "user-1", "Go Tips")
	api.createMessage(t, c, "m1", store.MessageRoleUser, "How do I sort?")
	api.createMessage(t, c, "m2", store.MessageRoleAssistant, "Use slices.Sort.")

	rec := api.do(t, http.MethodGet, "/api/chats/"+c.ID+"/export", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="go-tips.md"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, rec.Body.String(), "# Go Tips")
	assert.Contains(t, rec.Body.String(), "Use slices.Sort.")

	rec = api.do(t, http.MethodGet, "/api/chats/"+c.ID+"/export?format=json", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	rec = api.do(t, http.MethodGet, "/api/chats/"+c.ID+"/export?format=pdf", "user-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
