package chat

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t3clone/t3chat/plugin/ai/aitest"
	apperrors "github.com/t3clone/t3chat/server/internal/errors"
	"github.com/t3clone/t3chat/server/service/attachment"
	"github.com/t3clone/t3chat/store"
)

func TestChatLifecycle(t *testing.T) {
	env := newTestEnv(t, aitest.NewScriptedLLM(), aitest.NewScriptedLLM())
	ctx := context.Background()
	chat := seedConversation(t, env, "user-1")
	env.createChat(t, "user-1", "Other")
	env.createChat(t, "user-2", "Not mine")

	list, err := env.svc.ListChats(ctx, "user-1", ChatFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	pinned, title, tags := true, "  Slices  ", []string{"Go", "go", "#Generics"}
	updated, err := env.svc.UpdateChat(ctx, "user-1", chat.ID, &ChatPatch{Title: &title, Pinned: &pinned, Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "Slices", updated.Title)
	assert.True(t, updated.Pinned)
	assert.Equal(t, []string{"go", "generics"}, updated.Tags)

	list, err = env.svc.ListChats(ctx, "user-1", ChatFilter{})
	require.NoError(t, err)
	assert.Equal(t, chat.ID, list[0].ID)

	tag := "generics"
	list, err = env.svc.ListChats(ctx, "user-1", ChatFilter{Tag: &tag})
	require.NoError(t, err)
	require.Len(t, list, 1)

	empty := " "
	_, err = env.svc.UpdateChat(ctx, "user-1", chat.ID, &ChatPatch{Title: &empty})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument))
	_, err = env.svc.UpdateChat(ctx, "user-2", chat.ID, &ChatPatch{Pinned: &pinned})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	detail, err := env.svc.GetChat(ctx, "user-1", chat.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Messages, 2)
	assert.Empty(t, detail.Attachments)

	_, err = env.svc.GetChat(ctx, "user-2", chat.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestListChats_TagFilterIsNormalized(t *testing.T) {
	env := newTestEnv(t, aitest.NewScriptedLLM(), aitest.NewScriptedLLM())
	ctx := context.Background()
	tagged := env.createChat(t, "user-1", "Planning")
	env.createChat(t, "user-1", "Untagged")

	tags := []string{"Side Project", "Work"}
	_, err := env.svc.UpdateChat(ctx, "user-1", tagged.ID, &ChatPatch{Tags: &tags})
	require.NoError(t, err)

	for _, query := range []string{"Work", "  WORK ", "Side  Project", "#side project"} {
		tag := query
		list, err := env.svc.ListChats(ctx, "user-1", ChatFilter{Tag: &tag})
		require.NoError(t, err, query)
		require.Len(t, list, 1, query)
		assert.Equal(t, tagged.ID, list[0].ID)
	}

	missing := "Home"
	list, err := env.svc.ListChats(ctx, "user-1", ChatFilter{Tag: &missing})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeleteChatRemovesAttachmentFiles(t *testing.T) {
	env := newTestEnv(t, aitest.NewScriptedLLM(), aitest.NewScriptedLLM())
	ctx := context.Background()
	chat := env.createChat(t, "user-1", "With file")

	a, err := env.svc.attachments.Save(ctx, &attachment.Upload{
		UserID:      "user-1",
		ChatID:      chat.ID,
		FileName:    "a.txt",
		ContentType: "text/plain",
		Body:        strings.NewReader("data"),
	})
	require.NoError(t, err)

	err = env.svc.DeleteChat(ctx, "user-2", chat.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
	_, err = os.Stat(a.StoragePath)
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteChat(ctx, "user-1", chat.ID))
	_, err = os.Stat(a.StoragePath)
	assert.True(t, os.IsNotExist(err))
	_, err = env.svc.GetChat(ctx, "user-1", chat.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestShareChat(t *testing.T) {
	env := newTestEnv(t, aitest.NewScriptedLLM(), aitest.NewScriptedLLM())
	ctx := context.Background()
	chat := seedConversation(t, env, "user-1")
	env.createMessage(t, chat, "m3", store.MessageRoleSystem, "hidden", 3000)

	shared, err := env.svc.ShareChat(ctx, "user-1", chat.ID)
	require.NoError(t, err)
	require.NotEmpty(t, shared.ShareID)

	again, err := env.svc.ShareChat(ctx, "user-1", chat.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.ShareID, again.ShareID)

	_, err = env.svc.ShareChat(ctx, "user-2", chat.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	public, err := env.svc.GetSharedChat(ctx, shared.ShareID)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, public.Chat.ID)
	assert.Len(t, public.Messages, 2)

	unshared, err := env.svc.UnshareChat(ctx, "user-1", chat.ID)
	require.NoError(t, err)
	assert.Empty(t, unshared.ShareID)
	_, err = env.svc.GetSharedChat(ctx, shared.ShareID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestExportChat(t *testing.T) {
	env := newTestEnv(t, aitest.NewScriptedLLM(), aitest.NewScriptedLLM())
	ctx := context.Background()
	chat := seedConversation(t, env, "user-1")
	title := "Slices & <Generics>"
	_, err := env.svc.UpdateChat(ctx, "user-1", chat.ID, &ChatPatch{Title: &title})
	require.NoError(t, err)

	md, err := env.svc.ExportChat(ctx, "user-1", chat.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "slices-generics.md", md.FileName)
	body := string(md.Body)
	assert.True(t, strings.HasPrefix(body, "# Slices & <Generics>\n"))
	assert.Contains(t, body, "## User\n\nHow do I reverse a slice?")
	assert.Contains(t, body, "## Assistant (gpt-4o-mini)")

	js, err := env.svc.ExportChat(ctx, "user-1", chat.ID, "json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", js.ContentType)
	var decoded struct {
		Title    string `json:"title"`
		Messages []struct {
			ID   string `json:"id"`
			Role string `json:"role"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(js.Body, &decoded))
	assert.Equal(t, title, decoded.Title)
	require.Len(t, decoded.Messages, 2)
	assert.Equal(t, "m1", decoded.Messages[0].ID)

	page, err := env.svc.ExportChat(ctx, "user-1", chat.ID, "HTML")
	require.NoError(t, err)
	html := string(page.Body)
	assert.Contains(t, html, "<h1>Slices &amp; &lt;Generics&gt;</h1>")
	assert.Contains(t, html, "<p>How do I reverse a slice?</p>")

	_, err = env.svc.ExportChat(ctx, "user-1", chat.ID, "pdf")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument))
	_, err = env.svc.ExportChat(ctx, "user-2", chat.ID, "json")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}
