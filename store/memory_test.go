package store_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/effective-security/agentic/chatmodel"
	"github.com/effective-security/agentic/pkg/llms"
	"github.com/effective-security/agentic/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MemoryStore_AppendAndRecent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	chatID := chatmodel.NewChatID()
	require.NoError(t, s.AppendTurn(ctx, chatmodel.NewTurn(chatID, llms.RoleHuman, "first question")))
	require.NoError(t, s.AppendTurn(ctx, chatmodel.NewTurn(chatID, llms.RoleAI, "first answer")))
	require.NoError(t, s.AppendTurn(ctx, chatmodel.NewTurn(chatID, llms.RoleHuman, "second question")))

	turns, err := s.RecentTurns(ctx, chatID, 0)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "first question", turns[0].Content)
	assert.Equal(t, llms.RoleAI, turns[1].Role)

	turns, err = s.RecentTurns(ctx, chatID, 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "first answer", turns[0].Content)

	turns, err = s.RecentTurns(ctx, "unknown", 10)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func Test_MemoryStore_Title(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	chatID := chatmodel.NewChatID()
	long := strings.Repeat("what is the answer to ", 5)
	require.NoError(t, s.AppendTurn(ctx, chatmodel.NewTurn(chatID, llms.RoleHuman, long)))
	// later turns do not change the title
	require.NoError(t, s.AppendTurn(ctx, chatmodel.NewTurn(chatID, llms.RoleHuman, "and another thing")))

	info, err := s.GetChatInfo(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, long[:store.MaxTitleLength], info.Title)
	assert.Len(t, info.Title, 50)
}

func Test_MemoryStore_UpdateAttachment(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	chatID := chatmodel.NewChatID()
	turn := chatmodel.NewTurn(chatID, llms.RoleHuman, "see attached")
	turn.Attachments = []chatmodel.Attachment{{
		StorageURI:  "cloud://chat/img.png",
		ProviderURI: "files/stale",
		MIMEType:    "image/png",
		UploadedAt:  time.Now().Add(-48 * time.Hour),
	}}
	require.NoError(t, s.AppendTurn(ctx, turn))

	refreshed := turn.Attachments[0]
	refreshed.ProviderURI = "files/fresh"
	refreshed.UploadedAt = time.Now()
	require.NoError(t, s.UpdateAttachment(ctx, chatID, refreshed))

	turns, err := s.RecentTurns(ctx, chatID, 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.Len(t, turns[0].Attachments, 1)
	assert.Equal(t, "files/fresh", turns[0].Attachments[0].ProviderURI)
	assert.Equal(t, "cloud://chat/img.png", turns[0].Attachments[0].StorageURI)
}

func Test_MemoryStore_ListAndReset(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	first := chatmodel.NewChatID()
	second := chatmodel.NewChatID()
	require.NoError(t, s.AppendTurn(ctx, chatmodel.NewTurn(first, llms.RoleHuman, "hi")))
	require.NoError(t, s.AppendTurn(ctx, chatmodel.NewTurn(second, llms.RoleHuman, "hello")))

	chats, err := s.ListChats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{first, second}, chats)

	require.NoError(t, s.Reset(ctx, first))
	chats, err = s.ListChats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{second}, chats)

	turns, err := s.RecentTurns(ctx, first, 0)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func Test_TitleFromContent(t *testing.T) {
	assert.Equal(t, "New Chat", store.TitleFromContent("   "))
	assert.Equal(t, "hello", store.TitleFromContent("hello"))

	long := strings.Repeat("a", 80)
	assert.Equal(t, long[:50], store.TitleFromContent(long))

	// truncation never splits a multi-byte rune
	wide := strings.Repeat("日", 60)
	assert.Equal(t, strings.Repeat("日", 50), store.TitleFromContent(wide))
}
