// Package store persists conversation turns and chat metadata. Two
// implementations are provided: an in-memory store for tests and single
// process deployments, and a Redis store for shared deployments.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/effective-security/agentic/chatmodel"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agentic", "store")

// MaxTitleLength bounds the chat title derived from the first user turn.
const MaxTitleLength = 50

// ChatInfo is chat-level metadata kept alongside the turn history.
type ChatInfo struct {
	ChatID    string         `json:"chat_id"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// TurnStore persists the append-only turn history of chats. Turns are never
// modified after being appended, except that UpdateAttachment may replace an
// attachment's provider URI in place.
type TurnStore interface {
	// AppendTurn stores a turn at the end of its chat's history. The first
	// user turn of a chat sets the chat title.
	AppendTurn(ctx context.Context, turn chatmodel.Turn) error
	// RecentTurns returns up to limit most recent turns of a chat in
	// chronological order. limit <= 0 returns the full history.
	RecentTurns(ctx context.Context, chatID string, limit int) ([]chatmodel.Turn, error)
	// UpdateAttachment replaces the stored provider URI and upload time of
	// the attachment identified by its storage URI, across all turns of the
	// chat that carry it.
	UpdateAttachment(ctx context.Context, chatID string, att chatmodel.Attachment) error
	// GetChatInfo returns chat metadata, creating it if the chat is new.
	GetChatInfo(ctx context.Context, chatID string) (*ChatInfo, error)
	// ListChats returns the IDs of known chats.
	ListChats(ctx context.Context) ([]string, error)
	// Reset removes a chat's history and metadata.
	Reset(ctx context.Context, chatID string) error
}

// TitleFromContent derives a chat title from the first user turn.
func TitleFromContent(content string) string {
	title := strings.TrimSpace(content)
	if title == "" {
		return "New Chat"
	}
	if runes := []rune(title); len(runes) > MaxTitleLength {
		title = string(runes[:MaxTitleLength])
	}
	return title
}
