package store

import (
	"context"
	"sync"
	"time"

	"github.com/effective-security/agentic/chatmodel"
	"github.com/effective-security/agentic/pkg/llms"
)

type inMemory struct {
	mu    sync.RWMutex
	turns map[string][]chatmodel.Turn
	chats map[string]*ChatInfo
	order []string
}

// NewMemoryStore returns a TurnStore backed by process memory.
func NewMemoryStore() TurnStore {
	return &inMemory{}
}

func (m *inMemory) AppendTurn(_ context.Context, turn chatmodel.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.turns == nil {
		// create on first use
		m.turns = make(map[string][]chatmodel.Turn)
		m.chats = make(map[string]*ChatInfo)
	}

	info, ok := m.chats[turn.ChatID]
	if !ok {
		info = &ChatInfo{
			ChatID:    turn.ChatID,
			Title:     "New Chat",
			CreatedAt: time.Now(),
		}
		m.chats[turn.ChatID] = info
		m.order = append(m.order, turn.ChatID)
	}
	if turn.Role == llms.RoleHuman && len(m.turns[turn.ChatID]) == 0 {
		info.Title = TitleFromContent(turn.Content)
	}
	info.UpdatedAt = time.Now()

	m.turns[turn.ChatID] = append(m.turns[turn.ChatID], turn)
	return nil
}

func (m *inMemory) RecentTurns(_ context.Context, chatID string, limit int) ([]chatmodel.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history := m.turns[chatID]
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]chatmodel.Turn, len(history))
	copy(out, history)
	return out, nil
}

func (m *inMemory) UpdateAttachment(_ context.Context, chatID string, att chatmodel.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.turns[chatID] {
		turn := &m.turns[chatID][i]
		for j := range turn.Attachments {
			if turn.Attachments[j].StorageURI == att.StorageURI {
				turn.Attachments[j].ProviderURI = att.ProviderURI
				turn.Attachments[j].UploadedAt = att.UploadedAt
			}
		}
	}
	return nil
}

func (m *inMemory) GetChatInfo(_ context.Context, chatID string) (*ChatInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chats == nil {
		m.chats = make(map[string]*ChatInfo)
	}
	info, ok := m.chats[chatID]
	if !ok {
		info = &ChatInfo{
			ChatID:    chatID,
			Title:     "New Chat",
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		m.chats[chatID] = info
		m.order = append(m.order, chatID)
	}
	clone := *info
	return &clone, nil
}

func (m *inMemory) ListChats(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out, nil
}

func (m *inMemory) Reset(_ context.Context, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.turns, chatID)
	delete(m.chats, chatID)
	for i, id := range m.order {
		if id == chatID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}
