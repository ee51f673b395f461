package store

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agentic/chatmodel"
	"github.com/effective-security/agentic/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// The redis store implements TurnStore using Redis as the backend.
// The keys namespace is organized as follows:
// - `/<prefix>/turnstore/turns/<chatID>` for the turn history list
// - `/<prefix>/turnstore/info/<chatID>` for chat metadata
// - `/<prefix>/turnstore/chats` for the set of known chat IDs

// MaxStoredTurns bounds the history kept per chat in Redis.
const MaxStoredTurns = 200

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a TurnStore backed by the given Redis client.
func NewRedisStore(client *redis.Client, prefix string) TurnStore {
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

func (m *redisStore) getRedisTurnsKey(chatID string) string {
	return path.Join(m.prefix, "turnstore", "turns", chatID)
}

func (m *redisStore) getRedisChatInfoKey(chatID string) string {
	return path.Join(m.prefix, "turnstore", "info", chatID)
}

func (m *redisStore) getRedisChatListKey() string {
	return path.Join(m.prefix, "turnstore", "chats")
}

func (m *redisStore) AppendTurn(ctx context.Context, turn chatmodel.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return errors.Wrap(err, "failed to marshal turn")
	}

	key := m.getRedisTurnsKey(turn.ChatID)
	isFirst, err := m.client.Exists(ctx, key).Result()
	if err != nil {
		return errors.Wrap(err, "failed to check turn history in Redis")
	}

	pipe := m.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -MaxStoredTurns, -1)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to store turn in Redis")
	}

	title := ""
	if isFirst == 0 && turn.Role == llms.RoleHuman {
		title = TitleFromContent(turn.Content)
	}
	return m.updateChatInfo(ctx, turn.ChatID, title)
}

func (m *redisStore) RecentTurns(ctx context.Context, chatID string, limit int) ([]chatmodel.Turn, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	data, err := m.client.LRange(ctx, m.getRedisTurnsKey(chatID), start, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get turns from Redis")
	}

	var turns []chatmodel.Turn
	for _, item := range data {
		var turn chatmodel.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal turn", "err", err.Error())
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (m *redisStore) UpdateAttachment(ctx context.Context, chatID string, att chatmodel.Attachment) error {
	key := m.getRedisTurnsKey(chatID)
	data, err := m.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return errors.Wrap(err, "failed to get turns from Redis")
	}

	for i, item := range data {
		var turn chatmodel.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			continue
		}
		changed := false
		for j := range turn.Attachments {
			if turn.Attachments[j].StorageURI == att.StorageURI {
				turn.Attachments[j].ProviderURI = att.ProviderURI
				turn.Attachments[j].UploadedAt = att.UploadedAt
				changed = true
			}
		}
		if !changed {
			continue
		}
		updated, err := json.Marshal(turn)
		if err != nil {
			return errors.Wrap(err, "failed to marshal turn")
		}
		if err := m.client.LSet(ctx, key, int64(i), updated).Err(); err != nil {
			return errors.Wrap(err, "failed to update turn in Redis")
		}
	}
	return nil
}

func (m *redisStore) GetChatInfo(ctx context.Context, chatID string) (*ChatInfo, error) {
	chatKey := m.getRedisChatInfoKey(chatID)
	data, err := m.client.Get(ctx, chatKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return nil, errors.Wrap(err, "failed to get chat info from Redis")
		}
		chat := &ChatInfo{
			ChatID:    chatID,
			Title:     "New Chat",
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := m.storeChatInfo(ctx, chat, true); err != nil {
			return nil, errors.Wrap(err, "failed to initialize chat info")
		}
		return chat, nil
	}

	chat := &ChatInfo{}
	if err := json.Unmarshal([]byte(data), chat); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal chat info")
	}
	return chat, nil
}

func (m *redisStore) updateChatInfo(ctx context.Context, chatID, title string) error {
	chat, err := m.GetChatInfo(ctx, chatID)
	if err != nil {
		return err
	}
	if title != "" {
		chat.Title = title
	}
	chat.UpdatedAt = time.Now()
	return m.storeChatInfo(ctx, chat, false)
}

func (m *redisStore) storeChatInfo(ctx context.Context, chat *ChatInfo, isNew bool) error {
	data, err := json.Marshal(chat)
	if err != nil {
		return errors.Wrap(err, "failed to marshal chat info")
	}

	pipe := m.client.Pipeline()
	pipe.Set(ctx, m.getRedisChatInfoKey(chat.ChatID), data, 0)
	if isNew {
		pipe.SAdd(ctx, m.getRedisChatListKey(), chat.ChatID)
	}
	_, err = pipe.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to store chat info in Redis")
	}
	return nil
}

func (m *redisStore) ListChats(ctx context.Context) ([]string, error) {
	chatIDs, err := m.client.SMembers(ctx, m.getRedisChatListKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to list chats from Redis")
	}
	return chatIDs, nil
}

func (m *redisStore) Reset(ctx context.Context, chatID string) error {
	pipe := m.client.Pipeline()
	pipe.Del(ctx, m.getRedisTurnsKey(chatID))
	pipe.Del(ctx, m.getRedisChatInfoKey(chatID))
	pipe.SRem(ctx, m.getRedisChatListKey(), chatID)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to reset chat in Redis")
	}
	return nil
}
