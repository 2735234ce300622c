package implementation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/repository/contract"
)

// RedisShortTermStore keeps the sliding conversation window in a redis list.
// Newest entries sit at the head; LTRIM caps the list at the window size.
type RedisShortTermStore struct {
	client   *redis.Client
	capacity int
}

func NewRedisShortTermStore(client *redis.Client, capacity int) contract.ShortTermStore {
	return &RedisShortTermStore{
		client:   client,
		capacity: capacity,
	}
}

func (s *RedisShortTermStore) key(sessionId uuid.UUID) string {
	return fmt.Sprintf("session:messages:%s", sessionId)
}

func (s *RedisShortTermStore) Push(ctx context.Context, sessionId uuid.UUID, entry entity.ShortTermEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal short-term entry: %w", err)
	}

	key := s.key(sessionId)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, int64(s.capacity-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push short-term entry: %w", err)
	}
	return nil
}

func (s *RedisShortTermStore) Window(ctx context.Context, sessionId uuid.UUID) ([]entity.ShortTermEntry, error) {
	raw, err := s.client.LRange(ctx, s.key(sessionId), 0, int64(s.capacity-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read short-term window: %w", err)
	}

	// LRange returns newest first; callers expect chronological order.
	entries := make([]entity.ShortTermEntry, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var entry entity.ShortTermEntry
		if err := json.Unmarshal([]byte(raw[i]), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *RedisShortTermStore) Clear(ctx context.Context, sessionId uuid.UUID) error {
	return s.client.Del(ctx, s.key(sessionId)).Err()
}
