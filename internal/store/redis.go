package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"toacrd.app/oracle/common/id"
	"toacrd.app/oracle/internal/model"
)

// RedisConversationStore keeps each user's history in a Redis list of JSON
// turns. Append pushes and trims in one MULTI/EXEC so concurrent writers
// never observe a list longer than the bound.
type RedisConversationStore struct {
	client    *redis.Client
	keyPrefix string
	maxTurns  int
}

func NewRedisConversationStore(client *redis.Client, keyPrefix string, maxTurns int) *RedisConversationStore {
	if maxTurns <= 0 {
		maxTurns = model.DefaultMaxTurns
	}
	return &RedisConversationStore{client: client, keyPrefix: keyPrefix, maxTurns: maxTurns}
}

func (s *RedisConversationStore) key(userID string) string {
	return s.keyPrefix + userID
}

func (s *RedisConversationStore) Append(ctx context.Context, userID string, turn model.Turn) error {
	if userID == "" {
		return ErrInvalidUser
	}
	if turn.ID == 0 {
		turn.ID = id.New()
	}

	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	key := s.key(userID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, payload)
		pipe.LTrim(ctx, key, int64(-s.maxTurns), -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append turn for %s: %w", userID, err)
	}
	return nil
}

func (s *RedisConversationStore) History(ctx context.Context, userID string) ([]model.Turn, error) {
	if userID == "" {
		return nil, ErrInvalidUser
	}

	raw, err := s.client.LRange(ctx, s.key(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", userID, err)
	}

	turns := make([]model.Turn, 0, len(raw))
	for _, r := range raw {
		var t model.Turn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			return nil, fmt.Errorf("decode turn for %s: %w", userID, err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}
