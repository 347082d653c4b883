package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultHistoryTTL = 24 * time.Hour

// RedisHistory keeps conversation memory in a Redis list per conversation.
// Keys expire after ttl without activity.
type RedisHistory struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisHistory(redisURL string, ttl time.Duration) (*RedisHistory, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewRedisHistoryFromClient(redis.NewClient(opts), ttl), nil
}

func NewRedisHistoryFromClient(client *redis.Client, ttl time.Duration) *RedisHistory {
	if ttl <= 0 {
		ttl = defaultHistoryTTL
	}
	return &RedisHistory{client: client, ttl: ttl}
}

func (r *RedisHistory) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func historyKey(conversationID string) string {
	return "history:" + conversationID
}

func (r *RedisHistory) AppendMessages(ctx context.Context, conversationID string, msgs ...HistoryMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	values := make([]any, 0, len(msgs))
	for i := range msgs {
		msg := &msgs[i]
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now()
		}
		msg.ConversationID = conversationID

		b, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to encode history message: %w", err)
		}
		values = append(values, string(b))
	}

	key := historyKey(conversationID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// GetLastNMessages returns up to n most recent turns, oldest first.
func (r *RedisHistory) GetLastNMessages(ctx context.Context, conversationID string, n int) ([]HistoryMessage, error) {
	if n <= 0 {
		return nil, nil
	}
	key := historyKey(conversationID)
	vals, err := r.client.LRange(ctx, key, int64(-n), -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	// Refresh TTL on read
	_ = r.client.Expire(ctx, key, r.ttl).Err()

	messages := make([]HistoryMessage, 0, len(vals))
	for _, v := range vals {
		var msg HistoryMessage
		if err := json.Unmarshal([]byte(v), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode history message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *RedisHistory) ClearMessages(ctx context.Context, conversationID string) error {
	if err := r.client.Del(ctx, historyKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func (r *RedisHistory) Close() error {
	return r.client.Close()
}
