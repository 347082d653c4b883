package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisHistory(t *testing.T) {
	_, err := NewRedisHistory("not a url", time.Hour)
	assert.Error(t, err)

	h, err := NewRedisHistory("redis://localhost:6379/2", 0)
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, defaultHistoryTTL, h.ttl)
	assert.Equal(t, "history:default", historyKey(DefaultConversation))
}

func TestRedisHistoryNoopCases(t *testing.T) {
	h, err := NewRedisHistory("redis://localhost:6379/2", time.Minute)
	require.NoError(t, err)
	defer h.Close()

	// Neither call needs to reach the server.
	assert.NoError(t, h.AppendMessages(context.Background(), DefaultConversation))
	msgs, err := h.GetLastNMessages(context.Background(), DefaultConversation, 0)
	assert.NoError(t, err)
	assert.Nil(t, msgs)
}

var _ HistoryStore = (*RedisHistory)(nil)
var _ HistoryStore = (*SQLiteStore)(nil)
