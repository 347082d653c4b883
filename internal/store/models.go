package store

import (
	"context"
	"time"
)

const (
	SenderUser  = "user"
	SenderModel = "model"

	// DefaultConversation is the single server-side conversation the API keeps.
	DefaultConversation = "default"
	// DefaultProfileID keys the one profile the API stores.
	DefaultProfileID = "current"
)

// HistoryMessage is one turn of the conversation memory sent back to the model.
type HistoryMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Sender         string    `json:"sender"` // "user" or "model"
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}

type KnowledgeChunk struct {
	ID            int64     `json:"id"`
	Source        string    `json:"source"`
	Content       string    `json:"content"`
	Embedding     []float32 `json:"-"` // Don't marshal to JSON response, internal
	EmbeddingJSON string    `json:"-"` // Store as JSON string for DB
}

// HistoryStore keeps the conversation memory. Implemented by SQLiteStore and
// RedisHistory.
type HistoryStore interface {
	AppendMessages(ctx context.Context, conversationID string, msgs ...HistoryMessage) error
	GetLastNMessages(ctx context.Context, conversationID string, n int) ([]HistoryMessage, error)
	ClearMessages(ctx context.Context, conversationID string) error
}
