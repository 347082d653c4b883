package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"github.com/runcoach-ai/runcoach/internal/profile"
)

type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLiteStore(dataSourceName string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db, logger: logger.With(zap.String("module", "store"))}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS profiles (
        id TEXT PRIMARY KEY,
        data TEXT NOT NULL,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS history (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        id TEXT UNIQUE NOT NULL, -- UUID
        conversation_id TEXT NOT NULL,
        sender TEXT NOT NULL CHECK (sender IN ('user', 'model')),
        content TEXT NOT NULL,
        timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE INDEX IF NOT EXISTS idx_history_conversation ON history (conversation_id, seq);

    CREATE TABLE IF NOT EXISTS knowledge_chunks (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        source TEXT NOT NULL,
        content TEXT NOT NULL,
        embedding_json TEXT -- Storing as JSON string of []float32
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// Profile methods

// GetProfile returns nil when no profile has been saved under id.
func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (*profile.Profile, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM profiles WHERE id = ?", id).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	var p profile.Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", id, err)
	}
	return &p, nil
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, id string, p profile.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO profiles (id, data, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		id, string(data), time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// History methods

func (s *SQLiteStore) AppendMessages(ctx context.Context, conversationID string, msgs ...HistoryMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin history insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO history (id, conversation_id, sender, content, timestamp) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare history insert: %w", err)
	}
	defer stmt.Close()

	for i := range msgs {
		msg := &msgs[i]
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now()
		}
		msg.ConversationID = conversationID
		if _, err := stmt.ExecContext(ctx, msg.ID, conversationID, msg.Sender, msg.Content, msg.Timestamp); err != nil {
			return fmt.Errorf("failed to execute history insert: %w", err)
		}
	}
	return tx.Commit()
}

// GetLastNMessages returns up to n most recent turns, oldest first.
func (s *SQLiteStore) GetLastNMessages(ctx context.Context, conversationID string, n int) ([]HistoryMessage, error) {
	query := `
        SELECT id, conversation_id, sender, content, timestamp
        FROM history
        WHERE conversation_id = ?
        ORDER BY seq DESC
        LIMIT ?
    `

	rows, err := s.db.QueryContext(ctx, query, conversationID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var messages []HistoryMessage
	for rows.Next() {
		var msg HistoryMessage
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Sender, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *SQLiteStore) ClearMessages(ctx context.Context, conversationID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM history WHERE conversation_id = ?", conversationID); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Knowledge chunk methods (for RAG)

func (s *SQLiteStore) createKnowledgeChunk(chunk *KnowledgeChunk) error {
	embeddingBytes, err := json.Marshal(chunk.Embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}
	chunk.EmbeddingJSON = string(embeddingBytes)

	res, err := s.db.Exec("INSERT INTO knowledge_chunks (source, content, embedding_json) VALUES (?, ?, ?)",
		chunk.Source, chunk.Content, chunk.EmbeddingJSON)
	if err != nil {
		return fmt.Errorf("failed to execute knowledge_chunk insert: %w", err)
	}
	chunk.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) GetAllKnowledgeChunks() ([]KnowledgeChunk, error) {
	rows, err := s.db.Query("SELECT id, source, content, embedding_json FROM knowledge_chunks ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge_chunks: %w", err)
	}
	defer rows.Close()

	var chunks []KnowledgeChunk
	for rows.Next() {
		var chunk KnowledgeChunk
		var embeddingJSON sql.NullString
		if err := rows.Scan(&chunk.ID, &chunk.Source, &chunk.Content, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge_chunk row: %w", err)
		}
		if embeddingJSON.Valid && embeddingJSON.String != "" {
			if err := json.Unmarshal([]byte(embeddingJSON.String), &chunk.Embedding); err != nil {
				s.logger.Warn("failed to unmarshal chunk embedding",
					zap.Int64("chunk_id", chunk.ID), zap.Error(err))
				chunk.Embedding = nil
			}
		} else {
			s.logger.Warn("chunk has no embedding", zap.Int64("chunk_id", chunk.ID))
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStore) ClearKnowledgeChunks() error {
	_, err := s.db.Exec("DELETE FROM knowledge_chunks")
	if err != nil {
		return fmt.Errorf("failed to delete knowledge_chunks: %w", err)
	}
	_, err = s.db.Exec("DELETE FROM sqlite_sequence WHERE name='knowledge_chunks'")
	if err != nil && !strings.Contains(err.Error(), "no such table") {
		s.logger.Warn("could not reset knowledge_chunks sequence", zap.Error(err))
	}
	return nil
}

// Embedder turns text into a vector.
type Embedder func(ctx context.Context, text string) ([]float32, error)

// IngestDocument replaces the knowledge base with the chunks of content,
// embedding each one. Chunks that fail to embed are skipped.
func (s *SQLiteStore) IngestDocument(ctx context.Context, source, content string, embed Embedder) (int, error) {
	rawChunks := SplitChunks(content, ChunkSize, ChunkOverlap)
	if len(rawChunks) == 0 {
		s.logger.Warn("no chunks generated from document", zap.String("source", source))
		return 0, nil
	}

	s.logger.Info("embedding chunks", zap.String("source", source), zap.Int("chunks", len(rawChunks)))

	if err := s.ClearKnowledgeChunks(); err != nil {
		return 0, fmt.Errorf("failed to clear existing knowledge chunks: %w", err)
	}

	count := 0

	ticker := time.NewTicker(40 * time.Millisecond) // delay to not hit rate limit (1500/min)
	defer ticker.Stop()

	for i, rawChunk := range rawChunks {
		select {
		case <-ctx.Done():
			return count, ctx.Err()
		case <-ticker.C:
		}

		embedding, err := embed(ctx, rawChunk)
		if err != nil {
			s.logger.Warn("failed to embed chunk, skipping", zap.Int("chunk", i+1), zap.Error(err))
			continue
		}

		chunk := KnowledgeChunk{
			Source:    source,
			Content:   rawChunk,
			Embedding: embedding,
		}
		if err := s.createKnowledgeChunk(&chunk); err != nil {
			s.logger.Warn("failed to store chunk, skipping", zap.Int("chunk", i+1), zap.Error(err))
			continue
		}
		count++
		if count%10 == 0 || count == len(rawChunks) {
			s.logger.Info("ingest progress", zap.Int("done", count), zap.Int("total", len(rawChunks)))
		}
	}
	return count, nil
}
