package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/runcoach-ai/runcoach/internal/store"
	"github.com/runcoach-ai/runcoach/internal/utils"
)

const (
	NumRelevantChunks   = 4 // Number of chunks to retrieve for context
	SimilarityThreshold = 0 // Top-k regardless of score; the model judges relevance

	NoContextText = "No relevant information found in knowledge base."
)

// ChunkSource supplies the embedded knowledge base.
type ChunkSource interface {
	GetAllKnowledgeChunks() ([]store.KnowledgeChunk, error)
}

type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

type RAGService struct {
	source   ChunkSource
	embedder Embedder
	logger   *zap.Logger

	// Repeated questions (quick questions especially) skip the embedding call.
	queryCache *cache.Cache

	mu         sync.RWMutex
	dataChunks []store.KnowledgeChunk // In-memory copy of chunks and their embeddings
}

func NewRAGService(source ChunkSource, embedder Embedder, logger *zap.Logger) (*RAGService, error) {
	s := &RAGService{
		source:     source,
		embedder:   embedder,
		logger:     logger.With(zap.String("module", "rag")),
		queryCache: cache.New(30*time.Minute, 10*time.Minute),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the chunks from the source, e.g. after an ingest.
func (s *RAGService) Reload() error {
	chunks, err := s.source.GetAllKnowledgeChunks()
	if err != nil {
		return fmt.Errorf("failed to load knowledge chunks for RAG service: %w", err)
	}
	if len(chunks) == 0 {
		s.logger.Warn("RAG service has no knowledge chunks, run with -ingest first")
	} else {
		s.logger.Info("RAG service loaded knowledge chunks", zap.Int("chunks", len(chunks)))
	}

	s.mu.Lock()
	s.dataChunks = chunks
	s.mu.Unlock()
	return nil
}

func (s *RAGService) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if v, ok := s.queryCache.Get(key); ok {
		return v.([]float32), nil
	}
	emb, err := s.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}
	s.queryCache.Set(key, emb, cache.DefaultExpiration)
	return emb, nil
}

// Search returns the k chunks closest to query formatted as model context,
// and the distinct source names they came from. With no knowledge base or no
// match the context is NoContextText and sources is empty.
func (s *RAGService) Search(ctx context.Context, query string, k int) (string, []string, error) {
	s.mu.RLock()
	chunks := s.dataChunks
	s.mu.RUnlock()

	if len(chunks) == 0 {
		return NoContextText, nil, nil
	}

	qEmb, err := s.queryEmbedding(ctx, query)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get query embedding: %w", err)
	}

	candidates := make([][]float32, len(chunks))
	for i, c := range chunks {
		candidates[i] = c.Embedding
	}
	ranked := utils.RankBySimilarity(qEmb, candidates, k, SimilarityThreshold)
	if len(ranked) == 0 {
		s.logger.Info("no relevant chunks found", zap.String("query", query))
		return NoContextText, nil, nil
	}

	var sources []string
	seen := make(map[string]bool)
	parts := make([]string, 0, len(ranked))
	for _, r := range ranked {
		chunk := chunks[r.Index]
		source := filepath.Base(chunk.Source)
		if !seen[source] {
			seen[source] = true
			sources = append(sources, source)
		}
		parts = append(parts, fmt.Sprintf("[Source: %s]\n%s", source, chunk.Content))
	}

	s.logger.Info("retrieved relevant chunks",
		zap.Int("chunks", len(ranked)), zap.Strings("sources", sources))
	return strings.Join(parts, "\n\n---\n\n"), sources, nil
}
