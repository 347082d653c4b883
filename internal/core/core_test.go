package core

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/runcoach-ai/runcoach/internal/profile"
	"github.com/runcoach-ai/runcoach/internal/store"
	"github.com/runcoach-ai/runcoach/internal/tools"
)

type fakeLLM struct {
	mu         sync.Mutex
	embeds     map[string][]float32
	embedCalls int
	embedErr   error

	reply    string
	replyErr error
	requests []ChatRequest
}

func (f *fakeLLM) GetEmbedding(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embedCalls++
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	if v, ok := f.embeds[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fakeLLM) GetChatCompletion(_ context.Context, req ChatRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.reply, f.replyErr
}

type fakeChunks []store.KnowledgeChunk

func (f fakeChunks) GetAllKnowledgeChunks() ([]store.KnowledgeChunk, error) {
	return f, nil
}

var testChunks = fakeChunks{
	{ID: 1, Source: "kb/nutrition.md", Content: "Eat carbs before long runs.", Embedding: []float32{1, 0, 0}},
	{ID: 2, Source: "kb/injury.md", Content: "Ice and rest a sore shin.", Embedding: []float32{0, 1, 0}},
	{ID: 3, Source: "kb/nutrition.md", Content: "Hydrate after runs.", Embedding: []float32{0.9, 0.1, 0}},
	{ID: 4, Source: "kb/broken.md", Content: "No vector.", Embedding: nil},
}

func TestRAGSearch(t *testing.T) {
	llm := &fakeLLM{embeds: map[string][]float32{"what to eat": {1, 0, 0}}}
	rag, err := NewRAGService(testChunks, llm, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	text, sources, err := rag.Search(ctx, "what to eat", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"nutrition.md"}, sources)
	assert.Equal(t,
		"[Source: nutrition.md]\nEat carbs before long runs.\n\n---\n\n[Source: nutrition.md]\nHydrate after runs.",
		text)

	// The query embedding is cached, case-insensitively.
	_, _, err = rag.Search(ctx, "  What to eat", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, llm.embedCalls)

	_, sources, err = rag.Search(ctx, "what to eat", 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"nutrition.md", "injury.md"}, sources)
}

func TestRAGSearchEmptyAndErrors(t *testing.T) {
	llm := &fakeLLM{}
	rag, err := NewRAGService(fakeChunks{}, llm, zap.NewNop())
	require.NoError(t, err)

	text, sources, err := rag.Search(context.Background(), "anything", 4)
	require.NoError(t, err)
	assert.Equal(t, NoContextText, text)
	assert.Empty(t, sources)
	assert.Zero(t, llm.embedCalls)

	llm.embedErr = errors.New("quota")
	rag, err = NewRAGService(testChunks, llm, zap.NewNop())
	require.NoError(t, err)
	_, _, err = rag.Search(context.Background(), "anything", 4)
	assert.ErrorContains(t, err, "quota")
}

func newHistory(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "coach.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type fakeSearcher struct {
	text    string
	sources []string
	err     error
}

func (f fakeSearcher) Search(context.Context, string, int) (string, []string, error) {
	return f.text, f.sources, f.err
}

func TestCoachChat(t *testing.T) {
	history := newHistory(t)
	llm := &fakeLLM{reply: "<thinking>they want a plan</thinking>\n\nRun three times a week."}
	registry := tools.NewRegistry(zap.NewNop(), tools.PaceTool{})
	coach := NewCoachService(llm, fakeSearcher{text: "[Source: a.md]\nEasy runs.", sources: []string{"a.md"}},
		history, registry, 2, zap.NewNop())

	ctx := context.Background()
	p := profile.Default()
	require.NoError(t, p.Set("location", "Lisbon"))

	reply, err := coach.Chat(ctx, "Plan my week", &p)
	require.NoError(t, err)
	assert.Equal(t, llm.reply, reply, "full reply, trace included")

	require.Len(t, llm.requests, 1)
	req := llm.requests[0]
	assert.Equal(t, "Plan my week", req.Message)
	assert.Empty(t, req.History)
	assert.Same(t, registry, req.Tools)
	assert.Contains(t, req.SystemPrompt, "USER'S CURRENT GOAL: 5K")
	assert.Contains(t, req.SystemPrompt, "Use Lisbon for weather checks")
	assert.Contains(t, req.SystemPrompt, "KNOWLEDGE BASE CONTEXT:\n[Source: a.md]\nEasy runs.")

	stored, err := history.GetLastNMessages(ctx, store.DefaultConversation, 10)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, store.SenderUser, stored[0].Sender)
	assert.Equal(t, "Run three times a week.", stored[1].Content)

	_, err = coach.Chat(ctx, "And next week?", nil)
	require.NoError(t, err)
	req = llm.requests[1]
	require.Len(t, req.History, 2, "limited to the last two turns")
	assert.Equal(t, "Plan my week", req.History[0].Content)
	assert.Contains(t, req.SystemPrompt, "No user profile available")

	require.NoError(t, coach.Reset(ctx))
	stored, err = history.GetLastNMessages(ctx, store.DefaultConversation, 10)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestCoachChatFailures(t *testing.T) {
	history := newHistory(t)
	llm := &fakeLLM{replyErr: errors.New("model down")}
	coach := NewCoachService(llm, fakeSearcher{err: errors.New("no index")}, history, nil, 0, zap.NewNop())

	_, err := coach.Chat(context.Background(), "hello", nil)
	assert.ErrorContains(t, err, "model down")

	require.Len(t, llm.requests, 1)
	assert.NotContains(t, llm.requests[0].SystemPrompt, "KNOWLEDGE BASE CONTEXT")

	stored, err := history.GetLastNMessages(context.Background(), store.DefaultConversation, 10)
	require.NoError(t, err)
	assert.Empty(t, stored, "failed turns are not remembered")
}

func TestSystemPromptProfile(t *testing.T) {
	p := profile.Profile{Name: "Mo", Goal: "Half Marathon"}
	require.NoError(t, p.Set("weight", "72.5"))
	out := SystemPrompt(&p, "")

	assert.True(t, strings.HasPrefix(out, "You are RunCoach AI"))
	assert.Contains(t, out, "USER'S CURRENT GOAL: HALF MARATHON")
	assert.Contains(t, out, "- Name: Mo")
	assert.Contains(t, out, "- Weight: 72.5 kg")
	assert.Contains(t, out, "- Age: Not provided")
	assert.Contains(t, out, "- Training Days/Week: 3")
	assert.NotContains(t, out, "for weather checks")
	assert.NotContains(t, out, "KNOWLEDGE BASE CONTEXT")

	assert.Contains(t, SystemPrompt(&profile.Profile{}, ""), "No user profile available")
}

func TestResponseHelpers(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{
			genai.Text("Hello "),
			genai.FunctionCall{Name: "calculate_pace", Args: map[string]any{"distance_km": 5.0}},
			genai.Text("runner"),
		}},
	}}}

	assert.Equal(t, "Hello runner", responseText(resp))
	calls := functionCalls(resp)
	require.Len(t, calls, 1)
	assert.Equal(t, "calculate_pace", calls[0].Name)

	assert.Empty(t, responseText(nil))
	assert.Nil(t, functionCalls(&genai.GenerateContentResponse{}))

	contents := historyToContents([]store.HistoryMessage{
		{Sender: store.SenderUser, Content: "hi"},
		{Sender: store.SenderModel, Content: ""},
		{Sender: store.SenderModel, Content: "hello"},
	})
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, genai.Text("hello"), contents[1].Parts[0])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "héll...", truncate("héllo wörld", 4))
}
