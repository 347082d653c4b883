package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/runcoach-ai/runcoach/internal/store"
	"github.com/runcoach-ai/runcoach/internal/tools"
)

const (
	defaultChatModelName      = "gemini-1.5-flash-latest"
	defaultEmbeddingModelName = "text-embedding-004"

	chatTemperature = 0.7
	maxToolRounds   = 4

	emptyReplyText = "I'm sorry, I couldn't generate a response at this time. Please try again."
)

// ChatRequest is one turn sent to the model.
type ChatRequest struct {
	SystemPrompt string
	History      []store.HistoryMessage // oldest first
	Message      string
	Tools        *tools.Registry // nil disables function calling
}

// LLM is the subset of the model API the coach depends on.
type LLM interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	GetChatCompletion(ctx context.Context, req ChatRequest) (string, error)
}

type LLMService struct {
	client *genai.Client
	logger *zap.Logger
}

func NewLLMService(ctx context.Context, apiKey string, logger *zap.Logger) (*LLMService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &LLMService{
		client: client,
		logger: logger.With(zap.String("module", "llm")),
	}, nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.logger.Warn("error closing GenAI client", zap.Error(err))
		} else {
			s.logger.Info("GenAI client closed")
		}
	}
}

func (s *LLMService) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	em := s.client.EmbeddingModel(defaultEmbeddingModelName)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}

	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding data received from gemini")
	}
	return res.Embedding.Values, nil
}

// GetChatCompletion sends the message with its history. When the model asks
// for tools, they are run and their results sent back until it answers in
// text or maxToolRounds is reached.
func (s *LLMService) GetChatCompletion(ctx context.Context, req ChatRequest) (string, error) {
	if strings.TrimSpace(req.Message) == "" {
		return "", fmt.Errorf("message is empty for chat completion")
	}

	model := s.client.GenerativeModel(defaultChatModelName)
	model.SetTemperature(chatTemperature)
	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemPrompt)},
		}
	}
	if req.Tools != nil && req.Tools.Len() > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: req.Tools.Declarations()}}
	}

	chatSession := model.StartChat()
	chatSession.History = historyToContents(req.History)

	resp, err := chatSession.SendMessage(ctx, genai.Text(req.Message))
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}

	for round := 0; ; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 || req.Tools == nil {
			break
		}
		if round == maxToolRounds {
			s.logger.Warn("tool rounds exhausted, using partial reply", zap.Int("rounds", round))
			break
		}

		parts := make([]genai.Part, 0, len(calls))
		for _, fc := range calls {
			out := req.Tools.Execute(ctx, fc.Name, fc.Args)
			parts = append(parts, genai.FunctionResponse{
				Name:     fc.Name,
				Response: map[string]any{"result": out},
			})
		}

		resp, err = chatSession.SendMessage(ctx, parts...)
		if err != nil {
			return "", fmt.Errorf("gemini tool response failed: %w", err)
		}
	}

	text := responseText(resp)
	if text == "" {
		s.logger.Warn("gemini response was empty or had no text parts")
		return emptyReplyText, nil
	}
	return text, nil
}

// historyToContents maps stored turns onto Gemini roles. Both stores use the
// Gemini sender names, so this is a straight copy.
func historyToContents(history []store.HistoryMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		if msg.Content == "" {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  msg.Sender,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return contents
}

func firstCandidate(resp *genai.GenerateContentResponse) *genai.Content {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	content := firstCandidate(resp)
	if content == nil {
		return nil
	}
	var calls []genai.FunctionCall
	for _, part := range content.Parts {
		if fc, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, fc)
		}
	}
	return calls
}

func responseText(resp *genai.GenerateContentResponse) string {
	content := firstCandidate(resp)
	if content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
