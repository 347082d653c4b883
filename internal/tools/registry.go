package tools

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
)

// Tool is a function the model may ask the coach to run.
type Tool interface {
	Declaration() *genai.FunctionDeclaration
	Call(ctx context.Context, args map[string]any) (string, error)
}

// Registry holds the tools offered to the model, in declaration order.
type Registry struct {
	tools  map[string]Tool
	order  []string
	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger, tools ...Tool) *Registry {
	r := &Registry{
		tools:  make(map[string]Tool, len(tools)),
		logger: logger.With(zap.String("module", "tools")),
	}
	for _, t := range tools {
		name := t.Declaration().Name
		if _, dup := r.tools[name]; !dup {
			r.order = append(r.order, name)
		}
		r.tools[name] = t
	}
	return r
}

// NewDefaultRegistry wires the pace, nutrition and weather tools.
func NewDefaultRegistry(weatherBaseURL string, logger *zap.Logger) *Registry {
	return NewRegistry(logger,
		NewWeatherTool(weatherBaseURL, nil),
		NutritionTool{},
		PaceTool{},
	)
}

func (r *Registry) Declarations() []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(r.order))
	for _, name := range r.order {
		decls = append(decls, r.tools[name].Declaration())
	}
	return decls
}

func (r *Registry) Len() int {
	return len(r.order)
}

// Execute runs the named tool. Failures are returned as text for the model
// to read rather than as errors, so one bad call does not end the reply.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) string {
	t, ok := r.tools[name]
	if !ok {
		r.logger.Warn("model requested unknown tool", zap.String("tool", name))
		return fmt.Sprintf("Unknown tool: %s", name)
	}

	r.logger.Info("running tool", zap.String("tool", name), zap.Any("args", args))
	out, err := t.Call(ctx, args)
	if err != nil {
		r.logger.Error("tool failed", zap.String("tool", name), zap.Error(err))
		return fmt.Sprintf("Tool error: %v", err)
	}
	return out
}
