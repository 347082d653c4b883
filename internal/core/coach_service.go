package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/runcoach-ai/runcoach/internal/chat"
	"github.com/runcoach-ai/runcoach/internal/profile"
	"github.com/runcoach-ai/runcoach/internal/store"
	"github.com/runcoach-ai/runcoach/internal/tools"
)

// Searcher is the knowledge lookup the coach runs before every reply.
type Searcher interface {
	Search(ctx context.Context, query string, k int) (string, []string, error)
}

// CoachService answers chat messages: knowledge lookup, prompt assembly,
// model call with tools, then history bookkeeping.
type CoachService struct {
	llm          LLM
	rag          Searcher
	history      store.HistoryStore
	tools        *tools.Registry
	historyLimit int
	logger       *zap.Logger
}

func NewCoachService(llm LLM, rag Searcher, history store.HistoryStore, registry *tools.Registry, historyLimit int, logger *zap.Logger) *CoachService {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return &CoachService{
		llm:          llm,
		rag:          rag,
		history:      history,
		tools:        registry,
		historyLimit: historyLimit,
		logger:       logger.With(zap.String("module", "coach")),
	}
}

// Chat returns the model's full reply, reasoning trace included. History keeps
// the reply with traces stripped so they are never fed back to the model.
func (s *CoachService) Chat(ctx context.Context, message string, p *profile.Profile) (string, error) {
	log := s.logger.With(zap.String("message", truncate(message, 100)))
	if p != nil {
		log.Info("chat request", zap.String("goal", p.Goal), zap.String("location", p.Location))
	} else {
		log.Info("chat request without profile")
	}

	ragContext, sources, err := s.rag.Search(ctx, message, NumRelevantChunks)
	if err != nil {
		// Answer without context rather than fail the turn.
		log.Warn("knowledge search failed, proceeding without context", zap.Error(err))
		ragContext = ""
	} else if len(sources) > 0 {
		log.Info("found context", zap.Strings("sources", sources))
	}

	history, err := s.history.GetLastNMessages(ctx, store.DefaultConversation, s.historyLimit)
	if err != nil {
		log.Warn("failed to read history, proceeding without it", zap.Error(err))
		history = nil
	}

	reply, err := s.llm.GetChatCompletion(ctx, ChatRequest{
		SystemPrompt: SystemPrompt(p, ragContext),
		History:      history,
		Message:      message,
		Tools:        s.tools,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get LLM completion: %w", err)
	}

	err = s.history.AppendMessages(ctx, store.DefaultConversation,
		store.HistoryMessage{Sender: store.SenderUser, Content: message},
		store.HistoryMessage{Sender: store.SenderModel, Content: chat.StripThinking(reply)},
	)
	if err != nil {
		log.Error("failed to store conversation turn", zap.Error(err))
	}

	log.Info("reply generated", zap.Int("chars", len(reply)))
	return reply, nil
}

func (s *CoachService) Reset(ctx context.Context) error {
	if err := s.history.ClearMessages(ctx, store.DefaultConversation); err != nil {
		return err
	}
	s.logger.Info("conversation history cleared")
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

const rule = "══════════════════════════════════════════════════════════"

const coachInstructions = `AVAILABLE TOOLS:
1. get_weather - Check weather and forecast for run planning
2. calculate_nutrition - Calculate BMR, TDEE, macros for runners
3. calculate_pace - Analyze pace and predict race times

WHEN TO USE TOOLS:

Use get_weather when the user asks whether to run today or tomorrow, what
kind of run to do, what to wear, when to run, or mentions rain, temperature
or conditions. Always check the weather before recommending a workout or
clothing for a specific day.

Use calculate_nutrition when the user asks about calories, macros or diet.
If the profile has weight, height and age, call it immediately instead of
asking for them.

Use calculate_pace when the user shares a recent run time and distance, wants
race time predictions or asks about pacing strategy.

INSTRUCTIONS:
- Base your responses on the KNOWLEDGE BASE CONTEXT provided above
- Provide specific, actionable advice personalized to this user
- Prioritize safety and injury prevention
- Be encouraging but professional
- You may reason step by step inside <thinking></thinking> tags before answering; the user sees only the answer

TRAINING PLAN GUIDELINES:
1. Always create the plan for the user's stated goal (shown in the profile above)
2. Do not default to marathon, use their actual goal distance
3. Include a mix of workout types:
   - Easy runs (60-70% of training) at conversational pace
   - Long runs (1 per week) for endurance
   - Tempo runs (1 per week) at a comfortably hard pace
   - Interval or speed work (1 per week): 400m/800m repeats, fartlek
   - Recovery runs, very easy and shorter
   - Rest days

Example week structure:
- Mon: Rest
- Tue: Easy run + strides
- Wed: Intervals (6x800m at 5K pace)
- Thu: Easy run
- Fri: Rest or cross-training
- Sat: Tempo run
- Sun: Long run`

// SystemPrompt builds the coach persona around the runner's profile and the
// retrieved knowledge. A nil profile yields a note asking the user to fill it in.
func SystemPrompt(p *profile.Profile, ragContext string) string {
	var b strings.Builder
	b.WriteString("You are RunCoach AI, an expert running coach and sports nutritionist.\n\n")

	if p != nil && !p.IsZero() {
		writeProfileSection(&b, *p)
	} else {
		b.WriteString("NOTE: No user profile available. You may need to ask the user to fill in their profile with /profile and /set.\n")
	}
	b.WriteString("\n")

	if ragContext != "" {
		b.WriteString("KNOWLEDGE BASE CONTEXT:\n")
		b.WriteString(ragContext)
		b.WriteString("\n---\n\n")
	}

	b.WriteString(coachInstructions)
	return b.String()
}

func writeProfileSection(b *strings.Builder, p profile.Profile) {
	goal := p.Goal
	if goal == "" {
		goal = "general fitness"
	}
	name := p.Name
	if name == "" {
		name = "Runner"
	}
	experience := p.ExperienceLevel
	if experience == "" {
		experience = "beginner"
	}
	diet := p.DietaryPreference
	if diet == "" {
		diet = "none"
	}
	days := p.TrainingDays
	if days == 0 {
		days = 3
	}
	upper := strings.ToUpper(goal)

	fmt.Fprintf(b, "%s\n🎯 USER'S CURRENT GOAL: %s\n%s\n", rule, upper, rule)
	fmt.Fprintf(b, "IMPORTANT: The user wants to train for %s.\n", goal)
	fmt.Fprintf(b, "ALL training plans MUST be for %s, not any other distance unless %s IS that distance.\n", goal, goal)
	b.WriteString("USER PROFILE:\n")
	fmt.Fprintf(b, "- Name: %s\n", name)
	fmt.Fprintf(b, "- Age: %s\n", intOr(p.Age, "Not provided"))
	fmt.Fprintf(b, "- Weight: %s\n", floatOr(p.Weight, " kg", "Not provided"))
	fmt.Fprintf(b, "- Height: %s\n", floatOr(p.Height, " cm", "Not provided"))
	fmt.Fprintf(b, "- Experience Level: %s\n", experience)
	fmt.Fprintf(b, "- Training Days/Week: %d\n", days)
	fmt.Fprintf(b, "- Current Weekly Mileage: %s\n", floatOr(p.WeeklyMileage, " km", "Not specified"))
	fmt.Fprintf(b, "- Dietary Preference: %s\n", diet)
	fmt.Fprintf(b, "- Location: %s\n", orText(p.Location, "Not specified"))
	fmt.Fprintf(b, "%s\n\n", rule)

	b.WriteString("REMINDERS:\n")
	fmt.Fprintf(b, "1. Create plans for %s, this is the user's goal regardless of earlier conversation\n", upper)
	b.WriteString("2. Consider the user's experience and current mileage in any plan\n")
	b.WriteString("3. You already have the weight, height and age above, don't ask for them again\n")
	if p.Location != "" {
		fmt.Fprintf(b, "4. Use %s for weather checks\n", p.Location)
	}
}

func intOr(n *int, def string) string {
	if n == nil {
		return def
	}
	return strconv.Itoa(*n)
}

func floatOr(f *float64, unit, def string) string {
	if f == nil {
		return def
	}
	return strconv.FormatFloat(*f, 'f', -1, 64) + unit
}

func orText(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
