package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/runcoach-ai/runcoach/internal/chat"
)

const welcomeText = "Hi! I'm your running coach. Ask about training plans, nutrition, pacing " +
	"or whether today's weather suits a run. Pick a quick question with /q N, " +
	"or fill in your profile with /set so my advice fits you."

func (m Model) transcript() string {
	return renderTranscript(m.session.Messages(), m.showThinking, m.renderer)
}

// renderTranscript draws the conversation. Reasoning traces are collapsed to
// a one-line marker unless showThinking is set. A nil renderer prints
// assistant markdown as-is.
func renderTranscript(msgs []chat.Message, showThinking bool, renderer *glamour.TermRenderer) string {
	if len(msgs) == 0 {
		return dimStyle.Render(welcomeText)
	}

	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		switch msg.Role {
		case chat.RoleUser:
			b.WriteString(userRoleStyle.Render(" You "))
			b.WriteString("\n")
			b.WriteString(msg.Content)
			b.WriteString("\n")

		case chat.RoleAssistant:
			b.WriteString(coachRoleStyle.Render(" Coach "))
			b.WriteString("\n")
			if msg.HasThinking() {
				if showThinking {
					b.WriteString(thinkingStyle.Render("💭 Thinking\n" + *msg.Thinking))
				} else {
					b.WriteString(dimStyle.Render("💭 Thinking hidden (ctrl+t to show)"))
				}
				b.WriteString("\n")
			}
			b.WriteString(renderMarkdown(renderer, msg.Content))
			b.WriteString("\n")

		case chat.RoleError:
			b.WriteString(errorStyle.Render(msg.Content))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderMarkdown(renderer *glamour.TermRenderer, content string) string {
	if renderer == nil || content == "" {
		return content
	}
	out, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
