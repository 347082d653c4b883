package chat

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error" // synthetic reply standing in for a failed send
)

// ErrorReplyText is the fixed transcript entry appended when a send fails.
const ErrorReplyText = "❌ Sorry, I encountered an error. Please try again."

// Message is one transcript entry. Values are never modified after creation.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Raw       string    `json:"raw"`     // exactly as typed or received
	Content   string    `json:"content"` // what the transcript shows
	Thinking  *string   `json:"thinking,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HasThinking reports whether the reply carried a closed reasoning trace.
func (m Message) HasThinking() bool {
	return m.Thinking != nil && *m.Thinking != ""
}

func newUserMessage(text string, now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Raw:       text,
		Content:   text,
		CreatedAt: now,
	}
}

func newAssistantMessage(raw string, now time.Time) Message {
	parsed := ParseResponse(raw)
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Raw:       raw,
		Content:   parsed.Content,
		Thinking:  parsed.Thinking,
		CreatedAt: now,
	}
}

func newErrorMessage(now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleError,
		Raw:       ErrorReplyText,
		Content:   ErrorReplyText,
		CreatedAt: now,
	}
}
