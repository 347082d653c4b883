package chat

import (
	"regexp"
	"strings"
)

var (
	thinkingBlockRe = regexp.MustCompile(`(?is)<thinking>(.*?)</thinking>`)
	openThinkingRe  = regexp.MustCompile(`(?is)<thinking>.*$`)
	blankRunRe      = regexp.MustCompile(`\n{3,}`)
)

// Parsed is an assistant payload split into its hidden trace and display text.
type Parsed struct {
	Thinking *string
	Content  string
}

// ParseResponse separates the <thinking> trace from the answer.
//
// The first closed block supplies the trace. Closed blocks are removed from
// the display text, and an unterminated <thinking> left by a truncated reply
// drops everything after it. Runs of three or more newlines collapse to a
// single blank line.
func ParseResponse(raw string) Parsed {
	if raw == "" {
		return Parsed{}
	}

	var thinking *string
	if m := thinkingBlockRe.FindStringSubmatch(raw); m != nil {
		t := strings.TrimSpace(m[1])
		thinking = &t
	}

	content := thinkingBlockRe.ReplaceAllString(raw, "")
	content = openThinkingRe.ReplaceAllString(content, "")
	content = blankRunRe.ReplaceAllString(content, "\n\n")

	return Parsed{
		Thinking: thinking,
		Content:  strings.TrimSpace(content),
	}
}

// StripThinking returns only the display text of a payload.
func StripThinking(raw string) string {
	return ParseResponse(raw).Content
}
