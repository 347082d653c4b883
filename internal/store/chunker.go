package store

import (
	"strings"
	"unicode/utf8"
)

const (
	ChunkSize    = 1000
	ChunkOverlap = 200
)

// SplitChunks packs paragraphs into chunks of at most size characters. Each
// chunk after the first starts with the last overlap characters of the one
// before it. Paragraphs longer than size are cut on whitespace.
func SplitChunks(text string, size, overlap int) []string {
	if overlap >= size {
		overlap = size / 5
	}

	var pieces []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		pieces = append(pieces, splitLong(para, size-overlap-2)...)
	}

	var chunks []string
	var current strings.Builder
	for _, p := range pieces {
		if current.Len() > 0 && current.Len()+2+len(p) > size {
			done := current.String()
			chunks = append(chunks, done)
			current.Reset()
			current.WriteString(tail(done, overlap))
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func splitLong(para string, limit int) []string {
	if len(para) <= limit {
		return []string{para}
	}

	var out []string
	var b strings.Builder
	for _, word := range strings.Fields(para) {
		if b.Len() > 0 && b.Len()+1+len(word) > limit {
			out = append(out, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}

// tail returns roughly the last n bytes of s, starting at a word boundary.
func tail(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return ""
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	t := s[start:]
	if i := strings.IndexAny(t, " \n"); i >= 0 {
		t = t[i+1:]
	}
	return strings.TrimSpace(t)
}
