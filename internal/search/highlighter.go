package search

import (
	"strings"
	"unicode/utf8"
)

// Snippet returns up to maxLen runes of content around the first occurrence of any of
// terms, with "..." where text was cut. If maxLen is 0 or negative, content is returned as is.
func Snippet(content string, terms []string, maxLen int) string {
	runes := []rune(content)
	if maxLen <= 0 || len(runes) <= maxLen {
		return content
	}

	pos := 0
	lower := strings.ToLower(content)
	// lowercasing can change byte lengths; only trust offsets when it did not
	if len(lower) == len(content) {
		first := -1
		for _, t := range terms {
			if t == "" {
				continue
			}
			if i := strings.Index(lower, t); i >= 0 && (first < 0 || i < first) {
				first = i
			}
		}
		if first > 0 {
			pos = utf8.RuneCountInString(content[:first])
		}
	}

	start := max(0, pos-maxLen/4)
	end := min(len(runes), start+maxLen)
	if end-start < maxLen {
		start = max(0, end-maxLen)
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(strings.TrimSpace(string(runes[start:end])))
	if end < len(runes) {
		b.WriteString("...")
	}
	return b.String()
}
