package channel

import (
	"strings"
	"unicode/utf8"
)

// SplitText splits text into parts of at most limit runes, preferring to
// break at a newline, then at a space, falling back to a hard cut. Limits
// are counted in runes because providers count characters, not bytes.
func SplitText(text string, limit int) []string {
	if text == "" {
		return nil
	}
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	for utf8.RuneCountInString(text) > limit {
		cut := runeOffset(text, limit)
		window := text[:cut]
		split := cut
		if i := strings.LastIndexByte(window, '\n'); i > 0 {
			split = i + 1
		} else if i := strings.LastIndexByte(window, ' '); i > 0 {
			split = i + 1
		}
		part := strings.TrimRight(text[:split], " \n")
		if part != "" {
			parts = append(parts, part)
		}
		text = text[split:]
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}

// runeOffset returns the byte offset of the n-th rune in s.
func runeOffset(s string, n int) int {
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	return len(s)
}
