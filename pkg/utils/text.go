package utils

import "strings"

// TruncateRunes shortens s to at most limit runes and marks the cut with "...".
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimRightFunc(string(runes[:limit]), isSpace) + "..."
}

// FirstSentence returns the text before the first '.', or the first fallback runes
// when there is no period. The result is trimmed.
func FirstSentence(s string, fallback int) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "."); i > 0 {
		return strings.TrimSpace(s[:i])
	}
	runes := []rune(s)
	if len(runes) > fallback {
		runes = runes[:fallback]
	}
	return strings.TrimSpace(string(runes))
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
