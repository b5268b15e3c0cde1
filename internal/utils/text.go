package utils

import "strings"

// Preview returns the first n characters of s with surrounding whitespace
// trimmed, followed by "..." when s was cut.
func Preview(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
