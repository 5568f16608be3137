// Package textx provides small text utilities used across the project.
package textx

import (
	"regexp"
	"strings"
)

// MaxInputLen caps sanitized user input. Longer input is truncated with an
// ellipsis rather than rejected.
const MaxInputLen = 1000

var (
	scriptRe  = regexp.MustCompile(`(?is)<script.*?>.*?</script>`)
	jsURLRe   = regexp.MustCompile(`(?is)<[^>]*javascript:[^>]*>`)
	handlerRe = regexp.MustCompile(`(?is)on\w+="[^"]*"`)
)

// Sanitize strips script-like markup, javascript: URLs, and inline event
// handlers from user input, removes control characters, and truncates to
// MaxInputLen. It never fails; empty input yields an empty string.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	s = scriptRe.ReplaceAllString(s, "")
	s = jsURLRe.ReplaceAllString(s, "")
	s = handlerRe.ReplaceAllString(s, "")

	// strip control chars outside tab/newline/carriage return
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if runes := []rune(out); len(runes) > MaxInputLen {
		out = string(runes[:MaxInputLen]) + "..."
	}
	return out
}

// Truncate shortens s to at most n characters, appending "..." when cut.
// Cuts fall on rune boundaries so multi-byte text stays valid UTF-8. Used
// for bounding transcript slices and display replies.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n > 3 {
		return string(runes[:n-3]) + "..."
	}
	return string(runes[:n])
}
