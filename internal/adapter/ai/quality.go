package ai

import "strings"

// minResponseLen is the shortest completion accepted as a real answer.
const minResponseLen = 10

// refusalPhrases mark completions that are provider errors or refusals
// rather than usable screening replies. Matched case-insensitively.
var refusalPhrases = []string{
	"i cannot assist with that",
	"i'm unable to",
	"i don't have access to",
	"i apologize, but i cannot",
	"api error",
	"error code",
}

// AcceptableResponse reports whether a completion passes the quality gate.
// Rejected responses are treated as failures and retried.
func AcceptableResponse(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minResponseLen {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, p := range refusalPhrases {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}
