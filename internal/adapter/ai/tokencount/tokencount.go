// Package tokencount provides token counting for LLM prompt budgeting.
//
// It uses tiktoken-go to count tokens so that long prompts can be routed to
// the model with the largest context window before the provider rejects them.
package tokencount

import (
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter provides thread-safe token counting for LLM models.
type Counter struct {
	encodingCache map[string]*tiktoken.Tiktoken
	mu            sync.RWMutex
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{encodingCache: make(map[string]*tiktoken.Tiktoken)}
}

// getEncodingForModel returns the tiktoken encoding for a model, cached.
func (c *Counter) getEncodingForModel(model string) (*tiktoken.Tiktoken, error) {
	normalized := normalizeModelName(model)

	c.mu.RLock()
	if enc, ok := c.encodingCache[normalized]; ok {
		c.mu.RUnlock()
		return enc, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodingCache[normalized]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(normalized)
	if err != nil {
		// cl100k_base is a reasonable approximation for modern models
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	c.encodingCache[normalized] = enc
	return enc, nil
}

// normalizeModelName maps provider model IDs to tiktoken-compatible names.
// Llama, Mixtral and Gemma tokenize closely enough to GPT-4 for budgeting.
func normalizeModelName(model string) string {
	model = strings.ToLower(model)
	if strings.Contains(model, "/") {
		parts := strings.Split(model, "/")
		model = parts[len(parts)-1]
	}
	switch {
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	default:
		return "gpt-4"
	}
}

// CountTokens counts tokens in text for the given model. On encoding
// failure it falls back to a bytes/4 estimate so callers never error on a
// budgeting concern.
func (c *Counter) CountTokens(text, model string) int {
	enc, err := c.getEncodingForModel(model)
	if err != nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
