package cache

import (
	"sync"
	"time"

	"github.com/fairyhunter13/ai-intake-agent/internal/domain"
)

type memoryEntry struct {
	text     string
	storedAt time.Time
}

// Memory is an in-process ResponseCache used when no Redis URL is
// configured. Safe for concurrent use; expired entries are evicted lazily on
// the next read.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu sync.RWMutex
	m  map[string]memoryEntry
}

// NewMemory builds an in-process cache with the given TTL.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, m: make(map[string]memoryEntry)}
}

// Get returns the cached response text, or false on miss or expiry.
func (c *Memory) Get(_ domain.Context, prompt, model string, temperature float64) (string, bool) {
	k := keyFor(prompt, model, temperature)
	c.mu.RLock()
	e, ok := c.m[k]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		c.mu.Lock()
		delete(c.m, k)
		c.mu.Unlock()
		return "", false
	}
	return e.text, true
}

// Put stores a response, overwriting any entry under the same key.
func (c *Memory) Put(_ domain.Context, prompt, model string, temperature float64, text string) {
	k := keyFor(prompt, model, temperature)
	c.mu.Lock()
	c.m[k] = memoryEntry{text: text, storedAt: c.now()}
	c.mu.Unlock()
}
