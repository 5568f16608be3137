// Package cache implements the content-addressed LLM response cache.
//
// Entries are keyed by a stable hash over (prompt, model, temperature) and
// expire after a fixed TTL. Both implementations are silent: I/O failure
// degrades to a miss on read and a dropped write on store, never an error
// surfaced to the caller.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// keyFor builds the deterministic cache key. Identical inputs always map to
// the same entry; a fresh call with the identical key overwrites it.
func keyFor(prompt, model string, temperature float64) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%.2f", prompt, model, temperature))
	return "llm:resp:" + hex.EncodeToString(h[:])
}
