package cache

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-intake-agent/internal/domain"
)

// Redis is a ResponseCache backed by a Redis instance. Expiry is enforced by
// Redis key TTLs, so stale entries vanish without a sweeper.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis builds a Redis-backed cache from a redis URL. Returns an error
// only for an unparsable URL; connection failures surface later as silent
// misses.
func NewRedis(url string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Redis{rdb: redis.NewClient(opt), ttl: ttl}, nil
}

// Get returns the cached response text, or false on miss, expiry, or I/O
// failure.
func (c *Redis) Get(ctx domain.Context, prompt, model string, temperature float64) (string, bool) {
	v, err := c.rdb.Get(ctx, keyFor(prompt, model, temperature)).Result()
	if err != nil {
		if err != redis.Nil {
			slog.Debug("response cache read failed", slog.Any("error", err))
		}
		return "", false
	}
	return v, true
}

// Put stores a response with the configured TTL. Failures are logged at
// debug and dropped.
func (c *Redis) Put(ctx domain.Context, prompt, model string, temperature float64, text string) {
	if err := c.rdb.Set(ctx, keyFor(prompt, model, temperature), text, c.ttl).Err(); err != nil {
		slog.Debug("response cache write failed", slog.Any("error", err))
	}
}
