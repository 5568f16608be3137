package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_RoundTrip(t *testing.T) {
	t.Parallel()
	c := NewMemory(time.Hour)
	ctx := context.Background()

	_, ok := c.Get(ctx, "p", "m", 0.7)
	assert.False(t, ok)

	c.Put(ctx, "p", "m", 0.7, "cached text")
	got, ok := c.Get(ctx, "p", "m", 0.7)
	require.True(t, ok)
	assert.Equal(t, "cached text", got)

	// different temperature is a different entry
	_, ok = c.Get(ctx, "p", "m", 0.9)
	assert.False(t, ok)
}

func TestMemory_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()
	c := NewMemory(time.Hour)
	ctx := context.Background()

	now := time.Now()
	c.now = func() time.Time { return now }
	c.Put(ctx, "p", "m", 0.7, "old")

	c.now = func() time.Time { return now.Add(time.Hour + time.Second) }
	_, ok := c.Get(ctx, "p", "m", 0.7)
	assert.False(t, ok)

	// lazily evicted: the map no longer holds the entry
	c.mu.RLock()
	n := len(c.m)
	c.mu.RUnlock()
	assert.Zero(t, n)
}

func TestRedis_RoundTripAndExpiry(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	c, err := NewRedis("redis://"+mr.Addr(), time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	_, ok := c.Get(ctx, "p", "m", 0.7)
	assert.False(t, ok)

	c.Put(ctx, "p", "m", 0.7, "cached text")
	got, ok := c.Get(ctx, "p", "m", 0.7)
	require.True(t, ok)
	assert.Equal(t, "cached text", got)

	mr.FastForward(time.Hour + time.Second)
	_, ok = c.Get(ctx, "p", "m", 0.7)
	assert.False(t, ok)
}

func TestRedis_DownDegradesToMiss(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	c, err := NewRedis("redis://"+mr.Addr(), time.Hour)
	require.NoError(t, err)
	mr.Close()

	ctx := context.Background()
	c.Put(ctx, "p", "m", 0.7, "x") // dropped silently
	_, ok := c.Get(ctx, "p", "m", 0.7)
	assert.False(t, ok)
}
