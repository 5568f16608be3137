package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-intake-agent/internal/config"
	"github.com/fairyhunter13/ai-intake-agent/internal/domain"
)

type scriptedCall struct {
	text string
	err  error
}

// fakeTransport replays a fixed script of outcomes and records every request
// it receives.
type fakeTransport struct {
	script []scriptedCall
	calls  []domain.ChatRequest
}

func (f *fakeTransport) Chat(_ context.Context, req domain.ChatRequest) (domain.ChatResult, error) {
	f.calls = append(f.calls, req)
	if len(f.calls) > len(f.script) {
		return domain.ChatResult{}, errors.New("unscripted call")
	}
	step := f.script[len(f.calls)-1]
	if step.err != nil {
		return domain.ChatResult{}, step.err
	}
	return domain.ChatResult{Text: step.text, TotalTokens: 42}, nil
}

type fakeCache struct {
	store map[string]string
	puts  int
}

func newFakeCache() *fakeCache { return &fakeCache{store: map[string]string{}} }

func cacheKey(prompt, model string, temperature float64) string {
	return fmt.Sprintf("%s|%s|%.2f", prompt, model, temperature)
}

func (f *fakeCache) Get(_ context.Context, prompt, model string, temperature float64) (string, bool) {
	text, ok := f.store[cacheKey(prompt, model, temperature)]
	return text, ok
}

func (f *fakeCache) Put(_ context.Context, prompt, model string, temperature float64, text string) {
	f.puts++
	f.store[cacheKey(prompt, model, temperature)] = text
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		AppEnv:             "test",
		GenerateMaxRetries: 2,
		LongContextTokens:  7000,
		RateLimitDelay:     0,
	}
}

func newTestClient(t *testing.T, transport domain.CompletionClient, cache domain.ResponseCache) *Client {
	t.Helper()
	c := New(testConfig(t), transport, cache)
	c.sleep = func(time.Duration) {}
	return c
}

func TestGenerate_Success(t *testing.T) {
	t.Parallel()
	transport := &fakeTransport{script: []scriptedCall{
		{text: "Thanks! Could you share your email address?"},
	}}
	cache := newFakeCache()
	c := newTestClient(t, transport, cache)

	gen := c.Generate(context.Background(), domain.GenerateRequest{
		Prompt: "My name is Ada.",
		Task:   domain.TaskConversation,
	})

	require.Empty(t, gen.Err)
	assert.Equal(t, "Thanks! Could you share your email address?", gen.Text)
	assert.Equal(t, 42, gen.TokensUsed)
	assert.False(t, gen.CacheHit)
	assert.False(t, gen.Fallback)
	assert.Equal(t, 1, cache.puts)
}

func TestGenerate_CacheHit(t *testing.T) {
	t.Parallel()
	transport := &fakeTransport{}
	cache := newFakeCache()
	c := newTestClient(t, transport, cache)

	req := domain.GenerateRequest{Prompt: "hello there", Task: domain.TaskQuickResponse}
	cache.Put(context.Background(), req.Prompt, ModelGemma, defaultTemperature, "cached reply")

	gen := c.Generate(context.Background(), req)

	assert.True(t, gen.CacheHit)
	assert.Equal(t, "cached reply", gen.Text)
	assert.Empty(t, transport.calls, "cache hit must not call the provider")
}

func TestGenerate_NoCacheBypassesCache(t *testing.T) {
	t.Parallel()
	transport := &fakeTransport{script: []scriptedCall{
		{text: "a perfectly fresh response"},
	}}
	cache := newFakeCache()
	c := newTestClient(t, transport, cache)

	cache.Put(context.Background(), "p", ModelGemma, defaultTemperature, "stale")
	gen := c.Generate(context.Background(), domain.GenerateRequest{
		Prompt:  "p",
		Task:    domain.TaskQuickResponse,
		NoCache: true,
	})

	assert.Equal(t, "a perfectly fresh response", gen.Text)
	assert.Len(t, transport.calls, 1)
	assert.Equal(t, 1, cache.puts, "NoCache must not write back either")
}

func TestGenerate_Unconfigured(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, nil, nil)
	c.transport = nil

	gen := c.Generate(context.Background(), domain.GenerateRequest{
		Prompt: "anything",
		Task:   domain.TaskScreening,
	})

	assert.True(t, gen.Fallback)
	assert.NotEmpty(t, gen.Text)
	assert.Equal(t, "llm client not configured", gen.Err)
}

func TestGenerate_RetriesTransportErrorThenSucceeds(t *testing.T) {
	t.Parallel()
	transport := &fakeTransport{script: []scriptedCall{
		{err: domain.ErrUpstreamRateLimit},
		{text: "recovered after one retry just fine"},
	}}
	c := newTestClient(t, transport, newFakeCache())

	gen := c.Generate(context.Background(), domain.GenerateRequest{
		Prompt: "tell me about Go",
		Task:   domain.TaskQuickResponse,
	})

	require.Empty(t, gen.Err)
	assert.Equal(t, "recovered after one retry just fine", gen.Text)
	require.Len(t, transport.calls, 2)
	assert.Equal(t, ModelGemma, transport.calls[0].Model)
	assert.Equal(t, ModelLlama3, transport.calls[1].Model, "first retry escalates the model")
}

func TestGenerate_RejectsLowQualityAndRetries(t *testing.T) {
	t.Parallel()
	transport := &fakeTransport{script: []scriptedCall{
		{text: "I cannot assist with that request, sorry."},
		{text: "ok"}, // too short
		{text: "Here is a substantive answer to your question."},
	}}
	c := newTestClient(t, transport, newFakeCache())

	gen := c.Generate(context.Background(), domain.GenerateRequest{
		Prompt: "question",
		Task:   domain.TaskScreening,
	})

	require.Empty(t, gen.Err)
	assert.Equal(t, "Here is a substantive answer to your question.", gen.Text)
	require.Len(t, transport.calls, 3)
	// maxRetries is 2, so the last attempt carries the raised temperature.
	assert.InDelta(t, defaultTemperature, transport.calls[1].Temperature, 0.001)
	assert.InDelta(t, defaultTemperature+0.2, transport.calls[2].Temperature, 0.001)
}

func TestGenerate_ExhaustionServesFallback(t *testing.T) {
	t.Parallel()
	transport := &fakeTransport{script: []scriptedCall{
		{err: errors.New("boom")},
		{err: errors.New("boom")},
		{err: errors.New("boom")},
	}}
	cache := newFakeCache()
	c := newTestClient(t, transport, cache)

	gen := c.Generate(context.Background(), domain.GenerateRequest{
		Prompt: "question",
		Task:   domain.TaskSkillAssessment,
	})

	assert.True(t, gen.Fallback)
	assert.NotEmpty(t, gen.Text)
	assert.Equal(t, "failed after max retries", gen.Err)
	assert.Len(t, transport.calls, 3)
	assert.Equal(t, 0, cache.puts, "fallback text must never be cached")
}

func TestGenerate_LongContextPromotesModel(t *testing.T) {
	t.Parallel()
	transport := &fakeTransport{script: []scriptedCall{
		{text: "a response from the long context model"},
	}}
	c := newTestClient(t, transport, newFakeCache())

	long := make([]byte, 0, 40000)
	for i := 0; i < 10000; i++ {
		long = append(long, "word "...)
	}
	gen := c.Generate(context.Background(), domain.GenerateRequest{
		Prompt: string(long),
		Task:   domain.TaskScreening,
	})

	require.Empty(t, gen.Err)
	require.Len(t, transport.calls, 1)
	assert.Equal(t, ModelMixtral, transport.calls[0].Model)
}

func TestGenerate_ExplicitModelWins(t *testing.T) {
	t.Parallel()
	transport := &fakeTransport{script: []scriptedCall{
		{text: "pinned-model response, long enough"},
	}}
	c := newTestClient(t, transport, newFakeCache())

	gen := c.Generate(context.Background(), domain.GenerateRequest{
		Prompt: "q",
		Task:   domain.TaskConversation,
		Model:  ModelGemma,
	})

	require.Empty(t, gen.Err)
	require.Len(t, transport.calls, 1)
	assert.Equal(t, ModelGemma, transport.calls[0].Model)
}

func TestPace_EnforcesMinimumDelay(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.RateLimitDelay = 500 * time.Millisecond
	c := New(cfg, &fakeTransport{}, nil)

	var slept time.Duration
	c.sleep = func(d time.Duration) { slept += d }
	base := time.Now()
	c.now = func() time.Time { return base }

	c.pace() // first call: lastCall zero, long since elapsed
	firstSleep := slept
	c.pace() // immediate second call must wait the full delay
	assert.Equal(t, firstSleep, slept-cfg.RateLimitDelay)
}
