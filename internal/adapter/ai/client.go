package ai

import (
	"log/slog"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/ai-intake-agent/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-intake-agent/internal/adapter/observability"
	"github.com/fairyhunter13/ai-intake-agent/internal/config"
	"github.com/fairyhunter13/ai-intake-agent/internal/domain"
)

const (
	defaultTemperature  = 0.7
	maxRetryTemperature = 0.9
	defaultMaxTokens    = 300
)

// Client implements domain.Generator. It hides all external-service
// variability: callers always get usable text (cached, generated, or a
// per-task fallback), never an error.
type Client struct {
	cfg       config.Config
	transport domain.CompletionClient // nil when no credentials configured
	cache     domain.ResponseCache
	counter   *tokencount.Counter
	sleep     func(time.Duration)
	now       func() time.Time

	// lastCall is shared across sessions; the mutex also serializes the
	// fixed-interval pacing sleep so concurrent sessions cannot stampede
	// the provider.
	mu       sync.Mutex
	lastCall time.Time
}

// New constructs the LLM client. transport may be nil for offline
// deployments; cache may be nil to disable caching entirely.
func New(cfg config.Config, transport domain.CompletionClient, cache domain.ResponseCache) *Client {
	return &Client{
		cfg:       cfg,
		transport: transport,
		cache:     cache,
		counter:   tokencount.NewCounter(),
		sleep:     time.Sleep,
		now:       time.Now,
	}
}

// Generate produces response text for a request. The retry ladder is a
// bounded loop over (attempt, model, temperature): the first retry switches
// to the strongest general-purpose model, the final retry raises the
// temperature, transport failures wait per an exponential backoff schedule.
// Exhaustion degrades to static fallback text with Err set.
func (c *Client) Generate(ctx domain.Context, req domain.GenerateRequest) domain.Generation {
	profile := profileFor(req.Task)

	temperature := req.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	model := req.Model
	if model == "" {
		model = c.selectModel(profile, req.Prompt)
	}

	if !req.NoCache && c.cache != nil {
		if text, ok := c.cache.Get(ctx, req.Prompt, model, temperature); ok {
			observability.AICacheHitsTotal.WithLabelValues(string(req.Task)).Inc()
			return domain.Generation{Text: text, Model: model, CacheHit: true}
		}
	}

	if c.transport == nil {
		// Normal path in unconfigured/offline deployments.
		slog.Debug("llm client not configured; serving fallback",
			slog.String("task", string(req.Task)))
		observability.AIFallbacksTotal.WithLabelValues(string(req.Task), "unconfigured").Inc()
		return domain.Generation{
			Text:     profile.fallback,
			Fallback: true,
			Err:      "llm client not configured",
		}
	}

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = profile.systemPrompt
	}

	c.pace()

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval, expo.MaxInterval, expo.Multiplier = c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = 0

	maxRetries := c.cfg.GenerateMaxRetries
	for attempt := 0; attempt <= maxRetries; attempt++ {
		start := time.Now()
		res, err := c.transport.Chat(ctx, domain.ChatRequest{
			Model:        model,
			SystemPrompt: systemPrompt,
			UserPrompt:   req.Prompt,
			Temperature:  temperature,
			MaxTokens:    maxTokens,
		})
		observability.AIRequestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())

		switch {
		case err != nil:
			observability.AIRequestsTotal.WithLabelValues(model, "error").Inc()
			slog.Warn("completion call failed",
				slog.String("model", model),
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			if attempt < maxRetries {
				c.sleep(expo.NextBackOff())
			}
		case !AcceptableResponse(res.Text):
			observability.AIRequestsTotal.WithLabelValues(model, "rejected").Inc()
			slog.Warn("completion failed quality gate",
				slog.String("model", model),
				slog.Int("attempt", attempt),
				slog.Int("length", len(res.Text)))
		default:
			observability.AIRequestsTotal.WithLabelValues(model, "ok").Inc()
			tokens := res.TotalTokens
			if tokens == 0 {
				tokens = c.counter.CountTokens(systemPrompt+req.Prompt+res.Text, model)
			}
			if !req.NoCache && c.cache != nil {
				c.cache.Put(ctx, req.Prompt, model, temperature, res.Text)
			}
			return domain.Generation{Text: res.Text, Model: model, TokensUsed: tokens}
		}

		// Adjust the ladder for the next attempt: escalate model first,
		// raise temperature on the final try.
		if attempt == 0 && model != ModelLlama3 {
			model = ModelLlama3
		} else if attempt+1 == maxRetries {
			temperature = min(maxRetryTemperature, temperature+0.2)
		}
	}

	slog.Error("generation exhausted retries; serving fallback",
		slog.String("task", string(req.Task)),
		slog.String("model", model))
	observability.AIFallbacksTotal.WithLabelValues(string(req.Task), "exhausted").Inc()
	return domain.Generation{
		Text:     profile.fallback,
		Model:    model,
		Fallback: true,
		Err:      "failed after max retries",
	}
}

// selectModel applies the per-task default and the long-context override.
func (c *Client) selectModel(p taskProfile, prompt string) string {
	model := p.model
	if model != ModelMixtral && c.counter.CountTokens(prompt, model) > c.cfg.LongContextTokens {
		return ModelMixtral
	}
	return model
}

// pace enforces the minimum inter-call delay shared by all sessions.
func (c *Client) pace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if wait := c.cfg.RateLimitDelay - c.now().Sub(c.lastCall); wait > 0 {
		c.sleep(wait)
	}
	c.lastCall = c.now()
}
