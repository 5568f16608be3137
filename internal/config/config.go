// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment
// variables. Every knob has a default so the core is usable with zero
// configuration, degrading to fallback text when no model credentials exist.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`

	// Groq (OpenAI-compatible) completion endpoint. An empty key is a
	// normal offline deployment: the LLM client returns fallback text
	// without attempting the network.
	GroqAPIKey  string        `env:"GROQ_API_KEY"`
	GroqBaseURL string        `env:"GROQ_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	GroqTimeout time.Duration `env:"GROQ_TIMEOUT" envDefault:"60s"`

	// Response cache. With REDIS_URL unset the in-process cache is used.
	RedisURL string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"24h"`

	// LLM client behavior.
	RateLimitDelay     time.Duration `env:"RATE_LIMIT_DELAY" envDefault:"500ms"`
	GenerateMaxRetries int           `env:"GENERATE_MAX_RETRIES" envDefault:"2"`
	LongContextTokens  int           `env:"LONG_CONTEXT_TOKENS" envDefault:"7000"`

	// Conversation shaping.
	ContextMaxTurns      int `env:"CONTEXT_MAX_TURNS" envDefault:"10"`
	ContextMessageMaxLen int `env:"CONTEXT_MESSAGE_MAX_LEN" envDefault:"200"`
	MaxReplyLength       int `env:"MAX_REPLY_LENGTH" envDefault:"800"`

	// Assessment.
	MaxQuestionsPerSkill int    `env:"MAX_QUESTIONS_PER_SKILL" envDefault:"2"`
	MaxTotalQuestions    int    `env:"MAX_TOTAL_QUESTIONS" envDefault:"5"`
	QuestionBankPath     string `env:"QUESTION_BANK_PATH"`

	// HTTP server.
	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"30"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`

	// Observability.
	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"ai-intake-agent"`

	// AI backoff configuration for transport failures.
	AIBackoffInitialInterval time.Duration `env:"AI_BACKOFF_INITIAL_INTERVAL" envDefault:"2s"`
	AIBackoffMaxInterval     time.Duration `env:"AI_BACKOFF_MAX_INTERVAL" envDefault:"20s"`
	AIBackoffMultiplier      float64       `env:"AI_BACKOFF_MULTIPLIER" envDefault:"2.0"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// LLMConfigured reports whether outbound completion calls are possible.
func (c Config) LLMConfigured() bool { return c.GroqAPIKey != "" }

// GetAIBackoffConfig returns the transport-failure wait schedule for the
// current environment. Test mode shrinks intervals so retry paths run fast.
func (c Config) GetAIBackoffConfig() (initialInterval, maxInterval time.Duration, multiplier float64) {
	if c.IsTest() {
		return 10 * time.Millisecond, 100 * time.Millisecond, 2.0
	}
	return c.AIBackoffInitialInterval, c.AIBackoffMaxInterval, c.AIBackoffMultiplier
}
