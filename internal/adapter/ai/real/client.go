// Package real implements the outbound completion transport against an
// OpenAI-compatible chat completions endpoint (Groq). It performs exactly one
// HTTP attempt per call; retry policy lives with the caller.
package real

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-intake-agent/internal/config"
	"github.com/fairyhunter13/ai-intake-agent/internal/domain"
)

// Client talks to the Groq chat completions API.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// New builds the transport from config. The HTTP client carries the request
// timeout and OTel instrumentation.
func New(cfg config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.GroqBaseURL, "/"),
		apiKey:  cfg.GroqAPIKey,
		httpc: &http.Client{
			Timeout:   cfg.GroqTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Chat sends one completion request and returns the first choice.
func (c *Client) Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error) {
	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.UserPrompt})

	body, err := json.Marshal(chatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return domain.ChatResult{}, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return domain.ChatResult{}, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.ChatResult{}, fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
		}
		return domain.ChatResult{}, fmt.Errorf("chat completions call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.ChatResult{}, fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.ChatResult{}, fmt.Errorf("%w: status %d", domain.ErrUpstreamRateLimit, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("chat completions returned non-2xx",
			slog.Int("status", resp.StatusCode),
			slog.String("model", req.Model),
			slog.String("body", snippet(raw)),
			slog.Duration("elapsed", time.Since(start)))
		return domain.ChatResult{}, fmt.Errorf("chat completions status %d", resp.StatusCode)
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return domain.ChatResult{}, fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return domain.ChatResult{}, domain.ErrEmptyCompletion
	}

	return domain.ChatResult{
		Text:        parsed.Choices[0].Message.Content,
		TotalTokens: parsed.Usage.TotalTokens,
	}, nil
}

// snippet trims a response body for log output.
func snippet(b []byte) string {
	const max = 300
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
