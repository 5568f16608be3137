// Command server starts the intake agent HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	ai "github.com/fairyhunter13/ai-intake-agent/internal/adapter/ai"
	"github.com/fairyhunter13/ai-intake-agent/internal/adapter/ai/real"
	"github.com/fairyhunter13/ai-intake-agent/internal/adapter/cache"
	httpserver "github.com/fairyhunter13/ai-intake-agent/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-intake-agent/internal/adapter/observability"
	"github.com/fairyhunter13/ai-intake-agent/internal/app"
	"github.com/fairyhunter13/ai-intake-agent/internal/config"
	"github.com/fairyhunter13/ai-intake-agent/internal/domain"
	"github.com/fairyhunter13/ai-intake-agent/internal/usecase"
)

func main() {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// Response cache: Redis when configured, in-process otherwise.
	var respCache domain.ResponseCache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			slog.Error("redis connect failed; falling back to memory cache", slog.Any("error", err))
			respCache = cache.NewMemory(cfg.CacheTTL)
		} else {
			respCache = rc
			slog.Info("redis response cache enabled")
		}
	} else {
		respCache = cache.NewMemory(cfg.CacheTTL)
		slog.Info("in-memory response cache enabled", slog.Duration("ttl", cfg.CacheTTL))
	}

	// Completion transport: absent credentials leave the agent in offline
	// mode, serving scripted prompts and fallback text.
	var transport domain.CompletionClient
	if cfg.LLMConfigured() {
		transport = real.New(cfg)
		slog.Info("llm transport configured", slog.String("base_url", cfg.GroqBaseURL))
	} else {
		slog.Warn("no llm credentials; running in offline mode")
	}
	generator := ai.New(cfg, transport, respCache)

	sessions := usecase.NewSessionStore()
	conv := usecase.NewConversation(cfg, generator)
	assessor := usecase.NewAssessor(cfg, generator)

	srv := httpserver.NewServer(cfg, sessions, conv, assessor)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
