// Command server starts the NextStep career-guidance HTTP server.
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

	ai "github.com/nextstep-labs/nextstep/internal/adapter/ai"
	"github.com/nextstep-labs/nextstep/internal/adapter/ai/gemini"
	"github.com/nextstep-labs/nextstep/internal/adapter/ai/groq"
	"github.com/nextstep-labs/nextstep/internal/adapter/ai/stub"
	httpserver "github.com/nextstep-labs/nextstep/internal/adapter/httpserver"
	"github.com/nextstep-labs/nextstep/internal/adapter/observability"
	"github.com/nextstep-labs/nextstep/internal/adapter/repo/postgres"
	"github.com/nextstep-labs/nextstep/internal/adapter/repo/redischat"
	"github.com/nextstep-labs/nextstep/internal/app"
	"github.com/nextstep-labs/nextstep/internal/catalog"
	"github.com/nextstep-labs/nextstep/internal/config"
	"github.com/nextstep-labs/nextstep/internal/domain"
	"github.com/nextstep-labs/nextstep/internal/usecase"
)

func main() {
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

	if cfg.JWTSecret == "" {
		if cfg.IsProd() {
			slog.Error("JWT_SECRET is required in production")
			os.Exit(1)
		}
		cfg.JWTSecret = "nextstep-dev-secret"
		slog.Warn("JWT_SECRET not set, using development default")
	}

	// Infra: DB pool with startup backoff, then schema
	ctx := context.Background()
	maxElapsed, initial, maxInterval := cfg.DBConnectBackoff()
	pool, err := postgres.Connect(ctx, cfg.DBURL, maxElapsed, initial, maxInterval)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		slog.Error("schema migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Chat context cache; optional, the chat works without it.
	var cache *redischat.Cache
	if cfg.RedisURL != "" {
		cache, err = redischat.New(cfg.RedisURL, cfg.ChatContextTTL)
		if err != nil {
			slog.Warn("redis unavailable, chat context caching disabled", slog.Any("error", err))
			cache = nil
		}
	}

	// Question banks
	cat, err := catalog.Load()
	if err != nil {
		slog.Error("catalog load failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Generation client: Gemini primary, Groq fallback. Without API keys the
	// deterministic stub keeps local development fully offline.
	var client domain.GenerationClient
	switch {
	case cfg.GeminiAPIKey != "" && cfg.GroqAPIKey != "":
		client = ai.NewFallbackClient(gemini.New(cfg), groq.New(cfg))
	case cfg.GeminiAPIKey != "":
		client = gemini.New(cfg)
	case cfg.GroqAPIKey != "":
		client = groq.New(cfg)
	default:
		slog.Warn("no provider API keys configured, using offline stub client")
		client = stub.New()
	}
	slog.Info("generation client initialized", slog.String("provider", client.Name()))

	// Repositories
	userRepo := postgres.NewUserRepo(pool)
	resultRepo := postgres.NewResultRepo(pool)
	chatRepo := postgres.NewChatRepo(pool)
	feedbackRepo := postgres.NewFeedbackRepo(pool)
	ticketRepo := postgres.NewTicketRepo(pool)

	// Usecases
	cleaner := ai.NewResponseCleaner()
	classifier := usecase.NewArchetypeClassifier(client, cleaner, cat)
	analyzer := usecase.NewPhase3Analyzer(client, cat)
	narrative := usecase.NewNarrativeGenerator(client, cleaner, cat)
	assessments := usecase.NewAssessmentService(resultRepo, cat, classifier, analyzer, narrative)
	var profileCache usecase.ProfileCache
	if cache != nil {
		assessments.Profiles = cache
		profileCache = cache
	}
	authSvc := usecase.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL)
	resultSvc := usecase.NewResultService(resultRepo)
	chatSvc := usecase.NewChatService(chatRepo, resultRepo, client, profileCache, cfg.ChatHistoryLimit, cfg.ChatPromptBudget, cfg.GeminiModel)
	supportSvc := usecase.NewSupportService(feedbackRepo, ticketRepo)

	// HTTP server
	srv := httpserver.NewServer(cfg, authSvc, assessments, resultSvc, chatSvc, supportSvc, cat,
		app.DBCheck(pool), app.RedisCheck(cache))
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
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
