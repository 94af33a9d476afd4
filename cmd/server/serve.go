package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"lexassist-backend/internal/agents"
	"lexassist-backend/internal/config"
	"lexassist-backend/internal/database"
	"lexassist-backend/internal/handlers"
	"lexassist-backend/internal/llm"
	"lexassist-backend/internal/middleware"
	"lexassist-backend/internal/repository"
	"lexassist-backend/internal/router"
	"lexassist-backend/internal/services"
	"lexassist-backend/internal/websocket"
	"lexassist-backend/internal/worker"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	log.Info().Str("env", cfg.Env).Msg("🚀 Starting LexAssist backend...")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("✗ invalid configuration: %w", err)
	}
	log.Info().Msg("✓ Environment variables loaded")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ──── LLM provider ────
	provider, closeProvider, err := newProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("✗ LLM provider initialization failed: %w", err)
	}
	defer closeProvider()
	log.Info().Str("provider", cfg.LLMProvider).Str("chat_model", cfg.ChatModel).Msg("✓ LLM provider initialized")

	assistant := services.NewAssistantService(provider, services.AssistantConfig{
		ChatModel:      cfg.ChatModel,
		AnalysisModel:  cfg.AnalysisModel,
		TranslateModel: cfg.TranslateModel,
	})

	// ──── Agents ────
	catalog, err := agents.LoadCatalog(cfg.AgentCatalogPath)
	if err != nil {
		return fmt.Errorf("✗ agent catalog: %w", err)
	}
	runner := newRunner(cfg)
	log.Info().Int("agents", len(catalog.Agents)).Str("scripts_dir", cfg.AgentScriptsDir).Msg("✓ Agent runner ready")

	// ──── Optional PostgreSQL ────
	var documentHandler *handlers.DocumentHandler
	extractor := services.NewFileExtractService()
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("✗ PostgreSQL connection failed: %w", err)
		}
		defer pool.Close()
		if err := database.RunMigrations(ctx, pool); err != nil {
			return fmt.Errorf("✗ database migration failed: %w", err)
		}
		log.Info().Msg("✓ PostgreSQL connected, migrations applied")
		documentHandler = handlers.NewDocumentHandler(assistant, extractor, repository.NewAnalysisRepo(pool))
	} else {
		log.Info().Msg("• DATABASE_URL not set, analysis history disabled")
		documentHandler = handlers.NewDocumentHandler(assistant, extractor, nil)
	}

	// ──── Optional Redis ────
	var (
		redisClient  *redis.Client
		agentHandler *handlers.AgentHandler
		workerPool   *worker.Pool
	)
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("✗ Redis connection failed: %w", err)
		}
		defer redisClient.Close()
		log.Info().Msg("✓ Redis connected")

		runStore := agents.NewRunStore(redisClient)
		agentHandler = handlers.NewAgentHandler(runner, catalog, runStore)
		workerPool = worker.NewPool(runStore, runner, cfg.AgentWorkers, cfg.AgentTimeout+time.Minute)
		workerPool.Start()
		log.Info().Int("workers", cfg.AgentWorkers).Msg("✓ Agent run worker pool started")
	} else {
		log.Info().Msg("• REDIS_URL not set, asynchronous agent runs disabled")
		agentHandler = handlers.NewAgentHandler(runner, catalog, nil)
	}

	// ──── Middleware options ────
	var limiter middleware.Limiter
	if cfg.RateLimitPerMinute > 0 {
		if redisClient != nil {
			limiter = middleware.NewRedisLimiter(redisClient, cfg.RateLimitPerMinute, time.Minute)
		} else {
			memLimiter := middleware.NewMemoryLimiter(cfg.RateLimitPerMinute, time.Minute)
			defer memLimiter.Close()
			limiter = memLimiter
		}
		log.Info().Int("per_minute", cfg.RateLimitPerMinute).Msg("✓ Rate limiting enabled")
	}

	var jwtAuth *middleware.JWTAuth
	if cfg.JWTSecret != "" {
		jwtAuth = middleware.NewJWTAuth(cfg.JWTSecret)
		log.Info().Msg("✓ JWT authentication enabled")
	}

	// ──── HTTP server ────
	r := router.New(router.Deps{
		Chat:        handlers.NewChatHandler(assistant, cfg.ChatMaxDuration),
		Documents:   documentHandler,
		Translate:   handlers.NewTranslateHandler(assistant),
		Agents:      agentHandler,
		ChatSocket:  websocket.NewChatSocket(assistant, cfg.ChatMaxDuration, cfg.FrontendURL),
		JWTAuth:     jwtAuth,
		Limiter:     limiter,
		FrontendURL: cfg.FrontendURL,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Msgf("✓ LexAssist backend ready on http://localhost:%s", cfg.Port)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down...")
		if workerPool != nil {
			workerPool.Stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newProvider builds the configured LLM provider and its cleanup function.
func newProvider(ctx context.Context, cfg *config.Config) (llm.Provider, func(), error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		p, err := llm.NewOpenAIProvider(ctx, llm.OpenAIConfig{
			APIKey:         cfg.OpenAIAPIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			Models:         []string{cfg.ChatModel, cfg.AnalysisModel, cfg.TranslateModel},
			ConcurrentReqs: cfg.LLMConcurrentRequests,
		})
		if err != nil {
			return nil, nil, err
		}
		return p, func() {}, nil
	default:
		p, err := llm.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.LLMConcurrentRequests)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { p.Close() }, nil
	}
}

func newRunner(cfg *config.Config) *agents.Runner {
	return agents.NewRunner(agents.RunnerConfig{
		Command:       cfg.AgentPython,
		ScriptsDir:    cfg.AgentScriptsDir,
		Timeout:       cfg.AgentTimeout,
		MaxConcurrent: int64(cfg.AgentMaxConcurrent),
	})
}
