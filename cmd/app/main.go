package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"practicetest-core/internal/config"
	"practicetest-core/internal/domain/ports/adapter"
	gen "practicetest-core/internal/infra/adapters/generate"
	pg "practicetest-core/internal/infra/db/postgres"
	"practicetest-core/internal/infra/logging"
	"practicetest-core/internal/infra/metrics"
	red "practicetest-core/internal/infra/redis"
	"practicetest-core/internal/infra/web"
	"practicetest-core/internal/infra/worker"
	"practicetest-core/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)
	jobStore := red.NewJobStore(redisClient, locker, cfg.Jobs.RunningTTL, cfg.Jobs.RetentionTTL)

	// ---- Repositories ----
	poolRepo := pg.NewPostgresPoolRepo(pool)
	quotaRepo := pg.NewPostgresQuotaRepo(pool, tm)

	// ---- Generation providers (tried in configured order) ----
	providers := make([]adapter.Generator, 0, len(cfg.Generation.Providers))
	for _, pc := range cfg.Generation.Providers {
		var (
			p   adapter.Generator
			err error
		)
		switch pc.Name {
		case "openai":
			p, err = gen.NewOpenAIProvider(pc.APIKey, pc.BaseURL, pc.Model, cfg.Generation.Timeout)
		case "gemini":
			p, err = gen.NewGeminiProvider(ctx, pc.APIKey, pc.BaseURL, pc.Model)
		case "noop":
			p = gen.NewNoopProvider()
		default:
			log.Fatalf("unknown generation provider %q", pc.Name)
		}
		if err != nil {
			log.Fatalf("provider %s: %v", pc.Name, err)
		}
		logger.Info().Str("provider", pc.Name).Str("model", pc.Model).Msg("generation provider configured")
		providers = append(providers, p)
	}
	generator := gen.NewMultiProvider(providers, cfg.Generation.MaxRetries, cfg.Generation.RetryBackoff, logger)

	// ---- Use cases ----
	allocator := usecase.NewAllocator(poolRepo, logger)
	quota := usecase.NewQuotaService(quotaRepo, cfg.Quota.Roles, logger)

	workers := worker.NewPool(cfg.Jobs.Workers)
	workers.Start(ctx)
	defer workers.Stop()

	orc := usecase.NewOrchestrator(
		jobStore, poolRepo, allocator, quota, generator, workers,
		cfg.Jobs.WatchdogTimeout, cfg.Generation.Timeout, logger,
	)
	orc.Start(ctx)

	// ---- HTTP ----
	metrics.MustRegister()
	verifier := web.NewVerifier(cfg.Auth.HMACSecret)
	srv := web.NewServer(orc, quota, verifier, rateLimiter, web.RateLimit{
		Requests: cfg.RateLimit.Requests,
		Window:   cfg.RateLimit.Window,
	}, logger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	cancel()
}
