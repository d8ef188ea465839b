// Package main is the entry point of the piano progression engine server.
//
// The server exposes the completion event intake and the progression read
// API, runs the background leaderboard rebuild job, and keeps the Redis
// leaderboard projection warm through the in-process event bus.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/pianova-hub/piano-progression-hub/config"
	"github.com/pianova-hub/piano-progression-hub/internal/application/command"
	"github.com/pianova-hub/piano-progression-hub/internal/application/eventhandlers"
	"github.com/pianova-hub/piano-progression-hub/internal/application/query"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/leaderboard"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
	"github.com/pianova-hub/piano-progression-hub/internal/infrastructure/messaging"
	"github.com/pianova-hub/piano-progression-hub/internal/infrastructure/persistence/postgres"
	"github.com/pianova-hub/piano-progression-hub/internal/infrastructure/persistence/redis"
	"github.com/pianova-hub/piano-progression-hub/internal/infrastructure/scheduler"
	"github.com/pianova-hub/piano-progression-hub/internal/infrastructure/scheduler/jobs"
	httpapi "github.com/pianova-hub/piano-progression-hub/internal/interface/http"
	"github.com/pianova-hub/piano-progression-hub/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	// .env is a development convenience; a missing file is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	slogger := setupSlog(cfg)
	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.App.Debug,
	})

	log.Info("starting piano progression hub",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE
	// ─────────────────────────────────────────────────────────────────────────
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional read accelerator)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisCache       *redis.Cache
		leaderboardCache *redis.LeaderboardCache
	)
	if !cfg.Redis.Disabled {
		redisCfg := redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}
		redisCache, err = redis.NewCache(ctx, redisCfg)
		if err != nil {
			log.Warn("redis unavailable, leaderboard served from postgres only", logger.Err(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
			leaderboardCache = redis.NewLeaderboardCache(redisCache)
			log.Info("redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	store := postgres.NewStore(dbConn)
	configRepo := postgres.NewConfigRepository(dbConn)
	leaderboardRepo := postgres.NewLeaderboardRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = slogger
	eventBus := messaging.NewInMemoryEventBus(busConfig)
	defer func() { _ = eventBus.Close() }()

	if leaderboardCache != nil {
		projection := eventhandlers.NewLeaderboardProjectionHandler(store, leaderboardCache, log)
		if err := eventBus.Subscribe(shared.EventXPCredited, projection); err != nil {
			return fmt.Errorf("subscribe projection handler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. APPLICATION SERVICES
	// ─────────────────────────────────────────────────────────────────────────
	service := command.NewProgressionService(
		store,
		configRepo,
		configRepo,
		eventBus,
		log,
		command.ProgressionServiceConfig{MaxAwardPasses: cfg.Progression.MaxAwardPasses},
	)

	// Cached reads go through the circuit breaker; postgres is the fallback
	// and the authority.
	var primaryRanker leaderboard.Ranker = leaderboardRepo
	var fallbackRanker leaderboard.Ranker
	if leaderboardCache != nil {
		primaryRanker = redis.NewGuardedRanker(leaderboardCache, slogger)
		fallbackRanker = leaderboardRepo
	}

	leaderboardHandler := query.NewGetLeaderboardHandler(primaryRanker, fallbackRanker)
	rankHandler := query.NewGetUserRankHandler(leaderboardRepo)
	statsHandler := query.NewGetStatsHandler(store, configRepo)
	levelsHandler := query.NewGetLevelsHandler(configRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Scheduler.Enabled && leaderboardCache != nil {
		sched := scheduler.NewScheduler(slogger)
		rebuildJob := jobs.NewRebuildLeaderboardJob(
			leaderboardRepo,
			leaderboardCache,
			eventBus,
			slogger,
			cfg.Scheduler.JobTimeout,
		)
		if err := sched.Register(rebuildJob, scheduler.NewIntervalSchedule(cfg.Scheduler.RebuildLeaderboardInterval)); err != nil {
			return fmt.Errorf("register rebuild job: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer func() { _ = sched.Stop() }()

		// Warm the projection at boot so the first page read hits the cache.
		if _, err := sched.RunNow(ctx, rebuildJob.Name()); err != nil {
			log.Warn("initial leaderboard rebuild failed", logger.Err(err))
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	api := httpapi.NewProgressionAPI(service, statsHandler, leaderboardHandler, rankHandler, levelsHandler)
	health := httpapi.NewHealthAPI(cfg.App.Version)
	health.AddCheck("postgres", dbConn)
	if redisCache != nil {
		health.AddCheck("redis", redisCache)
	}

	server := httpapi.NewServer(cfg.HTTP, api, health, log)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", logger.Err(err))
	}

	log.Info("shutdown completed")
	return nil
}

// setupSlog configures the slog logger used by infrastructure components.
func setupSlog(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
