// Package main - точка входа для API сервера Houses Steam Planner.
//
// Сервер отвечает за:
// - Вход через Steam OpenID и сессии
// - Синхронизацию библиотеки с Steam Web API
// - Каталог медалей и журнал наград
// - Дома, распределяющий квиз и кубок домов
// - Сезоны и лидерборды
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yomigarei-dotcom/houses-steam-planner/config"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/application/command"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/application/query"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/infrastructure/external/steam"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/infrastructure/persistence/postgres"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/infrastructure/persistence/redis"
	httpapi "github.com/yomigarei-dotcom/houses-steam-planner/internal/interface/http"
	"github.com/yomigarei-dotcom/houses-steam-planner/pkg/logger"
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
	// 1. КОНФИГУРАЦИЯ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})
	log.Info("starting Houses Steam Planner API",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version))

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRESQL
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Info("running database migrations")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (опционально; кеш никогда не является обязательным)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisCache     *redis.Cache
		standingsCache query.StandingsCache
		syncLimiter    *redis.SyncLimiter
	)

	if !cfg.Redis.Disabled {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching and sync windows disabled", logger.Err(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
			standingsCache = redis.NewStandingsCache(redisCache)
			syncLimiter = redis.NewSyncLimiter(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. РЕПОЗИТОРИИ
	// ─────────────────────────────────────────────────────────────────────────
	userRepo := postgres.NewUserRepository(dbConn)
	progressRepo := postgres.NewProgressRepository(dbConn)
	seasonRepo := postgres.NewSeasonRepository(dbConn)
	houseRepo := postgres.NewHouseRepository(dbConn)
	catalogRepo := postgres.NewMedalCatalogRepository(dbConn, log)
	ledgerRepo := postgres.NewAwardLedgerRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. STEAM WEB API КЛИЕНТ
	// ─────────────────────────────────────────────────────────────────────────
	steamCfg := steam.DefaultClientConfig(cfg.Steam.APIKey)
	steamCfg.BaseURL = cfg.Steam.BaseURL
	steamCfg.Timeout = cfg.Steam.RequestTimeout
	steamCfg.MaxAttempts = cfg.Steam.MaxRetries
	steamCfg.RateLimiterConfig.RequestsPerSecond = cfg.Steam.RequestsPerSecond
	steamCfg.RateLimiterConfig.BurstSize = cfg.Steam.BurstSize
	steamCfg.CircuitBreakerConfig.FailureThreshold = cfg.Steam.CircuitBreakerThreshold
	steamCfg.CircuitBreakerConfig.Timeout = cfg.Steam.CircuitBreakerTimeout
	steamClient := steam.NewClient(steamCfg, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. APPLICATION СЛОЙ
	// ─────────────────────────────────────────────────────────────────────────
	evaluateHandler := command.NewEvaluateMedalsHandler(catalogRepo, ledgerRepo, seasonRepo, progressRepo, progressRepo, log)
	syncHandler := command.NewSyncLibraryHandler(userRepo, progressRepo, steamClient, evaluateHandler, log)
	loginHandler := command.NewLoginSteamHandler(userRepo, steamClient, log)
	assignHandler := command.NewAssignHouseHandler(userRepo, houseRepo, log)
	createMedalHandler := command.NewCreateMedalHandler(catalogRepo, log)
	manageSeasonHandler := command.NewManageSeasonHandler(seasonRepo, log)

	deps := httpapi.Dependencies{
		LoginSteamHandler:     loginHandler,
		SyncLibraryHandler:    syncHandler,
		EvaluateMedalsHandler: evaluateHandler,
		AssignHouseHandler:    assignHandler,
		CreateMedalHandler:    createMedalHandler,
		ManageSeasonHandler:   manageSeasonHandler,

		GetUserMedalsHandler:        query.NewGetUserMedalsHandler(ledgerRepo),
		GetMedalCatalogHandler:      query.NewGetMedalCatalogHandler(catalogRepo),
		GetHousesHandler:            query.NewGetHousesHandler(houseRepo),
		GetHouseCupHandler:          query.NewGetHouseCupHandler(houseRepo, seasonRepo, standingsCache),
		GetHouseMembersHandler:      query.NewGetHouseMembersHandler(houseRepo),
		GetQuizHandler:              query.NewGetQuizHandler(houseRepo),
		GetSeasonsHandler:           query.NewGetSeasonsHandler(seasonRepo),
		GetSeasonLeaderboardHandler: query.NewGetSeasonLeaderboardHandler(seasonRepo),
		GetMySeasonPointsHandler:    query.NewGetMySeasonPointsHandler(seasonRepo),

		Users: userRepo,

		Auth: httpapi.NewAuthManager(httpapi.AuthConfig{
			JWTSecret:         cfg.Auth.JWTSecret,
			TokenTTL:          cfg.Auth.TokenTTL,
			AdminPasswordHash: cfg.Auth.AdminPasswordHash,
		}),
		OpenID:      httpapi.NewSteamOpenID(cfg.Auth.Realm, cfg.Auth.ReturnURL),
		SyncLimiter: syncLimiter,

		HealthChecker: &healthChecker{db: dbConn, cache: redisCache},
		Logger:        log,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpapi.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.EnableCORS = cfg.HTTP.EnableCORS
	serverCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	serverCfg.FrontendURL = cfg.HTTP.FrontendURL
	serverCfg.SyncMinPlaytime = cfg.Steam.MinPlaytimeMinutes

	server := httpapi.NewServer(serverCfg, deps)
	errCh := server.StartAsync()

	log.Info("Houses Steam Planner API is running", logger.String("address", server.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 9. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("shutdown completed")
	return nil
}

// healthChecker reports backend health for the /health endpoint.
type healthChecker struct {
	db    *postgres.Connection
	cache *redis.Cache
}

func (h *healthChecker) Health(ctx context.Context) map[string]string {
	checks := map[string]string{}

	if err := h.db.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
	} else {
		checks["postgres"] = "ok"
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}

	return checks
}
