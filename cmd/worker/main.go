// Package main - точка входа для фоновых процессов (Worker) Houses Steam Planner.
//
// Worker отвечает за периодические задачи:
// - Прогрев кеша кубка домов
// - Ночной пересчёт медалей по всем пользователям (подхватывает медали,
//   добавленные в каталог после последней синхронизации)
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/yomigarei-dotcom/houses-steam-planner/config"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/application/command"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/house"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/season"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/user"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/infrastructure/persistence/postgres"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/infrastructure/persistence/redis"
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
	// 1. КОНФИГУРАЦИЯ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})
	log.Info("starting Houses Steam Planner worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version))

	if !cfg.Scheduler.Enabled {
		log.Info("scheduler disabled, nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. POSTGRESQL
	// ─────────────────────────────────────────────────────────────────────────
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Worker тоже должен работать с актуальной схемой.
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var standingsCache *redis.StandingsCache

	if !cfg.Redis.Disabled {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB

		redisCache, err := redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, cache warming disabled", logger.Err(err))
		} else {
			defer redisCache.Close()
			standingsCache = redis.NewStandingsCache(redisCache)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. РЕПОЗИТОРИИ И ДВИЖОК МЕДАЛЕЙ
	// ─────────────────────────────────────────────────────────────────────────
	userRepo := postgres.NewUserRepository(dbConn)
	progressRepo := postgres.NewProgressRepository(dbConn)
	seasonRepo := postgres.NewSeasonRepository(dbConn)
	houseRepo := postgres.NewHouseRepository(dbConn)
	catalogRepo := postgres.NewMedalCatalogRepository(dbConn, log)
	ledgerRepo := postgres.NewAwardLedgerRepository(dbConn)

	evaluateHandler := command.NewEvaluateMedalsHandler(catalogRepo, ledgerRepo, seasonRepo, progressRepo, progressRepo, log)

	jobs := &workerJobs{
		cfg:       cfg,
		users:     userRepo,
		seasons:   seasonRepo,
		houses:    houseRepo,
		engine:    evaluateHandler,
		standings: standingsCache,
		log:       log.With(logger.Component("worker")),
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	if standingsCache != nil {
		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Scheduler.RebuildStandingsInterval),
			gocron.NewTask(jobs.warmStandings),
		)
		if err != nil {
			return fmt.Errorf("failed to schedule standings job: %w", err)
		}
	}

	_, err = scheduler.NewJob(
		gocron.CronJob(cfg.Scheduler.ReevaluateCron, false),
		gocron.NewTask(jobs.reevaluateAll),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule re-evaluation job: %w", err)
	}

	scheduler.Start()
	log.Info("worker is running",
		logger.String("reevaluate_cron", cfg.Scheduler.ReevaluateCron))

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Info("received shutdown signal", logger.String("signal", sig.String()))

	if err := scheduler.Shutdown(); err != nil {
		return fmt.Errorf("scheduler shutdown failed: %w", err)
	}

	log.Info("shutdown completed")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// JOBS
// ══════════════════════════════════════════════════════════════════════════════

type workerJobs struct {
	cfg       *config.Config
	users     user.Repository
	seasons   season.Repository
	houses    house.Repository
	engine    *command.EvaluateMedalsHandler
	standings *redis.StandingsCache
	log       *logger.Logger
}

// warmStandings refreshes the cached cup standings for the active season so
// the first request after expiry does not pay for the aggregate query.
func (j *workerJobs) warmStandings() {
	ctx, cancel := context.WithTimeout(context.Background(), j.cfg.Scheduler.JobTimeout)
	defer cancel()

	active, err := j.seasons.GetActive(ctx)
	if err != nil {
		if !shared.IsNotFound(err) {
			j.log.Warn("standings warm: active season lookup failed", logger.Err(err))
		}
		return
	}

	standings, err := j.houses.SeasonStandings(ctx, active.ID)
	if err != nil {
		j.log.Warn("standings warm: query failed", logger.Err(err))
		return
	}

	if err := j.standings.SetSeasonStandings(ctx, active.ID, standings); err != nil {
		j.log.Warn("standings warm: cache write failed", logger.Err(err))
		return
	}

	j.log.Debug("cup standings cache warmed", logger.SeasonID(active.ID))
}

// reevaluateAll sweeps every user's completed backlog through the medal
// engine. Grants are idempotent, so re-running over already-earned medals is
// a no-op; the sweep only picks up definitions added since the last sync.
func (j *workerJobs) reevaluateAll() {
	ctx, cancel := context.WithTimeout(context.Background(), j.cfg.Scheduler.JobTimeout)
	defer cancel()

	start := time.Now()
	var usersSwept, medalsGranted int

	afterID := ""
	for {
		ids, err := j.users.ListIDs(ctx, afterID, j.cfg.Scheduler.ReevaluateBatchSize)
		if err != nil {
			j.log.Error("re-evaluation: user listing failed", logger.Err(err))
			return
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			result, err := j.engine.HandleAll(ctx, command.EvaluateAllCommand{UserID: id})
			if err != nil {
				j.log.Warn("re-evaluation failed for user", logger.UserID(id), logger.Err(err))
				continue
			}
			usersSwept++
			medalsGranted += len(result.Granted)
		}

		afterID = ids[len(ids)-1]
	}

	if j.standings != nil && medalsGranted > 0 {
		if active, err := j.seasons.GetActive(ctx); err == nil {
			_ = j.standings.Invalidate(ctx, active.ID)
		}
	}

	j.log.Info("nightly re-evaluation completed",
		logger.Int("users", usersSwept),
		logger.Int("granted", medalsGranted),
		logger.Latency(time.Since(start)))
}
