// Package main - точка входа фоновых процессов (Worker) Kurso Learning Hub.
//
// Worker отвечает за периодические задачи:
// - Пересинхронизация количества материалов курсов из каталога
//
// Философия: "Сначала фундамент, потом стены" - знаменатель прогресса
// (total_materials) живёт в снимке, который дрейфует при редактировании
// курса. Worker ночью приводит активные записи в соответствие с каталогом,
// чтобы проценты на фронтенде не врали.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kurso-hub/kurso-learning-hub/config"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/progress"
	"github.com/kurso-hub/kurso-learning-hub/internal/infrastructure/external/catalog"
	"github.com/kurso-hub/kurso-learning-hub/internal/infrastructure/messaging"
	"github.com/kurso-hub/kurso-learning-hub/internal/infrastructure/persistence/postgres"
	"github.com/kurso-hub/kurso-learning-hub/internal/infrastructure/persistence/redis"
	"github.com/kurso-hub/kurso-learning-hub/internal/infrastructure/scheduler"
	"github.com/kurso-hub/kurso-learning-hub/internal/infrastructure/scheduler/jobs"
	"github.com/kurso-hub/kurso-learning-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Создаём корневой контекст с возможностью отмены
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запускаем приложение
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.App.Debug,
	})
	log.Info("starting Kurso Learning Hub Worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone),
	)

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler is disabled (SCHEDULER_ENABLED=false), nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Worker тоже должен работать с актуальной схемой
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database connection established, schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	// Resync инвалидирует закешированный прогресс после исправления
	// total_materials; без Redis инвалидировать нечего
	var progressCache progress.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCache, err := redis.NewCache(redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			log.Warn("failed to connect to Redis, cache invalidation disabled", logger.Err(err))
		} else {
			defer redisCache.Close()
			progressCache = redis.NewProgressCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ КЛИЕНТА КАТАЛОГА
	// ─────────────────────────────────────────────────────────────────────────
	catalogCfg := catalog.DefaultClientConfig(cfg.Catalog.BaseURL)
	catalogCfg.APIKey = cfg.Catalog.APIKey
	catalogCfg.Timeout = cfg.Catalog.RequestTimeout
	catalogCfg.RateLimiterConfig.RequestsPerSecond = float64(cfg.Catalog.RateLimit)
	catalogCfg.RateLimiterConfig.BurstSize = cfg.Catalog.RateLimitBurst
	catalogCfg.Logger = log
	catalogClient := catalog.NewClient(catalogCfg)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	// Resync публикует material-count-drift и resync-completed события;
	// в Worker они уходят только в лог
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log
	eventBus := messaging.NewInMemoryEventBus(busCfg)
	defer func() {
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. РЕГИСТРАЦИЯ ЗАДАЧ В ПЛАНИРОВЩИКЕ
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:        log,
		Timezone:      cfg.App.Location,
		EnableMetrics: cfg.Observability.MetricsEnabled,
	})

	progressRepo := postgres.NewProgressRepository(dbConn)

	resyncJob := jobs.NewResyncMaterialCountsJob(
		progressRepo,
		progressCache,
		catalogClient,
		eventBus,
		log,
		jobs.ResyncMaterialCountsConfig{
			ActiveWindow: cfg.Scheduler.ResyncActiveWindow,
			BatchSize:    cfg.Scheduler.ResyncBatchSize,
			Timeout:      cfg.Scheduler.JobTimeout,
		},
	)

	resyncSchedule, err := resolveResyncSchedule(cfg)
	if err != nil {
		return fmt.Errorf("invalid resync schedule: %w", err)
	}
	if err := sched.Register(resyncJob, resyncSchedule); err != nil {
		return fmt.Errorf("failed to register resync job: %w", err)
	}
	log.Info("registered job", logger.String("job", resyncJob.Name()), logger.String("schedule", resyncSchedule.String()))

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ЗАПУСК ПЛАНИРОВЩИКА
	// ─────────────────────────────────────────────────────────────────────────
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("Kurso Learning Hub Worker is running", logger.String("timezone", cfg.App.Timezone))

	// Ожидаем сигнал завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", logger.String("signal", sig.String()))

	// Stop дожидается завершения запущенных задач
	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))
	if err := sched.Stop(); err != nil {
		log.Error("scheduler stop failed", logger.Err(err))
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// resolveResyncSchedule выбирает расписание задачи пересинхронизации:
// cron-выражение, если задано, иначе фиксированный интервал.
func resolveResyncSchedule(cfg *config.Config) (scheduler.Schedule, error) {
	if cfg.Scheduler.ResyncCron != "" {
		expr, err := scheduler.ParseCronExpression(cfg.Scheduler.ResyncCron)
		if err != nil {
			return nil, err
		}
		return expr, nil
	}
	return scheduler.NewIntervalSchedule(cfg.Scheduler.ResyncInterval), nil
}
