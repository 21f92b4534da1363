// Package main - точка входа REST API сервера Kurso Learning Hub.
//
// API сервер обслуживает видеоплеер фронтенда:
// - Приём интервалов просмотра (heartbeat каждую секунду)
// - Отметка материалов завершёнными с проверкой последовательного доступа
// - Агрегированный прогресс по курсу
// - Выдача и проверка сертификатов
//
// Философия: "Сначала фундамент, потом стены" - студент получает доступ
// к следующему материалу только после завершения предыдущего, поэтому
// API обязан отвечать быстро и предсказуемо на каждый heartbeat.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kurso-hub/kurso-learning-hub/config"
	"github.com/kurso-hub/kurso-learning-hub/internal/application/command"
	"github.com/kurso-hub/kurso-learning-hub/internal/application/eventhandler"
	"github.com/kurso-hub/kurso-learning-hub/internal/application/query"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/notification"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/progress"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
	"github.com/kurso-hub/kurso-learning-hub/internal/infrastructure/external/catalog"
	"github.com/kurso-hub/kurso-learning-hub/internal/infrastructure/messaging"
	"github.com/kurso-hub/kurso-learning-hub/internal/infrastructure/persistence/postgres"
	"github.com/kurso-hub/kurso-learning-hub/internal/infrastructure/persistence/redis"
	"github.com/kurso-hub/kurso-learning-hub/internal/infrastructure/service"
	httpserver "github.com/kurso-hub/kurso-learning-hub/internal/interface/http"
	"github.com/kurso-hub/kurso-learning-hub/internal/interface/http/handlers"
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
	// .env опционален: в production переменные приходят из окружения
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
	log.Info("starting Kurso Learning Hub API",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)

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
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	// progress.Cache остаётся nil при выключенном Redis - хендлеры
	// работают напрямую с PostgreSQL
	var progressCache progress.Cache
	var redisCache *redis.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
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

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", logger.Err(err))
		} else {
			defer redisCache.Close()
			progressCache = redis.NewProgressCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	progressRepo := postgres.NewProgressRepository(dbConn)
	certificateRepo := postgres.NewCertificateRepository(dbConn)
	enrollmentRepo := postgres.NewEnrollmentRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ ВНЕШНИХ КЛИЕНТОВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing catalog client...")
	catalogCfg := catalog.DefaultClientConfig(cfg.Catalog.BaseURL)
	catalogCfg.APIKey = cfg.Catalog.APIKey
	catalogCfg.Timeout = cfg.Catalog.RequestTimeout
	catalogCfg.RateLimiterConfig.RequestsPerSecond = float64(cfg.Catalog.RateLimit)
	catalogCfg.RateLimiterConfig.BurstSize = cfg.Catalog.RateLimitBurst
	catalogCfg.Logger = log
	catalogCfg.Debug = cfg.App.Debug
	catalogClient := catalog.NewClient(catalogCfg)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ИНИЦИАЛИЗАЦИЯ ОТПРАВКИ УВЕДОМЛЕНИЙ
	// ─────────────────────────────────────────────────────────────────────────
	var sender notification.Sender
	if cfg.Notifications.WebhookURL != "" {
		sender = service.NewWebhookSender(service.WebhookSenderConfig{
			WebhookURL: cfg.Notifications.WebhookURL,
			APIKey:     cfg.Notifications.APIKey,
			Timeout:    cfg.Notifications.RequestTimeout,
			Logger:     log,
		})
		log.Info("notification delivery: webhook", logger.String("url", cfg.Notifications.WebhookURL))
	} else {
		sender = service.NewLogSender(log)
		log.Info("notification delivery: log-only (NOTIFICATIONS_WEBHOOK_URL is empty)")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ИНИЦИАЛИЗАЦИЯ EVENT BUS И ОБРАБОТЧИКОВ СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log
	busCfg.AsyncMode = true

	// При нескольких репликах API события идут через Redis Pub/Sub:
	// завершение курса, увиденное одной репликой, должно дойти до
	// обработчика сертификатов, где бы он ни был подписан
	var (
		eventBus  shared.EventBus
		busCloser interface{ Close() error }
	)
	if cfg.Redis.DistributedEvents && redisCache != nil {
		redisBus, rbErr := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redisCache.Client(),
			LocalBusConfig: busCfg,
			Logger:         log,
		})
		if rbErr != nil {
			return fmt.Errorf("failed to initialize redis event bus: %w", rbErr)
		}
		eventBus = redisBus
		busCloser = redisBus
		log.Info("event bus: redis pub/sub")
	} else {
		inMemBus := messaging.NewInMemoryEventBus(busCfg)
		eventBus = inMemBus
		busCloser = inMemBus
		log.Info("event bus: in-memory")
	}
	defer func() {
		log.Info("closing event bus...")
		_ = busCloser.Close()
	}()

	// Диспетчер добавляет поверх шины ретраи с backoff и dead letter
	// queue: сертификат, не выданный из-за моргнувшей базы, должен быть
	// выдан со второй попытки, а не потерян
	dispatcherCfg := messaging.DefaultDispatcherConfig(eventBus)
	dispatcherCfg.Logger = log
	dispatcher := messaging.NewDispatcher(dispatcherCfg)
	defer func() {
		_ = dispatcher.Stop()
	}()

	// Завершение курса -> выдача сертификата (идемпотентная) -> уведомление
	onCourseCompleted := eventhandler.NewOnCourseCompletedHandler(
		certificateRepo,
		sender,
		eventBus,
		log,
		eventhandler.CourseCompletedConfig{
			SendNotification: cfg.Features.NotificationsEnabled(nil),
			HandleTimeout:    10 * time.Second,
		},
	)
	if err := dispatcher.Register(shared.EventCourseCompleted, "issue-certificate", onCourseCompleted.Handle); err != nil {
		return fmt.Errorf("failed to register course-completed handler: %w", err)
	}

	// Разблокировка материала -> уведомление студенту
	onMaterialUnlocked := eventhandler.NewOnMaterialUnlockedHandler(catalogClient, sender, log, 0)
	if err := dispatcher.Register(shared.EventMaterialUnlocked, "notify-material-unlocked", onMaterialUnlocked.Handle); err != nil {
		return fmt.Errorf("failed to register material-unlocked handler: %w", err)
	}

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start event dispatcher: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. ИНИЦИАЛИЗАЦИЯ CQRS ХЕНДЛЕРОВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing command and query handlers...")

	recordIntervalHandler := command.NewRecordIntervalHandler(
		progressRepo, progressCache, catalogClient, enrollmentRepo,
	)
	markCompleteHandler := command.NewMarkCompleteHandler(
		progressRepo, progressCache, catalogClient, enrollmentRepo, eventBus,
		command.MarkCompleteConfig{
			WatchThresholdPercent: cfg.Progress.WatchThresholdPercent,
			StrictWatchValidation: cfg.Features.StrictWatchValidationEnabled(nil),
		},
	)
	markIncompleteHandler := command.NewMarkIncompleteHandler(
		progressRepo, progressCache, catalogClient, enrollmentRepo, eventBus,
	)
	resetProgressHandler := command.NewResetProgressHandler(
		progressRepo, progressCache, catalogClient, enrollmentRepo, eventBus,
	)

	getProgressHandler := query.NewGetProgressHandler(
		progressRepo, progressCache, catalogClient, enrollmentRepo, cfg.Progress.CacheTTL,
	)
	getCertificateHandler := query.NewGetCertificateHandler(certificateRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("redis", handlers.NewCacheCheck(redisCache))
	}
	healthChecker.AddCheck("catalog", handlers.NewCatalogCheck(catalogClient))

	// ─────────────────────────────────────────────────────────────────────────
	// 12. ЗАПУСК HTTP СЕРВЕРА
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpserver.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.RequestTimeout = cfg.HTTP.RequestTimeout
	serverCfg.EnableCORS = cfg.HTTP.EnableCORS
	serverCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverCfg.EnableMetrics = cfg.Observability.MetricsEnabled
	serverCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	serverCfg.APIKeyHeader = cfg.HTTP.APIKeyHeader
	serverCfg.AdminAPIKeys = cfg.HTTP.AdminAPIKeys

	server := httpserver.NewServer(serverCfg, httpserver.Dependencies{
		RecordIntervalHandler: recordIntervalHandler,
		MarkCompleteHandler:   markCompleteHandler,
		MarkIncompleteHandler: markIncompleteHandler,
		ResetProgressHandler:  resetProgressHandler,
		GetProgressHandler:    getProgressHandler,
		GetCertificateHandler: getCertificateHandler,
		Logger:                log,
		HealthChecker:         healthChecker,
	})

	log.Info("starting HTTP server...", logger.String("address", server.Address()))
	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 13. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("Kurso Learning Hub API is running",
		logger.String("address", server.Address()),
		logger.Float64("watch_threshold_percent", cfg.Progress.WatchThresholdPercent),
	)

	// Ожидаем сигнал завершения или ошибку сервера
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	// Начинаем graceful shutdown
	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", logger.Err(err))
	}

	log.Info("shutdown completed successfully")
	return nil
}
