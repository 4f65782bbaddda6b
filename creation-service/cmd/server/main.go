package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nicepods-server/creation-service/internal/config"
	"nicepods-server/creation-service/internal/draft"
	"nicepods-server/creation-service/internal/generation"
	"nicepods-server/creation-service/internal/handler"
	"nicepods-server/creation-service/internal/messaging"
	"nicepods-server/creation-service/internal/promotion"
	"nicepods-server/creation-service/internal/repository"
	"nicepods-server/creation-service/internal/session"
	"nicepods-server/creation-service/internal/wizard"
	"nicepods-server/shared/authutils"
	sharedLogger "nicepods-server/shared/logger"
	sharedMiddleware "nicepods-server/shared/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

func main() {
	log.Println("Запуск Creation Service...")

	// .env нужен только для локального запуска
	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используются переменные окружения")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}
	wizardSettings, err := config.LoadWizardSettings(cfg.WizardConfigPath)
	if err != nil {
		log.Fatalf("Ошибка загрузки настроек мастера: %v", err)
	}

	logger, err := sharedLogger.New(sharedLogger.Config{
		Level:       cfg.LogLevel,
		Encoding:    cfg.LogEncoding,
		Service:     "creation-service",
		Development: cfg.Env == "development",
	})
	if err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	logger.Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	// --- PostgreSQL ---
	dbPool, err := setupDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("Не удалось подключиться к базе данных", zap.Error(err))
	}
	defer dbPool.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), time.Minute)
	if err := repository.NewMigrator(dbPool).Up(migrateCtx); err != nil {
		migrateCancel()
		logger.Fatal("Не удалось применить миграции", zap.Error(err))
	}
	migrateCancel()

	// --- Redis ---
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		logger.Fatal("Не удалось подключиться к Redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	pingCancel()
	defer func() { _ = redisClient.Close() }()

	// --- RabbitMQ ---
	rabbitConn, err := connectRabbitMQ(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Fatal("Не удалось подключиться к RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()

	invalidationPublisher, err := messaging.NewCacheInvalidationPublisher(rabbitConn, cfg.CacheInvalidationQueue, logger)
	if err != nil {
		logger.Fatal("Не удалось создать CacheInvalidationPublisher", zap.Error(err))
	}
	defer func() { _ = invalidationPublisher.Close() }()

	taskPublisher, err := messaging.NewProductionTaskPublisher(rabbitConn, cfg.ProductionTaskQueue, cfg.ProductionDLX, logger)
	if err != nil {
		logger.Fatal("Не удалось создать ProductionTaskPublisher", zap.Error(err))
	}
	defer func() { _ = taskPublisher.Close() }()

	// --- AI ---
	aiClient, err := generation.NewAIClient(generation.ClientConfig{
		Type:    cfg.AIClientType,
		BaseURL: cfg.AIBaseURL,
		APIKey:  cfg.AIAPIKey,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
	}, logger)
	if err != nil {
		logger.Fatal("Не удалось создать AI клиент", zap.Error(err))
	}
	generator := generation.NewService(aiClient, generation.NewTokenBudget(cfg.AIModel, cfg.AIMaxInputTokens, logger), logger)

	// --- Репозитории и координатор ---
	draftRepo := repository.NewPgDraftRepository(dbPool, logger)
	coordinator := promotion.NewCoordinator(
		repository.NewPgCollectionRepository(dbPool, logger),
		repository.NewPgProductionRepository(dbPool, logger),
		invalidationPublisher,
		taskPublisher,
		logger,
	)

	// --- Мастер ---
	wizards := wizard.NewService(wizardSettings.WizardConfig(), wizard.Dependencies{
		Store:      session.NewRedisStore(redisClient, wizardSettings.SessionMaxAge, logger),
		Drafts:     draftRepo,
		Generator:  generator,
		Narratives: generator,
		Promoter:   coordinator,
	}, logger)
	wizards.StartJanitor(wizardSettings.JanitorInterval, wizardSettings.IdleTimeout)

	sweeper, err := draft.NewOrphanSweeper(draftRepo, wizardSettings.SweepSchedule, wizardSettings.SweepMaxAge, logger)
	if err != nil {
		logger.Fatal("Не удалось создать OrphanSweeper", zap.Error(err))
	}
	sweeper.Start()

	// --- HTTP ---
	verifier, err := authutils.NewJWTVerifier(cfg.JWTSecret, logger)
	if err != nil {
		logger.Fatal("Не удалось создать JWT Verifier", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sharedMiddleware.ZapLoggingMiddlewareForGin(logger))

	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.GetAllowedOrigins()
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	handler.NewCreationHandler(wizards, coordinator, verifier.VerifyToken, logger).RegisterRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("Shutting down server...", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	sweeper.Stop()
	// Отложенные автосохранения сбрасываются до закрытия Redis.
	wizards.Shutdown(shutdownCtx)
	logger.Info("Server exited")
}

func setupDatabase(cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	poolConfig.MaxConns = cfg.DBMaxConns
	poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout

	var lastErr error
	maxRetries := 10
	retryDelay := 3 * time.Second
	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			err = pool.Ping(ctx)
			if err != nil {
				pool.Close()
			}
		}
		cancel()
		if err == nil {
			logger.Info("Connected to PostgreSQL", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
			return pool, nil
		}
		lastErr = err
		logger.Warn("Не удалось подключиться к PostgreSQL, повтор...", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("не удалось подключиться к БД после %d попыток: %w", maxRetries, lastErr)
}

// connectRabbitMQ пытается подключиться к RabbitMQ с несколькими попытками
func connectRabbitMQ(uri string, logger *zap.Logger) (*amqp.Connection, error) {
	var connection *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		connection, err = amqp.Dial(uri)
		if err == nil {
			logger.Info("Подключение к RabbitMQ успешно установлено")
			go func() {
				notifyClose := make(chan *amqp.Error, 1)
				connection.NotifyClose(notifyClose)
				if closeErr := <-notifyClose; closeErr != nil {
					logger.Error("Соединение с RabbitMQ разорвано", zap.Error(closeErr))
				}
			}()
			return connection, nil
		}
		logger.Warn("Не удалось подключиться к RabbitMQ, попытка переподключения...",
			zap.Error(err), zap.Int("retry", i+1), zap.Duration("delay", retryDelay))
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("не удалось подключиться к RabbitMQ после %d попыток: %w", maxRetries, err)
}
