package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/smukkama/weather-index-server/internal/alert"
	"github.com/smukkama/weather-index-server/internal/api"
	"github.com/smukkama/weather-index-server/internal/cache"
	"github.com/smukkama/weather-index-server/internal/database"
	"github.com/smukkama/weather-index-server/internal/index"
	"github.com/smukkama/weather-index-server/internal/notification"
	"github.com/smukkama/weather-index-server/internal/observability"
	"github.com/smukkama/weather-index-server/internal/queue"
	"github.com/smukkama/weather-index-server/internal/scheduler"
	"github.com/smukkama/weather-index-server/internal/service"
	"github.com/smukkama/weather-index-server/internal/source"
	"github.com/smukkama/weather-index-server/pkg/config"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	zap.ReplaceGlobals(logger)
	logger.Info("Starting Weather Index Server")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Database
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		if err := db.RunMigrations(dir); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// Kafka producer for alert events
	alertProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts)
	defer alertProducer.Close()

	// Core components
	configStore, err := index.NewConfigStore(ctx, db, logger)
	if err != nil {
		logger.Fatal("Failed to initialize config store", zap.Error(err))
	}

	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics()
	notifier := notification.NewPublisher(alertProducer)
	manager := alert.NewManager(db, notifier, clock, logger)
	resultCache := cache.NewResultCache(redisClient, cfg.Scheduler.CacheTTL)

	var fetcher service.Fetcher
	if cfg.Forecast.Enabled {
		fetcher = source.NewForecastClient(cfg.Forecast.BaseURL, cfg.Forecast.Timeout, logger)
	}

	svc := service.New(db, configStore, manager, resultCache, fetcher, metrics, clock, logger)

	// Scheduler: hourly evaluation plus an immediate run at startup
	sched := scheduler.New(svc, cfg.Scheduler.Spec, logger)
	if err := sched.Start(); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// HTTP API
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	})

	handler := api.NewHandler(svc, configStore, db, logger)
	api.SetupRoutes(app, handler, metrics)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
		logger.Info("Starting HTTP server", zap.String("address", addr))

		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	logger.Info("Server stopped")
}
