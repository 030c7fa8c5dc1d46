package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/smukkama/weather-index-server/internal/notification"
	"github.com/smukkama/weather-index-server/internal/protocol"
	"github.com/smukkama/weather-index-server/internal/queue"
	"github.com/smukkama/weather-index-server/pkg/config"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting Notification Service")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	emailNotifier := notification.NewEmailNotifier(&cfg.SMTP, logger)

	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts, "notification-group")
	defer consumer.Close()
	logger.Info("Kafka consumer initialized",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.TopicAlerts))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for {
			msg, err := consumer.Consume(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error("Failed to consume message", zap.Error(err))
				continue
			}

			event, err := protocol.DecodeAlertEvent(msg.Value)
			if err != nil {
				logger.Error("Failed to decode alert event", zap.Error(err))
				consumer.Commit(ctx, msg)
				continue
			}

			if err := emailNotifier.SendAlertEvent(event); err != nil {
				logger.Error("Failed to send alert email",
					zap.String("alert_id", event.AlertID),
					zap.String("region", event.Region),
					zap.Error(err))
			}

			if err := consumer.Commit(ctx, msg); err != nil {
				logger.Error("Failed to commit offset", zap.Error(err))
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down gracefully...")
}
