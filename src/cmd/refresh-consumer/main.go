package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"

	"invitationmetrics/src/adapters/kafka/consumers"
	"invitationmetrics/src/bootstrap"
	"invitationmetrics/src/config"
	"invitationmetrics/src/infra/kafka"
	"invitationmetrics/src/services/metrics"
)

func main() {
	log.SetOutput(os.Stdout)
	log.Println("Starting refresh request consumer with Uber Fx...")

	app := fx.New(
		bootstrap.Module,

		// Providers
		fx.Provide(
			newKafkaClient,
			newRefreshRequestConsumer,
		),

		// Invocations
		fx.Invoke(startConsumer),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start consumer application: %v", err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Shutting down refresh request consumer...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Printf("Failed to stop application gracefully: %v", err)
	}

	log.Println("Refresh request consumer shutdown complete")
}

func newKafkaClient(lc fx.Lifecycle, logger *slog.Logger, cfg config.Config) (*kafka.KafkaClient, error) {
	if cfg.Kafka.Brokers == "" {
		return nil, errors.New("KAFKA_BROKERS can't be empty")
	}

	return bootstrap.NewKafkaClient(lc, logger, cfg, cfg.Kafka.RefreshConsumerGroupID)
}

func newRefreshRequestConsumer(
	logger *slog.Logger,
	metricsService *metrics.MetricsService,
) *consumers.RefreshRequestConsumer {
	return consumers.NewRefreshRequestConsumer(logger, metricsService)
}

func startConsumer(
	lc fx.Lifecycle,
	logger *slog.Logger,
	cfg config.Config,
	kafkaClient *kafka.KafkaClient,
	refreshConsumer *consumers.RefreshRequestConsumer,
) {
	consumerCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			topic := cfg.Kafka.RefreshRequestsTopic
			logger.Info("Starting refresh request consumer", "topic", topic)

			go func() {
				defer close(done)
				if err := refreshConsumer.Start(consumerCtx, kafkaClient, topic); err != nil {
					logger.Error("Refresh request consumer stopped", "error", err)
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping refresh request consumer")
			cancel()

			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		},
	})
}
