// Package bootstrap holds the fx providers shared by every binary: logger,
// document store, cache, metrics and the aggregation pipeline.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"

	"invitationmetrics/src/config"
	"invitationmetrics/src/helper/clock"
	"invitationmetrics/src/infra/kafka"
	"invitationmetrics/src/infra/memstore"
	inframetrics "invitationmetrics/src/infra/metrics"
	"invitationmetrics/src/infra/mongo"
	"invitationmetrics/src/infra/postgres"
	"invitationmetrics/src/infra/redis"
	"invitationmetrics/src/infra/redis/redisstore"
	"invitationmetrics/src/repositories"
	"invitationmetrics/src/services/events"
	"invitationmetrics/src/services/eventsource"
	"invitationmetrics/src/services/metrics"
)

var Module = fx.Options(
	fx.Provide(
		config.Load,
		NewLogger,
		newClock,
		newRegistry,
		newPipelineMetrics,
		newRedisClient,
		newDocumentStore,
		newGenerator,
		newEventRepository,
		newRollupRepository,
		newCachedRollupRepository,
		newRollupEventPublisher,
		newMetricsService,
	),
)

func NewLogger(cfg config.Config) *slog.Logger {
	var level slog.Level

	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func newClock() clock.Clock {
	return clock.SystemClock{}
}

func newRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

func newPipelineMetrics(registry *prometheus.Registry) *inframetrics.PipelineMetrics {
	return inframetrics.NewPipelineMetrics(registry)
}

// newRedisClient retorna nil quando REDIS_ADDRS não está configurado; o cache fica desligado.
func newRedisClient(lc fx.Lifecycle, cfg config.Config) *redis.RedisClient {
	if !cfg.CacheEnabled() {
		return nil
	}

	client := redis.NewRedisClient(cfg.Redis.Addrs, cfg.Redis.PoolSize, cfg.Redis.DefaultTTL)

	// Com STORE_DRIVER=redis o store é dono do cliente e o fecha.
	if cfg.StoreDriver != config.StoreDriverRedis {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
	}

	return client
}

func newDocumentStore(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger, redisClient *redis.RedisClient) (repositories.DocumentStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := openDocumentStore(ctx, cfg, redisClient)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s document store: %w", cfg.StoreDriver, err)
	}

	logger.Info("Document store ready", "driver", cfg.StoreDriver)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("Closing document store", "driver", cfg.StoreDriver)
			return store.Close()
		},
	})

	return store, nil
}

func openDocumentStore(ctx context.Context, cfg config.Config, redisClient *redis.RedisClient) (repositories.DocumentStore, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		client, err := postgres.NewReadWriteClient(
			cfg.Postgres.ReadHost,
			cfg.Postgres.WriteHost,
			cfg.Postgres.ReadPort,
			cfg.Postgres.WritePort,
			cfg.Postgres.Name,
			cfg.Postgres.User,
			cfg.Postgres.Password,
			cfg.Postgres.MaxConnections,
		)
		if err != nil {
			return nil, err
		}

		store := postgres.NewDocumentStore(client)
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil

	case config.StoreDriverMongo:
		client, err := mongo.NewMongoClient(ctx, cfg.Mongo.URI, cfg.Mongo.MaxPoolSize)
		if err != nil {
			return nil, err
		}

		store := mongo.NewDocumentStore(client, cfg.Mongo.Database)
		if err := store.Migrate(ctx, repositories.EventsCollection, repositories.RollupsCollection); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil

	case config.StoreDriverRedis:
		store := redisstore.NewDocumentStore(redisClient, "invitationmetrics:")
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil

	default:
		return memstore.New(), nil
	}
}

func newGenerator(logger *slog.Logger, cfg config.Config) *eventsource.Generator {
	return eventsource.NewGenerator(logger, cfg.EventSourceLatency)
}

func newEventRepository(store repositories.DocumentStore) *repositories.EventRepository {
	return repositories.NewEventRepository(store)
}

func newRollupRepository(store repositories.DocumentStore) *repositories.RollupRepository {
	return repositories.NewRollupRepository(store)
}

func newCachedRollupRepository(
	logger *slog.Logger,
	rollupRepository *repositories.RollupRepository,
	redisClient *redis.RedisClient,
) *repositories.CachedRollupRepository {
	return repositories.NewCachedRollupRepository(logger, rollupRepository, redisClient)
}

// newRollupEventPublisher retorna nil quando a publicação está desligada.
func newRollupEventPublisher(
	logger *slog.Logger,
	cfg config.Config,
	kafkaClient *kafka.KafkaClient,
	clk clock.Clock,
) *events.RollupEventPublisher {
	if kafkaClient == nil || !cfg.PublishEnabled() {
		return nil
	}

	return events.NewRollupEventPublisher(logger, kafkaClient, cfg.Kafka.RollupEventsTopic, clk)
}

func newMetricsService(
	logger *slog.Logger,
	generator *eventsource.Generator,
	eventRepository *repositories.EventRepository,
	cachedRollupRepository *repositories.CachedRollupRepository,
	clk clock.Clock,
	pipelineMetrics *inframetrics.PipelineMetrics,
	publisher *events.RollupEventPublisher,
) *metrics.MetricsService {
	service := metrics.NewMetricsService(logger, generator, eventRepository, cachedRollupRepository, clk, pipelineMetrics)
	if publisher != nil {
		service.WithNotifier(publisher)
	}
	return service
}

// NewKafkaClient connects to the brokers with groupID (empty for publish-only
// processes). It returns nil when no brokers are configured.
func NewKafkaClient(lc fx.Lifecycle, logger *slog.Logger, cfg config.Config, groupID string) (*kafka.KafkaClient, error) {
	if cfg.Kafka.Brokers == "" {
		return nil, nil
	}

	client, err := kafka.NewKafkaClient(logger, cfg.Kafka.Brokers, groupID, cfg.Kafka.BatchSize)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return client, nil
}
