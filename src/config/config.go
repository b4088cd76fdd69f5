// Package config reads the process configuration from the environment once,
// at startup.
package config

import (
	"fmt"
	"time"

	"invitationmetrics/src/helper/env"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverRedis    = "redis"
)

type PostgresConfig struct {
	ReadHost       string
	WriteHost      string
	ReadPort       string
	WritePort      string
	Name           string
	User           string
	Password       string
	MaxConnections int
}

type MongoConfig struct {
	URI         string
	Database    string
	MaxPoolSize int
}

type RedisConfig struct {
	Addrs      string
	PoolSize   int
	DefaultTTL time.Duration
}

type KafkaConfig struct {
	Brokers                string
	BatchSize              int
	RefreshConsumerGroupID string
	RefreshRequestsTopic   string
	RollupEventsTopic      string
}

type Config struct {
	LogLevel           string
	ServerPort         int
	StoreDriver        string
	EventSourceLatency time.Duration

	Postgres PostgresConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// Load lê todas as variáveis e valida só o que o driver escolhido precisa.
func Load() (Config, error) {
	cfg := Config{
		LogLevel:           env.GetString("LOG_LEVEL", "info"),
		ServerPort:         env.GetInt("SERVER_PORT", 8888),
		StoreDriver:        env.GetString("STORE_DRIVER", StoreDriverMemory),
		EventSourceLatency: env.GetDuration("EVENT_SOURCE_LATENCY", 0),

		Postgres: PostgresConfig{
			WriteHost:      env.GetString("DB_WRITE_HOST", env.GetString("DB_HOST")),
			ReadPort:       env.GetString("DB_READ_PORT", env.GetString("DB_PORT", "5432")),
			WritePort:      env.GetString("DB_WRITE_PORT", env.GetString("DB_PORT", "5432")),
			Name:           env.GetString("DB_NAME"),
			User:           env.GetString("DB_USER"),
			Password:       env.GetString("DB_PASSWORD"),
			MaxConnections: env.GetInt("DB_MAX_POOL_CONNECTIONS", 25),
		},
		Mongo: MongoConfig{
			URI:         env.GetString("MONGO_URI"),
			Database:    env.GetString("MONGO_DATABASE", "invitation_metrics"),
			MaxPoolSize: env.GetInt("MONGO_MAX_POOL_SIZE", 50),
		},
		Redis: RedisConfig{
			Addrs:      env.GetString("REDIS_ADDRS"),
			PoolSize:   env.GetInt("REDIS_POOL_SIZE", 50),
			DefaultTTL: time.Duration(env.GetInt("REDIS_DEFAULT_TTL_SECONDS", 120)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:                env.GetString("KAFKA_BROKERS"),
			BatchSize:              env.GetInt("KAFKA_BATCH_SIZE", 50),
			RefreshConsumerGroupID: env.GetString("KAFKA_REFRESH_CONSUMER_GROUP_ID", "invitation-metrics-refresh"),
			RefreshRequestsTopic:   env.GetString("KAFKA_REFRESH_REQUESTS_TOPIC", "invitation-metrics.refresh-requests"),
			RollupEventsTopic:      env.GetString("KAFKA_ROLLUP_EVENTS_TOPIC"),
		},
	}
	// réplica de leitura é opcional; sem ela lê do primário
	cfg.Postgres.ReadHost = env.GetString("DB_READ_HOST", cfg.Postgres.WriteHost)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT out of range: %d", c.ServerPort)
	}

	if c.EventSourceLatency < 0 {
		return fmt.Errorf("EVENT_SOURCE_LATENCY must not be negative")
	}

	switch c.StoreDriver {
	case StoreDriverMemory:
	case StoreDriverPostgres:
		if c.Postgres.WriteHost == "" || c.Postgres.Name == "" || c.Postgres.User == "" {
			return fmt.Errorf("STORE_DRIVER=postgres requires DB_HOST (or DB_WRITE_HOST), DB_NAME and DB_USER")
		}
	case StoreDriverMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("STORE_DRIVER=mongo requires MONGO_URI")
		}
	case StoreDriverRedis:
		if c.Redis.Addrs == "" {
			return fmt.Errorf("STORE_DRIVER=redis requires REDIS_ADDRS")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	return nil
}

// CacheEnabled reports whether rollup reads go through the Redis cache.
func (c Config) CacheEnabled() bool {
	return c.Redis.Addrs != ""
}

// PublishEnabled reports whether pipeline runs are announced on Kafka.
func (c Config) PublishEnabled() bool {
	return c.Kafka.Brokers != "" && c.Kafka.RollupEventsTopic != ""
}
