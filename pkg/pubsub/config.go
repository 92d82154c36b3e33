package pubsub

import (
	"fmt"
	"time"
)

// Drivers
const (
	DriverNone  = "none"
	DriverRedis = "redis"
	DriverKafka = "kafka"
)

// KafkaConfig holds Kafka-specific configuration.
type KafkaConfig struct {
	Brokers    string `mapstructure:"brokers"`
	Topic      string `mapstructure:"topic"`
	Partitions int    `mapstructure:"partitions"`
}

// Config holds the configuration for the event export.
type Config struct {
	Driver string      `mapstructure:"driver"` // "none", "redis", "kafka"
	Source string      `mapstructure:"source"` // stamped on every exported event
	Redis  RedisConfig `mapstructure:"redis"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

// RedisConfig holds Redis-specific configuration.
type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DefaultConfig returns the default configuration: export disabled.
func DefaultConfig() Config {
	return Config{
		Driver: DriverNone,
		Source: "live-relay",
		Redis: RedisConfig{
			Address:      "localhost:6379",
			PoolSize:     10,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:    "localhost:9092",
			Topic:      "relay-events",
			Partitions: 4,
		},
	}
}

// NewExporter creates the exporter selected by cfg.Driver.
// It returns (nil, nil) when export is disabled.
func NewExporter(cfg Config) (Exporter, error) {
	switch cfg.Driver {
	case "", DriverNone:
		return nil, nil
	case DriverRedis:
		p, err := NewRedisPublisher(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return p, nil
	case DriverKafka:
		p, err := NewKafkaPublisher(cfg.Kafka)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown pubsub driver %q", cfg.Driver)
	}
}
