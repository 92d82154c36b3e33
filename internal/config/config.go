package config

import (
	"time"

	"github.com/spf13/viper"
	pkgconfig "github.com/weiawesome/wes-io-live/live-relay/pkg/config"
	pkglog "github.com/weiawesome/wes-io-live/live-relay/pkg/log"
	"github.com/weiawesome/wes-io-live/live-relay/pkg/pubsub"
)

type Config struct {
	Server    ServerConfig
	GRPC      GRPCConfig `mapstructure:"grpc"`
	WebSocket WebSocketConfig
	Live      LiveConfig
	Chat      ChatConfig
	Export    pubsub.Config
	Kafka     KafkaConfig
	Auth      AuthConfig
	WebRTC    WebRTCConfig `mapstructure:"webrtc"`
	Log       pkglog.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type GRPCConfig struct {
	Enabled bool
	Host    string
	Port    int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type LiveConfig struct {
	DefaultTitle       string `mapstructure:"default_title"`
	DefaultDescription string `mapstructure:"default_description"`
	StreamURL          string `mapstructure:"stream_url"`
}

type ChatConfig struct {
	HistorySize    int     `mapstructure:"history_size"`
	MaxContent     int     `mapstructure:"max_content"`
	MaxDisplayName int     `mapstructure:"max_display_name"`
	RatePerSecond  float64 `mapstructure:"rate_per_second"`
	Burst          int     `mapstructure:"burst"`
}

type KafkaConfig struct {
	Enabled    bool
	Brokers    string
	Topic      string
	Partitions int
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string
	AdminRole string `mapstructure:"admin_role"`
}

type WebRTCConfig struct {
	ICEServers []ICEServerConfig `mapstructure:"ice_servers"`
}

type ICEServerConfig struct {
	URLs       []string `mapstructure:"urls"`
	Username   string
	Credential string
}

var defaults = map[string]any{
	"server.host":                "0.0.0.0",
	"server.port":                8080,
	"grpc.enabled":               false,
	"grpc.host":                  "0.0.0.0",
	"grpc.port":                  50060,
	"websocket.ping_interval":    "30s",
	"websocket.pong_wait":        "60s",
	"websocket.write_wait":       "10s",
	"websocket.max_message_size": 65536,
	"websocket.send_buffer":      256,
	"live.default_title":         "Live Stream",
	"live.default_description":   "",
	"live.stream_url":            "/stream/live",
	"chat.history_size":          300,
	"chat.max_content":           500,
	"chat.max_display_name":      50,
	"chat.rate_per_second":       2.0,
	"chat.burst":                 5,
	"export.driver":              pubsub.DriverNone,
	"export.source":              "live-relay",
	"export.redis.address":       "localhost:6379",
	"export.redis.password":      "",
	"export.redis.db":            0,
	"export.redis.pool_size":     10,
	"export.redis.read_timeout":  "3s",
	"export.redis.write_timeout": "3s",
	"export.kafka.brokers":       "localhost:9092",
	"export.kafka.topic":         "relay-events",
	"export.kafka.partitions":    4,
	"kafka.enabled":              false,
	"kafka.brokers":              "localhost:9092",
	"kafka.topic":                "broadcast-events",
	"kafka.partitions":           4,
	"auth.jwt_secret":            "",
	"auth.issuer":                "",
	"auth.admin_role":            "admin",
	"webrtc.ice_servers": []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	},
	"log.level":        "info",
	"log.pretty":       false,
	"log.service_name": "live-relay",
}

var envBindings = map[string]string{
	"server.port":           "PORT",
	"grpc.port":             "GRPC_PORT",
	"grpc.enabled":          "GRPC_ENABLED",
	"export.driver":         "EXPORT_DRIVER",
	"export.redis.address":  "REDIS_ADDRESS",
	"export.redis.password": "REDIS_PASSWORD",
	"export.kafka.brokers":  "KAFKA_BROKERS",
	"kafka.enabled":         "KAFKA_ENABLED",
	"kafka.brokers":         "KAFKA_BROKERS",
	"kafka.topic":           "KAFKA_BROADCAST_TOPIC",
	"auth.jwt_secret":       "AUTH_JWT_SECRET",
	"log.level":             "LOG_LEVEL",
}

// Load reads ./config/config.yaml (if any), then the environment.
func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper applies defaults and env bindings to v and decodes it.
func FromViper(v *viper.Viper) (*Config, error) {
	pkgconfig.SetDefaults(v, defaults)
	if err := pkgconfig.BindEnvs(v, envBindings); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = pkgconfig.Duration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = pkgconfig.Duration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = pkgconfig.Duration(v, "websocket.write_wait", 10*time.Second)
	cfg.Export.Redis.ReadTimeout = pkgconfig.Duration(v, "export.redis.read_timeout", 3*time.Second)
	cfg.Export.Redis.WriteTimeout = pkgconfig.Duration(v, "export.redis.write_timeout", 3*time.Second)

	cfg.normalize()
	return &cfg, nil
}

// normalize replaces unusable numeric settings with their defaults.
func (c *Config) normalize() {
	if c.WebSocket.PingInterval >= c.WebSocket.PongWait {
		c.WebSocket.PingInterval = c.WebSocket.PongWait * 9 / 10
	}
	if c.WebSocket.MaxMessageSize <= 0 {
		c.WebSocket.MaxMessageSize = 65536
	}
	if c.WebSocket.SendBuffer <= 0 {
		c.WebSocket.SendBuffer = 256
	}
	if c.Chat.HistorySize <= 0 {
		c.Chat.HistorySize = 300
	}
	if c.Chat.MaxContent <= 3 {
		c.Chat.MaxContent = 500
	}
	if c.Chat.MaxDisplayName <= 0 {
		c.Chat.MaxDisplayName = 50
	}
	if c.Chat.Burst <= 0 {
		c.Chat.Burst = 1
	}
}
