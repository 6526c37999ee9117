package config

import (
	"time"

	"github.com/spf13/viper"
)

type AppCfg struct {
	Name        string `mapstructure:"name"`
	Port        string `mapstructure:"port"`
	MetricsPort string `mapstructure:"metrics_port"`
	Development bool   `mapstructure:"development"`
}

type MongoCfg struct {
	URI            string `mapstructure:"uri"`
	ChatDatabase   string `mapstructure:"chat_database"`
	NotifyDatabase string `mapstructure:"notify_database"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type RedisCfg struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaCfg struct {
	Brokers      []string `mapstructure:"brokers"`
	MessageTopic string   `mapstructure:"message_topic"`
	GroupID      string   `mapstructure:"group_id"`
}

type JwtCfg struct {
	Secret     string `mapstructure:"secret"`
	TTLMinutes int    `mapstructure:"ttl_minutes"`
}

type ChatCfg struct {
	// When set, updateMessageStatus rejects backward transitions
	// (read -> delivered etc). Off by default: callers own the invariant.
	EnforceStatusMonotonic bool  `mapstructure:"enforce_status_monotonic"`
	TypingTTLSeconds       int   `mapstructure:"typing_ttl_seconds"`
	DefaultPageSize        int64 `mapstructure:"default_page_size"`
	MaxPageSize            int64 `mapstructure:"max_page_size"`
}

type RateLimitCfg struct {
	Limit         int `mapstructure:"limit"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

type Config struct {
	App       AppCfg       `mapstructure:"app"`
	Mongo     MongoCfg     `mapstructure:"mongo"`
	Redis     RedisCfg     `mapstructure:"redis"`
	Kafka     KafkaCfg     `mapstructure:"kafka"`
	JWT       JwtCfg       `mapstructure:"jwt"`
	Chat      ChatCfg      `mapstructure:"chat"`
	RateLimit RateLimitCfg `mapstructure:"rate_limit"`
	// Derived
	TypingTTL       time.Duration
	MongoTimeout    time.Duration
	RateLimitWindow time.Duration
	TokenTTL        time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvPrefix("APP")

	v.SetDefault("app.name", "foodloop-realtime")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.metrics_port", "9090")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.chat_database", "foodloop_chat")
	v.SetDefault("mongo.notify_database", "foodloop_notifications")
	v.SetDefault("mongo.timeout_seconds", 10)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.prefix", "foodloop")
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.message_topic", "chat.message_sent")
	v.SetDefault("kafka.group_id", "foodloop-realtime")
	v.SetDefault("jwt.ttl_minutes", 60)
	v.SetDefault("chat.typing_ttl_seconds", 5)
	v.SetDefault("chat.default_page_size", 50)
	v.SetDefault("chat.max_page_size", 200)
	v.SetDefault("rate_limit.limit", 60)
	v.SetDefault("rate_limit.window_seconds", 60)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.TypingTTL = time.Duration(cfg.Chat.TypingTTLSeconds) * time.Second
	cfg.MongoTimeout = time.Duration(cfg.Mongo.TimeoutSeconds) * time.Second
	cfg.RateLimitWindow = time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
	cfg.TokenTTL = time.Duration(cfg.JWT.TTLMinutes) * time.Minute
	return &cfg, nil
}
