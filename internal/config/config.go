package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN              string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL              string `env:"RABBITMQ_URL,required=true"`
	RedisURL                 string `env:"REDIS_URL,required=true"`
	PushGatewayURL           string `env:"PUSH_GATEWAY_URL,required=true"`
	PromotionIntervalSeconds int    `env:"PROMOTION_INTERVAL_SECONDS,default=60"`
	PromotionConcurrency     int    `env:"PROMOTION_CONCURRENCY,default=4"`
	RouterConcurrency        int    `env:"ROUTER_CONCURRENCY,default=8"`
	RateLimitPerSec          int    `env:"RATE_LIMIT_PER_SEC,default=100"`
	APIPort                  int    `env:"API_PORT,default=8080"`
	LogLevel                 string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// PromotionInterval returns the promotion scan interval as a duration.
func (c *Config) PromotionInterval() time.Duration {
	if c == nil || c.PromotionIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.PromotionIntervalSeconds) * time.Second
}
