package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,       default=4130"`
	Env       string `env:"ENV,        default=development"`
	JWTSecret string `env:"JWT_SECRET, required"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`

	Upstream UpstreamConfig
	Redis    RedisConfig
}

type UpstreamConfig struct {
	BaseURL  string        `env:"UPSTREAM_BASE_URL, default=https://openapi.nocodebackend.com"`
	APIKey   string        `env:"UPSTREAM_API_KEY,  required"`
	Instance string        `env:"UPSTREAM_INSTANCE, required"`
	Timeout  time.Duration `env:"UPSTREAM_TIMEOUT,  default=10s"`
}

type RedisConfig struct {
	// Addr enables the api-key site cache when set; empty disables it.
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
// The signing secret and upstream credentials are required: the process must
// refuse to start without them rather than fall back to a default.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
