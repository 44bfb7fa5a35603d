package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`

	APIToken      string `env:"API_TOKEN,required"`
	WebhookSecret string `env:"WEBHOOK_SECRET,required"`

	// DatabaseURL selects the postgres-backed ledger; empty keeps the
	// in-memory one. RedisAddr does the same for the event deduper.
	DatabaseURL string `env:"DATABASE_URL"`
	RedisAddr   string `env:"REDIS_ADDR"`

	EventReplayWindowS int `env:"EVENT_REPLAY_WINDOW_S" envDefault:"86400"`

	CallbackWorkers    int `env:"CALLBACK_WORKERS" envDefault:"4"`
	CallbackBufferSize int `env:"CALLBACK_BUFFER_SIZE" envDefault:"256"`
	CallbackTimeoutMs  int `env:"CALLBACK_TIMEOUT_MS" envDefault:"5000"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
