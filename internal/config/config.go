package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Service  Service
	Postgres Postgres
	Redis    Redis
	Ledger   Ledger
	Market   Market
	Relay    Relay
	Worker   Worker
	Telegram Telegram
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var config Config

	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("env.Parse: %w", err)
	}

	return config, nil
}
