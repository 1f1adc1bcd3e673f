package config

import "time"

type Worker struct {
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
	SweepPageSize int           `env:"SWEEP_PAGE_SIZE" envDefault:"100"`
}
