package config

import "time"

type Service struct {
	Name            string        `env:"SERVICE_NAME" envDefault:"marketplace"`
	Version         string        `env:"SERVICE_VERSION" envDefault:"dev"`
	ListenAddress   string        `env:"LISTEN_ADDRESS" envDefault:":8080"`
	ProbeAddress    string        `env:"PROBE_ADDRESS" envDefault:":8091"`
	MetricsAddress  string        `env:"METRICS_ADDRESS" envDefault:":8092"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogFieldMaxLen  int           `env:"LOG_FIELD_MAX_LEN" envDefault:"2048"`
}
