package config

import "time"

type Ledger struct {
	NFTBaseURL    string        `env:"NFT_LEDGER_URL,notEmpty"`
	NFTToken      string        `env:"NFT_LEDGER_TOKEN" json:"-"`
	TokenBaseURL  string        `env:"TOKEN_LEDGER_URL,notEmpty"`
	TokenToken    string        `env:"TOKEN_LEDGER_TOKEN" json:"-"`
	Timeout       time.Duration `env:"LEDGER_TIMEOUT" envDefault:"10s"`
	LogBodyMaxLen int           `env:"LEDGER_LOG_BODY_MAX_LEN" envDefault:"2048"`
}
