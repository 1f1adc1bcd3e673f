package config

type Market struct {
	// OperatorAddress is the marketplace identity on the asset ledgers:
	// sellers approve it, buyers grant it allowance.
	OperatorAddress string `env:"MARKET_OPERATOR_ADDRESS,notEmpty"`

	// BurnSinkAddress receives burn shares. Defaults to the conventional
	// dead address when empty.
	BurnSinkAddress string `env:"MARKET_BURN_SINK_ADDRESS"`
}
