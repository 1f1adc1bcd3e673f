package config

type Relay struct {
	CustodianAddress     string `env:"RELAY_CUSTODIAN_ADDRESS,notEmpty"`
	NFTReceiverAddress   string `env:"RELAY_NFT_RECEIVER_ADDRESS,notEmpty"`
	TokenReceiverAddress string `env:"RELAY_TOKEN_RECEIVER_ADDRESS,notEmpty"`
}
