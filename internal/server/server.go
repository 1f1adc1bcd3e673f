package server

// Server bundles the entity-specific HTTP servers under one route registrar.
type Server struct {
	MarketServer
	RelayServer
	PolicyServer
}

func NewServer(
	marketServer MarketServer,
	relayServer RelayServer,
	policyServer PolicyServer,
) Server {
	return Server{
		MarketServer: marketServer,
		RelayServer:  relayServer,
		PolicyServer: policyServer,
	}
}
