package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals
var (
	SalesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_sales_created_total",
		Help: "Number of sales put on the marketplace.",
	})

	SalesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_sales_accepted_total",
		Help: "Number of sales settled.",
	})

	SalesDestroyed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_sales_destroyed_total",
		Help: "Number of sales explicitly destroyed.",
	})

	SettledVolume = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_settled_volume_base_units",
		Help: "Total settled price volume in payment-token base units.",
	})

	StaleSales = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketplace_stale_sales",
		Help: "Stored sale records whose transfer approval has been revoked.",
	})

	EscrowTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_escrow_transitions_total",
		Help: "Escrow record state transitions by resulting state.",
	}, []string{"state"})
)
