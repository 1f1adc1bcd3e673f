package event

import (
	"context"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
)

// Event is an observable settlement log entry. Field order inside each event
// is part of the external contract and must not be reordered.
type Event interface {
	EventName() string
}

// Bus delivers events to subscribers. Emission happens after the state
// transition committed; a delivery failure is logged by the emitter and never
// aborts settlement.
type Bus interface {
	Publish(ctx context.Context, e Event) error
}

// NopBus drops every event. Used when no queue is configured.
type NopBus struct{}

func (NopBus) Publish(context.Context, Event) error {
	return nil
}

type SaleCreated struct {
	TokenID value.TokenID `json:"tokenId"`
	Price   int64         `json:"price"`
	Seller  value.Address `json:"seller"`
	Reserve value.Address `json:"reserve"`
}

func (SaleCreated) EventName() string { return "sale-created" }

type SaleUpdated struct {
	TokenID value.TokenID `json:"tokenId"`
	Price   int64         `json:"price"`
	Seller  value.Address `json:"seller"`
	Reserve value.Address `json:"reserve"`
}

func (SaleUpdated) EventName() string { return "sale-updated" }

type SaleAccepted struct {
	TokenID value.TokenID `json:"tokenId"`
	Price   int64         `json:"price"`
	Seller  value.Address `json:"seller"`
	Buyer   value.Address `json:"buyer"`
}

func (SaleAccepted) EventName() string { return "sale-accepted" }

type SaleDestroyed struct {
	TokenID value.TokenID `json:"tokenId"`
	Seller  value.Address `json:"seller"`
}

func (SaleDestroyed) EventName() string { return "sale-destroyed" }

type FeesUpdated struct {
	SellPercent int64 `json:"sellPercent"`
	BuyPercent  int64 `json:"buyPercent"`
	BurnPercent int64 `json:"burnPercent"`
}

func (FeesUpdated) EventName() string { return "fees-updated" }

type FeeReceiverUpdated struct {
	Address value.Address `json:"address"`
}

func (FeeReceiverUpdated) EventName() string { return "fee-receiver-updated" }

type EscrowReserved struct {
	CorrelationID string          `json:"correlationId"`
	From          value.Address   `json:"from"`
	TokenIDs      []value.TokenID `json:"tokenIds"`
	Amount        int64           `json:"amount"`
}

func (EscrowReserved) EventName() string { return "escrow-reserved" }

type EscrowExecuted struct {
	CorrelationID string        `json:"correlationId"`
	From          value.Address `json:"from"`
}

func (EscrowExecuted) EventName() string { return "escrow-executed" }

type EscrowReverted struct {
	CorrelationID string        `json:"correlationId"`
	From          value.Address `json:"from"`
}

func (EscrowReverted) EventName() string { return "escrow-reverted" }
