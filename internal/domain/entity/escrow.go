package entity

import (
	"time"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
)

// EscrowState is a strict one-way state machine: a record is created Reserved
// and leaves that state exactly once, into a terminal state.
type EscrowState string

const (
	EscrowReserved EscrowState = "reserved"
	EscrowExecuted EscrowState = "executed"
	EscrowReverted EscrowState = "reverted"
)

func (s EscrowState) Terminal() bool {
	return s == EscrowExecuted || s == EscrowReverted
}

func (s EscrowState) String() string {
	return string(s)
}

// EscrowRecord is one in-flight (or settled) custody record, keyed by the
// external correlation id together with the original submitter so that ids
// from different submitters cannot collide. Terminal records are never
// deleted: they remain as audit trail and collision guard.
type EscrowRecord struct {
	CorrelationID string
	From          value.Address
	TokenIDs      []value.TokenID
	Amount        int64
	State         EscrowState
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
