package entity

import (
	"time"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
)

// Sale is the stored record of a listing. The record alone does not make the
// sale active: activation additionally requires the marketplace to currently
// hold transfer approval for the token, which its owner can revoke at any
// moment. A record whose approval is gone stays in storage and must read as
// "no sale" through every query.
type Sale struct {
	TokenID       value.TokenID `json:"token_id" db:"token_id"`
	Seller        value.Address `json:"seller" db:"seller"`
	Price         int64         `json:"price" db:"price"`
	ReservedBuyer value.Address `json:"reserved_buyer,omitempty" db:"reserved_buyer"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// OpenFor reports whether the sale may be accepted in favor of buyer: either
// no reservation is set or the reservation names that buyer.
func (s *Sale) OpenFor(buyer value.Address) bool {
	return s.ReservedBuyer.IsZero() || s.ReservedBuyer == buyer
}
