package entity

import (
	"time"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
)

// FeePolicy holds the current fee percentages and receiver. Percentages are
// whole percents in [0,100]; sell + burn never exceed 100 (enforced on
// write). The buy fee is additive on top of the price and paid by the buyer.
type FeePolicy struct {
	SellPercent int64
	BuyPercent  int64
	BurnPercent int64
	Receiver    value.Address
	Paused      bool
	UpdatedAt   time.Time
}

// FeeSplit is the settlement breakdown of one sale price.
type FeeSplit struct {
	SellerShare int64 // price - sellShare - burnShare
	FeeShare    int64 // sellShare + buyShare, paid to the fee receiver
	BurnShare   int64 // sent to the burn sink
	BuyerTotal  int64 // price + buyShare, pulled from the buyer
}

// SplitPrice computes the fee split. Integer division truncates each share
// independently; the seller share is derived by subtraction from the full
// price, never by its own multiply-divide, so every truncation remainder
// accrues to the seller. The order of operations is load-bearing.
func SplitPrice(price int64, policy FeePolicy) FeeSplit {
	sellShare := price * policy.SellPercent / 100
	buyShare := price * policy.BuyPercent / 100
	burnShare := price * policy.BurnPercent / 100

	return FeeSplit{
		SellerShare: price - sellShare - burnShare,
		FeeShare:    sellShare + buyShare,
		BurnShare:   burnShare,
		BuyerTotal:  price + buyShare,
	}
}
