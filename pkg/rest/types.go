// Package rest holds the wire models of the public HTTP API.
package rest

import "time"

type Sale struct {
	TokenID       int64     `json:"tokenId"`
	Price         int64     `json:"price"`
	Seller        string    `json:"seller"`
	ReservedBuyer string    `json:"reservedBuyer,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// SaleQuote is the read view of one token's sale. A record whose transfer
// approval has been revoked reads as inactive with zero prices.
type SaleQuote struct {
	TokenID       int64  `json:"tokenId"`
	Active        bool   `json:"active"`
	Price         int64  `json:"price"`
	BuyerPrice    int64  `json:"buyerPrice"`
	Seller        string `json:"seller,omitempty"`
	ReservedBuyer string `json:"reservedBuyer,omitempty"`
}

type CreateSaleRequest struct {
	TokenID int64  `json:"tokenId" validate:"required,gt=0"`
	Owner   string `json:"owner" validate:"required"`
	Price   int64  `json:"price" validate:"required,gt=0"`
	Reserve string `json:"reserve,omitempty"`
}

type UpdateSaleRequest struct {
	Owner   string `json:"owner" validate:"required"`
	Price   int64  `json:"price" validate:"required,gt=0"`
	Reserve string `json:"reserve,omitempty"`
}

// AcceptSaleRequest carries the price the buyer saw; a concurrent price
// change surfaces as a conflict instead of a silent overpay.
type AcceptSaleRequest struct {
	Price    int64  `json:"price" validate:"required,gt=0"`
	Receiver string `json:"receiver" validate:"required"`
}

type SaleReceipt struct {
	TokenID     int64  `json:"tokenId"`
	Price       int64  `json:"price"`
	Seller      string `json:"seller"`
	Buyer       string `json:"buyer"`
	SellerShare int64  `json:"sellerShare"`
	FeeShare    int64  `json:"feeShare"`
	BurnShare   int64  `json:"burnShare"`
	BuyerTotal  int64  `json:"buyerTotal"`
}

type ReserveEscrowRequest struct {
	CorrelationID string `json:"correlationId" validate:"required"`
	// From is the owner the assets are pulled from. Omitted, it defaults to
	// the caller; naming someone else requires the transfer operator role.
	From     string  `json:"from"`
	TokenIDs []int64 `json:"tokenIds" validate:"dive,gt=0"`
	Amount   int64   `json:"amount" validate:"gte=0"`
}

type ReleaseEscrowRequest struct {
	From string `json:"from" validate:"required"`
}

type EscrowRecord struct {
	CorrelationID string    `json:"correlationId"`
	From          string    `json:"from"`
	TokenIDs      []int64   `json:"tokenIds"`
	Amount        int64     `json:"amount"`
	State         string    `json:"state"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type FeePolicy struct {
	SellPercent int64     `json:"sellPercent"`
	BuyPercent  int64     `json:"buyPercent"`
	BurnPercent int64     `json:"burnPercent"`
	Receiver    string    `json:"receiver"`
	Paused      bool      `json:"paused"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type UpdateFeesRequest struct {
	SellPercent int64 `json:"sellPercent" validate:"gte=0,lte=100"`
	BuyPercent  int64 `json:"buyPercent" validate:"gte=0,lte=100"`
	BurnPercent int64 `json:"burnPercent" validate:"gte=0,lte=100"`
}

type UpdateFeeReceiverRequest struct {
	Receiver string `json:"receiver" validate:"required"`
}

type SetPausedRequest struct {
	Paused *bool `json:"paused" validate:"required"`
}

// Error is the error wire model.
type Error struct {
	// Code is the stable machine-readable error code.
	Code ErrorCode `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`
}

// ErrorCode is the stable error code.
type ErrorCode string
