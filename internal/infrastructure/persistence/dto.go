package persistence

import (
	"encoding/json"
	"time"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain/entity"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
)

type saleSchema struct {
	TokenID       int64     `db:"token_id"`
	Seller        string    `db:"seller"`
	Price         int64     `db:"price"`
	ReservedBuyer string    `db:"reserved_buyer"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (s *saleSchema) toDomain() *entity.Sale {
	return &entity.Sale{
		TokenID:       value.TokenID(s.TokenID),
		Seller:        value.Address(s.Seller),
		Price:         s.Price,
		ReservedBuyer: value.Address(s.ReservedBuyer),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

type escrowSchema struct {
	CorrelationID string    `db:"correlation_id"`
	FromAddress   string    `db:"from_address"`
	TokenIDs      []byte    `db:"token_ids"`
	Amount        int64     `db:"amount"`
	State         string    `db:"state"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (s *escrowSchema) toDomain() (*entity.EscrowRecord, error) {
	var ids []value.TokenID
	if len(s.TokenIDs) > 0 {
		if err := json.Unmarshal(s.TokenIDs, &ids); err != nil {
			return nil, err
		}
	}

	return &entity.EscrowRecord{
		CorrelationID: s.CorrelationID,
		From:          value.Address(s.FromAddress),
		TokenIDs:      ids,
		Amount:        s.Amount,
		State:         entity.EscrowState(s.State),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}, nil
}

type policySchema struct {
	SellPercent int64     `db:"sell_percent"`
	BuyPercent  int64     `db:"buy_percent"`
	BurnPercent int64     `db:"burn_percent"`
	Receiver    string    `db:"receiver"`
	Paused      bool      `db:"paused"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (s *policySchema) toDomain() *entity.FeePolicy {
	return &entity.FeePolicy{
		SellPercent: s.SellPercent,
		BuyPercent:  s.BuyPercent,
		BurnPercent: s.BurnPercent,
		Receiver:    value.Address(s.Receiver),
		Paused:      s.Paused,
		UpdatedAt:   s.UpdatedAt,
	}
}
