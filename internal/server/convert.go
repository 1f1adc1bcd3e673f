package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/entity"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/service/market"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
	"github.com/Unagi-Games/evm-whitelabel/pkg/contextx"
	"github.com/Unagi-Games/evm-whitelabel/pkg/errcodes"
	"github.com/Unagi-Games/evm-whitelabel/pkg/lox"
	"github.com/Unagi-Games/evm-whitelabel/pkg/rest"
)

// callerAddress resolves the acting ledger address of the request. The header
// is set by the signature-verifying gateway; a request without it is
// anonymous and may not mutate anything.
func callerAddress(r *http.Request) (value.Address, error) {
	caller, err := contextx.CallerFromContext(r.Context())
	if err != nil {
		return value.ZeroAddress, domain.NewError(
			errcodes.KindUnauthorized,
			errcodes.AuthorizationError,
			"caller address header required",
		)
	}

	addr, err := value.ParseAddress(caller.String())
	if err != nil || addr.IsZero() {
		return value.ZeroAddress, domain.NewPreconditionError("invalid caller address")
	}

	return addr, nil
}

func pathTokenID(r *http.Request) (value.TokenID, error) {
	return value.ParseTokenID(chi.URLParam(r, "tokenID"))
}

func newRESTSale(sale *entity.Sale) rest.Sale {
	return rest.Sale{
		TokenID:       sale.TokenID.Int64(),
		Price:         sale.Price,
		Seller:        sale.Seller.String(),
		ReservedBuyer: sale.ReservedBuyer.String(),
		CreatedAt:     sale.CreatedAt,
		UpdatedAt:     sale.UpdatedAt,
	}
}

func newRESTQuote(quote *market.SaleQuote) rest.SaleQuote {
	return rest.SaleQuote{
		TokenID:       quote.TokenID.Int64(),
		Active:        quote.Active,
		Price:         quote.Price,
		BuyerPrice:    quote.BuyerPrice,
		Seller:        quote.Seller.String(),
		ReservedBuyer: quote.ReservedBuyer.String(),
	}
}

func newRESTReceipt(receipt *market.Receipt) rest.SaleReceipt {
	return rest.SaleReceipt{
		TokenID:     receipt.TokenID.Int64(),
		Price:       receipt.Price,
		Seller:      receipt.Seller.String(),
		Buyer:       receipt.Buyer.String(),
		SellerShare: receipt.Split.SellerShare,
		FeeShare:    receipt.Split.FeeShare,
		BurnShare:   receipt.Split.BurnShare,
		BuyerTotal:  receipt.Split.BuyerTotal,
	}
}

func newRESTEscrow(record *entity.EscrowRecord) rest.EscrowRecord {
	ids := lox.Map(record.TokenIDs, func(id value.TokenID) int64 { return id.Int64() })

	return rest.EscrowRecord{
		CorrelationID: record.CorrelationID,
		From:          record.From.String(),
		TokenIDs:      ids,
		Amount:        record.Amount,
		State:         record.State.String(),
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}

func newRESTFeePolicy(policy entity.FeePolicy) rest.FeePolicy {
	return rest.FeePolicy{
		SellPercent: policy.SellPercent,
		BuyPercent:  policy.BuyPercent,
		BurnPercent: policy.BurnPercent,
		Receiver:    policy.Receiver.String(),
		Paused:      policy.Paused,
		UpdatedAt:   policy.UpdatedAt,
	}
}

func parseTokenIDs(ids []int64) ([]value.TokenID, error) {
	return lox.MapErr(ids, value.NewTokenID)
}
