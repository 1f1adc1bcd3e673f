package ledger

import (
	"context"
	"net/url"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
)

// TokenLedgerClient talks to the fungible payment-token ledger gateway over
// HTTP. Transfers run under the marketplace's own gateway identity.
type TokenLedgerClient struct {
	client
}

func NewTokenLedgerClient(cfg Config) *TokenLedgerClient {
	return &TokenLedgerClient{client: newClient(cfg)}
}

func (c *TokenLedgerClient) BalanceOf(ctx context.Context, owner value.Address) (int64, error) {
	query := url.Values{"owner": {owner.String()}}

	var out struct {
		Balance int64 `json:"balance"`
	}

	if err := c.get(ctx, "/v1/token/balance", query, &out); err != nil {
		return 0, err
	}

	return out.Balance, nil
}

func (c *TokenLedgerClient) Allowance(ctx context.Context, owner, spender value.Address) (int64, error) {
	query := url.Values{
		"owner":   {owner.String()},
		"spender": {spender.String()},
	}

	var out struct {
		Allowance int64 `json:"allowance"`
	}

	if err := c.get(ctx, "/v1/token/allowance", query, &out); err != nil {
		return 0, err
	}

	return out.Allowance, nil
}

func (c *TokenLedgerClient) SafeTransferFrom(ctx context.Context, from, to value.Address, amount int64) error {
	body := struct {
		From   value.Address `json:"from"`
		To     value.Address `json:"to"`
		Amount int64         `json:"amount"`
	}{
		From:   from,
		To:     to,
		Amount: amount,
	}

	return c.post(ctx, "/v1/token/transfers", body, nil)
}

func (c *TokenLedgerClient) SafeTransfer(ctx context.Context, to value.Address, amount int64) error {
	body := struct {
		To     value.Address `json:"to"`
		Amount int64         `json:"amount"`
	}{
		To:     to,
		Amount: amount,
	}

	return c.post(ctx, "/v1/token/transfers", body, nil)
}
