package ledger

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
)

// NFTLedgerClient talks to the non-fungible asset ledger gateway over HTTP.
type NFTLedgerClient struct {
	client
}

func NewNFTLedgerClient(cfg Config) *NFTLedgerClient {
	return &NFTLedgerClient{client: newClient(cfg)}
}

func (c *NFTLedgerClient) OwnerOf(ctx context.Context, tokenID value.TokenID) (value.Address, error) {
	var out struct {
		Owner value.Address `json:"owner"`
	}

	if err := c.get(ctx, fmt.Sprintf("/v1/nft/%s/owner", tokenID), nil, &out); err != nil {
		return value.ZeroAddress, err
	}

	return out.Owner, nil
}

func (c *NFTLedgerClient) GetApproved(ctx context.Context, tokenID value.TokenID) (value.Address, error) {
	var out struct {
		Approved value.Address `json:"approved"`
	}

	if err := c.get(ctx, fmt.Sprintf("/v1/nft/%s/approved", tokenID), nil, &out); err != nil {
		return value.ZeroAddress, err
	}

	return out.Approved, nil
}

func (c *NFTLedgerClient) IsApprovedForAll(ctx context.Context, owner, operator value.Address) (bool, error) {
	query := url.Values{
		"owner":    {owner.String()},
		"operator": {operator.String()},
	}

	var out struct {
		Approved bool `json:"approved"`
	}

	if err := c.get(ctx, "/v1/nft/approved-for-all", query, &out); err != nil {
		return false, err
	}

	return out.Approved, nil
}

func (c *NFTLedgerClient) SafeTransferFrom(ctx context.Context, from, to value.Address, tokenID value.TokenID) error {
	body := struct {
		From    value.Address `json:"from"`
		To      value.Address `json:"to"`
		TokenID value.TokenID `json:"tokenId"`
	}{
		From:    from,
		To:      to,
		TokenID: tokenID,
	}

	return c.post(ctx, "/v1/nft/transfers", body, nil)
}
