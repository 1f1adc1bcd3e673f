package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
	"github.com/Unagi-Games/evm-whitelabel/internal/infrastructure/ledger"
)

const (
	operator = value.Address("0x00000000000000000000000000000000000000Aa")
	alice    = value.Address("0x00000000000000000000000000000000000000b1")
	bob      = value.Address("0x00000000000000000000000000000000000000C2")
)

func TestMemoryNFT(t *testing.T) {
	ctx := context.Background()

	t.Run("owner moves own token", func(t *testing.T) {
		rq := require.New(t)
		mem := ledger.NewMemoryLedger(operator)
		mem.Mint(operator, 7)

		rq.NoError(mem.NFT().SafeTransferFrom(ctx, operator, bob, 7))

		owner, err := mem.NFT().OwnerOf(ctx, 7)
		rq.NoError(err)
		rq.Equal(bob, owner)
	})

	t.Run("operator needs an approval for third-party tokens", func(t *testing.T) {
		rq := require.New(t)
		mem := ledger.NewMemoryLedger(operator)
		mem.Mint(alice, 7)

		rq.Error(mem.NFT().SafeTransferFrom(ctx, alice, bob, 7))

		mem.Approve(operator, 7)
		rq.NoError(mem.NFT().SafeTransferFrom(ctx, alice, bob, 7))
	})

	t.Run("transfer clears the per-token approval", func(t *testing.T) {
		rq := require.New(t)
		mem := ledger.NewMemoryLedger(operator)
		mem.Mint(alice, 7)
		mem.Approve(operator, 7)

		rq.NoError(mem.NFT().SafeTransferFrom(ctx, alice, bob, 7))

		approved, err := mem.NFT().GetApproved(ctx, 7)
		rq.NoError(err)
		rq.True(approved.IsZero())
	})

	t.Run("wrong owner is rejected", func(t *testing.T) {
		rq := require.New(t)
		mem := ledger.NewMemoryLedger(operator)
		mem.Mint(alice, 7)
		mem.Approve(operator, 7)

		rq.Error(mem.NFT().SafeTransferFrom(ctx, bob, alice, 7))
	})
}

func TestMemoryToken(t *testing.T) {
	ctx := context.Background()

	t.Run("transferFrom consumes the allowance", func(t *testing.T) {
		rq := require.New(t)
		mem := ledger.NewMemoryLedger(operator)
		mem.SetBalance(alice, 1000)
		mem.SetAllowance(alice, operator, 300)

		rq.NoError(mem.Token().SafeTransferFrom(ctx, alice, bob, 200))

		remaining, err := mem.Token().Allowance(ctx, alice, operator)
		rq.NoError(err)
		rq.Equal(int64(100), remaining)

		balance, err := mem.Token().BalanceOf(ctx, bob)
		rq.NoError(err)
		rq.Equal(int64(200), balance)

		// The next pull exceeds what is left.
		rq.Error(mem.Token().SafeTransferFrom(ctx, alice, bob, 200))
	})

	t.Run("insufficient balance is rejected", func(t *testing.T) {
		rq := require.New(t)
		mem := ledger.NewMemoryLedger(operator)
		mem.SetBalance(alice, 100)
		mem.SetAllowance(alice, operator, 1000)

		rq.Error(mem.Token().SafeTransferFrom(ctx, alice, bob, 200))
	})

	t.Run("operator spends its own balance freely", func(t *testing.T) {
		rq := require.New(t)
		mem := ledger.NewMemoryLedger(operator)
		mem.SetBalance(operator, 1000)

		rq.NoError(mem.Token().SafeTransfer(ctx, bob, 400))

		balance, err := mem.Token().BalanceOf(ctx, operator)
		rq.NoError(err)
		rq.Equal(int64(600), balance)
	})
}
