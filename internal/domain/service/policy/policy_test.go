package policy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/entity"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/event"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/service/policy"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
	"github.com/Unagi-Games/evm-whitelabel/pkg/errcodes"
)

const (
	manager  = value.Address("0x00000000000000000000000000000000000000Aa")
	pauser   = value.Address("0x00000000000000000000000000000000000000b1")
	stranger = value.Address("0x00000000000000000000000000000000000000C2")
	receiver = value.Address("0x00000000000000000000000000000000000000d3")
)

type roleKey struct {
	role value.Role
	addr value.Address
}

type memPolicyRepo struct {
	policy entity.FeePolicy
	roles  map[roleKey]bool
}

func newMemPolicyRepo() *memPolicyRepo {
	return &memPolicyRepo{
		roles: map[roleKey]bool{
			{value.RoleFeeManager, manager}: true,
			{value.RolePauser, pauser}:      true,
		},
	}
}

func (r *memPolicyRepo) GetPolicy(context.Context) (*entity.FeePolicy, error) {
	p := r.policy
	return &p, nil
}

func (r *memPolicyRepo) UpdateFees(_ context.Context, sellPercent, buyPercent, burnPercent int64) error {
	r.policy.SellPercent = sellPercent
	r.policy.BuyPercent = buyPercent
	r.policy.BurnPercent = burnPercent
	return nil
}

func (r *memPolicyRepo) UpdateReceiver(_ context.Context, receiver value.Address) error {
	r.policy.Receiver = receiver
	return nil
}

func (r *memPolicyRepo) SetPaused(_ context.Context, paused bool) error {
	r.policy.Paused = paused
	return nil
}

func (r *memPolicyRepo) HasRole(_ context.Context, role value.Role, addr value.Address) (bool, error) {
	return r.roles[roleKey{role, addr}], nil
}

func TestSetFees(t *testing.T) {
	ctx := context.Background()

	t.Run("updates the triple", func(t *testing.T) {
		rq := require.New(t)
		svc := policy.NewService(newMemPolicyRepo(), event.NopBus{})

		rq.NoError(svc.SetFees(ctx, manager, 5, 2, 1))

		fees, err := svc.Fees(ctx)
		rq.NoError(err)
		rq.Equal(int64(5), fees.SellPercent)
		rq.Equal(int64(2), fees.BuyPercent)
		rq.Equal(int64(1), fees.BurnPercent)
	})

	t.Run("requires the fee manager role", func(t *testing.T) {
		rq := require.New(t)
		svc := policy.NewService(newMemPolicyRepo(), event.NopBus{})

		err := svc.SetFees(ctx, stranger, 5, 2, 1)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.AuthorizationError, code)
	})

	t.Run("rejects out-of-range percents", func(t *testing.T) {
		rq := require.New(t)
		svc := policy.NewService(newMemPolicyRepo(), event.NopBus{})

		for _, fees := range [][3]int64{
			{101, 0, 0},
			{0, 101, 0},
			{0, 0, 101},
			{-1, 0, 0},
		} {
			err := svc.SetFees(ctx, manager, fees[0], fees[1], fees[2])
			code, _ := domain.GetCode(err)
			rq.Equal(errcodes.PreconditionError, code)
		}
	})

	t.Run("sell plus burn capped at 100", func(t *testing.T) {
		rq := require.New(t)
		svc := policy.NewService(newMemPolicyRepo(), event.NopBus{})

		err := svc.SetFees(ctx, manager, 60, 0, 41)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.PreconditionError, code)

		// The buy fee sits outside the cap: it is additive on the price.
		rq.NoError(svc.SetFees(ctx, manager, 60, 100, 40))
	})

	t.Run("role revocation bites immediately", func(t *testing.T) {
		rq := require.New(t)
		repo := newMemPolicyRepo()
		svc := policy.NewService(repo, event.NopBus{})

		rq.NoError(svc.SetFees(ctx, manager, 5, 2, 1))

		delete(repo.roles, roleKey{value.RoleFeeManager, manager})

		err := svc.SetFees(ctx, manager, 6, 2, 1)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.AuthorizationError, code)
	})
}

func TestSetFeeReceiver(t *testing.T) {
	ctx := context.Background()

	t.Run("updates the receiver", func(t *testing.T) {
		rq := require.New(t)
		svc := policy.NewService(newMemPolicyRepo(), event.NopBus{})

		rq.NoError(svc.SetFeeReceiver(ctx, manager, receiver))

		fees, err := svc.Fees(ctx)
		rq.NoError(err)
		rq.Equal(receiver, fees.Receiver)
	})

	t.Run("rejects the zero address", func(t *testing.T) {
		rq := require.New(t)
		svc := policy.NewService(newMemPolicyRepo(), event.NopBus{})

		err := svc.SetFeeReceiver(ctx, manager, value.ZeroAddress)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.PreconditionError, code)
	})
}

func TestSetPaused(t *testing.T) {
	ctx := context.Background()

	t.Run("pauser flips the switch", func(t *testing.T) {
		rq := require.New(t)
		svc := policy.NewService(newMemPolicyRepo(), event.NopBus{})

		rq.NoError(svc.SetPaused(ctx, pauser, true))

		err := svc.RequireActive(ctx)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.StateConflictError, code)

		rq.NoError(svc.SetPaused(ctx, pauser, false))
		rq.NoError(svc.RequireActive(ctx))
	})

	t.Run("fee manager may not pause", func(t *testing.T) {
		rq := require.New(t)
		svc := policy.NewService(newMemPolicyRepo(), event.NopBus{})

		err := svc.SetPaused(ctx, manager, true)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.AuthorizationError, code)
	})
}
