package market_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/entity"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/event"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/service/market"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
	"github.com/Unagi-Games/evm-whitelabel/internal/infrastructure/ledger"
	"github.com/Unagi-Games/evm-whitelabel/pkg/errcodes"
)

const (
	operator    = value.Address("0x00000000000000000000000000000000000000Aa")
	seller      = value.Address("0x00000000000000000000000000000000000000b1")
	buyer       = value.Address("0x00000000000000000000000000000000000000C2")
	stranger    = value.Address("0x00000000000000000000000000000000000000d3")
	feeReceiver = value.Address("0x00000000000000000000000000000000000000E4")
)

// memSaleRepo is an in-memory SaleRepository. Transact snapshots the state
// and restores it when the callback fails.
type memSaleRepo struct {
	mu    sync.Mutex
	sales map[value.TokenID]entity.Sale
}

func newMemSaleRepo() *memSaleRepo {
	return &memSaleRepo{sales: make(map[value.TokenID]entity.Sale)}
}

func (r *memSaleRepo) Get(_ context.Context, tokenID value.TokenID) (*entity.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sale, ok := r.sales[tokenID]
	if !ok {
		return nil, domain.NewError(errcodes.KindNotFound, errcodes.SaleNotFound, "sale not found")
	}

	return &sale, nil
}

func (r *memSaleRepo) Put(_ context.Context, sale *entity.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales[sale.TokenID] = *sale
	return nil
}

func (r *memSaleRepo) Delete(_ context.Context, tokenID value.TokenID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sales[tokenID]; !ok {
		return domain.NewError(errcodes.KindNotFound, errcodes.SaleNotFound, "sale not found")
	}
	delete(r.sales, tokenID)

	return nil
}

func (r *memSaleRepo) List(_ context.Context, limit, offset int) ([]entity.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]entity.Sale, 0, len(r.sales))
	for _, sale := range r.sales {
		all = append(all, sale)
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}

	return all, nil
}

func (r *memSaleRepo) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	snapshot := make(map[value.TokenID]entity.Sale, len(r.sales))
	for k, v := range r.sales {
		snapshot[k] = v
	}
	r.mu.Unlock()

	if err := fn(ctx); err != nil {
		r.mu.Lock()
		r.sales = snapshot
		r.mu.Unlock()
		return err
	}

	return nil
}

type stubPolicy struct {
	fees   entity.FeePolicy
	paused bool
}

func (p *stubPolicy) Fees(context.Context) (entity.FeePolicy, error) {
	return p.fees, nil
}

func (p *stubPolicy) RequireActive(context.Context) error {
	if p.paused {
		return domain.NewStateConflictError("settlement is paused")
	}
	return nil
}

type captureBus struct {
	mu     sync.Mutex
	events []event.Event
}

func (b *captureBus) Publish(_ context.Context, e event.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *captureBus) last() event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		return nil
	}
	return b.events[len(b.events)-1]
}

type fixture struct {
	svc    *market.Service
	repo   *memSaleRepo
	ledger *ledger.MemoryLedger
	policy *stubPolicy
	bus    *captureBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:   newMemSaleRepo(),
		ledger: ledger.NewMemoryLedger(operator),
		policy: &stubPolicy{
			fees: entity.FeePolicy{SellPercent: 5, BuyPercent: 2, BurnPercent: 1, Receiver: feeReceiver},
		},
		bus: &captureBus{},
	}

	f.svc = market.New(f.repo, f.ledger.NFT(), f.ledger.Token(), f.policy, f.bus)
	require.NoError(t, f.svc.Initialize(market.Config{Operator: operator}))

	return f
}

// listToken mints and approves a token and puts it on sale.
func (f *fixture) listToken(t *testing.T, tokenID value.TokenID, price int64, reserve value.Address) {
	t.Helper()

	f.ledger.Mint(seller, tokenID)
	f.ledger.Approve(operator, tokenID)

	_, err := f.svc.Create(context.Background(), seller, seller, tokenID, price, reserve)
	require.NoError(t, err)
}

func TestInitialize(t *testing.T) {
	rq := require.New(t)

	svc := market.New(newMemSaleRepo(), nil, nil, &stubPolicy{}, event.NopBus{})

	_, err := svc.Quote(context.Background(), 1)
	code, ok := domain.GetCode(err)
	rq.True(ok)
	rq.Equal(errcodes.StateConflictError, code)

	rq.NoError(svc.Initialize(market.Config{Operator: operator}))
	rq.Error(svc.Initialize(market.Config{Operator: operator}), "second initialize must fail")
}

func TestCreateSale(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.ledger.Mint(seller, 7)
		f.ledger.Approve(operator, 7)

		sale, err := f.svc.Create(ctx, seller, seller, 7, 1000, value.ZeroAddress)
		rq.NoError(err)
		rq.Equal(int64(1000), sale.Price)
		rq.Equal(seller, sale.Seller)

		created, ok := f.bus.last().(event.SaleCreated)
		rq.True(ok)
		rq.Equal(value.TokenID(7), created.TokenID)
	})

	t.Run("rejects non-positive price", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.ledger.Mint(seller, 7)
		f.ledger.Approve(operator, 7)

		_, err := f.svc.Create(ctx, seller, seller, 7, 0, value.ZeroAddress)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.PreconditionError, code)
	})

	t.Run("rejects reservation for the owner", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.ledger.Mint(seller, 7)
		f.ledger.Approve(operator, 7)

		_, err := f.svc.Create(ctx, seller, seller, 7, 1000, seller)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.PreconditionError, code)
	})

	t.Run("rejects a caller who is neither owner nor operator", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.ledger.Mint(seller, 7)
		f.ledger.Approve(operator, 7)

		_, err := f.svc.Create(ctx, stranger, seller, 7, 1000, value.ZeroAddress)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.AuthorizationError, code)
	})

	t.Run("allows an approved-for-all operator to list", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.ledger.Mint(seller, 7)
		f.ledger.Approve(operator, 7)
		f.ledger.SetApprovalForAll(seller, stranger, true)

		_, err := f.svc.Create(ctx, stranger, seller, 7, 1000, value.ZeroAddress)
		rq.NoError(err)
	})

	t.Run("requires marketplace approval upfront", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.ledger.Mint(seller, 7)

		_, err := f.svc.Create(ctx, seller, seller, 7, 1000, value.ZeroAddress)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.PreconditionError, code)
	})

	t.Run("rejects a duplicate active sale", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.listToken(t, 7, 1000, value.ZeroAddress)

		_, err := f.svc.Create(ctx, seller, seller, 7, 2000, value.ZeroAddress)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.StateConflictError, code)
	})

	t.Run("allows relisting over a stale record", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.listToken(t, 7, 1000, value.ZeroAddress)

		// Approval revoked: the record dangles but counts as no sale.
		f.ledger.RevokeApproval(7)

		quote, err := f.svc.Quote(ctx, 7)
		rq.NoError(err)
		rq.False(quote.Active)
		rq.Zero(quote.Price)

		f.ledger.Approve(operator, 7)
		sale, err := f.svc.Create(ctx, seller, seller, 7, 1500, value.ZeroAddress)
		rq.NoError(err)
		rq.Equal(int64(1500), sale.Price)
	})

	t.Run("rejected while paused", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.ledger.Mint(seller, 7)
		f.ledger.Approve(operator, 7)
		f.policy.paused = true

		_, err := f.svc.Create(ctx, seller, seller, 7, 1000, value.ZeroAddress)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.StateConflictError, code)
	})
}

func TestUpdateSale(t *testing.T) {
	ctx := context.Background()

	t.Run("overwrites price and reservation", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.listToken(t, 7, 1000, value.ZeroAddress)

		sale, err := f.svc.Update(ctx, seller, seller, 7, 2000, buyer)
		rq.NoError(err)
		rq.Equal(int64(2000), sale.Price)
		rq.Equal(buyer, sale.ReservedBuyer)

		updated, ok := f.bus.last().(event.SaleUpdated)
		rq.True(ok)
		rq.Equal(int64(2000), updated.Price)
	})

	t.Run("clears the reservation with the zero address", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.listToken(t, 7, 1000, buyer)

		sale, err := f.svc.Update(ctx, seller, seller, 7, 1000, value.ZeroAddress)
		rq.NoError(err)
		rq.True(sale.ReservedBuyer.IsZero())
	})

	t.Run("no active sale", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.ledger.Mint(seller, 7)
		f.ledger.Approve(operator, 7)

		_, err := f.svc.Update(ctx, seller, seller, 7, 2000, value.ZeroAddress)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.StateConflictError, code)
	})
}

func TestDestroySale(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the record", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.listToken(t, 7, 1000, value.ZeroAddress)

		rq.NoError(f.svc.Destroy(ctx, seller, seller, 7))

		quote, err := f.svc.Quote(ctx, 7)
		rq.NoError(err)
		rq.False(quote.Active)

		_, ok := f.bus.last().(event.SaleDestroyed)
		rq.True(ok)
	})

	t.Run("stranger may not destroy", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.listToken(t, 7, 1000, value.ZeroAddress)

		err := f.svc.Destroy(ctx, stranger, seller, 7)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.AuthorizationError, code)
	})
}

func TestAcceptSale(t *testing.T) {
	ctx := context.Background()

	t.Run("settles the full split", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.listToken(t, 7, 1000, value.ZeroAddress)
		f.ledger.SetBalance(buyer, 5000)
		f.ledger.SetAllowance(buyer, operator, 5000)

		receipt, err := f.svc.Accept(ctx, buyer, 7, 1000, buyer)
		rq.NoError(err)
		rq.Equal(int64(940), receipt.Split.SellerShare)
		rq.Equal(int64(70), receipt.Split.FeeShare)
		rq.Equal(int64(10), receipt.Split.BurnShare)
		rq.Equal(int64(1020), receipt.Split.BuyerTotal)

		owner, err := f.ledger.NFT().OwnerOf(ctx, 7)
		rq.NoError(err)
		rq.Equal(buyer, owner)

		sellerBalance, _ := f.ledger.Token().BalanceOf(ctx, seller)
		rq.Equal(int64(940), sellerBalance)
		feeBalance, _ := f.ledger.Token().BalanceOf(ctx, feeReceiver)
		rq.Equal(int64(70), feeBalance)
		burnBalance, _ := f.ledger.Token().BalanceOf(ctx, value.BurnAddress)
		rq.Equal(int64(10), burnBalance)
		buyerBalance, _ := f.ledger.Token().BalanceOf(ctx, buyer)
		rq.Equal(int64(5000-1020), buyerBalance)

		accepted, ok := f.bus.last().(event.SaleAccepted)
		rq.True(ok)
		rq.Equal(buyer, accepted.Buyer)

		quote, err := f.svc.Quote(ctx, 7)
		rq.NoError(err)
		rq.False(quote.Active)
	})

	t.Run("second accept with the same parameters conflicts", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.listToken(t, 7, 1000, value.ZeroAddress)
		f.ledger.SetBalance(buyer, 5000)
		f.ledger.SetAllowance(buyer, operator, 5000)

		_, err := f.svc.Accept(ctx, buyer, 7, 1000, buyer)
		rq.NoError(err)

		// The record was cleared on settlement, so the replay finds no sale.
		_, err = f.svc.Accept(ctx, buyer, 7, 1000, buyer)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.StateConflictError, code)
	})

	t.Run("price mismatch guards against a concurrent update", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.listToken(t, 7, 1000, value.ZeroAddress)
		f.ledger.SetBalance(buyer, 5000)
		f.ledger.SetAllowance(buyer, operator, 5000)

		_, err := f.svc.Accept(ctx, buyer, 7, 900, buyer)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.PriceMismatchError, code)
	})

	t.Run("reservation blocks other receivers", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.listToken(t, 7, 1000, buyer)
		f.ledger.SetBalance(stranger, 5000)
		f.ledger.SetAllowance(stranger, operator, 5000)

		_, err := f.svc.Accept(ctx, stranger, 7, 1000, stranger)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.AuthorizationError, code)

		// Paying for the reserved receiver is fine.
		_, err = f.svc.Accept(ctx, stranger, 7, 1000, buyer)
		rq.NoError(err)
	})

	t.Run("insufficient allowance", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.listToken(t, 7, 1000, value.ZeroAddress)
		f.ledger.SetBalance(buyer, 5000)
		f.ledger.SetAllowance(buyer, operator, 1000) // below the 1020 total

		_, err := f.svc.Accept(ctx, buyer, 7, 1000, buyer)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.AuthorizationGapError, code)
	})

	t.Run("stale sale cannot be accepted", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.listToken(t, 7, 1000, value.ZeroAddress)
		f.ledger.RevokeApproval(7)
		f.ledger.SetBalance(buyer, 5000)
		f.ledger.SetAllowance(buyer, operator, 5000)

		_, err := f.svc.Accept(ctx, buyer, 7, 1000, buyer)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.StateConflictError, code)
	})

	t.Run("failed transfer leaves prior state intact", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.listToken(t, 7, 1000, value.ZeroAddress)
		f.ledger.SetBalance(buyer, 5000)
		f.ledger.SetAllowance(buyer, operator, 5000)

		// The allowance passes the upfront check but the balance is gone by
		// transfer time.
		f.ledger.SetBalance(buyer, 0)

		_, err := f.svc.Accept(ctx, buyer, 7, 1000, buyer)
		rq.Error(err)

		sale, gErr := f.repo.Get(ctx, 7)
		rq.NoError(gErr, "sale record must be restored on a failed settlement")
		rq.Equal(int64(1000), sale.Price)
	})
}

// saleClearedObserver asserts the sale record is already gone when the first
// outbound transfer happens.
type saleClearedObserver struct {
	market.NFTLedger
	repo    *memSaleRepo
	t       *testing.T
	cleared bool
}

func (o *saleClearedObserver) SafeTransferFrom(ctx context.Context, from, to value.Address, tokenID value.TokenID) error {
	_, err := o.repo.Get(ctx, tokenID)
	require.Error(o.t, err, "sale record must be cleared before the transfer")
	o.cleared = true

	return o.NFTLedger.SafeTransferFrom(ctx, from, to, tokenID)
}

func TestAcceptClearsRecordBeforeTransfers(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	repo := newMemSaleRepo()
	mem := ledger.NewMemoryLedger(operator)
	observer := &saleClearedObserver{NFTLedger: mem.NFT(), repo: repo, t: t}
	policy := &stubPolicy{fees: entity.FeePolicy{SellPercent: 5, BuyPercent: 2, BurnPercent: 1, Receiver: feeReceiver}}

	svc := market.New(repo, observer, mem.Token(), policy, event.NopBus{})
	rq.NoError(svc.Initialize(market.Config{Operator: operator}))

	mem.Mint(seller, 7)
	mem.Approve(operator, 7)
	_, err := svc.Create(ctx, seller, seller, 7, 1000, value.ZeroAddress)
	rq.NoError(err)

	mem.SetBalance(buyer, 5000)
	mem.SetAllowance(buyer, operator, 5000)

	_, err = svc.Accept(ctx, buyer, 7, 1000, buyer)
	rq.NoError(err)
	rq.True(observer.cleared)
}
