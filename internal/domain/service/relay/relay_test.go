package relay_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/entity"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/event"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/service/relay"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
	"github.com/Unagi-Games/evm-whitelabel/internal/infrastructure/ledger"
	"github.com/Unagi-Games/evm-whitelabel/pkg/errcodes"
)

const (
	custodian     = value.Address("0x00000000000000000000000000000000000000Aa")
	submitter     = value.Address("0x00000000000000000000000000000000000000b1")
	transferOp    = value.Address("0x00000000000000000000000000000000000000C2")
	nftReceiver   = value.Address("0x00000000000000000000000000000000000000d3")
	tokenReceiver = value.Address("0x00000000000000000000000000000000000000E4")
)

type escrowKey struct {
	correlationID string
	from          value.Address
}

// memEscrowRepo is an in-memory EscrowRepository. Transact snapshots the
// records and restores them when the callback fails.
type memEscrowRepo struct {
	mu      sync.Mutex
	records map[escrowKey]entity.EscrowRecord
}

func newMemEscrowRepo() *memEscrowRepo {
	return &memEscrowRepo{records: make(map[escrowKey]entity.EscrowRecord)}
}

func (r *memEscrowRepo) Get(_ context.Context, correlationID string, from value.Address) (*entity.EscrowRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[escrowKey{correlationID, from}]
	if !ok {
		return nil, domain.NewError(errcodes.KindNotFound, errcodes.EscrowNotFound, "escrow not found")
	}

	return &record, nil
}

func (r *memEscrowRepo) Create(_ context.Context, record *entity.EscrowRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := escrowKey{record.CorrelationID, record.From}
	if _, ok := r.records[key]; ok {
		return domain.NewStateConflictError("escrow already exists for the correlation id")
	}
	r.records[key] = *record

	return nil
}

func (r *memEscrowRepo) TransitionFromReserved(_ context.Context, correlationID string, from value.Address, to entity.EscrowState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := escrowKey{correlationID, from}
	record, ok := r.records[key]
	if !ok || record.State != entity.EscrowReserved {
		return domain.NewStateConflictError("escrow is not in the reserved state")
	}

	record.State = to
	r.records[key] = record

	return nil
}

func (r *memEscrowRepo) List(_ context.Context, state entity.EscrowState, limit, offset int) ([]entity.EscrowRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]entity.EscrowRecord, 0, len(r.records))
	for _, record := range r.records {
		if record.State == state {
			all = append(all, record)
		}
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

func (r *memEscrowRepo) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	snapshot := make(map[escrowKey]entity.EscrowRecord, len(r.records))
	for k, v := range r.records {
		snapshot[k] = v
	}
	r.mu.Unlock()

	if err := fn(ctx); err != nil {
		r.mu.Lock()
		r.records = snapshot
		r.mu.Unlock()
		return err
	}

	return nil
}

type stubPolicy struct {
	roles  map[value.Address][]value.Role
	paused bool
}

func (p *stubPolicy) RequireRole(_ context.Context, role value.Role, addr value.Address) error {
	for _, held := range p.roles[addr] {
		if held == role {
			return nil
		}
	}
	return domain.NewAuthorizationError("missing role")
}

func (p *stubPolicy) RequireActive(context.Context) error {
	if p.paused {
		return domain.NewStateConflictError("settlement is paused")
	}
	return nil
}

type fixture struct {
	svc    *relay.Service
	repo   *memEscrowRepo
	ledger *ledger.MemoryLedger
	policy *stubPolicy
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:   newMemEscrowRepo(),
		ledger: ledger.NewMemoryLedger(custodian),
		policy: &stubPolicy{
			roles: map[value.Address][]value.Role{
				transferOp: {value.RoleTransferOperator},
			},
		},
	}

	f.svc = relay.New(f.repo, f.ledger.NFT(), f.ledger.Token(), f.policy, event.NopBus{})
	require.NoError(t, f.svc.Initialize(relay.Config{
		Custodian:     custodian,
		NFTReceiver:   nftReceiver,
		TokenReceiver: tokenReceiver,
	}))

	return f
}

// fund prepares the submitter with two NFTs and a token balance, all granted
// to the custodian.
func (f *fixture) fund(amount int64, tokenIDs ...value.TokenID) {
	for _, id := range tokenIDs {
		f.ledger.Mint(submitter, id)
	}
	f.ledger.SetApprovalForAll(submitter, custodian, true)
	f.ledger.SetBalance(submitter, amount)
	f.ledger.SetAllowance(submitter, custodian, amount)
}

func TestReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("takes custody of the batch", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.fund(500, 7, 9)

		record, err := f.svc.Reserve(ctx, submitter, submitter, "X", []value.TokenID{7, 9}, 500)
		rq.NoError(err)
		rq.Equal(entity.EscrowReserved, record.State)

		for _, id := range []value.TokenID{7, 9} {
			owner, oErr := f.ledger.NFT().OwnerOf(ctx, id)
			rq.NoError(oErr)
			rq.Equal(custodian, owner)
		}

		balance, _ := f.ledger.Token().BalanceOf(ctx, custodian)
		rq.Equal(int64(500), balance)
	})

	t.Run("duplicate correlation id conflicts", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.fund(500, 7, 9)

		_, err := f.svc.Reserve(ctx, submitter, submitter, "X", []value.TokenID{7}, 100)
		rq.NoError(err)

		_, err = f.svc.Reserve(ctx, submitter, submitter, "X", []value.TokenID{9}, 100)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.StateConflictError, code)
	})

	t.Run("empty batch is rejected", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)

		_, err := f.svc.Reserve(ctx, submitter, submitter, "X", nil, 0)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.PreconditionError, code)
	})

	t.Run("duplicate token ids are rejected", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.fund(500, 7)

		_, err := f.svc.Reserve(ctx, submitter, submitter, "X", []value.TokenID{7, 7}, 0)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.PreconditionError, code)
	})

	t.Run("operator reserves on behalf of the owner", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.fund(500, 7)

		record, err := f.svc.Reserve(ctx, transferOp, submitter, "X", []value.TokenID{7}, 100)
		rq.NoError(err)
		rq.Equal(submitter, record.From)

		// Custody came out of the owner's holdings, not the operator's.
		owner, err := f.ledger.NFT().OwnerOf(ctx, 7)
		rq.NoError(err)
		rq.Equal(custodian, owner)

		balance, _ := f.ledger.Token().BalanceOf(ctx, submitter)
		rq.Equal(int64(400), balance)
	})

	t.Run("stranger may not reserve on behalf of an owner", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.fund(500, 7)

		other := value.Address("0x00000000000000000000000000000000000000f5")
		_, err := f.svc.Reserve(ctx, other, submitter, "X", []value.TokenID{7}, 0)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.AuthorizationError, code)
	})

	t.Run("failed pull leaves no record behind", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.fund(500, 7)
		// Token 9 never minted: the second pull fails.

		_, err := f.svc.Reserve(ctx, submitter, submitter, "X", []value.TokenID{7, 9}, 500)
		rq.Error(err)

		_, err = f.svc.GetRecord(ctx, "X", submitter)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.EscrowNotFound, code)
	})
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("forwards the batch to the receivers", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.fund(500, 7, 9)

		_, err := f.svc.Reserve(ctx, submitter, submitter, "X", []value.TokenID{7, 9}, 500)
		rq.NoError(err)

		rq.NoError(f.svc.Execute(ctx, transferOp, "X", submitter))

		for _, id := range []value.TokenID{7, 9} {
			owner, oErr := f.ledger.NFT().OwnerOf(ctx, id)
			rq.NoError(oErr)
			rq.Equal(nftReceiver, owner)
		}

		balance, _ := f.ledger.Token().BalanceOf(ctx, tokenReceiver)
		rq.Equal(int64(500), balance)

		record, err := f.svc.GetRecord(ctx, "X", submitter)
		rq.NoError(err)
		rq.Equal(entity.EscrowExecuted, record.State)
	})

	t.Run("owner may execute their own escrow", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.fund(500, 7)

		_, err := f.svc.Reserve(ctx, submitter, submitter, "X", []value.TokenID{7}, 100)
		rq.NoError(err)

		rq.NoError(f.svc.Execute(ctx, submitter, "X", submitter))

		owner, err := f.ledger.NFT().OwnerOf(ctx, 7)
		rq.NoError(err)
		rq.Equal(nftReceiver, owner)

		record, err := f.svc.GetRecord(ctx, "X", submitter)
		rq.NoError(err)
		rq.Equal(entity.EscrowExecuted, record.State)
	})

	t.Run("executing someone else's escrow needs the operator role", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.fund(500, 7)

		_, err := f.svc.Reserve(ctx, submitter, submitter, "X", []value.TokenID{7}, 0)
		rq.NoError(err)

		other := value.Address("0x00000000000000000000000000000000000000f5")
		err = f.svc.Execute(ctx, other, "X", submitter)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.AuthorizationError, code)
	})

	t.Run("terminal records stay terminal", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.fund(500, 7)

		_, err := f.svc.Reserve(ctx, submitter, submitter, "X", []value.TokenID{7}, 0)
		rq.NoError(err)
		rq.NoError(f.svc.Execute(ctx, transferOp, "X", submitter))

		err = f.svc.Execute(ctx, transferOp, "X", submitter)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.StateConflictError, code)

		err = f.svc.Revert(ctx, transferOp, "X", submitter)
		code, _ = domain.GetCode(err)
		rq.Equal(errcodes.StateConflictError, code)
	})
}

func TestRevert(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the batch to the submitter", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.fund(500, 7, 9)

		_, err := f.svc.Reserve(ctx, submitter, submitter, "X", []value.TokenID{7, 9}, 500)
		rq.NoError(err)

		rq.NoError(f.svc.Revert(ctx, transferOp, "X", submitter))

		for _, id := range []value.TokenID{7, 9} {
			owner, oErr := f.ledger.NFT().OwnerOf(ctx, id)
			rq.NoError(oErr)
			rq.Equal(submitter, owner)
		}

		balance, _ := f.ledger.Token().BalanceOf(ctx, submitter)
		rq.Equal(int64(500), balance)

		record, err := f.svc.GetRecord(ctx, "X", submitter)
		rq.NoError(err)
		rq.Equal(entity.EscrowReverted, record.State)
	})

	t.Run("submitter may not revert their own escrow", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.fund(500, 7)

		_, err := f.svc.Reserve(ctx, submitter, submitter, "X", []value.TokenID{7}, 0)
		rq.NoError(err)

		err = f.svc.Revert(ctx, submitter, "X", submitter)
		code, _ := domain.GetCode(err)
		rq.Equal(errcodes.AuthorizationError, code)

		record, err := f.svc.GetRecord(ctx, "X", submitter)
		rq.NoError(err)
		rq.Equal(entity.EscrowReserved, record.State)
	})

	t.Run("correlation id can be reused by another submitter", func(t *testing.T) {
		rq := require.New(t)
		f := newFixture(t)
		f.fund(500, 7)

		other := value.Address("0x00000000000000000000000000000000000000f5")
		f.ledger.Mint(other, 11)
		f.ledger.SetApprovalForAll(other, custodian, true)

		_, err := f.svc.Reserve(ctx, submitter, submitter, "X", []value.TokenID{7}, 0)
		rq.NoError(err)

		// Same external id, different submitter: a distinct record.
		_, err = f.svc.Reserve(ctx, other, other, "X", []value.TokenID{11}, 0)
		rq.NoError(err)
	})
}

func TestReserveWhilePaused(t *testing.T) {
	rq := require.New(t)
	f := newFixture(t)
	f.fund(500, 7)
	f.policy.paused = true

	_, err := f.svc.Reserve(context.Background(), submitter, submitter, "X", []value.TokenID{7}, 0)
	code, _ := domain.GetCode(err)
	rq.Equal(errcodes.StateConflictError, code)
}
