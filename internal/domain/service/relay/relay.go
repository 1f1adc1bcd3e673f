package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/entity"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/event"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
	"github.com/Unagi-Games/evm-whitelabel/internal/metrics"
	"github.com/Unagi-Games/evm-whitelabel/pkg/contextx"
	"github.com/Unagi-Games/evm-whitelabel/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// NFTLedger is the slice of the non-fungible ledger the relay needs.
type NFTLedger interface {
	SafeTransferFrom(ctx context.Context, from, to value.Address, tokenID value.TokenID) error
}

// TokenLedger is the slice of the fungible ledger the relay needs.
type TokenLedger interface {
	SafeTransferFrom(ctx context.Context, from, to value.Address, amount int64) error
}

type EscrowRepository interface {
	Get(ctx context.Context, correlationID string, from value.Address) (*entity.EscrowRecord, error)
	Create(ctx context.Context, record *entity.EscrowRecord) error
	// TransitionFromReserved flips the record into a terminal state iff it is
	// still Reserved, reporting a state conflict otherwise.
	TransitionFromReserved(ctx context.Context, correlationID string, from value.Address, to entity.EscrowState) error
	List(ctx context.Context, state entity.EscrowState, limit, offset int) ([]entity.EscrowRecord, error)
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
}

type Policy interface {
	RequireRole(ctx context.Context, role value.Role, addr value.Address) error
	RequireActive(ctx context.Context) error
}

// Config arms an inert relay. Custodian is the relay's own identity on the
// asset ledgers; NFTReceiver and TokenReceiver are where executed escrows
// deliver their assets.
type Config struct {
	Custodian     value.Address
	NFTReceiver   value.Address
	TokenReceiver value.Address
}

// Service is the escrow relay: it takes custody of a batch of NFTs plus a
// fungible amount under an external correlation id, then later releases the
// whole batch one way (execute, forward) or the other (revert, return).
//
// Records are never deleted. A terminal record blocks its (correlationId,
// from) key forever, which is what makes retried submissions safe.
type Service struct {
	mu      sync.Mutex
	escrows EscrowRepository
	nft     NFTLedger
	token   TokenLedger
	policy  Policy
	bus     event.Bus

	cfg         Config
	initialized bool
}

func New(escrows EscrowRepository, nft NFTLedger, token TokenLedger, policy Policy, bus event.Bus) *Service {
	return &Service{
		escrows: escrows,
		nft:     nft,
		token:   token,
		policy:  policy,
		bus:     bus,
	}
}

// Initialize arms the relay exactly once.
func (s *Service) Initialize(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return domain.NewStateConflictError("relay already initialized")
	}

	if cfg.Custodian.IsZero() {
		return domain.NewPreconditionError("custodian address must not be zero")
	}
	if cfg.NFTReceiver.IsZero() || cfg.TokenReceiver.IsZero() {
		return domain.NewPreconditionError("receiver addresses must not be zero")
	}

	s.cfg = cfg
	s.initialized = true

	return nil
}

func (s *Service) ready() error {
	if !s.initialized {
		return domain.NewStateConflictError("relay not initialized")
	}
	return nil
}

// Reserve pulls tokenIDs and amount from the owner into custody and records
// the escrow under (correlationID, from). The owner submits directly; a
// transfer operator may reserve on behalf of any owner. The record is written
// before the first pull; the call either takes full custody or leaves nothing
// behind.
func (s *Service) Reserve(ctx context.Context, caller, from value.Address, correlationID string, tokenIDs []value.TokenID, amount int64) (*entity.EscrowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.policy.RequireActive(ctx); err != nil {
		return nil, err
	}

	if from.IsZero() {
		return nil, domain.NewPreconditionError("from address must not be zero")
	}
	if caller != from {
		if err := s.policy.RequireRole(ctx, value.RoleTransferOperator, caller); err != nil {
			return nil, err
		}
	}

	if correlationID == "" {
		return nil, domain.NewPreconditionError("correlation id must not be empty")
	}
	if len(tokenIDs) == 0 && amount <= 0 {
		return nil, domain.NewPreconditionError("nothing to escrow")
	}
	if amount < 0 {
		return nil, domain.NewPreconditionError("amount must not be negative")
	}
	if hasDuplicates(tokenIDs) {
		return nil, domain.NewPreconditionError("duplicate token ids in batch")
	}

	record := &entity.EscrowRecord{
		CorrelationID: correlationID,
		From:          from,
		TokenIDs:      tokenIDs,
		Amount:        amount,
		State:         entity.EscrowReserved,
	}

	err := s.escrows.Transact(ctx, func(ctx context.Context) error {
		// Record first. A duplicate (correlationId, from), terminal or
		// not, conflicts here and nothing moves.
		if err := s.escrows.Create(ctx, record); err != nil {
			return err
		}

		for _, id := range tokenIDs {
			if err := s.nft.SafeTransferFrom(ctx, from, s.cfg.Custodian, id); err != nil {
				return fmt.Errorf("nft.SafeTransferFrom(%s): %w", id, err)
			}
		}

		if amount > 0 {
			if err := s.token.SafeTransferFrom(ctx, from, s.cfg.Custodian, amount); err != nil {
				return fmt.Errorf("token.SafeTransferFrom: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.EscrowTransitions.WithLabelValues(entity.EscrowReserved.String()).Inc()
	s.publish(ctx, event.EscrowReserved{
		CorrelationID: correlationID,
		From:          from,
		TokenIDs:      tokenIDs,
		Amount:        amount,
	})

	return record, nil
}

// Execute releases a reserved escrow forward: NFTs to the configured NFT
// receiver, the amount to the token receiver. The submitter may execute their
// own record; executing someone else's needs the transfer operator role.
func (s *Service) Execute(ctx context.Context, caller value.Address, correlationID string, from value.Address) error {
	return s.release(ctx, caller, correlationID, from, entity.EscrowExecuted)
}

// Revert releases a reserved escrow back to its submitter. Transfer-operator
// only; the submitter cannot revert their own escrow.
func (s *Service) Revert(ctx context.Context, caller value.Address, correlationID string, from value.Address) error {
	return s.release(ctx, caller, correlationID, from, entity.EscrowReverted)
}

func (s *Service) release(ctx context.Context, caller value.Address, correlationID string, from value.Address, to entity.EscrowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	if err := s.policy.RequireActive(ctx); err != nil {
		return err
	}

	// An owner may execute their own record; anything else, reverts
	// included, needs the transfer operator role.
	if to != entity.EscrowExecuted || caller != from {
		if err := s.policy.RequireRole(ctx, value.RoleTransferOperator, caller); err != nil {
			return err
		}
	}

	record, err := s.escrows.Get(ctx, correlationID, from)
	if err != nil {
		return fmt.Errorf("escrows.Get: %w", err)
	}
	if record.State.Terminal() {
		return domain.NewStateConflictError(fmt.Sprintf("escrow %s is already %s", correlationID, record.State))
	}

	nftTo := s.cfg.NFTReceiver
	tokenTo := s.cfg.TokenReceiver
	if to == entity.EscrowReverted {
		nftTo = record.From
		tokenTo = record.From
	}

	err = s.escrows.Transact(ctx, func(ctx context.Context) error {
		// Flip to the terminal state before moving anything out of
		// custody.
		if err := s.escrows.TransitionFromReserved(ctx, correlationID, from, to); err != nil {
			return err
		}

		for _, id := range record.TokenIDs {
			if err := s.nft.SafeTransferFrom(ctx, s.cfg.Custodian, nftTo, id); err != nil {
				return fmt.Errorf("nft.SafeTransferFrom(%s): %w", id, err)
			}
		}

		if record.Amount > 0 {
			if err := s.token.SafeTransferFrom(ctx, s.cfg.Custodian, tokenTo, record.Amount); err != nil {
				return fmt.Errorf("token.SafeTransferFrom: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	metrics.EscrowTransitions.WithLabelValues(to.String()).Inc()

	switch to {
	case entity.EscrowExecuted:
		s.publish(ctx, event.EscrowExecuted{CorrelationID: correlationID, From: from})
	case entity.EscrowReverted:
		s.publish(ctx, event.EscrowReverted{CorrelationID: correlationID, From: from})
	}

	return nil
}

// GetRecord returns the escrow stored under (correlationID, from), terminal
// ones included.
func (s *Service) GetRecord(ctx context.Context, correlationID string, from value.Address) (*entity.EscrowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return nil, err
	}

	record, err := s.escrows.Get(ctx, correlationID, from)
	if err != nil {
		return nil, fmt.Errorf("escrows.Get: %w", err)
	}

	return record, nil
}

// ListByState pages through records in the given state, oldest first.
func (s *Service) ListByState(ctx context.Context, state entity.EscrowState, limit, offset int) ([]entity.EscrowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return nil, err
	}

	records, err := s.escrows.List(ctx, state, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("escrows.List: %w", err)
	}

	return records, nil
}

func (s *Service) publish(ctx context.Context, e event.Event) {
	if err := s.bus.Publish(ctx, e); err != nil {
		logger(ctx).Error("bus.Publish", "event", e.EventName(), logx.Error(err))
	}
}

func hasDuplicates(ids []value.TokenID) bool {
	seen := make(map[value.TokenID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
