package policy

import (
	"context"
	"fmt"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/entity"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/event"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
	"github.com/Unagi-Games/evm-whitelabel/pkg/contextx"
	"github.com/Unagi-Games/evm-whitelabel/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const maxPercent = 100

type Repository interface {
	GetPolicy(ctx context.Context) (*entity.FeePolicy, error)
	UpdateFees(ctx context.Context, sellPercent, buyPercent, burnPercent int64) error
	UpdateReceiver(ctx context.Context, receiver value.Address) error
	SetPaused(ctx context.Context, paused bool) error
	HasRole(ctx context.Context, role value.Role, addr value.Address) (bool, error)
}

// Service exposes the fee policy and capability checks consulted by the sale
// ledger and the escrow relay. Every read goes straight to storage: a
// capability revoked between two calls blocks the second one immediately.
type Service struct {
	repo Repository
	bus  event.Bus
}

func NewService(repo Repository, bus event.Bus) *Service {
	return &Service{
		repo: repo,
		bus:  bus,
	}
}

func (s *Service) Fees(ctx context.Context) (entity.FeePolicy, error) {
	policy, err := s.repo.GetPolicy(ctx)
	if err != nil {
		return entity.FeePolicy{}, fmt.Errorf("repo.GetPolicy: %w", err)
	}

	return *policy, nil
}

func (s *Service) HasRole(ctx context.Context, role value.Role, addr value.Address) (bool, error) {
	ok, err := s.repo.HasRole(ctx, role, addr)
	if err != nil {
		return false, fmt.Errorf("repo.HasRole: %w", err)
	}

	return ok, nil
}

// RequireRole rejects with AuthorizationError unless addr holds role at this
// very moment.
func (s *Service) RequireRole(ctx context.Context, role value.Role, addr value.Address) error {
	ok, err := s.HasRole(ctx, role, addr)
	if err != nil {
		return err
	}

	if !ok {
		return domain.NewAuthorizationError(fmt.Sprintf("caller %s does not hold role %s", addr, role))
	}

	return nil
}

// RequireActive rejects every state-mutating operation while the system is
// paused.
func (s *Service) RequireActive(ctx context.Context) error {
	policy, err := s.repo.GetPolicy(ctx)
	if err != nil {
		return fmt.Errorf("repo.GetPolicy: %w", err)
	}

	if policy.Paused {
		return domain.NewStateConflictError("settlement is paused")
	}

	return nil
}

// SetFees overwrites the fee triple. sell + burn may never exceed 100; the
// buy fee only has to stay inside its own range since the buyer pays it on
// top of the price.
func (s *Service) SetFees(ctx context.Context, caller value.Address, sellPercent, buyPercent, burnPercent int64) error {
	if err := s.RequireRole(ctx, value.RoleFeeManager, caller); err != nil {
		return err
	}

	for _, pct := range []int64{sellPercent, buyPercent, burnPercent} {
		if pct < 0 || pct > maxPercent {
			return domain.NewPreconditionError("fee percent out of range [0,100]")
		}
	}

	if sellPercent+burnPercent > maxPercent {
		return domain.NewPreconditionError("sell and burn fees exceed 100 percent")
	}

	if err := s.repo.UpdateFees(ctx, sellPercent, buyPercent, burnPercent); err != nil {
		return fmt.Errorf("repo.UpdateFees: %w", err)
	}

	s.publish(ctx, event.FeesUpdated{
		SellPercent: sellPercent,
		BuyPercent:  buyPercent,
		BurnPercent: burnPercent,
	})

	return nil
}

func (s *Service) SetFeeReceiver(ctx context.Context, caller, receiver value.Address) error {
	if err := s.RequireRole(ctx, value.RoleFeeManager, caller); err != nil {
		return err
	}

	if receiver.IsZero() {
		return domain.NewPreconditionError("fee receiver must not be the zero address")
	}

	if err := s.repo.UpdateReceiver(ctx, receiver); err != nil {
		return fmt.Errorf("repo.UpdateReceiver: %w", err)
	}

	s.publish(ctx, event.FeeReceiverUpdated{Address: receiver})

	return nil
}

func (s *Service) SetPaused(ctx context.Context, caller value.Address, paused bool) error {
	if err := s.RequireRole(ctx, value.RolePauser, caller); err != nil {
		return err
	}

	if err := s.repo.SetPaused(ctx, paused); err != nil {
		return fmt.Errorf("repo.SetPaused: %w", err)
	}

	return nil
}

func (s *Service) publish(ctx context.Context, e event.Event) {
	if err := s.bus.Publish(ctx, e); err != nil {
		logger(ctx).Error("bus.Publish", "event", e.EventName(), logx.Error(err))
	}
}
