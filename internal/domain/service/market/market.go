package market

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/entity"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/event"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
	"github.com/Unagi-Games/evm-whitelabel/internal/metrics"
	"github.com/Unagi-Games/evm-whitelabel/pkg/contextx"
	"github.com/Unagi-Games/evm-whitelabel/pkg/errcodes"
	"github.com/Unagi-Games/evm-whitelabel/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// NFTLedger is the external non-fungible asset ledger.
type NFTLedger interface {
	OwnerOf(ctx context.Context, tokenID value.TokenID) (value.Address, error)
	GetApproved(ctx context.Context, tokenID value.TokenID) (value.Address, error)
	IsApprovedForAll(ctx context.Context, owner, operator value.Address) (bool, error)
	SafeTransferFrom(ctx context.Context, from, to value.Address, tokenID value.TokenID) error
}

// TokenLedger is the external fungible payment-token ledger.
type TokenLedger interface {
	BalanceOf(ctx context.Context, owner value.Address) (int64, error)
	Allowance(ctx context.Context, owner, spender value.Address) (int64, error)
	SafeTransferFrom(ctx context.Context, from, to value.Address, amount int64) error
	SafeTransfer(ctx context.Context, to value.Address, amount int64) error
}

type SaleRepository interface {
	Get(ctx context.Context, tokenID value.TokenID) (*entity.Sale, error)
	Put(ctx context.Context, sale *entity.Sale) error
	Delete(ctx context.Context, tokenID value.TokenID) error
	List(ctx context.Context, limit, offset int) ([]entity.Sale, error)
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
}

type Policy interface {
	Fees(ctx context.Context) (entity.FeePolicy, error)
	RequireActive(ctx context.Context) error
}

// Config arms an inert service. Operator is the marketplace's own identity on
// the asset ledgers (the address sellers approve and buyers grant allowance
// to); BurnSink receives burn shares.
type Config struct {
	Operator value.Address
	BurnSink value.Address
}

// Service is the sale ledger: at most one active sale per token id, and the
// atomic swap of NFT for payment-token shares on acceptance.
//
// Calls are serialized; within one call the sale record mutation always
// happens before any outbound ledger transfer, so a reentrant observer can
// never re-trigger the same settlement.
type Service struct {
	mu    sync.Mutex
	sales SaleRepository
	nft   NFTLedger
	token TokenLedger
	fees  Policy
	bus   event.Bus

	cfg         Config
	initialized bool
}

// New builds an inert service. It accepts no operation until Initialize.
func New(sales SaleRepository, nft NFTLedger, token TokenLedger, fees Policy, bus event.Bus) *Service {
	return &Service{
		sales: sales,
		nft:   nft,
		token: token,
		fees:  fees,
		bus:   bus,
	}
}

// Initialize arms the service exactly once.
func (s *Service) Initialize(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return domain.NewStateConflictError("marketplace already initialized")
	}

	if cfg.Operator.IsZero() {
		return domain.NewPreconditionError("operator address must not be zero")
	}

	if cfg.BurnSink.IsZero() {
		cfg.BurnSink = value.BurnAddress
	}

	s.cfg = cfg
	s.initialized = true

	return nil
}

func (s *Service) ready() error {
	if !s.initialized {
		return domain.NewStateConflictError("marketplace not initialized")
	}
	return nil
}

// Create lists tokenID for price, optionally reserving it for a single buyer.
func (s *Service) Create(ctx context.Context, caller, owner value.Address, tokenID value.TokenID, price int64, reserve value.Address) (*entity.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.fees.RequireActive(ctx); err != nil {
		return nil, err
	}

	if price <= 0 {
		return nil, domain.NewPreconditionError("price must be positive")
	}
	if !reserve.IsZero() && reserve == owner {
		return nil, domain.NewPreconditionError("reserve address must not be the owner")
	}

	if err := s.requireOwner(ctx, owner, tokenID); err != nil {
		return nil, err
	}
	if err := s.requireOwnerOrOperator(ctx, caller, owner); err != nil {
		return nil, err
	}

	held, err := s.approvalHeld(ctx, owner, tokenID)
	if err != nil {
		return nil, err
	}
	if !held {
		return nil, domain.NewPreconditionError("marketplace does not hold transfer approval for the token")
	}

	// Approval is held, so a surviving record means the sale is active.
	active, _, err := s.activeSale(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, domain.NewStateConflictError("an active sale already exists for the token")
	}

	sale := &entity.Sale{
		TokenID:       tokenID,
		Seller:        owner,
		Price:         price,
		ReservedBuyer: reserve,
	}

	if err := s.sales.Put(ctx, sale); err != nil {
		return nil, fmt.Errorf("sales.Put: %w", err)
	}

	metrics.SalesCreated.Inc()
	s.publish(ctx, event.SaleCreated{
		TokenID: tokenID,
		Price:   price,
		Seller:  owner,
		Reserve: reserve,
	})

	return sale, nil
}

// Update overwrites price and reservation of an active sale. Passing the zero
// address as reserve clears the reservation.
func (s *Service) Update(ctx context.Context, caller, owner value.Address, tokenID value.TokenID, price int64, reserve value.Address) (*entity.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.fees.RequireActive(ctx); err != nil {
		return nil, err
	}

	if price <= 0 {
		return nil, domain.NewPreconditionError("price must be positive")
	}
	if !reserve.IsZero() && reserve == owner {
		return nil, domain.NewPreconditionError("reserve address must not be the owner")
	}

	active, sale, err := s.activeSale(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, domain.NewStateConflictError("no active sale for the token")
	}

	if err := s.requireOwner(ctx, owner, tokenID); err != nil {
		return nil, err
	}
	if err := s.requireOwnerOrOperator(ctx, caller, owner); err != nil {
		return nil, err
	}

	sale.Price = price
	sale.ReservedBuyer = reserve
	sale.Seller = owner

	if err := s.sales.Put(ctx, sale); err != nil {
		return nil, fmt.Errorf("sales.Put: %w", err)
	}

	s.publish(ctx, event.SaleUpdated{
		TokenID: tokenID,
		Price:   price,
		Seller:  owner,
		Reserve: reserve,
	})

	return sale, nil
}

// Destroy removes an active sale without settlement.
func (s *Service) Destroy(ctx context.Context, caller, owner value.Address, tokenID value.TokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	if err := s.fees.RequireActive(ctx); err != nil {
		return err
	}

	active, _, err := s.activeSale(ctx, tokenID)
	if err != nil {
		return err
	}
	if !active {
		return domain.NewStateConflictError("no active sale for the token")
	}

	if err := s.requireOwner(ctx, owner, tokenID); err != nil {
		return err
	}
	if err := s.requireOwnerOrOperator(ctx, caller, owner); err != nil {
		return err
	}

	if err := s.sales.Delete(ctx, tokenID); err != nil {
		return fmt.Errorf("sales.Delete: %w", err)
	}

	metrics.SalesDestroyed.Inc()
	s.publish(ctx, event.SaleDestroyed{
		TokenID: tokenID,
		Seller:  owner,
	})

	return nil
}

// Receipt reports how one acceptance settled.
type Receipt struct {
	TokenID value.TokenID
	Price   int64
	Seller  value.Address
	Buyer   value.Address
	Split   entity.FeeSplit
}

// Accept settles an active sale: the caller pays price plus the buy fee and
// receiver obtains the NFT. The sale record is cleared before the first
// outbound transfer and the whole call either fully settles or leaves prior
// state untouched.
func (s *Service) Accept(ctx context.Context, caller value.Address, tokenID value.TokenID, expectedPrice int64, receiver value.Address) (*Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.fees.RequireActive(ctx); err != nil {
		return nil, err
	}

	if receiver.IsZero() {
		return nil, domain.NewPreconditionError("receiver must not be the zero address")
	}

	active, sale, err := s.activeSale(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, domain.NewStateConflictError("no active sale for the token")
	}

	if expectedPrice != sale.Price {
		return nil, domain.NewPriceMismatchError(fmt.Sprintf("expected price %d, sale price is %d", expectedPrice, sale.Price))
	}

	if !sale.OpenFor(receiver) {
		return nil, domain.NewAuthorizationError("sale is reserved for another buyer")
	}

	seller, err := s.nft.OwnerOf(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("nft.OwnerOf: %w", err)
	}

	policy, err := s.fees.Fees(ctx)
	if err != nil {
		return nil, err
	}
	split := entity.SplitPrice(sale.Price, policy)

	allowance, err := s.token.Allowance(ctx, caller, s.cfg.Operator)
	if err != nil {
		return nil, fmt.Errorf("token.Allowance: %w", err)
	}
	if allowance < split.BuyerTotal {
		return nil, domain.NewAuthorizationGapError(fmt.Sprintf("allowance %d is below buyer total %d", allowance, split.BuyerTotal))
	}

	err = s.sales.Transact(ctx, func(ctx context.Context) error {
		// Clear the record first: a reentrant acceptance of the same
		// sale must find nothing to accept.
		if err := s.sales.Delete(ctx, tokenID); err != nil {
			return fmt.Errorf("sales.Delete: %w", err)
		}

		if err := s.nft.SafeTransferFrom(ctx, seller, receiver, tokenID); err != nil {
			return fmt.Errorf("nft.SafeTransferFrom: %w", err)
		}

		if err := s.token.SafeTransferFrom(ctx, caller, seller, split.SellerShare); err != nil {
			return fmt.Errorf("token.SafeTransferFrom(seller): %w", err)
		}

		if split.FeeShare > 0 {
			if err := s.token.SafeTransferFrom(ctx, caller, policy.Receiver, split.FeeShare); err != nil {
				return fmt.Errorf("token.SafeTransferFrom(fee receiver): %w", err)
			}
		}

		if split.BurnShare > 0 {
			if err := s.token.SafeTransferFrom(ctx, caller, s.cfg.BurnSink, split.BurnShare); err != nil {
				return fmt.Errorf("token.SafeTransferFrom(burn sink): %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SalesAccepted.Inc()
	metrics.SettledVolume.Add(float64(sale.Price))
	s.publish(ctx, event.SaleAccepted{
		TokenID: tokenID,
		Price:   sale.Price,
		Seller:  seller,
		Buyer:   receiver,
	})

	return &Receipt{
		TokenID: tokenID,
		Price:   sale.Price,
		Seller:  seller,
		Buyer:   receiver,
		Split:   split,
	}, nil
}

// SaleQuote is the query view of one token's sale. A stored record whose
// approval has been revoked deliberately reads as an inactive zero-price
// quote: downstream integrations depend on stale records looking like "no
// sale" without being purged.
type SaleQuote struct {
	TokenID       value.TokenID
	Active        bool
	Price         int64
	BuyerPrice    int64
	Seller        value.Address
	ReservedBuyer value.Address
}

// Quote reports the current sale state of tokenID, applying the same
// approval gate as create and accept.
func (s *Service) Quote(ctx context.Context, tokenID value.TokenID) (*SaleQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return nil, err
	}

	active, sale, err := s.activeSale(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	if !active {
		return &SaleQuote{TokenID: tokenID}, nil
	}

	policy, err := s.fees.Fees(ctx)
	if err != nil {
		return nil, err
	}
	split := entity.SplitPrice(sale.Price, policy)

	return &SaleQuote{
		TokenID:       tokenID,
		Active:        true,
		Price:         sale.Price,
		BuyerPrice:    split.BuyerTotal,
		Seller:        sale.Seller,
		ReservedBuyer: sale.ReservedBuyer,
	}, nil
}

// IsSaleActive reports whether a sale record exists and the marketplace still
// holds transfer approval for the token.
func (s *Service) IsSaleActive(ctx context.Context, tokenID value.TokenID) (bool, error) {
	quote, err := s.Quote(ctx, tokenID)
	if err != nil {
		return false, err
	}
	return quote.Active, nil
}

// ReservationOpenFor reports whether buyer may accept the sale: the sale is
// active and either unreserved or reserved for that buyer.
func (s *Service) ReservationOpenFor(ctx context.Context, tokenID value.TokenID, buyer value.Address) (bool, error) {
	quote, err := s.Quote(ctx, tokenID)
	if err != nil {
		return false, err
	}
	if !quote.Active {
		return false, nil
	}
	return quote.ReservedBuyer.IsZero() || quote.ReservedBuyer == buyer, nil
}

// BuyerPrice returns price plus the current buy fee share, zero when no
// active sale exists.
func (s *Service) BuyerPrice(ctx context.Context, tokenID value.TokenID) (int64, error) {
	quote, err := s.Quote(ctx, tokenID)
	if err != nil {
		return 0, err
	}
	return quote.BuyerPrice, nil
}

// activeSale loads the record and applies the approval gate. The record can
// survive an approval revocation; it then counts as no sale.
func (s *Service) activeSale(ctx context.Context, tokenID value.TokenID) (bool, *entity.Sale, error) {
	sale, err := s.sales.Get(ctx, tokenID)
	if err != nil {
		if isNotFound(err) {
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("sales.Get: %w", err)
	}

	if sale.Price <= 0 {
		return false, sale, nil
	}

	owner, err := s.nft.OwnerOf(ctx, tokenID)
	if err != nil {
		return false, nil, fmt.Errorf("nft.OwnerOf: %w", err)
	}

	held, err := s.approvalHeld(ctx, owner, tokenID)
	if err != nil {
		return false, nil, err
	}

	return held, sale, nil
}

func (s *Service) approvalHeld(ctx context.Context, owner value.Address, tokenID value.TokenID) (bool, error) {
	approved, err := s.nft.GetApproved(ctx, tokenID)
	if err != nil {
		return false, fmt.Errorf("nft.GetApproved: %w", err)
	}
	if approved == s.cfg.Operator {
		return true, nil
	}

	all, err := s.nft.IsApprovedForAll(ctx, owner, s.cfg.Operator)
	if err != nil {
		return false, fmt.Errorf("nft.IsApprovedForAll: %w", err)
	}

	return all, nil
}

func (s *Service) requireOwner(ctx context.Context, owner value.Address, tokenID value.TokenID) error {
	current, err := s.nft.OwnerOf(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("nft.OwnerOf: %w", err)
	}

	if current != owner {
		return domain.NewPreconditionError(fmt.Sprintf("%s does not own token %s", owner, tokenID))
	}

	return nil
}

func (s *Service) requireOwnerOrOperator(ctx context.Context, caller, owner value.Address) error {
	if caller == owner {
		return nil
	}

	approved, err := s.nft.IsApprovedForAll(ctx, owner, caller)
	if err != nil {
		return fmt.Errorf("nft.IsApprovedForAll: %w", err)
	}
	if !approved {
		return domain.NewAuthorizationError("caller is neither the owner nor an approved operator")
	}

	return nil
}

func (s *Service) publish(ctx context.Context, e event.Event) {
	if err := s.bus.Publish(ctx, e); err != nil {
		logger(ctx).Error("bus.Publish", "event", e.EventName(), logx.Error(err))
	}
}

func isNotFound(err error) bool {
	var appErr *domain.AppError
	return errors.As(err, &appErr) && appErr.Kind == errcodes.KindNotFound
}
