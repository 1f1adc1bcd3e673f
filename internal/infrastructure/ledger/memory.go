package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
)

// MemoryLedger is an in-process stand-in for both asset ledgers, used in
// tests and local development. It enforces the same custody rules as the real
// gateways: ownership on NFT moves, balances and allowances on token moves.
// The configured operator moves third-party assets only against an approval
// or allowance; its own assets move freely.
//
// The NFT and Token views expose the two ledger interfaces over the shared
// state.
type MemoryLedger struct {
	mu       sync.Mutex
	operator value.Address

	owners      map[value.TokenID]value.Address
	approved    map[value.TokenID]value.Address
	operatorAll map[value.Address]map[value.Address]bool
	balances    map[value.Address]int64
	allowances  map[value.Address]map[value.Address]int64
}

func NewMemoryLedger(operator value.Address) *MemoryLedger {
	return &MemoryLedger{
		operator:    operator,
		owners:      make(map[value.TokenID]value.Address),
		approved:    make(map[value.TokenID]value.Address),
		operatorAll: make(map[value.Address]map[value.Address]bool),
		balances:    make(map[value.Address]int64),
		allowances:  make(map[value.Address]map[value.Address]int64),
	}
}

func (m *MemoryLedger) NFT() *MemoryNFT {
	return &MemoryNFT{ledger: m}
}

func (m *MemoryLedger) Token() *MemoryToken {
	return &MemoryToken{ledger: m}
}

// Mint assigns tokenID to owner.
func (m *MemoryLedger) Mint(owner value.Address, tokenID value.TokenID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[tokenID] = owner
}

// Approve grants spender the per-token transfer approval.
func (m *MemoryLedger) Approve(spender value.Address, tokenID value.TokenID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approved[tokenID] = spender
}

// RevokeApproval clears the per-token approval.
func (m *MemoryLedger) RevokeApproval(tokenID value.TokenID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.approved, tokenID)
}

// SetApprovalForAll grants or revokes operator rights over all of owner's
// tokens.
func (m *MemoryLedger) SetApprovalForAll(owner, operator value.Address, approved bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.operatorAll[owner] == nil {
		m.operatorAll[owner] = make(map[value.Address]bool)
	}
	m.operatorAll[owner][operator] = approved
}

// SetBalance overwrites owner's fungible balance.
func (m *MemoryLedger) SetBalance(owner value.Address, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[owner] = amount
}

// SetAllowance overwrites spender's allowance over owner's balance.
func (m *MemoryLedger) SetAllowance(owner, spender value.Address, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.allowances[owner] == nil {
		m.allowances[owner] = make(map[value.Address]int64)
	}
	m.allowances[owner][spender] = amount
}

// MemoryNFT is the non-fungible view of a MemoryLedger.
type MemoryNFT struct {
	ledger *MemoryLedger
}

func (v *MemoryNFT) OwnerOf(_ context.Context, tokenID value.TokenID) (value.Address, error) {
	m := v.ledger
	m.mu.Lock()
	defer m.mu.Unlock()

	owner, ok := m.owners[tokenID]
	if !ok {
		return value.ZeroAddress, domain.NewPreconditionError(fmt.Sprintf("token %s does not exist", tokenID))
	}

	return owner, nil
}

func (v *MemoryNFT) GetApproved(_ context.Context, tokenID value.TokenID) (value.Address, error) {
	m := v.ledger
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.approved[tokenID], nil
}

func (v *MemoryNFT) IsApprovedForAll(_ context.Context, owner, operator value.Address) (bool, error) {
	m := v.ledger
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.operatorAll[owner][operator], nil
}

func (v *MemoryNFT) SafeTransferFrom(_ context.Context, from, to value.Address, tokenID value.TokenID) error {
	m := v.ledger
	m.mu.Lock()
	defer m.mu.Unlock()

	owner, ok := m.owners[tokenID]
	if !ok {
		return domain.NewPreconditionError(fmt.Sprintf("token %s does not exist", tokenID))
	}
	if owner != from {
		return domain.NewPreconditionError(fmt.Sprintf("%s does not own token %s", from, tokenID))
	}

	if from != m.operator {
		held := m.approved[tokenID] == m.operator || m.operatorAll[from][m.operator]
		if !held {
			return domain.NewAuthorizationGapError(fmt.Sprintf("no transfer approval for token %s", tokenID))
		}
	}

	m.owners[tokenID] = to
	delete(m.approved, tokenID)

	return nil
}

// MemoryToken is the fungible view of a MemoryLedger.
type MemoryToken struct {
	ledger *MemoryLedger
}

func (v *MemoryToken) BalanceOf(_ context.Context, owner value.Address) (int64, error) {
	m := v.ledger
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[owner], nil
}

func (v *MemoryToken) Allowance(_ context.Context, owner, spender value.Address) (int64, error) {
	m := v.ledger
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowances[owner][spender], nil
}

func (v *MemoryToken) SafeTransferFrom(_ context.Context, from, to value.Address, amount int64) error {
	m := v.ledger
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.balances[from] < amount {
		return domain.NewPreconditionError(fmt.Sprintf("balance of %s is below %d", from, amount))
	}

	if from != m.operator {
		if m.allowances[from][m.operator] < amount {
			return domain.NewAuthorizationGapError(fmt.Sprintf("allowance of %s is below %d", from, amount))
		}
		m.allowances[from][m.operator] -= amount
	}

	m.balances[from] -= amount
	m.balances[to] += amount

	return nil
}

func (v *MemoryToken) SafeTransfer(ctx context.Context, to value.Address, amount int64) error {
	return v.SafeTransferFrom(ctx, v.ledger.operator, to, amount)
}
