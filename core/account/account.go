// Package account manages the in-memory account set of the ledger:
// balance and nonce bookkeeping, genesis account creation and address
// validation used by transaction acceptance.
package account

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tessera-labs/go-tessera/core/types"
	"github.com/tessera-labs/go-tessera/crypto/address"
)

// Manager holds the live account set.
type Manager struct {
	accounts map[string]*types.Account
	mu       sync.RWMutex
}

// NewManager creates an empty account manager.
func NewManager() *Manager {
	return &Manager{
		accounts: make(map[string]*types.Account),
	}
}

// ValidateAddress checks the 0x account address format.
func ValidateAddress(addr string) error {
	return address.Validate(addr)
}

// Normalize lowercases an address for consistent map keys.
func Normalize(addr string) string {
	return strings.ToLower(addr)
}

// CreateGenesisAccount seeds the initial supply into one account.
func (m *Manager) CreateGenesisAccount(addr string, supply int64) error {
	if err := ValidateAddress(addr); err != nil {
		return fmt.Errorf("invalid genesis address: %w", err)
	}
	if supply < 0 {
		return fmt.Errorf("genesis supply cannot be negative: %d", supply)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	addr = Normalize(addr)
	if _, exists := m.accounts[addr]; exists {
		return fmt.Errorf("genesis account %s already exists", addr)
	}

	m.accounts[addr] = &types.Account{
		Address: addr,
		Balance: supply,
	}
	return nil
}

// GetAccount retrieves an account. Unknown addresses yield a fresh
// zero-balance account without creating it.
func (m *Manager) GetAccount(addr string) (*types.Account, error) {
	if err := ValidateAddress(addr); err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if acc, exists := m.accounts[Normalize(addr)]; exists {
		return cloneAccount(acc), nil
	}
	return &types.Account{Address: Normalize(addr)}, nil
}

// GetBalance returns the balance of an account.
func (m *Manager) GetBalance(addr string) (int64, error) {
	acc, err := m.GetAccount(addr)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// GetNonce returns the nonce of an account.
func (m *Manager) GetNonce(addr string) (uint64, error) {
	acc, err := m.GetAccount(addr)
	if err != nil {
		return 0, err
	}
	return acc.Nonce, nil
}

// UpdateAccount stores the given account record.
func (m *Manager) UpdateAccount(acc *types.Account) error {
	if acc == nil {
		return fmt.Errorf("account cannot be nil")
	}
	if err := ValidateAddress(acc.Address); err != nil {
		return fmt.Errorf("invalid account address: %w", err)
	}
	if acc.Balance < 0 {
		return fmt.Errorf("account %s balance cannot be negative: %d", acc.Address, acc.Balance)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.accounts[Normalize(acc.Address)] = cloneAccount(acc)
	return nil
}

// GetAllAccounts returns a copy of the account set.
func (m *Manager) GetAllAccounts() map[string]*types.Account {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]*types.Account, len(m.accounts))
	for addr, acc := range m.accounts {
		out[addr] = cloneAccount(acc)
	}
	return out
}

// Count returns the number of known accounts.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}

func cloneAccount(acc *types.Account) *types.Account {
	cp := *acc
	return &cp
}
