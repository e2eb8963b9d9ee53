package storage

import (
	"fmt"

	"github.com/tessera-labs/go-tessera/core/types"
)

// StateStorage persists mutable ledger state: accounts, validators,
// the current height and the state root.
type StateStorage struct {
	storage Storage
}

// NewStateStorage creates a state storage handler over an open store.
func NewStateStorage(storage Storage) *StateStorage {
	return &StateStorage{storage: storage}
}

func (ss *StateStorage) SaveAccount(account *types.Account) error {
	data, err := types.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to encode account: %w", err)
	}
	return ss.storage.Set(AccountKey(account.Address), data)
}

// GetAccount returns nil, nil when the account has never been stored.
func (ss *StateStorage) GetAccount(address string) (*types.Account, error) {
	data, err := ss.storage.Get(AccountKey(address))
	if err != nil {
		if err == ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var account types.Account
	if err := types.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	return &account, nil
}

func (ss *StateStorage) SaveValidator(validator *types.Validator) error {
	data, err := types.Marshal(validator)
	if err != nil {
		return fmt.Errorf("failed to encode validator: %w", err)
	}
	return ss.storage.Set(ValidatorKey(validator.Address), data)
}

func (ss *StateStorage) GetValidator(address string) (*types.Validator, error) {
	data, err := ss.storage.Get(ValidatorKey(address))
	if err != nil {
		if err == ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var validator types.Validator
	if err := types.Unmarshal(data, &validator); err != nil {
		return nil, fmt.Errorf("failed to decode validator: %w", err)
	}
	return &validator, nil
}

func (ss *StateStorage) GetAllAccounts() (map[string]*types.Account, error) {
	accounts := make(map[string]*types.Account)

	iter := ss.storage.Iterator([]byte(AccountPrefix))
	defer iter.Close()

	for iter.Next() {
		var account types.Account
		if err := types.Unmarshal(iter.Value(), &account); err != nil {
			return nil, fmt.Errorf("failed to decode stored account %q: %w", iter.Key(), err)
		}
		accounts[account.Address] = &account
	}
	return accounts, nil
}

func (ss *StateStorage) GetAllValidators() (map[string]*types.Validator, error) {
	validators := make(map[string]*types.Validator)

	iter := ss.storage.Iterator([]byte(ValidatorPrefix))
	defer iter.Close()

	for iter.Next() {
		var validator types.Validator
		if err := types.Unmarshal(iter.Value(), &validator); err != nil {
			return nil, fmt.Errorf("failed to decode stored validator %q: %w", iter.Key(), err)
		}
		validators[validator.Address] = &validator
	}
	return validators, nil
}

func (ss *StateStorage) SaveHeight(height int64) error {
	return ss.storage.Set(HeightKey(), []byte(fmt.Sprintf("%d", height)))
}

// GetHeight returns -1 when nothing has been committed yet.
func (ss *StateStorage) GetHeight() (int64, error) {
	data, err := ss.storage.Get(HeightKey())
	if err != nil {
		if err == ErrKeyNotFound {
			return -1, nil
		}
		return 0, err
	}

	var height int64
	if _, err := fmt.Sscanf(string(data), "%d", &height); err != nil {
		return 0, fmt.Errorf("failed to parse stored height: %w", err)
	}
	return height, nil
}

func (ss *StateStorage) SaveStateRoot(stateRoot string) error {
	return ss.storage.Set(StateRootKey(), []byte(stateRoot))
}

func (ss *StateStorage) GetStateRoot() (string, error) {
	data, err := ss.storage.Get(StateRootKey())
	if err != nil {
		if err == ErrKeyNotFound {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}
