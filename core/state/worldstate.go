// Package state holds the replicated ledger view of a Tessera peer.
//
// WorldState is the single shared, lock-guarded snapshot the ingress
// gateway executes read-only queries against. Mutation happens only on
// the block path (the consensus side); the gateway itself never writes.
package state

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tessera-labs/go-tessera/core/account"
	"github.com/tessera-labs/go-tessera/core/types"
	"github.com/tessera-labs/go-tessera/crypto/hash"
)

// Persister is the slice of the storage layer WorldState writes through
// to. Satisfied by storage.StateStorage.
type Persister interface {
	SaveAccount(acc *types.Account) error
	SaveValidator(v *types.Validator) error
	SaveHeight(height int64) error
	SaveStateRoot(stateRoot string) error
	SaveBlock(b *types.Block) error
}

// WorldState manages the ledger state of the node.
type WorldState struct {
	accounts *account.Manager

	blocks      []*types.Block
	currentHash string
	height      int64

	validators map[string]*types.Validator

	totalSupply   int64
	lastTimestamp int64

	stateRoot string

	persist Persister // optional

	mu sync.RWMutex
}

// NewWorldState creates an empty world state.
func NewWorldState() *WorldState {
	return &WorldState{
		accounts:      account.NewManager(),
		blocks:        make([]*types.Block, 0),
		validators:    make(map[string]*types.Validator),
		lastTimestamp: time.Now().Unix(),
	}
}

// SetPersister attaches a storage backend. Subsequent block additions
// write state through to it.
func (ws *WorldState) SetPersister(p Persister) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.persist = p
}

// InitializeGenesis seeds the genesis account and validator set.
func (ws *WorldState) InitializeGenesis(genesisAccount string, initialSupply int64, genesisValidators []*types.Validator) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if err := ws.accounts.CreateGenesisAccount(genesisAccount, initialSupply); err != nil {
		return fmt.Errorf("failed to create genesis account: %w", err)
	}

	for _, v := range genesisValidators {
		if err := ws.addValidator(v); err != nil {
			return fmt.Errorf("failed to add genesis validator %s: %w", v.Address, err)
		}
	}

	ws.totalSupply = initialSupply
	ws.height = 0
	ws.updateStateRoot()

	return nil
}

// AddBlock appends a block and applies its transactions.
func (ws *WorldState) AddBlock(block *types.Block) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if err := ws.validateBlockForAddition(block); err != nil {
		return fmt.Errorf("block validation failed: %w", err)
	}

	for _, tx := range block.Transactions {
		if err := ws.applyTransaction(tx); err != nil {
			return fmt.Errorf("failed to apply transaction %s: %w", tx.Id, err)
		}
	}

	ws.blocks = append(ws.blocks, block)
	ws.currentHash = block.Hash
	ws.height = block.Header.Index
	ws.lastTimestamp = block.Header.Timestamp

	ws.updateStateRoot()
	block.Header.StateRoot = ws.stateRoot

	if ws.persist != nil {
		if err := ws.persistState(block); err != nil {
			return fmt.Errorf("failed to persist state at height %d: %w", ws.height, err)
		}
	}

	return nil
}

// GetAccount retrieves an account by address.
func (ws *WorldState) GetAccount(address string) (*types.Account, error) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.accounts.GetAccount(address)
}

// GetBalance returns the balance of an account.
func (ws *WorldState) GetBalance(address string) (int64, error) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.accounts.GetBalance(address)
}

// GetNonce returns the nonce of an account.
func (ws *WorldState) GetNonce(address string) (uint64, error) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.accounts.GetNonce(address)
}

// GetCurrentBlock returns the latest block, or nil before genesis.
func (ws *WorldState) GetCurrentBlock() *types.Block {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	if len(ws.blocks) == 0 {
		return nil
	}
	return ws.blocks[len(ws.blocks)-1]
}

// GetBlock returns a block by index.
func (ws *WorldState) GetBlock(index int64) (*types.Block, error) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	if index < 0 || index >= int64(len(ws.blocks)) {
		return nil, fmt.Errorf("block index %d out of range", index)
	}
	return ws.blocks[index], nil
}

// GetBlockByHash returns a block by hash.
func (ws *WorldState) GetBlockByHash(h string) (*types.Block, error) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	for _, block := range ws.blocks {
		if block.Hash == h {
			return block, nil
		}
	}
	return nil, fmt.Errorf("block with hash %s not found", h)
}

// GetHeight returns the current chain height.
func (ws *WorldState) GetHeight() int64 {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.height
}

// GetStateRoot returns the current state root.
func (ws *WorldState) GetStateRoot() string {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.stateRoot
}

// AddValidator adds a validator to the state.
func (ws *WorldState) AddValidator(v *types.Validator) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.addValidator(v)
}

// GetValidator returns a validator by address.
func (ws *WorldState) GetValidator(address string) (*types.Validator, error) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	v, exists := ws.validators[address]
	if !exists {
		return nil, fmt.Errorf("validator %s not found", address)
	}
	return v, nil
}

// GetActiveValidators returns all active validators.
func (ws *WorldState) GetActiveValidators() []*types.Validator {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	var active []*types.Validator
	for _, v := range ws.validators {
		if v.Active {
			active = append(active, v)
		}
	}
	return active
}

// GetTotalSupply returns the total supply of tokens.
func (ws *WorldState) GetTotalSupply() int64 {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.totalSupply
}

// GetStatus returns a status summary of the world state.
func (ws *WorldState) GetStatus() map[string]interface{} {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	return map[string]interface{}{
		"height":          ws.height,
		"current_hash":    ws.currentHash,
		"state_root":      ws.stateRoot,
		"total_supply":    ws.totalSupply,
		"block_count":     len(ws.blocks),
		"account_count":   ws.accounts.Count(),
		"validator_count": len(ws.validators),
		"last_timestamp":  ws.lastTimestamp,
	}
}

// validateBlockForAddition checks chain continuity. Caller holds lock.
func (ws *WorldState) validateBlockForAddition(block *types.Block) error {
	if block == nil || block.Header == nil {
		return fmt.Errorf("block and its header cannot be nil")
	}

	if len(ws.blocks) == 0 {
		if block.Header.Index != 0 {
			return fmt.Errorf("first block must be genesis (index 0), got %d", block.Header.Index)
		}
		if block.Header.PrevHash != "" {
			return fmt.Errorf("genesis block must have empty previous hash")
		}
		return nil
	}

	current := ws.blocks[len(ws.blocks)-1]

	if block.Header.Index != current.Header.Index+1 {
		return fmt.Errorf("invalid block index: expected %d, got %d",
			current.Header.Index+1, block.Header.Index)
	}
	if block.Header.PrevHash != current.Hash {
		return fmt.Errorf("invalid previous hash: expected %s, got %s",
			current.Hash, block.Header.PrevHash)
	}
	if block.Header.Timestamp <= current.Header.Timestamp {
		return fmt.Errorf("block timestamp must be greater than previous block")
	}

	return nil
}

// applyTransaction moves value and bumps the sender nonce. Caller
// holds lock.
func (ws *WorldState) applyTransaction(tx *types.Transaction) error {
	sender, err := ws.accounts.GetAccount(tx.From)
	if err != nil {
		return fmt.Errorf("failed to get sender account: %w", err)
	}

	fee := tx.Gas * tx.GasPrice
	total := tx.Amount + fee
	if sender.Balance < total {
		return fmt.Errorf("insufficient balance: have %d, need %d", sender.Balance, total)
	}
	if sender.Nonce != tx.Nonce {
		return fmt.Errorf("invalid nonce: expected %d, got %d", sender.Nonce, tx.Nonce)
	}

	sender.Balance -= total
	sender.Nonce++
	if err := ws.accounts.UpdateAccount(sender); err != nil {
		return fmt.Errorf("failed to update sender account: %w", err)
	}

	if tx.To != "" {
		recipient, err := ws.accounts.GetAccount(tx.To)
		if err != nil {
			return fmt.Errorf("failed to get recipient account: %w", err)
		}
		recipient.Balance += tx.Amount
		if err := ws.accounts.UpdateAccount(recipient); err != nil {
			return fmt.Errorf("failed to update recipient account: %w", err)
		}
	}

	return nil
}

// addValidator adds a validator. Caller holds lock.
func (ws *WorldState) addValidator(v *types.Validator) error {
	if v == nil {
		return fmt.Errorf("validator cannot be nil")
	}
	if v.Address == "" {
		return fmt.Errorf("validator address cannot be empty")
	}
	if len(v.Pubkey) == 0 {
		return fmt.Errorf("validator public key cannot be empty")
	}
	if v.Stake < 0 {
		return fmt.Errorf("validator stake cannot be negative")
	}
	if _, exists := ws.validators[v.Address]; exists {
		return fmt.Errorf("validator %s already exists", v.Address)
	}

	ws.validators[v.Address] = v
	return nil
}

// updateStateRoot recomputes the Blake2b state root over the sorted
// account and validator sets. Caller holds lock.
func (ws *WorldState) updateStateRoot() {
	var stateData []byte

	accounts := ws.accounts.GetAllAccounts()
	addresses := make([]string, 0, len(accounts))
	for addr := range accounts {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	u64 := func(v uint64) []byte {
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, v)
		return b
	}

	for _, addr := range addresses {
		acc := accounts[addr]
		stateData = append(stateData, []byte(acc.Address)...)
		stateData = append(stateData, u64(uint64(acc.Balance))...)
		stateData = append(stateData, u64(acc.Nonce)...)
		stateData = append(stateData, u64(uint64(acc.StakedAmount))...)
		stateData = append(stateData, u64(uint64(acc.Rewards))...)
	}

	validatorAddresses := make([]string, 0, len(ws.validators))
	for addr := range ws.validators {
		validatorAddresses = append(validatorAddresses, addr)
	}
	sort.Strings(validatorAddresses)

	for _, addr := range validatorAddresses {
		v := ws.validators[addr]
		stateData = append(stateData, []byte(v.Address)...)
		stateData = append(stateData, v.Pubkey...)
		stateData = append(stateData, u64(uint64(v.Stake))...)
		if v.Active {
			stateData = append(stateData, 1)
		} else {
			stateData = append(stateData, 0)
		}
	}

	ws.stateRoot = hash.NewHash(stateData).String()
}

// persistState writes the post-block state through to storage. Caller
// holds lock.
func (ws *WorldState) persistState(block *types.Block) error {
	if err := ws.persist.SaveBlock(block); err != nil {
		return err
	}
	for _, acc := range ws.accounts.GetAllAccounts() {
		if err := ws.persist.SaveAccount(acc); err != nil {
			return err
		}
	}
	for _, v := range ws.validators {
		if err := ws.persist.SaveValidator(v); err != nil {
			return err
		}
	}
	if err := ws.persist.SaveHeight(ws.height); err != nil {
		return err
	}
	return ws.persist.SaveStateRoot(ws.stateRoot)
}
