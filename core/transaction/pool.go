package transaction

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tessera-labs/go-tessera/core/types"
)

// Pool holds accepted transactions waiting for inclusion in a block.
// It is the single consumer of the gateway's transaction outbox.
type Pool struct {
	pending   map[string]*types.Transaction   // id -> tx
	byAddress map[string][]*types.Transaction // sender -> txs sorted by nonce

	maxTxs      int
	minGasPrice int64

	totalAdded   int64
	totalRemoved int64

	mu sync.RWMutex
}

// PoolStats summarizes pool contents for monitoring.
type PoolStats struct {
	PendingCount int   `json:"pending_count"`
	AddressCount int   `json:"address_count"`
	TotalAdded   int64 `json:"total_added"`
	TotalRemoved int64 `json:"total_removed"`
	MaxCapacity  int   `json:"max_capacity"`
	MinGasPrice  int64 `json:"min_gas_price"`
}

// NewPool creates a transaction pool.
func NewPool(maxTxs int, minGasPrice int64) *Pool {
	return &Pool{
		pending:     make(map[string]*types.Transaction),
		byAddress:   make(map[string][]*types.Transaction),
		maxTxs:      maxTxs,
		minGasPrice: minGasPrice,
	}
}

// Add inserts an accepted transaction.
func (p *Pool) Add(tx *types.Transaction) error {
	if tx == nil || tx.Id == "" {
		return fmt.Errorf("transaction must have an id")
	}
	if tx.GasPrice < p.minGasPrice {
		return fmt.Errorf("gas price %d below pool minimum %d", tx.GasPrice, p.minGasPrice)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.pending[tx.Id]; exists {
		return fmt.Errorf("transaction %s already in pool", tx.Id)
	}
	if len(p.pending) >= p.maxTxs {
		return fmt.Errorf("pool is full (%d transactions)", p.maxTxs)
	}

	p.pending[tx.Id] = tx
	p.byAddress[tx.From] = insertByNonce(p.byAddress[tx.From], tx)
	p.totalAdded++

	return nil
}

// Remove deletes a transaction by id, typically after block inclusion.
func (p *Pool) Remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tx, exists := p.pending[id]
	if !exists {
		return
	}

	delete(p.pending, id)
	p.totalRemoved++

	txs := p.byAddress[tx.From]
	for i, candidate := range txs {
		if candidate.Id == id {
			p.byAddress[tx.From] = append(txs[:i], txs[i+1:]...)
			break
		}
	}
	if len(p.byAddress[tx.From]) == 0 {
		delete(p.byAddress, tx.From)
	}
}

// Get returns a pending transaction by id.
func (p *Pool) Get(id string) (*types.Transaction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	tx, exists := p.pending[id]
	return tx, exists
}

// Pending returns all pending transactions.
func (p *Pool) Pending() []*types.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*types.Transaction, 0, len(p.pending))
	for _, tx := range p.pending {
		out = append(out, tx)
	}
	return out
}

// PendingFor returns the pending transactions of one sender, sorted by
// nonce.
func (p *Pool) PendingFor(addr string) []*types.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	txs := p.byAddress[addr]
	out := make([]*types.Transaction, len(txs))
	copy(out, txs)
	return out
}

// Size returns the number of pending transactions.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.pending)
}

// Stats returns pool statistics.
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return PoolStats{
		PendingCount: len(p.pending),
		AddressCount: len(p.byAddress),
		TotalAdded:   p.totalAdded,
		TotalRemoved: p.totalRemoved,
		MaxCapacity:  p.maxTxs,
		MinGasPrice:  p.minGasPrice,
	}
}

func insertByNonce(txs []*types.Transaction, tx *types.Transaction) []*types.Transaction {
	i := sort.Search(len(txs), func(i int) bool {
		return txs[i].Nonce >= tx.Nonce
	})
	txs = append(txs, nil)
	copy(txs[i+1:], txs[i:])
	txs[i] = tx
	return txs
}
