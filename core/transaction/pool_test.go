package transaction

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-labs/go-tessera/core/types"
)

func poolTx(id, from string, nonce uint64) *types.Transaction {
	return &types.Transaction{
		Id:       id,
		Hash:     id,
		From:     from,
		GasPrice: 1000,
		Nonce:    nonce,
	}
}

func TestPoolAddAndGet(t *testing.T) {
	p := NewPool(10, 1000)

	tx := poolTx("tx1", "0xaa", 0)
	require.NoError(t, p.Add(tx))

	got, ok := p.Get("tx1")
	require.True(t, ok)
	assert.Equal(t, tx, got)
	assert.Equal(t, 1, p.Size())
}

func TestPoolRejectsDuplicates(t *testing.T) {
	p := NewPool(10, 1000)

	require.NoError(t, p.Add(poolTx("tx1", "0xaa", 0)))
	err := p.Add(poolTx("tx1", "0xaa", 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in pool")
}

func TestPoolRejectsLowGasPrice(t *testing.T) {
	p := NewPool(10, 1000)

	tx := poolTx("tx1", "0xaa", 0)
	tx.GasPrice = 999
	assert.Error(t, p.Add(tx))
}

func TestPoolRejectsMissingId(t *testing.T) {
	p := NewPool(10, 1000)
	assert.Error(t, p.Add(nil))
	assert.Error(t, p.Add(poolTx("", "0xaa", 0)))
}

func TestPoolCapacity(t *testing.T) {
	p := NewPool(2, 1000)

	require.NoError(t, p.Add(poolTx("tx1", "0xaa", 0)))
	require.NoError(t, p.Add(poolTx("tx2", "0xaa", 1)))

	err := p.Add(poolTx("tx3", "0xaa", 2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool is full")
}

func TestPoolPendingForSortedByNonce(t *testing.T) {
	p := NewPool(10, 1000)

	// Inserted out of order on purpose.
	require.NoError(t, p.Add(poolTx("tx3", "0xaa", 3)))
	require.NoError(t, p.Add(poolTx("tx1", "0xaa", 1)))
	require.NoError(t, p.Add(poolTx("tx2", "0xaa", 2)))
	require.NoError(t, p.Add(poolTx("other", "0xbb", 0)))

	txs := p.PendingFor("0xaa")
	require.Len(t, txs, 3)
	assert.Equal(t, uint64(1), txs[0].Nonce)
	assert.Equal(t, uint64(2), txs[1].Nonce)
	assert.Equal(t, uint64(3), txs[2].Nonce)
}

func TestPoolRemove(t *testing.T) {
	p := NewPool(10, 1000)

	require.NoError(t, p.Add(poolTx("tx1", "0xaa", 0)))
	require.NoError(t, p.Add(poolTx("tx2", "0xaa", 1)))

	p.Remove("tx1")
	_, ok := p.Get("tx1")
	assert.False(t, ok)
	assert.Equal(t, 1, p.Size())
	assert.Len(t, p.PendingFor("0xaa"), 1)

	// Removing the last one clears the sender index.
	p.Remove("tx2")
	assert.Empty(t, p.PendingFor("0xaa"))

	// Unknown ids are a no-op.
	p.Remove("missing")
}

func TestPoolStats(t *testing.T) {
	p := NewPool(10, 1000)

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Add(poolTx(fmt.Sprintf("tx%d", i), "0xaa", uint64(i))))
	}
	p.Remove("tx0")

	stats := p.Stats()
	assert.Equal(t, 4, stats.PendingCount)
	assert.Equal(t, 1, stats.AddressCount)
	assert.Equal(t, int64(5), stats.TotalAdded)
	assert.Equal(t, int64(1), stats.TotalRemoved)
	assert.Equal(t, 10, stats.MaxCapacity)
	assert.Equal(t, int64(1000), stats.MinGasPrice)
}
