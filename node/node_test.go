package node

import (
	"crypto/sha256"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-labs/go-tessera/config"
	"github.com/tessera-labs/go-tessera/core/transaction"
	"github.com/tessera-labs/go-tessera/core/types"
	"github.com/tessera-labs/go-tessera/crypto"
	"github.com/tessera-labs/go-tessera/crypto/address"
)

// newTestNode builds an unstarted peer over a throwaway data dir with
// p2p and the REST API disabled. The key's address is the genesis
// account so its transactions are spendable.
func newTestNode(t *testing.T, key crypto.PrivateKey) *Node {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.DataDir = t.TempDir()
	cfg.Gateway.ListenAddr = "127.0.0.1:0"
	cfg.Network.EnableP2P = false
	cfg.API.EnableAPI = false

	sender, err := address.Generate(key.PublicKey().Bytes())
	require.NoError(t, err)

	n, err := NewNode(&NodeConfig{
		Config:         cfg,
		PrivateKey:     key,
		GenesisAccount: sender,
		GenesisSupply:  1_000_000_000,
	})
	require.NoError(t, err)
	t.Cleanup(func() { n.store.Close() })

	return n
}

func testNodeKey(t *testing.T, label string) crypto.PrivateKey {
	t.Helper()
	seed := sha256.Sum256([]byte(label))
	key, err := crypto.NewPrivateKeyFromSeed(seed[:])
	require.NoError(t, err)
	return key
}

func TestApplyBlockEvictsPoolByRecomputedHash(t *testing.T) {
	key := testNodeKey(t, "node-eviction-key")
	n := newTestNode(t, key)

	recipient := "0x" + strings.Repeat("11", 20)
	tx, err := transaction.NewSigned(key, recipient, 100, 21000, 1000, 0, types.TxTransfer)
	require.NoError(t, err)
	require.NoError(t, n.txValidator.Accept(tx))
	require.NoError(t, n.pool.Add(tx))
	require.Equal(t, 1, n.pool.Size())

	// The block embeds the same transaction but with a blank Hash
	// field, as a misbehaving peer could send it.
	embedded := *tx
	embedded.Hash = ""

	block := &types.Block{
		Header: &types.BlockHeader{
			Index:     0,
			Timestamp: time.Now().Unix(),
			Validator: n.nodeAddress,
		},
		Transactions: []*types.Transaction{&embedded},
	}
	blockHash, err := block.ComputeHash()
	require.NoError(t, err)
	block.Hash = blockHash

	data, err := block.Encode()
	require.NoError(t, err)

	n.applyBlockMessage(&types.PeerMessage{
		Kind:      types.MsgBlock,
		From:      "peer-1",
		Height:    0,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})

	assert.Equal(t, int64(0), n.worldState.GetHeight())
	assert.Equal(t, 0, n.pool.Size(), "included transaction must leave the pool")
	_, ok := n.pool.Get(tx.Id)
	assert.False(t, ok)
}
