package query

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-labs/go-tessera/core/state"
	"github.com/tessera-labs/go-tessera/core/types"
	"github.com/tessera-labs/go-tessera/crypto"
	"github.com/tessera-labs/go-tessera/crypto/address"
)

func testAddr(t *testing.T, label string) string {
	t.Helper()
	seed := sha256.Sum256([]byte(label))
	key, err := crypto.NewPrivateKeyFromSeed(seed[:])
	require.NoError(t, err)
	addr, err := address.Generate(key.PublicKey().Bytes())
	require.NoError(t, err)
	return addr
}

func testState(t *testing.T) (*state.WorldState, string) {
	t.Helper()
	ws := state.NewWorldState()
	genesis := testAddr(t, "genesis")
	require.NoError(t, ws.InitializeGenesis(genesis, 5_000_000, nil))
	return ws, genesis
}

func TestDecodeRoundTrip(t *testing.T) {
	want := &Request{Kind: GetBalance, Address: testAddr(t, "holder")}
	data, err := want.Encode()
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, want.Kind, got.Kind)
	assert.Equal(t, want.Address, got.Address)
}

func TestDecodeRejectsBadInput(t *testing.T) {
	_, err := Decode(nil)
	assert.Error(t, err)

	_, err = Decode([]byte("definitely not cbor"))
	assert.Error(t, err)

	// Structurally valid CBOR, out-of-range kind.
	data, err := types.Marshal(&Request{Kind: Kind(99)})
	require.NoError(t, err)
	_, err = Decode(data)
	assert.Error(t, err)
}

func TestExecuteBalance(t *testing.T) {
	ws, genesis := testState(t)
	engine := NewEngine()

	out, err := engine.Execute(&Request{Kind: GetBalance, Address: genesis}, ws)
	require.NoError(t, err)

	var result BalanceResult
	require.NoError(t, types.Unmarshal(out, &result))
	assert.Equal(t, genesis, result.Address)
	assert.Equal(t, int64(5_000_000), result.Balance)
	assert.Equal(t, uint64(0), result.Nonce)
}

func TestExecuteBalanceUnknownAccount(t *testing.T) {
	ws, _ := testState(t)
	engine := NewEngine()

	// Unknown but well-formed addresses read as zero balance.
	out, err := engine.Execute(&Request{Kind: GetBalance, Address: testAddr(t, "stranger")}, ws)
	require.NoError(t, err)

	var result BalanceResult
	require.NoError(t, types.Unmarshal(out, &result))
	assert.Equal(t, int64(0), result.Balance)
}

func TestExecuteRejectsInvalidAddress(t *testing.T) {
	ws, _ := testState(t)
	engine := NewEngine()

	_, err := engine.Execute(&Request{Kind: GetAccount, Address: "not-an-address"}, ws)
	assert.Error(t, err)
}

func TestExecuteHeightAndStatus(t *testing.T) {
	ws, _ := testState(t)
	engine := NewEngine()

	out, err := engine.Execute(&Request{Kind: GetHeight}, ws)
	require.NoError(t, err)
	var height HeightResult
	require.NoError(t, types.Unmarshal(out, &height))
	assert.Equal(t, int64(0), height.Height)
	assert.NotEmpty(t, height.StateRoot)

	out, err = engine.Execute(&Request{Kind: GetStatus}, ws)
	require.NoError(t, err)
	var status StatusResult
	require.NoError(t, types.Unmarshal(out, &status))
	assert.Equal(t, int64(5_000_000), status.TotalSupply)
	assert.Equal(t, 1, status.AccountCount)
}

func TestExecuteBlockOutOfRange(t *testing.T) {
	ws, _ := testState(t)
	engine := NewEngine()

	_, err := engine.Execute(&Request{Kind: GetBlock, Height: 3}, ws)
	assert.Error(t, err)
}

func TestExecuteDeterministic(t *testing.T) {
	ws, genesis := testState(t)
	engine := NewEngine()

	requests := []*Request{
		{Kind: GetAccount, Address: genesis},
		{Kind: GetBalance, Address: genesis},
		{Kind: GetHeight},
		{Kind: GetStatus},
	}

	for _, req := range requests {
		first, err := engine.Execute(req, ws)
		require.NoError(t, err)
		second, err := engine.Execute(req, ws)
		require.NoError(t, err)
		assert.Equal(t, first, second, "kind %s", req.Kind)
	}

	// Still deterministic while the view is being read concurrently.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_, _ = ws.GetBalance(genesis)
		}
	}()
	out1, err := engine.Execute(&Request{Kind: GetStatus}, ws)
	require.NoError(t, err)
	<-done
	out2, err := engine.Execute(&Request{Kind: GetStatus}, ws)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}
