package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePeerMessage(t *testing.T) {
	msg := &PeerMessage{Kind: MsgAttestation, From: "peer-1", Height: 9, Data: []byte("sig")}
	data, err := msg.Encode()
	require.NoError(t, err)

	got, err := DecodePeerMessage(data)
	require.NoError(t, err)
	assert.Equal(t, MsgAttestation, got.Kind)
	assert.Equal(t, int64(9), got.Height)
	assert.Equal(t, []byte("sig"), got.Data)
}

func TestDecodePeerMessageRejects(t *testing.T) {
	_, err := DecodePeerMessage(nil)
	assert.Error(t, err)

	_, err = DecodePeerMessage([]byte("garbage"))
	assert.Error(t, err)

	// Unknown kind.
	data, err := (&PeerMessage{Kind: MessageKind(42), Data: []byte("x")}).Encode()
	require.NoError(t, err)
	_, err = DecodePeerMessage(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown peer message kind")

	// Empty body.
	data, err = (&PeerMessage{Kind: MsgBlock}).Encode()
	require.NoError(t, err)
	_, err = DecodePeerMessage(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing body")
}

func TestDecodeTransactionShapeChecks(t *testing.T) {
	base := Transaction{
		From:      "0xaa",
		PubKey:    []byte{1},
		Signature: []byte{2},
	}

	data, err := base.Encode()
	require.NoError(t, err)
	_, err = DecodeTransaction(data)
	require.NoError(t, err)

	missingFrom := base
	missingFrom.From = ""
	data, err = missingFrom.Encode()
	require.NoError(t, err)
	_, err = DecodeTransaction(data)
	assert.Error(t, err)

	missingKey := base
	missingKey.PubKey = nil
	data, err = missingKey.Encode()
	require.NoError(t, err)
	_, err = DecodeTransaction(data)
	assert.Error(t, err)

	missingSig := base
	missingSig.Signature = nil
	data, err = missingSig.Encode()
	require.NoError(t, err)
	_, err = DecodeTransaction(data)
	assert.Error(t, err)
}

func TestMarshalDeterministic(t *testing.T) {
	tx := &Transaction{Id: "x", From: "0xaa", Amount: 7, PubKey: []byte{1}, Signature: []byte{2}}

	a, err := Marshal(tx)
	require.NoError(t, err)
	b, err := Marshal(tx)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
