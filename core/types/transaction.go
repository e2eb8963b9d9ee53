package types

import (
	"fmt"

	"github.com/tessera-labs/go-tessera/crypto/hash"
)

// TransactionType distinguishes the supported instruction kinds.
type TransactionType int

const (
	TxTransfer TransactionType = iota
	TxStake
	TxUnstake
)

// Transaction is one signed instruction submitted through the gateway.
type Transaction struct {
	Id        string          `cbor:"1,keyasint" json:"id"`
	From      string          `cbor:"2,keyasint" json:"from"`
	To        string          `cbor:"3,keyasint" json:"to"`
	Amount    int64           `cbor:"4,keyasint" json:"amount"`
	Gas       int64           `cbor:"5,keyasint" json:"gas"`
	GasPrice  int64           `cbor:"6,keyasint" json:"gas_price"`
	Nonce     uint64          `cbor:"7,keyasint" json:"nonce"`
	Type      TransactionType `cbor:"8,keyasint" json:"type"`
	Data      []byte          `cbor:"9,keyasint,omitempty" json:"data,omitempty"`
	Timestamp int64           `cbor:"10,keyasint" json:"timestamp"`

	// Authentication
	PubKey    []byte `cbor:"11,keyasint" json:"pub_key"`
	Signature []byte `cbor:"12,keyasint" json:"signature"`

	// Hash of the signing payload, hex-encoded. Recomputed during
	// acceptance; never trusted from the wire.
	Hash string `cbor:"13,keyasint" json:"hash"`
}

// signingView is the portion of a transaction covered by the hash and
// the signature.
type signingView struct {
	From      string          `cbor:"1,keyasint"`
	To        string          `cbor:"2,keyasint"`
	Amount    int64           `cbor:"3,keyasint"`
	Gas       int64           `cbor:"4,keyasint"`
	GasPrice  int64           `cbor:"5,keyasint"`
	Nonce     uint64          `cbor:"6,keyasint"`
	Type      TransactionType `cbor:"7,keyasint"`
	Data      []byte          `cbor:"8,keyasint,omitempty"`
	Timestamp int64           `cbor:"9,keyasint"`
}

// SigningPayload returns the deterministic bytes covered by the
// transaction signature.
func (tx *Transaction) SigningPayload() ([]byte, error) {
	return Marshal(&signingView{
		From:      tx.From,
		To:        tx.To,
		Amount:    tx.Amount,
		Gas:       tx.Gas,
		GasPrice:  tx.GasPrice,
		Nonce:     tx.Nonce,
		Type:      tx.Type,
		Data:      tx.Data,
		Timestamp: tx.Timestamp,
	})
}

// ComputeHash returns the hex Blake2b hash of the signing payload.
func (tx *Transaction) ComputeHash() (string, error) {
	payload, err := tx.SigningPayload()
	if err != nil {
		return "", fmt.Errorf("failed to build signing payload: %w", err)
	}
	return hash.NewHash(payload).String(), nil
}

// Encode serializes the transaction for the wire.
func (tx *Transaction) Encode() ([]byte, error) {
	return Marshal(tx)
}

// DecodeTransaction parses raw instruction-path payload bytes.
// The returned transaction has passed shape checks only; acceptance
// (signature, hash, economic rules) is a separate step.
func DecodeTransaction(data []byte) (*Transaction, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty transaction payload")
	}

	var tx Transaction
	if err := Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("malformed transaction payload: %w", err)
	}

	if tx.From == "" {
		return nil, fmt.Errorf("transaction missing sender address")
	}
	if len(tx.PubKey) == 0 {
		return nil, fmt.Errorf("transaction missing public key")
	}
	if len(tx.Signature) == 0 {
		return nil, fmt.Errorf("transaction missing signature")
	}

	return &tx, nil
}
