package types

import (
	"fmt"

	"github.com/tessera-labs/go-tessera/crypto/hash"
)

// BlockHeader carries the chain-linking metadata of a block.
type BlockHeader struct {
	Index     int64  `cbor:"1,keyasint" json:"index"`
	PrevHash  string `cbor:"2,keyasint" json:"prev_hash"`
	StateRoot string `cbor:"3,keyasint" json:"state_root"`
	Timestamp int64  `cbor:"4,keyasint" json:"timestamp"`
	Validator string `cbor:"5,keyasint" json:"validator"`
	GasUsed   int64  `cbor:"6,keyasint" json:"gas_used"`
	GasLimit  int64  `cbor:"7,keyasint" json:"gas_limit"`
}

// Block is one unit of replicated ledger history.
type Block struct {
	Header       *BlockHeader   `cbor:"1,keyasint" json:"header"`
	Transactions []*Transaction `cbor:"2,keyasint" json:"transactions"`
	Hash         string         `cbor:"3,keyasint" json:"hash"`
}

// ComputeHash returns the hex Blake2b hash of the encoded header.
func (b *Block) ComputeHash() (string, error) {
	if b.Header == nil {
		return "", fmt.Errorf("block has no header")
	}
	data, err := Marshal(b.Header)
	if err != nil {
		return "", fmt.Errorf("failed to encode block header: %w", err)
	}
	return hash.NewHash(data).String(), nil
}

// Encode serializes the block for the wire.
func (b *Block) Encode() ([]byte, error) {
	return Marshal(b)
}

// DecodeBlock parses raw block bytes.
func DecodeBlock(data []byte) (*Block, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty block payload")
	}

	var b Block
	if err := Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("malformed block payload: %w", err)
	}
	if b.Header == nil {
		return nil, fmt.Errorf("block missing header")
	}

	return &b, nil
}
