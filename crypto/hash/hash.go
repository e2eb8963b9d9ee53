// Package hash wraps Blake2b-256, the hash used everywhere in Tessera:
// transaction ids, block hashes, state roots and address derivation.
package hash

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

const Size = blake2b.Size256

// Hash is a Blake2b-256 digest.
type Hash [Size]byte

// NewHash hashes data with Blake2b-256.
func NewHash(data []byte) Hash {
	return blake2b.Sum256(data)
}

// FromBytes builds a Hash from a raw 32-byte slice.
func FromBytes(data []byte) (Hash, bool) {
	var h Hash
	if len(data) != Size {
		return h, false
	}
	copy(h[:], data)
	return h, true
}

func (h Hash) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, h[:])
	return out
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	for _, b := range h {
		if b != 0 {
			return false
		}
	}
	return true
}
