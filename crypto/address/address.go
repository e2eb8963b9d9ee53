// Package address implements Tessera's 0x account address format:
// the last 20 bytes of the Blake2b-256 hash of a public key.
package address

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/tessera-labs/go-tessera/crypto/hash"
)

const (
	Prefix     = "0x"
	Length     = 42 // "0x" + 40 hex characters
	ByteLength = 20
)

// Address is a 20-byte account identifier.
type Address [ByteLength]byte

// New derives an Address from raw public key bytes. Works for both
// Ed25519 and ML-DSA-44 keys since only the hash of the packed key
// matters.
func New(pubKeyBytes []byte) (*Address, error) {
	if len(pubKeyBytes) == 0 {
		return nil, fmt.Errorf("public key bytes cannot be empty")
	}

	h := hash.NewHash(pubKeyBytes)

	var addr Address
	copy(addr[:], h[hash.Size-ByteLength:])
	return &addr, nil
}

// FromString parses a 0x-prefixed address string.
func FromString(addr string) (*Address, error) {
	if err := Validate(addr); err != nil {
		return nil, fmt.Errorf("invalid address format: %w", err)
	}

	raw, err := hex.DecodeString(addr[2:])
	if err != nil {
		return nil, fmt.Errorf("invalid address hex: %w", err)
	}

	var address Address
	copy(address[:], raw)
	return &address, nil
}

// FromBytes creates an Address from raw bytes.
func FromBytes(addressBytes []byte) (*Address, error) {
	if len(addressBytes) != ByteLength {
		return nil, fmt.Errorf("address must be exactly %d bytes, got %d", ByteLength, len(addressBytes))
	}

	var address Address
	copy(address[:], addressBytes)
	return &address, nil
}

// Validate checks that a string is a well-formed 0x address.
func Validate(addr string) error {
	if len(addr) != Length {
		return fmt.Errorf("address must be exactly %d characters long, got %d", Length, len(addr))
	}
	if !strings.HasPrefix(addr, Prefix) {
		return fmt.Errorf("address must start with %q, got %q", Prefix, addr[:2])
	}
	if _, err := hex.DecodeString(addr[2:]); err != nil {
		return fmt.Errorf("address contains invalid hex: %w", err)
	}
	return nil
}

// IsValid is a convenience wrapper around Validate.
func IsValid(addr string) bool {
	return Validate(addr) == nil
}

// Generate derives the canonical lowercase string form directly from
// public key bytes.
func Generate(pubKeyBytes []byte) (string, error) {
	addr, err := New(pubKeyBytes)
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}

func (a *Address) Bytes() []byte {
	if a == nil {
		return nil
	}
	return a[:]
}

// String returns the 0x-prefixed lowercase hex representation.
func (a *Address) String() string {
	if a == nil {
		return Prefix + strings.Repeat("0", 2*ByteLength)
	}
	return Prefix + hex.EncodeToString(a[:])
}

func (a *Address) IsZero() bool {
	if a == nil {
		return true
	}
	for _, b := range a {
		if b != 0 {
			return false
		}
	}
	return true
}

func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	return bytes.Equal(a[:], other[:])
}

// Marshal encodes the Address using CBOR.
func (a *Address) Marshal() ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("cannot marshal nil address")
	}
	return cbor.Marshal(a[:])
}

// Unmarshal decodes CBOR data into the Address.
func (a *Address) Unmarshal(data []byte) error {
	if a == nil {
		return fmt.Errorf("cannot unmarshal into nil address")
	}

	var slice []byte
	if err := cbor.Unmarshal(data, &slice); err != nil {
		return fmt.Errorf("failed to unmarshal CBOR data: %w", err)
	}
	if len(slice) != ByteLength {
		return fmt.Errorf("unmarshaled data has incorrect length: expected %d, got %d", ByteLength, len(slice))
	}

	copy(a[:], slice)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a *Address) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", a.String())), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Address) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid JSON data for address")
	}

	parsed, err := FromString(string(data[1 : len(data)-1]))
	if err != nil {
		return fmt.Errorf("failed to parse address from JSON: %w", err)
	}

	copy(a[:], parsed[:])
	return nil
}
