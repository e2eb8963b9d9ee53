// Package crypto provides the key material used by a Tessera peer.
//
// Two signature schemes are supported behind the same interfaces:
// Ed25519 for transaction signing and ML-DSA-44 (post-quantum) for
// validator identity keys.
package crypto

// PrivateKey signs arbitrary byte strings.
type PrivateKey interface {
	Bytes() []byte
	Sign(data []byte) (Signature, error)
	PublicKey() PublicKey
	String() string
}

// PublicKey verifies signatures produced by the matching PrivateKey.
type PublicKey interface {
	Bytes() []byte
	Verify(data []byte, sig Signature) error
	String() string
}

// Signature is an opaque signature value.
type Signature interface {
	Bytes() []byte
	String() string
}
