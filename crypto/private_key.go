package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
)

// ed25519PrivateKey is the default transaction-signing key.
type ed25519PrivateKey struct {
	priv ed25519.PrivateKey
}

var _ PrivateKey = (*ed25519PrivateKey)(nil)

// NewPrivateKey generates a fresh Ed25519 private key.
func NewPrivateKey() (PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}
	return newEd25519PrivateKey(priv), nil
}

// NewPrivateKeyFromSeed derives a deterministic Ed25519 key from a
// 32-byte seed. Used for reproducible development identities.
func NewPrivateKeyFromSeed(seed []byte) (PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid seed size: got %d, want %d", len(seed), ed25519.SeedSize)
	}
	return newEd25519PrivateKey(ed25519.NewKeyFromSeed(seed)), nil
}

// NewPrivateKeyFromBytes restores an Ed25519 key from its raw 64-byte form.
func NewPrivateKeyFromBytes(keyData []byte) (PrivateKey, error) {
	if len(keyData) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key size: got %d, want %d", len(keyData), ed25519.PrivateKeySize)
	}
	priv := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	copy(priv, keyData)
	return &ed25519PrivateKey{priv: priv}, nil
}

func newEd25519PrivateKey(priv ed25519.PrivateKey) *ed25519PrivateKey {
	// Copy to keep the key immutable.
	keyCopy := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	copy(keyCopy, priv)
	return &ed25519PrivateKey{priv: keyCopy}
}

func (p *ed25519PrivateKey) Bytes() []byte {
	out := make([]byte, len(p.priv))
	copy(out, p.priv)
	return out
}

func (p *ed25519PrivateKey) Sign(data []byte) (Signature, error) {
	if len(p.priv) == 0 {
		return nil, errors.New("cannot sign with empty private key")
	}
	return newSignature(ed25519.Sign(p.priv, data)), nil
}

func (p *ed25519PrivateKey) PublicKey() PublicKey {
	pub, _ := p.priv.Public().(ed25519.PublicKey)
	return NewPublicKey(pub)
}

func (p *ed25519PrivateKey) String() string {
	return fmt.Sprintf("Ed25519PrivateKey(len:%d)", len(p.priv))
}
