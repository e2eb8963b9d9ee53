package crypto

import (
	"crypto/ed25519"
	"errors"
	"fmt"
)

type ed25519PublicKey struct {
	pub ed25519.PublicKey
}

var _ PublicKey = (*ed25519PublicKey)(nil)

// NewPublicKey wraps a raw Ed25519 public key.
func NewPublicKey(key ed25519.PublicKey) PublicKey {
	if len(key) == 0 {
		return nil
	}
	keyCopy := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(keyCopy, key)
	return &ed25519PublicKey{pub: keyCopy}
}

// NewPublicKeyFromBytes restores an Ed25519 public key from its raw form.
func NewPublicKeyFromBytes(keyData []byte) (PublicKey, error) {
	if len(keyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid public key size: got %d, want %d", len(keyData), ed25519.PublicKeySize)
	}
	return NewPublicKey(keyData), nil
}

func (p *ed25519PublicKey) Bytes() []byte {
	out := make([]byte, len(p.pub))
	copy(out, p.pub)
	return out
}

func (p *ed25519PublicKey) Verify(data []byte, sig Signature) error {
	if sig == nil {
		return errors.New("signature cannot be nil")
	}
	sigBytes := sig.Bytes()
	if len(sigBytes) != ed25519.SignatureSize {
		return fmt.Errorf("invalid signature size: got %d, want %d", len(sigBytes), ed25519.SignatureSize)
	}
	if !ed25519.Verify(p.pub, data, sigBytes) {
		return errors.New("ed25519 verification failed")
	}
	return nil
}

func (p *ed25519PublicKey) String() string {
	return fmt.Sprintf("Ed25519PubKey:%x", p.pub)
}
