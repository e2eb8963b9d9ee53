package crypto

import (
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/mldsa/mldsa44"
)

// mldsaPrivateKey is the post-quantum validator identity key.
type mldsaPrivateKey struct {
	priv *mldsa44.PrivateKey
}

type mldsaPublicKey struct {
	pub *mldsa44.PublicKey
}

var (
	_ PrivateKey = (*mldsaPrivateKey)(nil)
	_ PublicKey  = (*mldsaPublicKey)(nil)
)

// GenerateMLDSAKey generates an ML-DSA-44 key pair. A deterministic
// reader may be supplied for reproducible development identities.
func GenerateMLDSAKey(rand io.Reader) (PrivateKey, error) {
	_, priv, err := mldsa44.GenerateKey(rand)
	if err != nil {
		return nil, fmt.Errorf("failed to generate mldsa44 key: %w", err)
	}
	return &mldsaPrivateKey{priv: priv}, nil
}

// NewPrivateKeyFromMLDSA wraps an existing ML-DSA-44 private key.
func NewPrivateKeyFromMLDSA(priv *mldsa44.PrivateKey) PrivateKey {
	if priv == nil {
		return nil
	}
	return &mldsaPrivateKey{priv: priv}
}

// NewPublicKeyFromMLDSABytes restores an ML-DSA-44 public key from its
// packed form.
func NewPublicKeyFromMLDSABytes(keyData []byte) (PublicKey, error) {
	if len(keyData) != mldsa44.PublicKeySize {
		return nil, fmt.Errorf("invalid mldsa44 public key size: got %d, want %d", len(keyData), mldsa44.PublicKeySize)
	}
	pub := new(mldsa44.PublicKey)
	if err := pub.UnmarshalBinary(keyData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mldsa44 public key: %w", err)
	}
	return &mldsaPublicKey{pub: pub}, nil
}

func (p *mldsaPrivateKey) Bytes() []byte {
	data, err := p.priv.MarshalBinary()
	if err != nil {
		return nil
	}
	return data
}

func (p *mldsaPrivateKey) Sign(data []byte) (Signature, error) {
	sig := make([]byte, mldsa44.SignatureSize)
	if err := mldsa44.SignTo(p.priv, data, nil, false, sig); err != nil {
		return nil, fmt.Errorf("mldsa44 signing failed: %w", err)
	}
	return newSignature(sig), nil
}

func (p *mldsaPrivateKey) PublicKey() PublicKey {
	pub, ok := p.priv.Public().(*mldsa44.PublicKey)
	if !ok {
		return nil
	}
	return &mldsaPublicKey{pub: pub}
}

func (p *mldsaPrivateKey) String() string {
	return "MLDSA44PrivateKey"
}

func (p *mldsaPublicKey) Bytes() []byte {
	data, err := p.pub.MarshalBinary()
	if err != nil {
		return nil
	}
	return data
}

func (p *mldsaPublicKey) Verify(data []byte, sig Signature) error {
	if sig == nil {
		return errors.New("signature cannot be nil")
	}
	if !mldsa44.Verify(p.pub, data, nil, sig.Bytes()) {
		return errors.New("mldsa44 verification failed")
	}
	return nil
}

func (p *mldsaPublicKey) String() string {
	return fmt.Sprintf("MLDSA44PubKey(len:%d)", mldsa44.PublicKeySize)
}
