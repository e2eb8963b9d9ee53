package crypto

import "fmt"

type signature struct {
	raw []byte
}

var _ Signature = (*signature)(nil)

func newSignature(raw []byte) *signature {
	sigCopy := make([]byte, len(raw))
	copy(sigCopy, raw)
	return &signature{raw: sigCopy}
}

// NewSignatureFromBytes wraps raw signature bytes.
func NewSignatureFromBytes(raw []byte) (Signature, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("signature bytes cannot be empty")
	}
	return newSignature(raw), nil
}

func (s *signature) Bytes() []byte {
	out := make([]byte, len(s.raw))
	copy(out, s.raw)
	return out
}

func (s *signature) String() string {
	return fmt.Sprintf("Signature(len:%d)", len(s.raw))
}
