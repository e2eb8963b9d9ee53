package types

import "fmt"

// MessageKind distinguishes consensus gossip envelope contents.
type MessageKind int

const (
	MsgBlock MessageKind = iota
	MsgVote
	MsgAttestation
)

func (k MessageKind) String() string {
	switch k {
	case MsgBlock:
		return "block"
	case MsgVote:
		return "vote"
	case MsgAttestation:
		return "attestation"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// PeerMessage is the envelope peers exchange on the block path. The
// gateway treats Data as opaque; only the downstream consensus pipeline
// interprets it.
type PeerMessage struct {
	Kind      MessageKind `cbor:"1,keyasint" json:"kind"`
	From      string      `cbor:"2,keyasint" json:"from"`
	Height    int64       `cbor:"3,keyasint" json:"height"`
	Data      []byte      `cbor:"4,keyasint" json:"data"`
	Timestamp int64       `cbor:"5,keyasint" json:"timestamp"`
}

// Encode serializes the message for the wire.
func (m *PeerMessage) Encode() ([]byte, error) {
	return Marshal(m)
}

// DecodePeerMessage parses raw block-path payload bytes.
func DecodePeerMessage(data []byte) (*PeerMessage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty peer message payload")
	}

	var m PeerMessage
	if err := Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("malformed peer message payload: %w", err)
	}
	if m.Kind < MsgBlock || m.Kind > MsgAttestation {
		return nil, fmt.Errorf("unknown peer message kind %d", m.Kind)
	}
	if len(m.Data) == 0 {
		return nil, fmt.Errorf("peer message missing body")
	}

	return &m, nil
}
