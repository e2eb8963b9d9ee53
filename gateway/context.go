// Package gateway implements the ingress gate of a Tessera peer: the
// single point where external byte streams enter the node, are
// classified into transactions, queries and peer messages, and handed
// to the internal pipelines.
package gateway

import (
	"github.com/tessera-labs/go-tessera/core/state"
	"github.com/tessera-labs/go-tessera/core/types"
	"github.com/tessera-labs/go-tessera/query"
)

// AcceptFunc is the domain-level acceptance check run on a decoded
// transaction before it may enter the transaction outbox.
type AcceptFunc func(*types.Transaction) error

// PeerContext bundles the shared node resources every connection
// handler touches. It is constructed once per running node and shared
// by reference; handlers must never copy it, so all of them observe
// the same state view and the same outbound channels.
type PeerContext struct {
	// State is the replicated ledger view queries execute against.
	// Read-only from the gateway's perspective.
	State *state.WorldState

	// TxOutbox receives accepted transactions. Multi-producer (one per
	// connection), single consumer (the transaction pipeline). Bounded:
	// a full outbox blocks only the producing connection.
	TxOutbox chan<- *types.Transaction

	// MsgOutbox receives peer/consensus messages the same way.
	MsgOutbox chan<- *types.PeerMessage

	// Accept is the transaction acceptance collaborator.
	Accept AcceptFunc

	// Queries executes read-only queries against State.
	Queries *query.Engine
}

// pushTx enqueues exactly one accepted transaction. Blocks when the
// outbox is full; reports ErrOutboxClosed when the downstream pipeline
// has shut down.
func (pc *PeerContext) pushTx(tx *types.Transaction) (err error) {
	defer func() {
		if recover() != nil {
			err = ErrOutboxClosed
		}
	}()
	pc.TxOutbox <- tx
	return nil
}

// pushMsg enqueues exactly one peer message; same contract as pushTx.
func (pc *PeerContext) pushMsg(msg *types.PeerMessage) (err error) {
	defer func() {
		if recover() != nil {
			err = ErrOutboxClosed
		}
	}()
	pc.MsgOutbox <- msg
	return nil
}
