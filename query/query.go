// Package query implements the read-only query engine the gateway
// executes against the shared world state. Results are deterministic:
// the same query against an unmodified state view yields byte-identical
// CBOR output.
package query

import (
	"fmt"

	"github.com/tessera-labs/go-tessera/core/account"
	"github.com/tessera-labs/go-tessera/core/state"
	"github.com/tessera-labs/go-tessera/core/types"
)

// Kind selects the query operation.
type Kind int

const (
	GetAccount Kind = iota
	GetBalance
	GetBlock
	GetHeight
	GetStatus
)

func (k Kind) String() string {
	switch k {
	case GetAccount:
		return "get_account"
	case GetBalance:
		return "get_balance"
	case GetBlock:
		return "get_block"
	case GetHeight:
		return "get_height"
	case GetStatus:
		return "get_status"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Request is one decoded query from the wire.
type Request struct {
	Kind    Kind   `cbor:"1,keyasint" json:"kind"`
	Address string `cbor:"2,keyasint,omitempty" json:"address,omitempty"`
	Height  int64  `cbor:"3,keyasint,omitempty" json:"height,omitempty"`
}

// Encode serializes the request for the wire.
func (r *Request) Encode() ([]byte, error) {
	return types.Marshal(r)
}

// Decode parses raw query-path payload bytes.
func Decode(data []byte) (*Request, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty query payload")
	}

	var req Request
	if err := types.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("malformed query payload: %w", err)
	}
	if req.Kind < GetAccount || req.Kind > GetStatus {
		return nil, fmt.Errorf("unknown query kind %d", req.Kind)
	}

	return &req, nil
}

// BalanceResult is the payload of a GetBalance response.
type BalanceResult struct {
	Address string `cbor:"1,keyasint" json:"address"`
	Balance int64  `cbor:"2,keyasint" json:"balance"`
	Nonce   uint64 `cbor:"3,keyasint" json:"nonce"`
}

// HeightResult is the payload of a GetHeight response.
type HeightResult struct {
	Height    int64  `cbor:"1,keyasint" json:"height"`
	StateRoot string `cbor:"2,keyasint" json:"state_root"`
}

// StatusResult is the payload of a GetStatus response.
type StatusResult struct {
	Height         int64  `cbor:"1,keyasint" json:"height"`
	StateRoot      string `cbor:"2,keyasint" json:"state_root"`
	TotalSupply    int64  `cbor:"3,keyasint" json:"total_supply"`
	AccountCount   int    `cbor:"4,keyasint" json:"account_count"`
	ValidatorCount int    `cbor:"5,keyasint" json:"validator_count"`
}

// Engine executes queries against a world state view.
type Engine struct{}

// NewEngine creates a query engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Execute runs one query against ws and returns the serialized result.
// It takes no locks of its own beyond the state view's internal read
// lock, held only for the duration of the call.
func (e *Engine) Execute(req *Request, ws *state.WorldState) ([]byte, error) {
	if req == nil {
		return nil, fmt.Errorf("query request cannot be nil")
	}

	switch req.Kind {
	case GetAccount:
		if err := account.ValidateAddress(req.Address); err != nil {
			return nil, fmt.Errorf("invalid query address: %w", err)
		}
		acc, err := ws.GetAccount(req.Address)
		if err != nil {
			return nil, err
		}
		return types.Marshal(acc)

	case GetBalance:
		if err := account.ValidateAddress(req.Address); err != nil {
			return nil, fmt.Errorf("invalid query address: %w", err)
		}
		acc, err := ws.GetAccount(req.Address)
		if err != nil {
			return nil, err
		}
		return types.Marshal(&BalanceResult{
			Address: acc.Address,
			Balance: acc.Balance,
			Nonce:   acc.Nonce,
		})

	case GetBlock:
		block, err := ws.GetBlock(req.Height)
		if err != nil {
			return nil, err
		}
		return types.Marshal(block)

	case GetHeight:
		return types.Marshal(&HeightResult{
			Height:    ws.GetHeight(),
			StateRoot: ws.GetStateRoot(),
		})

	case GetStatus:
		status := ws.GetStatus()
		result := &StatusResult{
			Height:      ws.GetHeight(),
			StateRoot:   ws.GetStateRoot(),
			TotalSupply: ws.GetTotalSupply(),
		}
		if n, ok := status["account_count"].(int); ok {
			result.AccountCount = n
		}
		if n, ok := status["validator_count"].(int); ok {
			result.ValidatorCount = n
		}
		return types.Marshal(result)

	default:
		return nil, fmt.Errorf("unknown query kind %d", req.Kind)
	}
}
