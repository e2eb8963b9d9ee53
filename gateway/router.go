package gateway

import (
	"fmt"

	logging "github.com/ipfs/go-log/v2"

	"github.com/tessera-labs/go-tessera/core/types"
	"github.com/tessera-labs/go-tessera/query"
)

var log = logging.Logger("gateway")

// Router maps one inbound request to one outbound response. It holds
// no cross-request state: routing is a pure function of the request and
// the shared peer context.
type Router struct {
	pctx *PeerContext
}

// NewRouter creates a router over the shared peer context.
func NewRouter(pctx *PeerContext) *Router {
	return &Router{pctx: pctx}
}

// Route classifies req by path, decodes its payload, dispatches to the
// matching downstream collaborator and returns the wire response.
//
// A nil error with an error-status response means a recoverable,
// client-visible failure (malformed payload, rejected transaction,
// failed query); the connection stays up. A non-nil error means the
// connection must be aborted: either the route contract was violated or
// an outbox has shut down.
func (rt *Router) Route(req *Request) ([]byte, error) {
	switch req.Path {
	case RouteInstruction:
		return rt.routeInstruction(req.Payload)
	case RouteQuery:
		return rt.routeQuery(req.Payload)
	case RouteBlock:
		return rt.routeBlock(req.Payload)
	default:
		// Not a client error: the route set is fixed and advertised,
		// so an unmatched path is a configuration bug. Never masked as
		// a normal failure response.
		return nil, &ContractViolationError{Path: req.Path}
	}
}

func (rt *Router) routeInstruction(payload []byte) ([]byte, error) {
	tx, err := types.DecodeTransaction(payload)
	if err != nil {
		log.Warnw("failed to decode transaction", "cause", err)
		return ErrorResponse(), nil
	}

	// Acceptance runs strictly before the outbox push: nothing may be
	// enqueued for a transaction that has not fully passed.
	if err := rt.pctx.Accept(tx); err != nil {
		log.Warnw("transaction rejected", "tx", tx.Id, "cause", err)
		return ErrorResponse(), nil
	}

	if err := rt.pctx.pushTx(tx); err != nil {
		return nil, fmt.Errorf("transaction outbox unavailable: %w", err)
	}

	return OKResponse(nil), nil
}

func (rt *Router) routeQuery(payload []byte) ([]byte, error) {
	req, err := query.Decode(payload)
	if err != nil {
		log.Warnw("failed to decode query", "cause", err)
		return ErrorResponse(), nil
	}

	// The state view lock lives inside Execute and is held only for
	// this call, never across an outbox send.
	result, err := rt.pctx.Queries.Execute(req, rt.pctx.State)
	if err != nil {
		log.Warnw("query execution failed", "kind", req.Kind.String(), "cause", err)
		return ErrorResponse(), nil
	}

	return OKResponse(result), nil
}

func (rt *Router) routeBlock(payload []byte) ([]byte, error) {
	msg, err := types.DecodePeerMessage(payload)
	if err != nil {
		log.Warnw("failed to decode peer message", "cause", err)
		return ErrorResponse(), nil
	}

	if err := rt.pctx.pushMsg(msg); err != nil {
		return nil, fmt.Errorf("message outbox unavailable: %w", err)
	}

	return OKResponse(nil), nil
}
