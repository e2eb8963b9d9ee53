package gateway

import (
	"errors"
	"fmt"
)

// ErrOutboxClosed reports that a downstream pipeline has shut down and
// its outbox no longer accepts items. Continuing to serve that message
// class is impossible; the condition indicates a startup/shutdown
// ordering bug and is surfaced loudly rather than swallowed.
var ErrOutboxClosed = errors.New("gateway: outbox closed")

// ContractViolationError reports a request path outside the fixed route
// set. The routing table is exhaustive over the routes the listener
// advertises, so this is a programmer or configuration error, never a
// client error. It aborts the offending connection without a response.
type ContractViolationError struct {
	Path string
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("gateway: route contract violation: unsupported path %q", e.Path)
}

// IsContractViolation reports whether err is a routing contract
// violation.
func IsContractViolation(err error) bool {
	var cv *ContractViolationError
	return errors.As(err, &cv)
}
