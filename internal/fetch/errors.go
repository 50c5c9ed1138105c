package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConfigMissing means the chain is unknown or lacks a contract address.
	// It is detected before any network I/O.
	ErrConfigMissing = errors.New("configuration for this chain is missing or incomplete")

	// ErrCallTimeout means an RPC call exceeded the per-call timeout
	ErrCallTimeout = errors.New("call timed out")
)

// CallError describes a failed RPC read. Method is the contract method, or
// "blockNumber" / "header" for the block lookup that precedes the reads.
type CallError struct {
	Method string
	Err    error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Method, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// newCallError wraps err for method, marking deadline expiry as ErrCallTimeout
func newCallError(method string, timeout time.Duration, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s: %w", ErrCallTimeout, timeout, err)
	}
	return &CallError{Method: method, Err: err}
}
