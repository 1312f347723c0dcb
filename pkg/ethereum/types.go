package ethereum

import (
	"errors"
	"fmt"
)

// ErrNoAvailableEndpoint is returned by Connect when every configured endpoint failed.
var ErrNoAvailableEndpoint = errors.New("no available RPC endpoint")

// ErrNotConnected is returned by read calls issued before a successful Connect.
var ErrNotConnected = errors.New("chain client not connected")

// RPCError wraps a single failed JSON-RPC interaction: transport failure,
// malformed response or a node-reported error.
type RPCError struct {
	Method   string
	Endpoint string
	Err      error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc %s on %s: %v", e.Method, e.Endpoint, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}
