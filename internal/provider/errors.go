package provider

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/w3pay/internal/chain"
)

// EIP-1193 and EIP-1474 error codes.
const (
	CodeExecutionReverted = 3
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeChainDisconnected = 4901
	CodeUnrecognizedChain = 4902
	CodeInvalidInput      = -32000
	CodeMethodNotFound    = -32601
	CodeInvalidParams     = -32602
	CodeInternal          = -32603
)

// Error is a provider RPC error.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewError builds a provider error.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// Is matches any provider error carrying the same code, so
// errors.Is(err, ErrUserRejected) holds for every 4001 regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels, matched by code.
var (
	ErrUserRejected      = NewError(CodeUserRejected, "user rejected the request")
	ErrUnauthorized      = NewError(CodeUnauthorized, "the requested account has not been authorized")
	ErrUnsupportedMethod = NewError(CodeUnsupportedMethod, "the provider does not support the requested method")
	ErrDisconnected      = NewError(CodeDisconnected, "the provider is disconnected from all chains")
	ErrUnrecognizedChain = NewError(CodeUnrecognizedChain, "unrecognized chain id")
)

// ErrProviderUnavailable means no wallet could be reached at all.
var ErrProviderUnavailable = errors.New("no wallet provider available")

// Code extracts the provider error code from err.
func Code(err error) (int, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return 0, false
}

// fromNode converts a node JSON-RPC error into a provider error so callers
// see one error type regardless of which side produced it.
func fromNode(err error) error {
	if err == nil {
		return nil
	}
	var rpcErr *chain.RPCError
	if errors.As(err, &rpcErr) {
		return &Error{Code: rpcErr.Code, Message: rpcErr.Message, Data: rpcErr.Data}
	}
	return err
}
