// Package provider talks to the user's wallet through an EIP-1193 style
// request interface. Two wallets are supported: a remote one reached over
// JSON-RPC (a desktop wallet exposing a local endpoint) and a keystore-backed
// local one that behaves like an injected browser wallet.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
)

// Provider is the EIP-1193 request surface. Calls block until the wallet
// answers, which may include waiting on the user; callers bound them through
// ctx.
type Provider interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// decodeParams unmarshals positional params into targets by round-tripping
// them through JSON, the way they would arrive over the wire.
func decodeParams(method string, params []any, targets ...any) error {
	if len(params) < len(targets) {
		return NewError(CodeInvalidParams, fmt.Sprintf("%s: expected %d params, got %d", method, len(targets), len(params)))
	}
	for i, t := range targets {
		raw, err := json.Marshal(params[i])
		if err != nil {
			return NewError(CodeInvalidParams, fmt.Sprintf("%s: param %d: %v", method, i, err))
		}
		if err := json.Unmarshal(raw, t); err != nil {
			return NewError(CodeInvalidParams, fmt.Sprintf("%s: param %d: %v", method, i, err))
		}
	}
	return nil
}

func encodeResult(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, NewError(CodeInternal, err.Error())
	}
	return raw, nil
}
