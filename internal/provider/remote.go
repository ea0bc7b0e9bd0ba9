package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Mohsinsiddi/w3pay/internal/chain"
)

// DefaultRemoteURL is where desktop wallets commonly expose their RPC.
const DefaultRemoteURL = "http://127.0.0.1:1248"

// RemoteProvider forwards every request to an external wallet's JSON-RPC
// endpoint. Requests carry no timeout of their own: the wallet may be
// waiting for its user to confirm.
type RemoteProvider struct {
	client *chain.Client
}

// NewRemote creates a remote provider for url.
func NewRemote(url string) *RemoteProvider {
	if url == "" {
		url = DefaultRemoteURL
	}
	return &RemoteProvider{client: chain.NewClientWithHTTP(url, &http.Client{})}
}

// URL returns the wallet endpoint.
func (p *RemoteProvider) URL() string { return p.client.URL() }

// Request implements Provider.
func (p *RemoteProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	raw, err := p.client.Call(ctx, method, params...)
	if err == nil {
		return raw, nil
	}
	var rpcErr *chain.RPCError
	if errors.As(err, &rpcErr) {
		return nil, fromNode(err)
	}
	if ctx.Err() != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %v", ErrDisconnected, err)
}
