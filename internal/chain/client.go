package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DefaultTimeout bounds every node call. Node reads never wait on a human,
// so unlike wallet prompts they are always bounded.
const DefaultTimeout = 15 * time.Second

// Client is a minimal JSON-RPC client for an EVM node.
type Client struct {
	url    string
	client *http.Client
	nextID atomic.Int64
}

// NewClient creates a new JSON-RPC client pointed at url.
func NewClient(url string) *Client {
	return &Client{
		url: url,
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// NewClientWithHTTP uses a caller-supplied http.Client, e.g. one without a
// timeout for endpoints that front a human-confirmed wallet.
func NewClientWithHTTP(url string, hc *http.Client) *Client {
	return &Client{url: url, client: hc}
}

// URL returns the endpoint the client talks to.
func (c *Client) URL() string { return c.url }

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Call performs a single JSON-RPC request and returns the raw result.
// A JSON-RPC error object is returned as *RPCError.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("RPC request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("RPC request failed: HTTP %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// ChainID returns the chain's ID.
func (c *Client) ChainID(ctx context.Context) (int64, error) {
	var hexStr string
	if err := c.callInto(ctx, &hexStr, "eth_chainId"); err != nil {
		return 0, err
	}
	return ParseChainID(hexStr)
}

// BlockNumber returns the latest block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var n hexutil.Uint64
	if err := c.callInto(ctx, &n, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// BalanceAt returns the native balance in base units.
func (c *Client) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	var n hexutil.Big
	if err := c.callInto(ctx, &n, "eth_getBalance", address, "latest"); err != nil {
		return nil, err
	}
	return n.ToInt(), nil
}

// PendingNonce returns the transaction count including queued transactions.
func (c *Client) PendingNonce(ctx context.Context, address string) (uint64, error) {
	var n hexutil.Uint64
	if err := c.callInto(ctx, &n, "eth_getTransactionCount", address, "pending"); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// GasPrice returns the current gas price.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	var n hexutil.Big
	if err := c.callInto(ctx, &n, "eth_gasPrice"); err != nil {
		return nil, err
	}
	return n.ToInt(), nil
}

// CallMsg describes a call or transaction for eth_call / eth_estimateGas.
type CallMsg struct {
	From  string       `json:"from,omitempty"`
	To    string       `json:"to,omitempty"`
	Data  string       `json:"data,omitempty"`
	Value *hexutil.Big `json:"value,omitempty"`
}

// EstimateGas estimates gas for a transaction.
func (c *Client) EstimateGas(ctx context.Context, msg CallMsg) (uint64, error) {
	var n hexutil.Uint64
	if err := c.callInto(ctx, &n, "eth_estimateGas", msg); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// SendRawTransaction broadcasts a signed raw transaction.
func (c *Client) SendRawTransaction(ctx context.Context, rawTx string) (string, error) {
	var hash string
	if err := c.callInto(ctx, &hash, "eth_sendRawTransaction", rawTx); err != nil {
		return "", err
	}
	return hash, nil
}

// Ping tests the RPC endpoint and returns latency + block number.
func (c *Client) Ping(ctx context.Context) (latency time.Duration, blockNum uint64, err error) {
	start := time.Now()
	blockNum, err = c.BlockNumber(ctx)
	latency = time.Since(start)
	if err != nil {
		return latency, 0, err
	}
	return latency, blockNum, nil
}

// ParseChainID accepts the hex quantity returned by eth_chainId and also the
// decimal form some wallets return from net_version.
func ParseChainID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	base, digits := 10, s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base, digits = 16, s[2:]
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok || digits == "" || n.Sign() < 0 || !n.IsInt64() {
		return 0, fmt.Errorf("could not parse chain id %q", s)
	}
	return n.Int64(), nil
}

// --- internal JSON-RPC plumbing ---

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int64  `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

func (c *Client) callInto(ctx context.Context, out any, method string, params ...any) error {
	raw, err := c.Call(ctx, method, params...)
	if err != nil {
		return err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("%s: empty result", method)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: parsing result: %w", method, err)
	}
	return nil
}
