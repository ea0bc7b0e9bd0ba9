// Package providertest provides an in-memory wallet for testing code that
// drives a provider.Provider.
package providertest

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"github.com/Mohsinsiddi/w3pay/internal/chain"
	"github.com/Mohsinsiddi/w3pay/internal/provider"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Call is one recorded request.
type Call struct {
	Method string
	Params []json.RawMessage
}

// Wallet is a scripted provider. Its zero value is not usable; use New.
type Wallet struct {
	mu sync.Mutex

	chainID  int64
	accounts []common.Address
	known    map[int64]bool
	balances map[common.Address]*big.Int
	receipts map[common.Hash]*provider.TxReceipt
	errs     map[string]error

	// SwitchOnAdd makes wallet_addEthereumChain also switch, as browser
	// wallets do when the user accepts the follow-up prompt.
	SwitchOnAdd bool
	// TxHash is returned from eth_sendTransaction.
	TxHash common.Hash
	// CallFunc answers eth_call.
	CallFunc func(to common.Address, data []byte) ([]byte, error)

	calls []Call
}

// New returns a wallet on chainID exposing accounts. Only chainID is known
// for switching until AddKnownChain or wallet_addEthereumChain.
func New(chainID int64, accounts ...common.Address) *Wallet {
	return &Wallet{
		chainID:  chainID,
		accounts: accounts,
		known:    map[int64]bool{chainID: true},
		balances: make(map[common.Address]*big.Int),
		receipts: make(map[common.Hash]*provider.TxReceipt),
		errs:     make(map[string]error),
		TxHash:   common.HexToHash("0x5f2e3c1d8a9b4e7f6a5b4c3d2e1f0a9b8c7d6e5f4a3b2c1d0e9f8a7b6c5d4e3f"),
	}
}

// AddKnownChain lets wallet_switchEthereumChain succeed for id.
func (w *Wallet) AddKnownChain(id int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.known[id] = true
}

// SetChainID moves the wallet to id.
func (w *Wallet) SetChainID(id int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.chainID = id
	w.known[id] = true
}

// ChainID returns the wallet's current chain.
func (w *Wallet) ChainID() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chainID
}

// SetBalance sets the native balance of addr.
func (w *Wallet) SetBalance(addr common.Address, wei *big.Int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[addr] = wei
}

// SetReceipt makes eth_getTransactionReceipt return r for hash.
func (w *Wallet) SetReceipt(hash common.Hash, r *provider.TxReceipt) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.receipts[hash] = r
}

// Fail makes every request for method return err.
func (w *Wallet) Fail(method string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errs[method] = err
}

// Calls returns recorded requests in order.
func (w *Wallet) Calls() []Call {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Call(nil), w.calls...)
}

// Count returns how often method was requested.
func (w *Wallet) Count(method string) int {
	n := 0
	for _, c := range w.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Last returns the most recent request for method.
func (w *Wallet) Last(method string) (Call, bool) {
	calls := w.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Method == method {
			return calls[i], true
		}
	}
	return Call{}, false
}

// Methods returns the requested method names in order.
func (w *Wallet) Methods() []string {
	var out []string
	for _, c := range w.Calls() {
		out = append(out, c.Method)
	}
	return out
}

// Request implements provider.Provider.
func (w *Wallet) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	call := Call{Method: method}
	for _, p := range params {
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		call.Params = append(call.Params, raw)
	}

	w.mu.Lock()
	w.calls = append(w.calls, call)
	err := w.errs[method]
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}

	switch method {
	case "eth_chainId":
		return json.Marshal(chain.HexChainID(w.ChainID()))
	case "net_version":
		return json.Marshal(strconv.FormatInt(w.ChainID(), 10))
	case "eth_accounts", "eth_requestAccounts":
		w.mu.Lock()
		defer w.mu.Unlock()
		return json.Marshal(w.accounts)
	case "wallet_switchEthereumChain":
		var p chain.SwitchChainParams
		if err := decode(call, &p); err != nil {
			return nil, err
		}
		id, err := chain.ParseChainID(p.ChainID)
		if err != nil {
			return nil, provider.NewError(provider.CodeInvalidParams, err.Error())
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		if !w.known[id] {
			return nil, provider.NewError(provider.CodeUnrecognizedChain, fmt.Sprintf("Unrecognized chain ID %q", p.ChainID))
		}
		w.chainID = id
		return json.RawMessage("null"), nil
	case "wallet_addEthereumChain":
		var p chain.AddChainParams
		if err := decode(call, &p); err != nil {
			return nil, err
		}
		n, err := p.Network()
		if err != nil {
			return nil, provider.NewError(provider.CodeInvalidParams, err.Error())
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		w.known[n.ChainID] = true
		if w.SwitchOnAdd {
			w.chainID = n.ChainID
		}
		return json.RawMessage("null"), nil
	case "eth_getBalance":
		var addr common.Address
		if err := decode(call, &addr); err != nil {
			return nil, err
		}
		w.mu.Lock()
		bal := w.balances[addr]
		w.mu.Unlock()
		if bal == nil {
			bal = new(big.Int)
		}
		return json.Marshal((*hexutil.Big)(bal))
	case "eth_call":
		var msg struct {
			To   common.Address `json:"to"`
			Data hexutil.Bytes  `json:"data"`
		}
		if err := decode(call, &msg); err != nil {
			return nil, err
		}
		if w.CallFunc == nil {
			return json.Marshal(hexutil.Bytes{})
		}
		out, err := w.CallFunc(msg.To, msg.Data)
		if err != nil {
			return nil, err
		}
		return json.Marshal(hexutil.Bytes(out))
	case "eth_sendTransaction":
		return json.Marshal(w.TxHash)
	case "eth_getTransactionReceipt":
		var hash common.Hash
		if err := decode(call, &hash); err != nil {
			return nil, err
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		return json.Marshal(w.receipts[hash])
	case "personal_sign":
		return json.Marshal(hexutil.Bytes(make([]byte, 65)))
	}
	return nil, provider.NewError(provider.CodeUnsupportedMethod, "unsupported method "+method)
}

func decode(c Call, out any) error {
	if len(c.Params) == 0 {
		return provider.NewError(provider.CodeInvalidParams, c.Method+": missing params")
	}
	if err := json.Unmarshal(c.Params[0], out); err != nil {
		return provider.NewError(provider.CodeInvalidParams, err.Error())
	}
	return nil
}

// TxArgs decodes the transaction object of an eth_sendTransaction call.
func TxArgs(c Call) (provider.TxArgs, error) {
	var args provider.TxArgs
	err := decode(c, &args)
	return args, err
}
