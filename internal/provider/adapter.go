package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/w3pay/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog/log"
)

// TxArgs is the transaction object of eth_sendTransaction.
type TxArgs struct {
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to,omitempty"`
	Value    *hexutil.Big    `json:"value,omitempty"`
	Data     hexutil.Bytes   `json:"data,omitempty"`
	Gas      *hexutil.Uint64 `json:"gas,omitempty"`
	GasPrice *hexutil.Big    `json:"gasPrice,omitempty"`
}

// TxReceipt is the subset of a transaction receipt the flow reads.
type TxReceipt struct {
	TxHash      common.Hash    `json:"transactionHash"`
	Status      hexutil.Uint64 `json:"status"`
	BlockNumber hexutil.Uint64 `json:"blockNumber"`
	GasUsed     hexutil.Uint64 `json:"gasUsed"`
}

// Succeeded reports whether the transaction executed without reverting.
func (r *TxReceipt) Succeeded() bool { return r.Status == 1 }

// Adapter exposes typed wallet operations over a Provider.
type Adapter struct {
	p Provider
}

// NewAdapter wraps p.
func NewAdapter(p Provider) *Adapter {
	return &Adapter{p: p}
}

// Provider returns the wrapped provider.
func (a *Adapter) Provider() Provider { return a.p }

// CurrentChainID asks the wallet which chain it is on.
func (a *Adapter) CurrentChainID(ctx context.Context) (int64, error) {
	var hexID string
	if err := a.request(ctx, &hexID, "eth_chainId"); err != nil {
		return 0, err
	}
	return chain.ParseChainID(hexID)
}

// RequestAccounts asks the wallet to expose accounts, prompting the user if
// the site is not yet authorized.
func (a *Adapter) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := a.request(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Accounts returns already-authorized accounts without prompting.
func (a *Adapter) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := a.request(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

// NativeBalance returns addr's native balance in base units.
func (a *Adapter) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	var bal hexutil.Big
	if err := a.request(ctx, &bal, "eth_getBalance", addr, "latest"); err != nil {
		return nil, err
	}
	return bal.ToInt(), nil
}

// SwitchChain requests wallet_switchEthereumChain.
func (a *Adapter) SwitchChain(ctx context.Context, chainID int64) error {
	return a.request(ctx, nil, "wallet_switchEthereumChain", chain.SwitchChainParams{ChainID: chain.HexChainID(chainID)})
}

// AddChain requests wallet_addEthereumChain for n.
func (a *Adapter) AddChain(ctx context.Context, n chain.Network) error {
	return a.request(ctx, nil, "wallet_addEthereumChain", n.AddParams())
}

// SendTransaction submits tx through the wallet and returns its hash.
func (a *Adapter) SendTransaction(ctx context.Context, tx TxArgs) (common.Hash, error) {
	var hash common.Hash
	if err := a.request(ctx, &hash, "eth_sendTransaction", tx); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// EstimateGas asks the wallet's node how much gas tx would use. A revert
// during simulation comes back as a provider error with code 3.
func (a *Adapter) EstimateGas(ctx context.Context, tx TxArgs) (uint64, error) {
	var gas hexutil.Uint64
	if err := a.request(ctx, &gas, "eth_estimateGas", tx); err != nil {
		return 0, err
	}
	return uint64(gas), nil
}

// Call performs a read-only eth_call against the latest block.
func (a *Adapter) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := map[string]any{"to": to, "data": hexutil.Bytes(data)}
	var out hexutil.Bytes
	if err := a.request(ctx, &out, "eth_call", msg, "latest"); err != nil {
		return nil, err
	}
	return out, nil
}

// TransactionReceipt returns the receipt for hash, or nil while pending.
func (a *Adapter) TransactionReceipt(ctx context.Context, hash common.Hash) (*TxReceipt, error) {
	var r *TxReceipt
	if err := a.request(ctx, &r, "eth_getTransactionReceipt", hash); err != nil {
		return nil, err
	}
	return r, nil
}

// PersonalSign asks the wallet for an EIP-191 signature of msg by account.
func (a *Adapter) PersonalSign(ctx context.Context, msg []byte, account common.Address) ([]byte, error) {
	var sig hexutil.Bytes
	if err := a.request(ctx, &sig, "personal_sign", hexutil.Bytes(msg), account); err != nil {
		return nil, err
	}
	return sig, nil
}

func (a *Adapter) request(ctx context.Context, out any, method string, params ...any) error {
	log.Debug().Str("method", method).Msg("provider request")
	raw, err := a.p.Request(ctx, method, params...)
	if err != nil {
		log.Debug().Str("method", method).Err(err).Msg("provider request failed")
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decoding result: %w", method, err)
	}
	return nil
}
