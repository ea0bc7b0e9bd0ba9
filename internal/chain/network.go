package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Currency describes a network's native currency.
type Currency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Network is an EVM network descriptor.
type Network struct {
	ChainID        int64    `json:"chain_id"`
	Name           string   `json:"name"`
	NativeCurrency Currency `json:"native_currency"`
	RPCURLs        []string `json:"rpc_urls"`
	ExplorerURL    string   `json:"explorer_url,omitempty"`
}

// HexChainID returns the chain id as a 0x-prefixed quantity, e.g. "0x13882".
func (n Network) HexChainID() string {
	return HexChainID(n.ChainID)
}

// HexChainID formats id the way wallets expect it in chainId fields.
func HexChainID(id int64) string {
	return hexutil.EncodeUint64(uint64(id))
}

// TxURL links to hash on the network's explorer, or returns "" when the
// network has none.
func (n Network) TxURL(hash string) string {
	if n.ExplorerURL == "" {
		return ""
	}
	return strings.TrimSuffix(n.ExplorerURL, "/") + "/tx/" + hash
}

// AddChainParams is the single parameter object of wallet_addEthereumChain
// (EIP-3085).
type AddChainParams struct {
	ChainID           string   `json:"chainId"`
	ChainName         string   `json:"chainName"`
	NativeCurrency    Currency `json:"nativeCurrency"`
	RPCURLs           []string `json:"rpcUrls"`
	BlockExplorerURLs []string `json:"blockExplorerUrls,omitempty"`
}

// SwitchChainParams is the single parameter object of
// wallet_switchEthereumChain (EIP-3326).
type SwitchChainParams struct {
	ChainID string `json:"chainId"`
}

// AddParams returns the wallet_addEthereumChain payload for n.
func (n Network) AddParams() AddChainParams {
	p := AddChainParams{
		ChainID:        n.HexChainID(),
		ChainName:      n.Name,
		NativeCurrency: n.NativeCurrency,
		RPCURLs:        n.RPCURLs,
	}
	if n.ExplorerURL != "" {
		p.BlockExplorerURLs = []string{n.ExplorerURL}
	}
	return p
}

// Network converts an add-chain request back to a descriptor. It rejects
// requests a wallet could not act on.
func (p AddChainParams) Network() (Network, error) {
	id, err := ParseChainID(p.ChainID)
	if err != nil {
		return Network{}, err
	}
	if id == 0 {
		return Network{}, errors.New("chainId must be positive")
	}
	if p.ChainName == "" {
		return Network{}, errors.New("chainName is required")
	}
	if len(p.RPCURLs) == 0 {
		return Network{}, fmt.Errorf("chain %s: at least one rpc url is required", p.ChainID)
	}
	n := Network{
		ChainID:        id,
		Name:           p.ChainName,
		NativeCurrency: p.NativeCurrency,
		RPCURLs:        p.RPCURLs,
	}
	if len(p.BlockExplorerURLs) > 0 {
		n.ExplorerURL = p.BlockExplorerURLs[0]
	}
	return n, nil
}
