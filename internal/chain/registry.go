package chain

import (
	"errors"
	"slices"
	"sync"
)

// ErrChainNotFound is returned when a chain is not in the registry.
var ErrChainNotFound = errors.New("chain not found")

// Registry is the set of networks a wallet knows how to reach. It starts
// with the built-in networks and grows through Add.
type Registry struct {
	mu       sync.RWMutex
	networks []Network
	byID     map[int64]int
}

// NewRegistry returns a registry holding the built-in networks plus extra.
// An extra network replaces a built-in one with the same chain id.
func NewRegistry(extra ...Network) *Registry {
	r := &Registry{byID: make(map[int64]int)}
	for _, n := range builtinNetworks() {
		r.put(n)
	}
	for _, n := range extra {
		r.put(n)
	}
	return r
}

// All returns every network, ordered by insertion.
func (r *Registry) All() []Network {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.networks)
}

// Get finds a network by chain id.
func (r *Registry) Get(id int64) (Network, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[id]
	if !ok {
		return Network{}, ErrChainNotFound
	}
	return r.networks[i], nil
}

// Has reports whether id is known.
func (r *Registry) Has(id int64) bool {
	_, err := r.Get(id)
	return err == nil
}

// Add registers n. It reports false when the chain id was already known, in
// which case the existing descriptor is kept.
func (r *Registry) Add(n Network) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[n.ChainID]; ok {
		return false
	}
	r.networks = append(r.networks, n)
	r.byID[n.ChainID] = len(r.networks) - 1
	return true
}

func (r *Registry) put(n Network) {
	if i, ok := r.byID[n.ChainID]; ok {
		r.networks[i] = n
		return
	}
	r.networks = append(r.networks, n)
	r.byID[n.ChainID] = len(r.networks) - 1
}

// --- chain data ---

func eth() Currency { return Currency{Name: "Ether", Symbol: "ETH", Decimals: 18} }

// builtinNetworks mirrors what a freshly installed browser wallet ships with.
// Test networks other than Sepolia must be added explicitly.
func builtinNetworks() []Network {
	return []Network{
		{
			ChainID: 1, Name: "Ethereum Mainnet", NativeCurrency: eth(),
			RPCURLs:     []string{"https://eth.llamarpc.com", "https://ethereum-rpc.publicnode.com"},
			ExplorerURL: "https://etherscan.io",
		},
		{
			ChainID: 11155111, Name: "Sepolia", NativeCurrency: Currency{Name: "Sepolia Ether", Symbol: "SepoliaETH", Decimals: 18},
			RPCURLs:     []string{"https://rpc.sepolia.org", "https://sepolia.gateway.tenderly.co"},
			ExplorerURL: "https://sepolia.etherscan.io",
		},
		{
			ChainID: 137, Name: "Polygon Mainnet", NativeCurrency: Currency{Name: "POL", Symbol: "POL", Decimals: 18},
			RPCURLs:     []string{"https://polygon-bor-rpc.publicnode.com", "https://polygon-pokt.nodies.app"},
			ExplorerURL: "https://polygonscan.com",
		},
		{
			ChainID: 8453, Name: "Base", NativeCurrency: eth(),
			RPCURLs:     []string{"https://mainnet.base.org", "https://base.llamarpc.com"},
			ExplorerURL: "https://basescan.org",
		},
		{
			ChainID: 42161, Name: "Arbitrum One", NativeCurrency: eth(),
			RPCURLs:     []string{"https://arb1.arbitrum.io/rpc", "https://arbitrum.llamarpc.com"},
			ExplorerURL: "https://arbiscan.io",
		},
		{
			ChainID: 10, Name: "OP Mainnet", NativeCurrency: eth(),
			RPCURLs:     []string{"https://mainnet.optimism.io", "https://optimism.llamarpc.com"},
			ExplorerURL: "https://optimistic.etherscan.io",
		},
		{
			ChainID: 56, Name: "BNB Smart Chain", NativeCurrency: Currency{Name: "BNB", Symbol: "BNB", Decimals: 18},
			RPCURLs:     []string{"https://bsc-dataseed.binance.org", "https://bsc-rpc.publicnode.com"},
			ExplorerURL: "https://bscscan.com",
		},
	}
}
