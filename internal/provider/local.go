package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strconv"
	"sync"

	"github.com/Mohsinsiddi/w3pay/internal/chain"
	"github.com/Mohsinsiddi/w3pay/internal/rpc"
	"github.com/Mohsinsiddi/w3pay/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog/log"
)

// DefaultChainID is where a fresh local wallet starts.
const DefaultChainID = 1

// NetworkStore persists the local wallet's selected chain and the networks
// it learned through wallet_addEthereumChain.
type NetworkStore interface {
	LoadNetworks() (activeChainID int64, networks []chain.Network, err error)
	SaveNetworks(activeChainID int64, networks []chain.Network) error
}

// LocalOptions configures a LocalProvider.
type LocalOptions struct {
	Wallets  *wallet.Manager
	Approver Approver
	Networks NetworkStore  // optional; nil keeps state in memory
	Selector *rpc.Selector // optional; defaults to the fastest RPC
}

// nodeReads are forwarded to the active network's node unchanged.
var nodeReads = map[string]bool{
	"eth_blockNumber":           true,
	"eth_call":                  true,
	"eth_estimateGas":           true,
	"eth_gasPrice":              true,
	"eth_getBalance":            true,
	"eth_getCode":               true,
	"eth_getTransactionByHash":  true,
	"eth_getTransactionCount":   true,
	"eth_getTransactionReceipt": true,
}

// LocalProvider is a keystore-backed wallet that behaves like an injected
// browser wallet: it has an active network, authorizes accounts on request
// and asks its Approver before anything the user would have to confirm.
type LocalProvider struct {
	wallets  *wallet.Manager
	approver Approver
	store    NetworkStore
	selector *rpc.Selector

	mu         sync.Mutex
	registry   *chain.Registry
	added      []chain.Network
	active     chain.Network
	authorized []common.Address
	nodes      map[int64]*chain.Client
}

// NewLocal creates a local provider, restoring persisted network state.
func NewLocal(opts LocalOptions) (*LocalProvider, error) {
	if opts.Wallets == nil {
		return nil, errors.New("local provider: wallet manager is required")
	}
	if opts.Approver == nil {
		return nil, errors.New("local provider: approver is required")
	}
	p := &LocalProvider{
		wallets:  opts.Wallets,
		approver: opts.Approver,
		store:    opts.Networks,
		selector: opts.Selector,
		nodes:    make(map[int64]*chain.Client),
	}
	if p.selector == nil {
		p.selector = rpc.NewSelector(rpc.AlgorithmFastest, 0)
	}

	activeID := int64(DefaultChainID)
	if p.store != nil {
		id, added, err := p.store.LoadNetworks()
		if err != nil {
			return nil, fmt.Errorf("local provider: %w", err)
		}
		p.added = added
		if id != 0 {
			activeID = id
		}
	}
	p.registry = chain.NewRegistry(p.added...)

	active, err := p.registry.Get(activeID)
	if err != nil {
		// A persisted chain that no longer resolves falls back to the default.
		active, _ = p.registry.Get(DefaultChainID)
	}
	p.active = active
	return p, nil
}

// ActiveNetwork returns the network the wallet is currently on.
func (p *LocalProvider) ActiveNetwork() chain.Network {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Networks returns every network the wallet knows.
func (p *LocalProvider) Networks() []chain.Network {
	return p.registry.All()
}

// Request implements Provider.
func (p *LocalProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	switch method {
	case "eth_chainId":
		return encodeResult(p.ActiveNetwork().HexChainID())
	case "net_version":
		return encodeResult(strconv.FormatInt(p.ActiveNetwork().ChainID, 10))
	case "eth_accounts":
		return encodeResult(p.authorizedAccounts())
	case "eth_requestAccounts":
		return p.requestAccounts(ctx)
	case "wallet_switchEthereumChain":
		return p.switchChain(ctx, params)
	case "wallet_addEthereumChain":
		return p.addChain(ctx, params)
	case "eth_sendTransaction":
		return p.sendTransaction(ctx, params)
	case "personal_sign":
		return p.personalSign(ctx, params)
	}
	if nodeReads[method] {
		node, err := p.node(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := node.Call(ctx, method, params...)
		return raw, fromNode(err)
	}
	return nil, &Error{Code: CodeUnsupportedMethod, Message: fmt.Sprintf("method %s is not supported", method)}
}

func (p *LocalProvider) authorizedAccounts() []common.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := slices.Clone(p.authorized)
	if out == nil {
		out = []common.Address{}
	}
	return out
}

func (p *LocalProvider) requestAccounts(ctx context.Context) (json.RawMessage, error) {
	if accounts := p.authorizedAccounts(); len(accounts) > 0 {
		return encodeResult(accounts)
	}

	candidates := p.wallets.Signing()
	if len(candidates) == 0 {
		return nil, NewError(CodeUnauthorized, "no signing wallet available")
	}
	chosen, err := p.approver.ConnectAccounts(ctx, candidates)
	if err != nil {
		return nil, err
	}
	if len(chosen) == 0 {
		return nil, ErrUserRejected
	}
	for _, addr := range chosen {
		if _, err := p.wallets.Lookup(addr); err != nil {
			return nil, NewError(CodeUnauthorized, fmt.Sprintf("account %s is not managed by this wallet", addr.Hex()))
		}
	}

	p.mu.Lock()
	p.authorized = slices.Clone(chosen)
	p.mu.Unlock()
	log.Debug().Int("accounts", len(chosen)).Msg("local wallet connected")
	return encodeResult(chosen)
}

func (p *LocalProvider) switchChain(ctx context.Context, params []any) (json.RawMessage, error) {
	var req chain.SwitchChainParams
	if err := decodeParams("wallet_switchEthereumChain", params, &req); err != nil {
		return nil, err
	}
	id, err := chain.ParseChainID(req.ChainID)
	if err != nil {
		return nil, NewError(CodeInvalidParams, err.Error())
	}
	target, err := p.registry.Get(id)
	if err != nil {
		return nil, &Error{
			Code:    CodeUnrecognizedChain,
			Message: fmt.Sprintf("Unrecognized chain ID %q. Try adding the chain using wallet_addEthereumChain first.", req.ChainID),
		}
	}
	if err := p.promptSwitch(ctx, target); err != nil {
		return nil, err
	}
	return encodeResult(nil)
}

// promptSwitch asks the user and activates target. Switching to the active
// network is a no-op.
func (p *LocalProvider) promptSwitch(ctx context.Context, target chain.Network) error {
	current := p.ActiveNetwork()
	if current.ChainID == target.ChainID {
		return nil
	}
	ok, err := p.approver.SwitchNetwork(ctx, current, target)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserRejected
	}

	p.mu.Lock()
	p.active = target
	p.mu.Unlock()
	log.Debug().Int64("chain_id", target.ChainID).Str("name", target.Name).Msg("local wallet switched network")
	return p.persist()
}

func (p *LocalProvider) addChain(ctx context.Context, params []any) (json.RawMessage, error) {
	var req chain.AddChainParams
	if err := decodeParams("wallet_addEthereumChain", params, &req); err != nil {
		return nil, err
	}
	n, err := req.Network()
	if err != nil {
		return nil, NewError(CodeInvalidParams, err.Error())
	}

	if !p.registry.Has(n.ChainID) {
		ok, err := p.approver.AddNetwork(ctx, n)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrUserRejected
		}
		p.registry.Add(n)
		p.mu.Lock()
		p.added = append(p.added, n)
		p.mu.Unlock()
		log.Debug().Int64("chain_id", n.ChainID).Str("name", n.Name).Msg("local wallet added network")
		if err := p.persist(); err != nil {
			return nil, err
		}
	}

	// Like browser wallets, offer to switch right after adding. Declining
	// the switch does not undo the add.
	known, _ := p.registry.Get(n.ChainID)
	if err := p.promptSwitch(ctx, known); err != nil && !errors.Is(err, ErrUserRejected) {
		return nil, err
	}
	return encodeResult(nil)
}

func (p *LocalProvider) sendTransaction(ctx context.Context, params []any) (json.RawMessage, error) {
	var args TxArgs
	if err := decodeParams("eth_sendTransaction", params, &args); err != nil {
		return nil, err
	}
	if err := p.authorize(args.From); err != nil {
		return nil, err
	}
	network := p.ActiveNetwork()
	node, err := p.node(ctx)
	if err != nil {
		return nil, err
	}

	nonce, err := node.PendingNonce(ctx, args.From.Hex())
	if err != nil {
		return nil, fromNode(err)
	}
	gasPrice := (*big.Int)(args.GasPrice)
	if gasPrice == nil {
		if gasPrice, err = node.GasPrice(ctx); err != nil {
			return nil, fromNode(err)
		}
	}
	value := (*big.Int)(args.Value)
	if value == nil {
		value = new(big.Int)
	}
	var gas uint64
	if args.Gas != nil {
		gas = uint64(*args.Gas)
	} else {
		msg := chain.CallMsg{From: args.From.Hex(), Value: args.Value}
		if args.To != nil {
			msg.To = args.To.Hex()
		}
		if len(args.Data) > 0 {
			msg.Data = hexutil.Encode(args.Data)
		}
		if gas, err = node.EstimateGas(ctx, msg); err != nil {
			return nil, fromNode(err)
		}
	}

	ok, err := p.approver.SendTransaction(ctx, TxSummary{
		Network:  network,
		From:     args.From,
		To:       args.To,
		Value:    value,
		Data:     args.Data,
		Gas:      gas,
		GasPrice: gasPrice,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserRejected
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       args.To,
		Value:    value,
		Data:     args.Data,
	})
	signer, err := p.wallets.Signer(args.From)
	if err != nil {
		return nil, NewError(CodeInternal, err.Error())
	}
	signed, raw, err := signer.SignTx(tx, big.NewInt(network.ChainID))
	if err != nil {
		return nil, NewError(CodeInternal, err.Error())
	}
	hash, err := node.SendRawTransaction(ctx, hexutil.Encode(raw))
	if err != nil {
		return nil, fromNode(err)
	}
	log.Debug().Str("hash", hash).Str("local_hash", signed.Hash().Hex()).Uint64("nonce", nonce).Msg("local wallet broadcast transaction")
	return encodeResult(hash)
}

func (p *LocalProvider) personalSign(ctx context.Context, params []any) (json.RawMessage, error) {
	var (
		msg     hexutil.Bytes
		account common.Address
	)
	if err := decodeParams("personal_sign", params, &msg, &account); err != nil {
		return nil, err
	}
	if err := p.authorize(account); err != nil {
		return nil, err
	}
	ok, err := p.approver.SignMessage(ctx, account, msg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserRejected
	}
	signer, err := p.wallets.Signer(account)
	if err != nil {
		return nil, NewError(CodeInternal, err.Error())
	}
	sig, err := signer.SignText(msg)
	if err != nil {
		return nil, NewError(CodeInternal, err.Error())
	}
	return encodeResult(hexutil.Bytes(sig))
}

// authorize checks that addr was connected and still has a key. The key
// itself is only loaded once the user approved the request.
func (p *LocalProvider) authorize(addr common.Address) error {
	if !slices.Contains(p.authorizedAccounts(), addr) {
		return NewError(CodeUnauthorized, fmt.Sprintf("account %s has not been authorized", addr.Hex()))
	}
	acct, err := p.wallets.Lookup(addr)
	if err != nil {
		return NewError(CodeUnauthorized, err.Error())
	}
	if !acct.CanSign() {
		return NewError(CodeUnauthorized, fmt.Sprintf("account %s cannot sign", addr.Hex()))
	}
	return nil
}

// node returns a JSON-RPC client for the active network, selecting an RPC
// URL on first use.
func (p *LocalProvider) node(ctx context.Context) (*chain.Client, error) {
	network := p.ActiveNetwork()

	p.mu.Lock()
	c, ok := p.nodes[network.ChainID]
	p.mu.Unlock()
	if ok {
		return c, nil
	}

	url, err := p.selector.Select(ctx, network)
	if err != nil {
		return nil, &Error{Code: CodeChainDisconnected, Message: fmt.Sprintf("%s: %v", network.Name, err)}
	}
	c = chain.NewClient(url)

	p.mu.Lock()
	p.nodes[network.ChainID] = c
	p.mu.Unlock()
	return c, nil
}

func (p *LocalProvider) persist() error {
	if p.store == nil {
		return nil
	}
	p.mu.Lock()
	active, added := p.active.ChainID, slices.Clone(p.added)
	p.mu.Unlock()
	if err := p.store.SaveNetworks(active, added); err != nil {
		return NewError(CodeInternal, fmt.Sprintf("saving networks: %v", err))
	}
	return nil
}
