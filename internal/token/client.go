// Package token drives the DBC ERC-20 contract and native POL transfers
// through a connected wallet.
package token

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/w3pay/internal/chain"
	"github.com/Mohsinsiddi/w3pay/internal/config"
	"github.com/Mohsinsiddi/w3pay/internal/provider"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog/log"
)

// ReceiptStatus is what is known about a submitted transfer.
type ReceiptStatus int

const (
	// StatusPending means the wallet returned a hash and nothing more.
	StatusPending ReceiptStatus = iota
	StatusConfirmed
	StatusFailed
)

func (s ReceiptStatus) String() string {
	switch s {
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Receipt is the result of a transfer as reported by the wallet.
type Receipt struct {
	TxHash string
	Status ReceiptStatus
}

// Client talks to one ERC-20 contract through a wallet.
type Client struct {
	wallet   *provider.Adapter
	contract common.Address
}

// NewClient returns a client for the token at contract.
func NewClient(wallet *provider.Adapter, contract common.Address) *Client {
	return &Client{wallet: wallet, contract: contract}
}

// Contract returns the token address.
func (c *Client) Contract() common.Address { return c.contract }

// BalanceOf returns owner's token balance in base units.
func (c *Client) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	data, err := erc20.Pack("balanceOf", owner)
	if err != nil {
		return nil, err
	}
	out, err := c.wallet.Call(ctx, c.contract, data)
	if err != nil {
		return nil, fmt.Errorf("balanceOf: %w", err)
	}
	values, err := erc20.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("balanceOf: decoding result: %w", err)
	}
	bal, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf: unexpected result type %T", values[0])
	}
	return bal, nil
}

// Transfer sends raw base units of the token from one account to another.
//
// The transfer is simulated first so a revert is reported before the wallet
// prompts. Wallets that cannot simulate get a fixed gas limit instead.
func (c *Client) Transfer(ctx context.Context, from, to common.Address, raw *big.Int) (*Receipt, error) {
	if err := checkAmount(raw); err != nil {
		return nil, err
	}
	data, err := erc20.Pack("transfer", to, raw)
	if err != nil {
		return nil, err
	}
	args := provider.TxArgs{From: from, To: &c.contract, Data: data}

	if _, err := c.wallet.EstimateGas(ctx, args); err != nil {
		if !estimationUnsupported(err) {
			return nil, classify(err)
		}
		gas := hexutil.Uint64(config.GasLimitERC20Transfer)
		args.Gas = &gas
		log.Debug().Uint64("gas", config.GasLimitERC20Transfer).Msg("wallet cannot estimate gas, using fixed limit")
	}
	return c.send(ctx, args)
}

// TransferNative sends raw wei of the native currency with the fixed gas
// settings of a plain value transfer.
func (c *Client) TransferNative(ctx context.Context, from, to common.Address, raw *big.Int) (*Receipt, error) {
	if err := checkAmount(raw); err != nil {
		return nil, err
	}
	gas := hexutil.Uint64(config.GasLimitNativeTransfer)
	return c.send(ctx, provider.TxArgs{
		From:     from,
		To:       &to,
		Value:    (*hexutil.Big)(raw),
		Gas:      &gas,
		GasPrice: (*hexutil.Big)(NativeGasPrice()),
	})
}

// NativeGasPrice is the gas price used for native transfers, in wei.
func NativeGasPrice() *big.Int {
	return new(big.Int).Mul(big.NewInt(config.GasPriceNativeGwei), big.NewInt(1_000_000_000))
}

// WaitReceipt polls for the transaction's receipt every poll interval until
// it is mined or ctx ends. A reverted transaction yields a Failed receipt
// together with ErrTransferRejected.
func (c *Client) WaitReceipt(ctx context.Context, hash string, poll time.Duration) (*Receipt, error) {
	if poll <= 0 {
		poll = config.ReceiptPollPeriod
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	h := common.HexToHash(hash)
	for {
		r, err := c.wallet.TransactionReceipt(ctx, h)
		if err != nil {
			if ctx.Err() != nil {
				return &Receipt{TxHash: hash, Status: StatusPending}, ctx.Err()
			}
			return nil, fmt.Errorf("polling receipt: %w", err)
		}
		if r != nil {
			if !r.Succeeded() {
				return &Receipt{TxHash: hash, Status: StatusFailed}, fmt.Errorf("%w: transaction %s reverted", ErrTransferRejected, hash)
			}
			return &Receipt{TxHash: hash, Status: StatusConfirmed}, nil
		}
		select {
		case <-ctx.Done():
			return &Receipt{TxHash: hash, Status: StatusPending}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) send(ctx context.Context, args provider.TxArgs) (*Receipt, error) {
	hash, err := c.wallet.SendTransaction(ctx, args)
	if err != nil {
		return nil, classify(err)
	}
	log.Debug().Str("hash", hash.Hex()).Msg("transfer submitted")
	return &Receipt{TxHash: hash.Hex(), Status: StatusPending}, nil
}

func checkAmount(raw *big.Int) error {
	if raw == nil || raw.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", chain.ErrInvalidAmount)
	}
	if raw.BitLen() > chain.MaxUint256Bits {
		return chain.ErrAmountTooLarge
	}
	return nil
}
