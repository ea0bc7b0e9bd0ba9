package provider

import (
	"context"
	"math/big"

	"github.com/Mohsinsiddi/w3pay/internal/chain"
	"github.com/Mohsinsiddi/w3pay/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
)

// TxSummary is what the user is asked to confirm before a transaction is
// signed.
type TxSummary struct {
	Network  chain.Network
	From     common.Address
	To       *common.Address
	Value    *big.Int
	Data     []byte
	Gas      uint64
	GasPrice *big.Int
}

// Approver stands in for the confirmation dialogs of a browser wallet.
// Returning false (or no accounts) rejects the request with code 4001.
type Approver interface {
	ConnectAccounts(ctx context.Context, candidates []*wallet.Account) ([]common.Address, error)
	SwitchNetwork(ctx context.Context, from, to chain.Network) (bool, error)
	AddNetwork(ctx context.Context, n chain.Network) (bool, error)
	SendTransaction(ctx context.Context, tx TxSummary) (bool, error)
	SignMessage(ctx context.Context, account common.Address, msg []byte) (bool, error)
}

// AutoApprove approves everything and connects the first candidate account.
type AutoApprove struct{}

func (AutoApprove) ConnectAccounts(_ context.Context, candidates []*wallet.Account) ([]common.Address, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	return []common.Address{candidates[0].Address}, nil
}

func (AutoApprove) SwitchNetwork(context.Context, chain.Network, chain.Network) (bool, error) {
	return true, nil
}

func (AutoApprove) AddNetwork(context.Context, chain.Network) (bool, error) { return true, nil }

func (AutoApprove) SendTransaction(context.Context, TxSummary) (bool, error) { return true, nil }

func (AutoApprove) SignMessage(context.Context, common.Address, []byte) (bool, error) {
	return true, nil
}
