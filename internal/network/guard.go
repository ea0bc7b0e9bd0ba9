// Package network keeps a wallet on the network payments are made on.
package network

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/w3pay/internal/chain"
	"github.com/Mohsinsiddi/w3pay/internal/provider"
	"github.com/rs/zerolog/log"
)

// ErrNetworkMismatch is returned while the wallet is on any chain other than
// the expected one.
var ErrNetworkMismatch = errors.New("wallet is on the wrong network")

// Remedy is what the guard asked the wallet to do about a mismatch.
type Remedy string

const (
	RemedySwitched Remedy = "switched"
	RemedyAdded    Remedy = "added"
	RemedyFailed   Remedy = "failed"
)

// MismatchError describes a mismatch and the remediation that was attempted.
// Err holds the provider error when the remedy failed.
type MismatchError struct {
	Current  int64
	Expected int64
	Remedy   Remedy
	Err      error
}

func (e *MismatchError) Error() string {
	msg := fmt.Sprintf("wallet is on chain %d, expected %d", e.Current, e.Expected)
	if e.Remedy != "" {
		msg += " (" + string(e.Remedy) + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrNetworkMismatch) hold.
func (e *MismatchError) Is(target error) bool { return target == ErrNetworkMismatch }

func (e *MismatchError) Unwrap() error { return e.Err }

// Guard checks that a wallet is on Target and, when it is not, asks the
// wallet to switch or to add the network.
type Guard struct {
	wallet *provider.Adapter
	target chain.Network
}

// NewGuard returns a guard for target.
func NewGuard(wallet *provider.Adapter, target chain.Network) *Guard {
	return &Guard{wallet: wallet, target: target}
}

// Target returns the expected network.
func (g *Guard) Target() chain.Network { return g.target }

// Ensure returns nil when the wallet reports the expected chain id.
//
// On a mismatch it requests wallet_switchEthereumChain, falling back to
// wallet_addEthereumChain when the wallet does not know the network, and
// then returns a *MismatchError regardless of the outcome. The caller has to
// prompt again; a later Ensure passes once the wallet reports the expected
// chain.
func (g *Guard) Ensure(ctx context.Context) error {
	current, err := g.wallet.CurrentChainID(ctx)
	if err != nil {
		return fmt.Errorf("reading chain id: %w", err)
	}
	if current == g.target.ChainID {
		return nil
	}

	mismatch := &MismatchError{Current: current, Expected: g.target.ChainID}
	log.Debug().Int64("current", current).Int64("expected", g.target.ChainID).Msg("network mismatch")

	err = g.wallet.SwitchChain(ctx, g.target.ChainID)
	switch {
	case err == nil:
		mismatch.Remedy = RemedySwitched
	case errors.Is(err, provider.ErrUnrecognizedChain):
		if addErr := g.wallet.AddChain(ctx, g.target); addErr != nil {
			mismatch.Remedy, mismatch.Err = RemedyFailed, addErr
		} else {
			mismatch.Remedy = RemedyAdded
		}
	default:
		mismatch.Remedy, mismatch.Err = RemedyFailed, err
	}
	log.Debug().Str("remedy", string(mismatch.Remedy)).Err(mismatch.Err).Msg("network remediation")
	return mismatch
}
