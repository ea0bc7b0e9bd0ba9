package payment

import (
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/w3pay/internal/backend"
	"github.com/Mohsinsiddi/w3pay/internal/chain"
	"github.com/Mohsinsiddi/w3pay/internal/config"
	"github.com/Mohsinsiddi/w3pay/internal/network"
	"github.com/Mohsinsiddi/w3pay/internal/provider"
	"github.com/Mohsinsiddi/w3pay/internal/token"
)

var (
	// ErrInvalidAmount is returned for an empty, non-numeric, non-positive or
	// over-precise amount. It is the same sentinel chain.ParseAmount uses.
	ErrInvalidAmount = chain.ErrInvalidAmount
	// ErrInvalidRecipient is returned for a malformed withdrawal recipient.
	ErrInvalidRecipient = errors.New("invalid recipient address")
	// ErrNotConnected is returned by operations that need a wallet session.
	ErrNotConnected = errors.New("wallet not connected")
	// ErrInvalidTransition is returned when an operation is not allowed in
	// the controller's current state.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// StatusMessage turns a flow error into the line shown to the user.
func StatusMessage(err error) string {
	var mismatch *network.MismatchError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, provider.ErrProviderUnavailable):
		return "No wallet found. Add a wallet with `w3pay wallet add`, or run a wallet that serves JSON-RPC and set provider=remote."
	case errors.As(err, &mismatch) && mismatch.Remedy == network.RemedyAdded:
		return fmt.Sprintf("%s was added to your wallet. Switch to it and try again.", config.TargetChainName)
	case errors.As(err, &mismatch) && mismatch.Remedy == network.RemedySwitched:
		return fmt.Sprintf("Your wallet was switched to %s. Try again.", config.TargetChainName)
	case errors.Is(err, network.ErrNetworkMismatch):
		return fmt.Sprintf("Wrong network. Switch your wallet to %s and try again.", config.TargetChainName)
	case errors.Is(err, provider.ErrUserRejected):
		return "Request rejected in wallet."
	case errors.Is(err, token.ErrInsufficientFunds):
		return "Transaction failed: insufficient funds."
	case errors.Is(err, token.ErrTransferRejected):
		return "Transaction failed. Check gas settings."
	case errors.Is(err, backend.ErrBackendUnreachable):
		return "Transfer sent, but the backend could not be notified. Your balance may be out of sync."
	case errors.Is(err, ErrInvalidAmount):
		return "Enter a valid amount."
	case errors.Is(err, ErrInvalidRecipient):
		return "Enter a valid recipient address."
	case errors.Is(err, ErrNotConnected):
		return "Connect your wallet first."
	case errors.Is(err, ErrInvalidTransition):
		return "That action is not available right now."
	default:
		return "Something went wrong: " + err.Error()
	}
}
