package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/w3pay/internal/provider"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	// ErrTransferRejected is returned when the wallet or the chain refuses a
	// transfer: a revert, a gas failure or any other provider failure.
	ErrTransferRejected = errors.New("transfer rejected")
	// ErrInsufficientFunds is a rejection whose provider-reported reason says
	// the sender cannot cover it. It also matches ErrTransferRejected.
	ErrInsufficientFunds = fmt.Errorf("%w: insufficient funds", ErrTransferRejected)
)

// Revert reasons and node messages that mean the sender is short. Matched
// case-insensitively.
var insufficientMarkers = []string{
	"insufficient funds",
	"insufficient balance",
	"exceeds balance",
}

// classify maps a provider failure onto the transfer sentinels. User
// rejection and cancellation pass through untouched.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, provider.ErrUserRejected),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	case insufficientFunds(err):
		return fmt.Errorf("%w: %w", ErrInsufficientFunds, err)
	default:
		return fmt.Errorf("%w: %w", ErrTransferRejected, err)
	}
}

func insufficientFunds(err error) bool {
	text := strings.ToLower(err.Error())
	var pe *provider.Error
	if errors.As(err, &pe) {
		if reason, ok := revertReason(pe.Data); ok {
			text += " " + strings.ToLower(reason)
		}
	}
	for _, m := range insufficientMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// revertReason decodes an Error(string) payload carried in a provider
// error's data field.
func revertReason(data json.RawMessage) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	var hexData string
	if err := json.Unmarshal(data, &hexData); err != nil {
		return "", false
	}
	raw, err := hexutil.Decode(hexData)
	if err != nil {
		return "", false
	}
	reason, err := abi.UnpackRevert(raw)
	if err != nil {
		return "", false
	}
	return reason, true
}

// estimationUnsupported reports whether the wallet simply cannot simulate,
// as opposed to the simulation failing.
func estimationUnsupported(err error) bool {
	code, ok := provider.Code(err)
	return ok && (code == provider.CodeUnsupportedMethod || code == provider.CodeMethodNotFound)
}
