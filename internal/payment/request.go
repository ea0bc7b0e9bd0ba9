package payment

import (
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/w3pay/internal/chain"
	"github.com/Mohsinsiddi/w3pay/internal/network"
	"github.com/Mohsinsiddi/w3pay/internal/provider"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
)

// AssetKind is what a transfer moves.
type AssetKind int

const (
	// Token transfers the ERC-20 deposit token.
	Token AssetKind = iota
	// Native transfers the network's native currency.
	Native
)

func (k AssetKind) String() string {
	if k == Native {
		return "native"
	}
	return "token"
}

// ParseAssetKind accepts "token" or "native".
func ParseAssetKind(s string) (AssetKind, error) {
	switch s {
	case "token", "":
		return Token, nil
	case "native":
		return Native, nil
	}
	return Token, fmt.Errorf("unknown asset kind %q (want token or native)", s)
}

// Session is a connected wallet. It lives for one connection and is never
// persisted.
type Session struct {
	Provider provider.Provider
	Account  common.Address
	ChainID  int64
}

// HasAccount reports whether the wallet exposed an account.
func (s *Session) HasAccount() bool {
	return s != nil && s.Account != (common.Address{})
}

// TransferRequest is a validated transfer, bound to the network it was
// built on. It cannot be changed once built.
type TransferRequest struct {
	from   common.Address
	to     common.Address
	amount string
	raw    *big.Int
	kind   AssetKind
}

func (r *TransferRequest) From() common.Address { return r.from }
func (r *TransferRequest) To() common.Address   { return r.to }
func (r *TransferRequest) Amount() string       { return r.amount }
func (r *TransferRequest) Kind() AssetKind      { return r.kind }

// BaseUnits returns the amount scaled to 18 decimals.
func (r *TransferRequest) BaseUnits() *big.Int { return new(big.Int).Set(r.raw) }

type requestFields struct {
	From   string `validate:"required,eth_addr"`
	To     string `validate:"required,eth_addr"`
	Amount string `validate:"required,numeric"`
}

var validate = validator.New()

// NewTransferRequest builds a request from session. It fails with
// network.ErrNetworkMismatch unless the session is on expectedChainID, and
// with ErrInvalidAmount unless amount is a positive decimal that fits 18
// decimals. The amount is kept in canonical form: ".50" becomes "0.5".
func NewTransferRequest(s *Session, expectedChainID int64, from, to common.Address, amount string, kind AssetKind) (*TransferRequest, error) {
	if !s.HasAccount() {
		return nil, ErrNotConnected
	}
	if s.ChainID != expectedChainID {
		return nil, &network.MismatchError{Current: s.ChainID, Expected: expectedChainID}
	}
	raw, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	amount = chain.FromBaseUnits(raw, chain.Decimals)
	if err := validate.Struct(requestFields{From: from.Hex(), To: to.Hex(), Amount: amount}); err != nil {
		return nil, fmt.Errorf("invalid transfer request: %w", err)
	}
	if to == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero address", ErrInvalidRecipient)
	}
	return &TransferRequest{from: from, to: to, amount: amount, raw: raw, kind: kind}, nil
}

// parseAmount checks a user-entered amount and scales it to base units.
func parseAmount(amount string) (*big.Int, error) {
	raw, err := chain.ToBaseUnits(amount, chain.Decimals)
	if err != nil {
		return nil, err
	}
	if raw.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %q must be greater than zero", ErrInvalidAmount, amount)
	}
	return raw, nil
}
