package chain

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"

	"github.com/shopspring/decimal"
)

// Decimals is the scale shared by POL and the DBC token.
const Decimals = 18

// MaxUint256Bits bounds base-unit amounts; ABI uint256 cannot hold more.
const MaxUint256Bits = 256

var (
	// ErrInvalidAmount is returned for empty, negative or non-numeric amounts.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrAmountTooLarge is returned for amounts that do not fit in a uint256.
	// It also matches ErrInvalidAmount.
	ErrAmountTooLarge = fmt.Errorf("%w: does not fit in uint256", ErrInvalidAmount)
	// ErrTooPrecise is returned when an amount has more fractional digits
	// than the unit can represent. It also matches ErrInvalidAmount.
	ErrTooPrecise = fmt.Errorf("%w: too many decimal places", ErrInvalidAmount)
)

// Plain decimal notation only: no sign, no exponent.
var amountPattern = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)

// ParseAmount validates a user-entered decimal amount.
func ParseAmount(amount string) (decimal.Decimal, error) {
	if !amountPattern.MatchString(amount) {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	return d, nil
}

// ToBaseUnits converts a decimal amount to base units at the given scale.
// Amounts that would need rounding are rejected.
func ToBaseUnits(amount string, decimals int32) (*big.Int, error) {
	d, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	if -d.Exponent() > decimals {
		// "1.50" is fine at 1 decimal; only significant digits count.
		trimmed := d.Truncate(decimals)
		if !trimmed.Equal(d) {
			return nil, fmt.Errorf("%w: %q has more than %d", ErrTooPrecise, amount, decimals)
		}
	}
	raw := d.Shift(decimals).BigInt()
	if raw.BitLen() > MaxUint256Bits {
		return nil, fmt.Errorf("%w: %q", ErrAmountTooLarge, amount)
	}
	return raw, nil
}

// FromBaseUnits converts base units back to a decimal string with trailing
// zeros removed.
func FromBaseUnits(raw *big.Int, decimals int32) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw, -decimals).String()
}

// FormatUnits renders base units with a fixed number of places for display.
func FormatUnits(raw *big.Int, decimals int32, places int32) string {
	if raw == nil {
		raw = new(big.Int)
	}
	return decimal.NewFromBigInt(raw, -decimals).StringFixed(places)
}
