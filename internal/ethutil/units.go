package ethutil

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	GweiDecimals  = 9
	EtherDecimals = 18
)

// ParseUnits converts a human amount ("1.5") into base units for a token with
// the given decimals. More fractional digits than decimals is an error.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", amount)
	}
	shifted := d.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d fractional digits", amount, decimals)
	}
	return shifted.BigInt(), nil
}

// ToBaseUnits converts a computed decimal into base units, truncating any
// precision beyond decimals.
func ToBaseUnits(d decimal.Decimal, decimals uint8) *big.Int {
	if d.IsNegative() {
		return new(big.Int)
	}
	return d.Shift(int32(decimals)).Truncate(0).BigInt()
}

// FromBaseUnits is the inverse of ToBaseUnits.
func FromBaseUnits(v *big.Int, decimals uint8) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -int32(decimals))
}

func FormatUnits(v *big.Int, decimals uint8) string {
	return FromBaseUnits(v, decimals).String()
}

func FormatGwei(v *big.Int) string {
	return FormatUnits(v, GweiDecimals)
}

func FormatEther(v *big.Int) string {
	return FormatUnits(v, EtherDecimals)
}
