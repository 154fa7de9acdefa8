package fli

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"poly-fli/internal/ethutil"
	"poly-fli/internal/operator"
	"poly-fli/internal/receipt"
	"poly-fli/internal/wallet"
)

var (
	ErrAborted             = operator.ErrAborted
	ErrNoSigner            = wallet.ErrNoSigner
	ErrReverted            = receipt.ErrReverted
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrTokenMismatch       = errors.New("token mismatch")
)

// BalanceError reports a balance below what a step needs.
type BalanceError struct {
	Symbol   string
	Decimals uint8
	Have     *big.Int
	Need     *big.Int
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("Not enough %s balance: have %s, need %s",
		e.Symbol, ethutil.FormatUnits(e.Have, e.Decimals), ethutil.FormatUnits(e.Need, e.Decimals))
}

func (e *BalanceError) Unwrap() error { return ErrInsufficientBalance }

// MismatchError reports a leveraged token whose on-chain debt or collateral
// differs from the registry's expectation.
type MismatchError struct {
	Kind string // "Debt" or "Collateral"
	Got  common.Address
	Want common.Address
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s token mismatch: contract reports %s, expected %s", e.Kind, e.Got.Hex(), e.Want.Hex())
}

func (e *MismatchError) Unwrap() error { return ErrTokenMismatch }
