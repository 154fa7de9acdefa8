package fli

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"poly-fli/internal/ethutil"
)

// DefaultFlashLoanPremiumBps is the Aave v2 flash loan premium (0.09%).
const DefaultFlashLoanPremiumBps = 9

// DefaultSlippagePct is applied to quote-based budgets.
var DefaultSlippagePct = decimal.NewFromInt(5)

const divPrecision = 36

var hundred = decimal.NewFromInt(100)

// PriceBound converts a per-set USD price into an amount of a token priced in
// USD: amount * setPriceUSD / tokenPriceUSD, truncated to the token's
// decimals. It serves both the issuance maximum and the redemption minimum.
func PriceBound(setAmount, setPriceUSD, tokenPriceUSD decimal.Decimal, tokenDecimals uint8) (*big.Int, error) {
	if tokenPriceUSD.Sign() <= 0 {
		return nil, fmt.Errorf("token price must be positive, got %s", tokenPriceUSD)
	}
	if setPriceUSD.Sign() <= 0 {
		return nil, fmt.Errorf("set price must be positive, got %s", setPriceUSD)
	}
	v := setAmount.Mul(setPriceUSD).DivRound(tokenPriceUSD, divPrecision)
	return ethutil.ToBaseUnits(v, tokenDecimals), nil
}

// WithPremium returns v * (10000 + bps) / 10000, rounded up.
func WithPremium(v *big.Int, bps int64) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	num := new(big.Int).Mul(v, big.NewInt(10_000+bps))
	return ceilDiv(num, big.NewInt(10_000))
}

// AddSlippage returns v * (100 + pct) / 100, rounded up.
func AddSlippage(v *big.Int, pct decimal.Decimal) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return decimal.NewFromBigInt(v, 0).Mul(hundred.Add(pct)).DivRound(hundred, divPrecision).Ceil().BigInt()
}

// SubSlippage returns v * (100 - pct) / 100, rounded down and never negative.
func SubSlippage(v *big.Int, pct decimal.Decimal) *big.Int {
	if v == nil || pct.GreaterThanOrEqual(hundred) {
		return new(big.Int)
	}
	return decimal.NewFromBigInt(v, 0).Mul(hundred.Sub(pct)).DivRound(hundred, divPrecision).Floor().BigInt()
}

// IssueShortfall is the collateral the input token has to provide: the flash
// loaned collateral plus premium, minus what the borrowed debt swaps into.
func IssueShortfall(collateralAmount, collateralFromDebt *big.Int, premiumBps int64) *big.Int {
	need := WithPremium(collateralAmount, premiumBps)
	if collateralFromDebt != nil {
		need.Sub(need, collateralFromDebt)
	}
	if need.Sign() < 0 {
		return new(big.Int)
	}
	return need
}

// RedeemProceeds is the collateral left after selling enough of it to repay
// the flash loaned debt plus premium.
func RedeemProceeds(collateralAmount, collateralForDebt *big.Int, premiumBps int64) (*big.Int, error) {
	spent := WithPremium(collateralForDebt, premiumBps)
	left := new(big.Int).Sub(collateralAmount, spent)
	if left.Sign() <= 0 {
		return nil, fmt.Errorf("redemption leaves no collateral: collateral=%s needed for debt=%s", collateralAmount, spent)
	}
	return left, nil
}

func ceilDiv(a, b *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}
