package gas

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"poly-fli/internal/ethutil"
)

// DefaultScalingPct pads node estimates before they become the gas limit.
const DefaultScalingPct = 110

// ScaleLimit returns estimate * pct / 100, never below the estimate.
func ScaleLimit(estimate uint64, pct uint64) uint64 {
	if pct < 100 {
		pct = 100
	}
	scaled := new(big.Int).Mul(new(big.Int).SetUint64(estimate), new(big.Int).SetUint64(pct))
	scaled.Quo(scaled, big.NewInt(100))
	if !scaled.IsUint64() {
		return ^uint64(0)
	}
	return scaled.Uint64()
}

type Budget struct {
	Estimate     uint64   `json:"estimate"`
	Limit        uint64   `json:"limit"`
	PerGas       *big.Int `json:"per_gas"`
	CostEstimate *big.Int `json:"cost_estimate"`
	CostLimit    *big.Int `json:"cost_limit"`
}

func NewBudget(estimate uint64, scalingPct uint64, p Pricing) Budget {
	limit := ScaleLimit(estimate, scalingPct)
	per := p.MaxPerGas()
	return Budget{
		Estimate:     estimate,
		Limit:        limit,
		PerGas:       per,
		CostEstimate: new(big.Int).Mul(new(big.Int).SetUint64(estimate), per),
		CostLimit:    new(big.Int).Mul(new(big.Int).SetUint64(limit), per),
	}
}

// Summary renders costs in the native token for operator output.
func (b Budget) Summary() map[string]any {
	return map[string]any{
		"gasEstimate":     b.Estimate,
		"gasLimit":        b.Limit,
		"gasPriceGwei":    ethutil.FormatGwei(b.PerGas),
		"gasCostEstimate": ethutil.FormatEther(b.CostEstimate),
		"gasCostLimit":    ethutil.FormatEther(b.CostLimit),
	}
}

// Covers reports whether balance pays for the budget at its limit.
func (b Budget) Covers(balance *big.Int) bool {
	return balance != nil && balance.Cmp(b.CostLimit) >= 0
}

// Estimate asks the node how much gas a call to `to` with data would use.
func Estimate(ctx context.Context, est ethereum.GasEstimator, from, to common.Address, data []byte) (uint64, error) {
	msg := ethereum.CallMsg{From: from, To: &to, Data: data}
	g, err := est.EstimateGas(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("estimate gas to %s: %w", to.Hex(), err)
	}
	return g, nil
}
