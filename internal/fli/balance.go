package fli

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"poly-fli/internal/contracts"
	"poly-fli/internal/ethutil"
)

type Holding struct {
	Token     contracts.TokenInfo `json:"token"`
	Balance   *big.Int            `json:"balance"`
	Allowance *big.Int            `json:"allowance"`
}

func (h Holding) Fields() map[string]any {
	return map[string]any{
		"address":   h.Token.Address.Hex(),
		"balance":   ethutil.FormatUnits(h.Balance, h.Token.Decimals),
		"allowance": ethutil.FormatUnits(h.Allowance, h.Token.Decimals),
	}
}

// Holdings reads the account's native balance and, per token, its balance
// and allowance to the issuance contract.
func (s *Session) Holdings(ctx context.Context, tokens []common.Address) (*big.Int, []Holding, error) {
	if err := s.init(); err != nil {
		return nil, nil, err
	}
	if s.From == (common.Address{}) {
		return nil, nil, fmt.Errorf("account address required")
	}

	balCtx, cancel := context.WithTimeout(ctx, s.CallTimeout)
	native, err := s.Backend.BalanceAt(balCtx, s.From, nil)
	cancel()
	if err != nil {
		return nil, nil, fmt.Errorf("native balance: %w", err)
	}

	out := make([]Holding, 0, len(tokens))
	for _, addr := range tokens {
		info, err := s.tokenInfo(ctx, addr)
		if err != nil {
			return nil, nil, err
		}
		bal, allowance, err := s.holdings(ctx, addr)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", info.Symbol, err)
		}
		out = append(out, Holding{Token: info, Balance: bal, Allowance: allowance})
	}
	return native, out, nil
}
