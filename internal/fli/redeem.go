package fli

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"poly-fli/internal/contracts"
	"poly-fli/internal/ethutil"
	"poly-fli/internal/gas"
	"poly-fli/internal/journal"
	"poly-fli/internal/receipt"
	"poly-fli/internal/router"
)

type RedeemRequest struct {
	SetToken string
	Amount   string
	// OutputToken defaults to the set's collateral.
	OutputToken string

	// MinPriceUSD (per set) and OutputPriceUSD bound the proceeds. When both
	// are zero the bound comes from quotes minus SlippagePct.
	MinPriceUSD    decimal.Decimal
	OutputPriceUSD decimal.Decimal
	SlippagePct    decimal.Decimal
}

type RedeemPlan struct {
	From      common.Address
	Set       contracts.TokenInfo
	SetAmount *big.Int
	Output    contracts.TokenInfo
	Leveraged contracts.LeveragedTokenData

	CollateralForDebt  *router.Route
	CollateralToOutput *router.Route

	// CollateralProceeds is the collateral left once the debt leg is paid.
	CollateralProceeds *big.Int
	QuotedAmountOut    *big.Int
	MinAmountOut       *big.Int
	BudgetSource       string

	MinPriceUSD    decimal.Decimal
	OutputPriceUSD decimal.Decimal

	SetBalance    *big.Int
	Allowance     *big.Int
	OutputBalance *big.Int
}

func (p *RedeemPlan) Args() contracts.RedeemArgs {
	return contracts.RedeemArgs{
		SetToken:                  p.Set.Address,
		SetAmount:                 p.SetAmount,
		OutputToken:               p.Output.Address,
		MinAmountOutputToken:      p.MinAmountOut,
		Exchange:                  contracts.ExchangeUniV3,
		SwapDataCollateralForDebt: p.CollateralForDebt.SwapData(),
		SwapDataOutputToken:       p.CollateralToOutput.SwapData(),
	}
}

// Check fails when the account holds fewer set tokens than it redeems.
func (p *RedeemPlan) Check() error {
	if p.SetBalance != nil && p.SetBalance.Cmp(p.SetAmount) < 0 {
		return &BalanceError{Symbol: p.Set.Symbol, Decimals: p.Set.Decimals, Have: p.SetBalance, Need: p.SetAmount}
	}
	return nil
}

func (p *RedeemPlan) Summary(b *gas.Budget) map[string]any {
	args := p.Args()
	m := map[string]any{
		"setToken":     p.Set.Name,
		"budgetSource": p.BudgetSource,
		"from":         p.From.Hex(),
		"arguments": map[string]any{
			"setTokenAddress":           args.SetToken.Hex(),
			"setAmount":                 ethutil.FormatUnits(args.SetAmount, p.Set.Decimals),
			"outputTokenAddress":        args.OutputToken.Hex(),
			"minAmountOut":              ethutil.FormatUnits(args.MinAmountOutputToken, p.Output.Decimals),
			"swapDataCollateralForDebt": args.SwapDataCollateralForDebt,
			"swapDataOutputToken":       args.SwapDataOutputToken,
		},
		"quotedAmountOut": ethutil.FormatUnits(p.QuotedAmountOut, p.Output.Decimals),
	}
	if p.BudgetSource == budgetPrice {
		m["setMinPrice"] = p.MinPriceUSD.String()
		m["outputTokenPrice"] = p.OutputPriceUSD.String()
	}
	if p.SetBalance != nil {
		m["setBalance"] = ethutil.FormatUnits(p.SetBalance, p.Set.Decimals)
	}
	if b != nil {
		m["gasCostEstimate"] = ethutil.FormatEther(b.CostEstimate)
		m["gasCostLimit"] = ethutil.FormatEther(b.CostLimit)
	}
	return m
}

// PlanRedeem reads chain state, routes both swap legs and sizes
// minAmountOut. It sends nothing.
func (s *Session) PlanRedeem(ctx context.Context, req RedeemRequest) (*RedeemPlan, error) {
	if err := s.init(); err != nil {
		return nil, err
	}
	withPrice, err := usePrices(req.MinPriceUSD, req.OutputPriceUSD)
	if err != nil {
		return nil, err
	}

	setToken, err := s.Registry.Resolve(req.SetToken)
	if err != nil {
		return nil, fmt.Errorf("set token: %w", err)
	}
	set, err := s.tokenInfo(ctx, setToken.Address)
	if err != nil {
		return nil, err
	}
	setAmount, err := ethutil.ParseUnits(req.Amount, set.Decimals)
	if err != nil {
		return nil, fmt.Errorf("set amount: %w", err)
	}
	if setAmount.Sign() == 0 {
		return nil, fmt.Errorf("set amount must be positive")
	}

	lev, err := s.leveragedData(ctx, set.Address, setAmount, false)
	if err != nil {
		return nil, err
	}
	if err := s.checkTokens(setToken, lev); err != nil {
		return nil, err
	}

	outputAddr := lev.CollateralToken
	if req.OutputToken != "" {
		t, err := s.Registry.Resolve(req.OutputToken)
		if err != nil {
			return nil, fmt.Errorf("output token: %w", err)
		}
		outputAddr = t.Address
	}
	output, err := s.tokenInfo(ctx, outputAddr)
	if err != nil {
		return nil, err
	}

	plan := &RedeemPlan{
		From:           s.From,
		Set:            set,
		SetAmount:      setAmount,
		Output:         output,
		Leveraged:      lev,
		MinPriceUSD:    req.MinPriceUSD,
		OutputPriceUSD: req.OutputPriceUSD,
	}

	plan.CollateralForDebt, err = s.route(ctx, lev.CollateralToken, lev.DebtToken, lev.DebtAmount, router.ExactOutput)
	if err != nil {
		return nil, err
	}
	plan.CollateralProceeds, err = RedeemProceeds(lev.CollateralAmount, plan.CollateralForDebt.AmountIn, s.premiumBps())
	if err != nil {
		return nil, err
	}
	plan.CollateralToOutput, err = s.route(ctx, lev.CollateralToken, output.Address, plan.CollateralProceeds, router.ExactInput)
	if err != nil {
		return nil, err
	}
	plan.QuotedAmountOut = new(big.Int).Set(plan.CollateralToOutput.AmountOut)

	if withPrice {
		plan.BudgetSource = budgetPrice
		plan.MinAmountOut, err = PriceBound(ethutil.FromBaseUnits(setAmount, set.Decimals), req.MinPriceUSD, req.OutputPriceUSD, output.Decimals)
		if err != nil {
			return nil, err
		}
		if plan.QuotedAmountOut.Cmp(plan.MinAmountOut) < 0 {
			s.Log.Warn().
				Str("min_amount_out", ethutil.FormatUnits(plan.MinAmountOut, output.Decimals)).
				Str("quoted_amount_out", ethutil.FormatUnits(plan.QuotedAmountOut, output.Decimals)).
				Msg("quoted proceeds are below the min price, redemption will likely revert")
		}
	} else {
		plan.BudgetSource = budgetQuote
		plan.MinAmountOut = SubSlippage(plan.QuotedAmountOut, slippageOrDefault(req.SlippagePct))
	}

	plan.SetBalance, plan.Allowance, err = s.holdings(ctx, set.Address)
	if err != nil {
		return nil, err
	}
	if s.From != (common.Address{}) {
		plan.OutputBalance, err = s.balanceOf(ctx, output.Address)
		if err != nil {
			return nil, err
		}
	}

	s.Log.Info().
		Str("set", set.Symbol).
		Str("amount", req.Amount).
		Str("output", output.Symbol).
		Str("min_amount_out", ethutil.FormatUnits(plan.MinAmountOut, output.Decimals)).
		Str("budget", plan.BudgetSource).
		Msg("redeem planned")
	return plan, nil
}

// Redeem plans, approves the set token if needed, confirms with the
// operator and sends redeemExactSetForERC20.
func (s *Session) Redeem(ctx context.Context, req RedeemRequest) (*Result, error) {
	res, err := s.redeem(ctx, req)
	return res, s.fail("redeem", err)
}

func (s *Session) redeem(ctx context.Context, req RedeemRequest) (*Result, error) {
	if err := s.init(); err != nil {
		return nil, err
	}
	if s.Signer == nil {
		return nil, ErrNoSigner
	}
	s.Console.Println("Gas Price:", s.Gas.String())

	plan, err := s.PlanRedeem(ctx, req)
	if err != nil {
		return nil, err
	}
	s.Console.PrintJSON("swapDataCollateralForDebt", plan.CollateralForDebt.SwapData())
	s.Console.Println("setBalance", ethutil.FormatUnits(plan.SetBalance, plan.Set.Decimals))
	if err := plan.Check(); err != nil {
		return nil, err
	}
	s.record(journal.Event{Op: "redeem", Event: journal.KindPlan, From: s.From.Hex(), Plan: plan.Summary(nil)})

	if err := s.EnsureAllowance(ctx, plan.Set, plan.Allowance, plan.SetAmount,
		"Do you want approve the exchange Issuance contract to spend your token"); err != nil {
		return nil, err
	}

	s.Console.PrintJSON("Transaction data", plan.Summary(nil))
	s.Console.Println("Estimating gas")
	eil := contracts.NewExchangeIssuance(s.Issuance, s.Backend)
	args := plan.Args()
	data, err := eil.PackRedeemExactSetForERC20(args)
	if err != nil {
		return nil, err
	}
	c := txCall{
		op:   "redeem",
		to:   s.Issuance,
		data: data,
		send: func(opts *bind.TransactOpts) (*types.Transaction, error) {
			return eil.RedeemExactSetForERC20(opts, args)
		},
	}
	b, err := s.prepare(ctx, c)
	if err != nil {
		return nil, err
	}
	s.Console.PrintFields("Gas", b.Summary())

	if err := s.Console.Confirm("Do you want to continue and redeem"); err != nil {
		return nil, err
	}

	tx, rcpt, err := s.submit(ctx, c, b)
	if err != nil {
		return nil, err
	}

	res := newResult("redeem", tx, rcpt, s.From)
	res.Spent = new(big.Int).Neg(receipt.DeltaOf(res.Deltas, plan.Set.Address))
	after, err := s.balanceOf(ctx, plan.Output.Address)
	if err != nil || plan.OutputBalance == nil {
		if err != nil {
			s.Log.Warn().Err(err).Msg("read output balance after redeem")
		}
		res.Received = receipt.DeltaOf(res.Deltas, plan.Output.Address)
	} else {
		res.Received = new(big.Int).Sub(after, plan.OutputBalance)
	}
	s.Console.PrintFields("Result", map[string]any{
		"Output token received": ethutil.FormatUnits(res.Received, plan.Output.Decimals) + " " + plan.Output.Symbol,
		"Set tokens redeemed":   ethutil.FormatUnits(res.Spent, plan.Set.Decimals) + " " + plan.Set.Symbol,
		"Tx fee":                ethutil.FormatEther(res.FeeWei) + " MATIC",
	})
	return res, nil
}
