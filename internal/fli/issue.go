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

type IssueRequest struct {
	SetToken string
	Amount   string
	// InputToken defaults to the set's collateral.
	InputToken string

	// MaxPriceUSD (per set) and InputPriceUSD bound the input spend. When
	// both are zero the bound comes from quotes plus SlippagePct.
	MaxPriceUSD   decimal.Decimal
	InputPriceUSD decimal.Decimal
	SlippagePct   decimal.Decimal
}

type IssuePlan struct {
	From      common.Address
	Set       contracts.TokenInfo
	SetAmount *big.Int
	Input     contracts.TokenInfo
	Leveraged contracts.LeveragedTokenData

	DebtForCollateral *router.Route
	InputToCollateral *router.Route

	// CollateralShortfall is the collateral the input must cover.
	CollateralShortfall *big.Int
	// QuotedAmountIn is the input the quotes ask for, before slippage. Nil
	// when the input route was sized from the price bound.
	QuotedAmountIn *big.Int
	MaxAmountIn    *big.Int
	BudgetSource   string

	MaxPriceUSD   decimal.Decimal
	InputPriceUSD decimal.Decimal

	InputBalance *big.Int
	Allowance    *big.Int
}

func (p *IssuePlan) Args() contracts.IssueArgs {
	return contracts.IssueArgs{
		SetToken:                  p.Set.Address,
		SetAmount:                 p.SetAmount,
		InputToken:                p.Input.Address,
		MaxAmountInputToken:       p.MaxAmountIn,
		Exchange:                  contracts.ExchangeUniV3,
		SwapDataDebtForCollateral: p.DebtForCollateral.SwapData(),
		SwapDataInputToken:        p.InputToCollateral.SwapData(),
	}
}

// Check fails when the account cannot fund MaxAmountIn.
func (p *IssuePlan) Check() error {
	if p.InputBalance != nil && p.InputBalance.Cmp(p.MaxAmountIn) < 0 {
		return &BalanceError{Symbol: p.Input.Symbol, Decimals: p.Input.Decimals, Have: p.InputBalance, Need: p.MaxAmountIn}
	}
	return nil
}

// Summary is the transaction data shown to the operator before sending.
func (p *IssuePlan) Summary(b *gas.Budget) map[string]any {
	args := p.Args()
	m := map[string]any{
		"setToken":     p.Set.Name,
		"budgetSource": p.BudgetSource,
		"from":         p.From.Hex(),
		"arguments": map[string]any{
			"setTokenAddress":           args.SetToken.Hex(),
			"setAmount":                 ethutil.FormatUnits(args.SetAmount, p.Set.Decimals),
			"inputTokenAddress":         args.InputToken.Hex(),
			"maxAmountIn":               ethutil.FormatUnits(args.MaxAmountInputToken, p.Input.Decimals),
			"swapDataDebtForCollateral": args.SwapDataDebtForCollateral,
			"swapDataInputToken":        args.SwapDataInputToken,
		},
	}
	if p.BudgetSource == budgetPrice {
		m["setMaxPrice"] = p.MaxPriceUSD.String()
		m["inputTokenPrice"] = p.InputPriceUSD.String()
	}
	if p.QuotedAmountIn != nil {
		m["quotedAmountIn"] = ethutil.FormatUnits(p.QuotedAmountIn, p.Input.Decimals)
	}
	if p.InputBalance != nil {
		m["inputTokenBalance"] = ethutil.FormatUnits(p.InputBalance, p.Input.Decimals)
	}
	if b != nil {
		m["gasCostEstimate"] = ethutil.FormatEther(b.CostEstimate)
		m["gasCostLimit"] = ethutil.FormatEther(b.CostLimit)
	}
	return m
}

const (
	budgetPrice = "price"
	budgetQuote = "quote"
)

func usePrices(setPrice, tokenPrice decimal.Decimal) (bool, error) {
	switch {
	case setPrice.IsZero() && tokenPrice.IsZero():
		return false, nil
	case setPrice.Sign() > 0 && tokenPrice.Sign() > 0:
		return true, nil
	default:
		return false, fmt.Errorf("set price and token price must be given together (got %s and %s)", setPrice, tokenPrice)
	}
}

// PlanIssue reads chain state, routes both swap legs and sizes maxAmountIn.
// It sends nothing.
func (s *Session) PlanIssue(ctx context.Context, req IssueRequest) (*IssuePlan, error) {
	if err := s.init(); err != nil {
		return nil, err
	}
	withPrice, err := usePrices(req.MaxPriceUSD, req.InputPriceUSD)
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

	lev, err := s.leveragedData(ctx, set.Address, setAmount, true)
	if err != nil {
		return nil, err
	}
	if err := s.checkTokens(setToken, lev); err != nil {
		return nil, err
	}

	inputAddr := lev.CollateralToken
	if req.InputToken != "" {
		t, err := s.Registry.Resolve(req.InputToken)
		if err != nil {
			return nil, fmt.Errorf("input token: %w", err)
		}
		inputAddr = t.Address
	}
	input, err := s.tokenInfo(ctx, inputAddr)
	if err != nil {
		return nil, err
	}

	plan := &IssuePlan{
		From:          s.From,
		Set:           set,
		SetAmount:     setAmount,
		Input:         input,
		Leveraged:     lev,
		MaxPriceUSD:   req.MaxPriceUSD,
		InputPriceUSD: req.InputPriceUSD,
	}

	plan.DebtForCollateral, err = s.route(ctx, lev.DebtToken, lev.CollateralToken, lev.DebtAmount, router.ExactInput)
	if err != nil {
		return nil, err
	}
	premium := s.premiumBps()
	plan.CollateralShortfall = IssueShortfall(lev.CollateralAmount, plan.DebtForCollateral.AmountOut, premium)

	if withPrice {
		plan.BudgetSource = budgetPrice
		plan.MaxAmountIn, err = PriceBound(ethutil.FromBaseUnits(setAmount, set.Decimals), req.MaxPriceUSD, req.InputPriceUSD, input.Decimals)
		if err != nil {
			return nil, err
		}
		plan.InputToCollateral, err = s.route(ctx, input.Address, lev.CollateralToken, plan.MaxAmountIn, router.ExactInput)
		if err != nil {
			return nil, err
		}
		if input.Address == lev.CollateralToken {
			plan.QuotedAmountIn = new(big.Int).Set(plan.CollateralShortfall)
		}
		if plan.InputToCollateral.AmountOut.Cmp(plan.CollateralShortfall) < 0 {
			s.Log.Warn().
				Str("max_amount_in", ethutil.FormatUnits(plan.MaxAmountIn, input.Decimals)).
				Str("collateral_from_input", plan.InputToCollateral.AmountOut.String()).
				Str("collateral_needed", plan.CollateralShortfall.String()).
				Msg("max price is below the quoted cost, issuance will likely revert")
		}
	} else {
		plan.BudgetSource = budgetQuote
		plan.InputToCollateral, err = s.route(ctx, input.Address, lev.CollateralToken, plan.CollateralShortfall, router.ExactOutput)
		if err != nil {
			return nil, err
		}
		plan.QuotedAmountIn = new(big.Int).Set(plan.InputToCollateral.AmountIn)
		plan.MaxAmountIn = AddSlippage(plan.QuotedAmountIn, slippageOrDefault(req.SlippagePct))
	}

	plan.InputBalance, plan.Allowance, err = s.holdings(ctx, input.Address)
	if err != nil {
		return nil, err
	}

	s.Log.Info().
		Str("set", set.Symbol).
		Str("amount", req.Amount).
		Str("input", input.Symbol).
		Str("max_amount_in", ethutil.FormatUnits(plan.MaxAmountIn, input.Decimals)).
		Str("budget", plan.BudgetSource).
		Msg("issue planned")
	return plan, nil
}

func (s *Session) premiumBps() int64 {
	if s.FlashLoanPremiumBps < 0 {
		return 0
	}
	return s.FlashLoanPremiumBps
}

// Issue plans, approves if needed, confirms with the operator and sends
// issueExactSetFromERC20.
func (s *Session) Issue(ctx context.Context, req IssueRequest) (*Result, error) {
	res, err := s.issue(ctx, req)
	return res, s.fail("issue", err)
}

func (s *Session) issue(ctx context.Context, req IssueRequest) (*Result, error) {
	if err := s.init(); err != nil {
		return nil, err
	}
	if s.Signer == nil {
		return nil, ErrNoSigner
	}
	s.Console.Println("Gas Price:", s.Gas.String())

	plan, err := s.PlanIssue(ctx, req)
	if err != nil {
		return nil, err
	}
	s.Console.PrintJSON("swapDataDebtForCollateral", plan.DebtForCollateral.SwapData())
	s.Console.PrintJSON("swapDataInputToken", plan.InputToCollateral.SwapData())
	if err := plan.Check(); err != nil {
		return nil, err
	}
	s.record(journal.Event{Op: "issue", Event: journal.KindPlan, From: s.From.Hex(), Plan: plan.Summary(nil)})

	if err := s.EnsureAllowance(ctx, plan.Input, plan.Allowance, plan.MaxAmountIn,
		"Do you want approve the exchange Issuance contract to spend your tokens"); err != nil {
		return nil, err
	}

	s.Console.Println("Estimating gas")
	eil := contracts.NewExchangeIssuance(s.Issuance, s.Backend)
	args := plan.Args()
	data, err := eil.PackIssueExactSetFromERC20(args)
	if err != nil {
		return nil, err
	}
	c := txCall{
		op:   "issue",
		to:   s.Issuance,
		data: data,
		send: func(opts *bind.TransactOpts) (*types.Transaction, error) {
			return eil.IssueExactSetFromERC20(opts, args)
		},
	}
	b, err := s.prepare(ctx, c)
	s.Console.PrintJSON("Transaction data", plan.Summary(&b))
	if err != nil {
		return nil, err
	}
	s.Console.PrintFields("Gas", b.Summary())

	if err := s.Console.Confirm("Do you want to continue and issue"); err != nil {
		return nil, err
	}

	tx, rcpt, err := s.submit(ctx, c, b)
	if err != nil {
		return nil, err
	}

	res := newResult("issue", tx, rcpt, s.From)
	res.Received = receipt.DeltaOf(res.Deltas, plan.Set.Address)
	after, err := s.balanceOf(ctx, plan.Input.Address)
	if err != nil {
		s.Log.Warn().Err(err).Msg("read input balance after issue")
		res.Spent = new(big.Int).Neg(receipt.DeltaOf(res.Deltas, plan.Input.Address))
	} else {
		res.Spent = new(big.Int).Sub(plan.InputBalance, after)
	}
	s.Console.PrintFields("Result", map[string]any{
		"Input token spent": ethutil.FormatUnits(res.Spent, plan.Input.Decimals) + " " + plan.Input.Symbol,
		"Set tokens issued": ethutil.FormatUnits(res.Received, plan.Set.Decimals) + " " + plan.Set.Symbol,
		"Tx fee":            ethutil.FormatEther(res.FeeWei) + " MATIC",
	})
	return res, nil
}
