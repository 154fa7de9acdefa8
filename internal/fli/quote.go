package fli

import (
	"context"
	"errors"

	"poly-fli/internal/contracts"
	"poly-fli/internal/gas"
	"poly-fli/internal/metrics"
)

// QuoteIssue runs the planning half of Issue and prints it. When an account
// is known it also checks balances and tries a gas estimate; neither failure
// is fatal for a quote.
func (s *Session) QuoteIssue(ctx context.Context, req IssueRequest) (*IssuePlan, error) {
	plan, err := s.PlanIssue(ctx, req)
	if err != nil {
		return nil, err
	}
	var budget *gas.Budget
	if plan.InputBalance != nil {
		if err := plan.Check(); err != nil {
			s.Console.Warn("%v", err)
		}
		if plan.Allowance.Cmp(plan.MaxAmountIn) < 0 {
			s.Console.Warn("allowance to %s is below maxAmountIn, an approval will be requested", s.Issuance.Hex())
		} else if data, err := contracts.NewExchangeIssuanceCaller(s.Issuance, s.Backend).PackIssueExactSetFromERC20(plan.Args()); err == nil {
			budget = s.tryEstimate(ctx, txCall{op: "issue", to: s.Issuance, data: data})
		}
	}
	s.Console.PrintJSON("Transaction data", plan.Summary(budget))
	return plan, nil
}

func (s *Session) QuoteRedeem(ctx context.Context, req RedeemRequest) (*RedeemPlan, error) {
	plan, err := s.PlanRedeem(ctx, req)
	if err != nil {
		return nil, err
	}
	var budget *gas.Budget
	if plan.SetBalance != nil {
		if err := plan.Check(); err != nil {
			s.Console.Warn("%v", err)
		}
		if plan.Allowance.Cmp(plan.SetAmount) < 0 {
			s.Console.Warn("set token allowance to %s is below the amount, an approval will be requested", s.Issuance.Hex())
		} else if data, err := contracts.NewExchangeIssuanceCaller(s.Issuance, s.Backend).PackRedeemExactSetForERC20(plan.Args()); err == nil {
			budget = s.tryEstimate(ctx, txCall{op: "redeem", to: s.Issuance, data: data})
		}
	}
	s.Console.PrintJSON("Transaction data", plan.Summary(budget))
	return plan, nil
}

func (s *Session) tryEstimate(ctx context.Context, c txCall) *gas.Budget {
	b, err := s.prepare(ctx, c)
	var balErr *BalanceError
	switch {
	case err == nil:
		return &b
	case errors.As(err, &balErr):
		s.Console.Warn("%v", err)
		return &b
	default:
		s.Console.Warn("gas estimate failed: %v", err)
		return nil
	}
}

// ResultLabel classifies a run's outcome for metrics.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, ErrAborted):
		return metrics.ResultAborted
	case errors.Is(err, ErrReverted):
		return metrics.ResultReverted
	default:
		return metrics.ResultFailed
	}
}
