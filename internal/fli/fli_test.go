package fli

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"poly-fli/internal/contracts"
	"poly-fli/internal/router"
)

// issueExecution mimics the issuance contract pulling spend of the input
// token and minting setAmount.
func issueExecution(fb *fakeBackend, from common.Address, input common.Address, spend, setAmount *big.Int) func(*types.Transaction) []*types.Log {
	return func(*types.Transaction) []*types.Log {
		return []*types.Log{
			fb.move(input, from, eilAddr, spend),
			fb.move(eth2x, common.Address{}, from, setAmount),
		}
	}
}

// unpackEIL decodes a transaction sent to the issuance contract and checks
// it calls method.
func unpackEIL(t *testing.T, tx *types.Transaction, method string) []interface{} {
	t.Helper()
	if *tx.To() != eilAddr {
		t.Fatalf("tx to %s, want the issuance contract", tx.To().Hex())
	}
	m, err := eilABI.MethodById(tx.Data()[:4])
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != method {
		t.Fatalf("method=%s, want %s", m.Name, method)
	}
	args, err := m.Inputs.Unpack(tx.Data()[4:])
	if err != nil {
		t.Fatal(err)
	}
	return args
}

func swapDataArg(v interface{}) contracts.SwapData {
	return *abi.ConvertType(v, new(contracts.SwapData)).(*contracts.SwapData)
}

func TestIssueQuoteModeApprovesThenIssues(t *testing.T) {
	fb, fr, console, s := eth2xFixture(t)
	console.answers = []bool{true, true}
	from := s.Signer.From
	fb.onExecute = issueExecution(fb, from, weth, ether("0.4"), ether("1"))

	res, err := s.Issue(context.Background(), IssueRequest{SetToken: "ETH2X-FLI-P", Amount: "1"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if len(fb.sent) != 2 {
		t.Fatalf("sent %d txs, want approve + issue", len(fb.sent))
	}
	if len(fb.isIssuance) != 1 || !fb.isIssuance[0] {
		t.Fatalf("isIssuance=%v", fb.isIssuance)
	}
	if got := fb.tokens[weth].allow[from]; got.Cmp(ether("0.420945")) != 0 {
		t.Fatalf("approved %s", got)
	}

	issueTx := fb.sent[1]
	if *issueTx.To() != eilAddr {
		t.Fatalf("issue to %s", issueTx.To().Hex())
	}
	if issueTx.Gas() != 1_100_000 {
		t.Fatalf("gas limit=%d", issueTx.Gas())
	}
	if issueTx.GasPrice().Cmp(big.NewInt(60_000_000_000)) != 0 {
		t.Fatalf("gas price=%s", issueTx.GasPrice())
	}
	args := unpackEIL(t, issueTx, "issueExactSetFromERC20")
	if args[0].(common.Address) != eth2x || args[2].(common.Address) != weth {
		t.Fatalf("set/input args=%v %v", args[0], args[2])
	}
	if got := args[3].(*big.Int); got.Cmp(ether("0.420945")) != 0 {
		t.Fatalf("maxAmountIn=%s", got)
	}
	if args[4].(uint8) != 3 {
		t.Fatalf("exchange=%v", args[4])
	}

	// debt leg exact input at the debt amount, input leg exact output at
	// the shortfall
	if len(fr.requests) != 2 {
		t.Fatalf("route requests=%d", len(fr.requests))
	}
	if fr.requests[0].TradeType != router.ExactInput || fr.requests[0].Amount.Cmp(big.NewInt(1_500_000_000)) != 0 {
		t.Fatalf("debt request=%+v", fr.requests[0])
	}
	if fr.requests[1].TradeType != router.ExactOutput || fr.requests[1].Amount.Cmp(ether("0.4009")) != 0 {
		t.Fatalf("input request=%+v", fr.requests[1])
	}

	if res.Spent.Cmp(ether("0.4")) != 0 {
		t.Fatalf("spent=%s", res.Spent)
	}
	if res.Received.Cmp(ether("1")) != 0 {
		t.Fatalf("received=%s", res.Received)
	}
	if res.GasUsed != 990_000 {
		t.Fatalf("gasUsed=%d", res.GasUsed)
	}
	if len(console.asked) != 2 || !strings.Contains(console.asked[1], "issue") {
		t.Fatalf("asked=%v", console.asked)
	}
}

func TestIssueAbortAtApprovalSendsNothing(t *testing.T) {
	fb, _, console, s := eth2xFixture(t)
	console.answers = []bool{false}

	_, err := s.Issue(context.Background(), IssueRequest{SetToken: "ETH2X-FLI-P", Amount: "1"})
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("err=%v, want ErrAborted", err)
	}
	if len(fb.sent) != 0 {
		t.Fatalf("sent %d txs", len(fb.sent))
	}
}

func TestIssueAbortAtFinalConfirmation(t *testing.T) {
	fb, _, console, s := eth2xFixture(t)
	fb.tokens[weth].allow[s.Signer.From] = ether("5")
	console.answers = []bool{false}

	_, err := s.Issue(context.Background(), IssueRequest{SetToken: "ETH2X-FLI-P", Amount: "1"})
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("err=%v, want ErrAborted", err)
	}
	if len(fb.sent) != 0 {
		t.Fatalf("sent %d txs", len(fb.sent))
	}
	if _, ok := console.json["Gas"]; !ok {
		t.Fatal("gas summary not printed before confirmation")
	}
}

func TestIssueTokenMismatch(t *testing.T) {
	fb, _, _, s := eth2xFixture(t)
	fb.leveraged.DebtToken = usdc
	fb.leveraged.CollateralToken = usdc

	_, err := s.Issue(context.Background(), IssueRequest{SetToken: "ETH2X-FLI-P", Amount: "1"})
	var mm *MismatchError
	if !errors.As(err, &mm) || mm.Kind != "Collateral" {
		t.Fatalf("err=%v", err)
	}
	if !errors.Is(err, ErrTokenMismatch) {
		t.Fatalf("err=%v does not wrap ErrTokenMismatch", err)
	}
	if len(fb.sent) != 0 {
		t.Fatalf("sent %d txs", len(fb.sent))
	}
}

func TestIssueInsufficientInputBalance(t *testing.T) {
	fb, _, _, s := eth2xFixture(t)
	fb.tokens[weth].balances[s.Signer.From] = ether("0.1")

	_, err := s.Issue(context.Background(), IssueRequest{SetToken: "ETH2X-FLI-P", Amount: "1"})
	var be *BalanceError
	if !errors.As(err, &be) || be.Symbol != "WETH" {
		t.Fatalf("err=%v", err)
	}
	if be.Need.Cmp(ether("0.420945")) != 0 {
		t.Fatalf("need=%s", be.Need)
	}
	if len(fb.sent) != 0 {
		t.Fatalf("sent %d txs", len(fb.sent))
	}
}

func TestIssueInsufficientNativeBalance(t *testing.T) {
	fb, _, console, s := eth2xFixture(t)
	fb.tokens[weth].allow[s.Signer.From] = ether("5")
	fb.native = ether("0.01")
	console.answers = []bool{true}

	_, err := s.Issue(context.Background(), IssueRequest{SetToken: "ETH2X-FLI-P", Amount: "1"})
	var be *BalanceError
	if !errors.As(err, &be) || be.Symbol != "MATIC" {
		t.Fatalf("err=%v", err)
	}
	if len(console.asked) != 0 {
		t.Fatalf("asked=%v", console.asked)
	}
	if len(fb.sent) != 0 {
		t.Fatalf("sent %d txs", len(fb.sent))
	}
}

func TestIssueReverted(t *testing.T) {
	fb, _, console, s := eth2xFixture(t)
	fb.tokens[weth].allow[s.Signer.From] = ether("5")
	fb.status = types.ReceiptStatusFailed
	console.answers = []bool{true}

	_, err := s.Issue(context.Background(), IssueRequest{SetToken: "ETH2X-FLI-P", Amount: "1"})
	if !errors.Is(err, ErrReverted) {
		t.Fatalf("err=%v, want ErrReverted", err)
	}
	if ResultLabel(err) != "reverted" {
		t.Fatalf("label=%s", ResultLabel(err))
	}
	if len(fb.sent) != 1 {
		t.Fatalf("sent %d txs", len(fb.sent))
	}
}

func TestPlanIssuePriceModeWithUSDC(t *testing.T) {
	_, fr, _, s := eth2xFixture(t)

	plan, err := s.PlanIssue(context.Background(), IssueRequest{
		SetToken:      "ETH2X-FLI-P",
		Amount:        "1",
		InputToken:    "USDC",
		MaxPriceUSD:   decimal.RequireFromString("120"),
		InputPriceUSD: decimal.RequireFromString("1"),
	})
	if err != nil {
		t.Fatalf("PlanIssue: %v", err)
	}
	if plan.BudgetSource != "price" {
		t.Fatalf("budget=%s", plan.BudgetSource)
	}
	if plan.MaxAmountIn.Cmp(big.NewInt(120_000_000)) != 0 {
		t.Fatalf("maxAmountIn=%s", plan.MaxAmountIn)
	}
	if plan.QuotedAmountIn != nil {
		t.Fatalf("quotedAmountIn=%s", plan.QuotedAmountIn)
	}
	sd := plan.Args().SwapDataInputToken
	if len(sd.Path) != 2 || sd.Path[0] != usdc || sd.Path[1] != weth {
		t.Fatalf("input path=%v", sd.Path)
	}
	last := fr.requests[len(fr.requests)-1]
	if last.TradeType != router.ExactInput || last.Amount.Cmp(big.NewInt(120_000_000)) != 0 {
		t.Fatalf("input request=%+v", last)
	}
	if plan.InputBalance.Cmp(big.NewInt(500_000_000)) != 0 {
		t.Fatalf("input balance=%s", plan.InputBalance)
	}
}

func TestPlanIssueRequiresBothPrices(t *testing.T) {
	_, _, _, s := eth2xFixture(t)
	_, err := s.PlanIssue(context.Background(), IssueRequest{
		SetToken:    "ETH2X-FLI-P",
		Amount:      "1",
		MaxPriceUSD: decimal.RequireFromString("120"),
	})
	if err == nil {
		t.Fatal("expected error for set price without token price")
	}
}

func TestRedeemQuoteMode(t *testing.T) {
	fb, fr, console, s := eth2xFixture(t)
	from := s.Signer.From
	fb.tokens[eth2x].balances[from] = ether("2")
	fb.tokens[eth2x].allow[from] = ether("2")
	console.answers = []bool{true}
	fb.onExecute = func(*types.Transaction) []*types.Log {
		return []*types.Log{
			fb.move(eth2x, from, common.Address{}, ether("1")),
			fb.move(weth, eilAddr, from, ether("0.39946")),
		}
	}

	res, err := s.Redeem(context.Background(), RedeemRequest{SetToken: "ETH2X-FLI-P", Amount: "1"})
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if len(fb.sent) != 1 {
		t.Fatalf("sent %d txs", len(fb.sent))
	}
	if len(fb.isIssuance) != 1 || fb.isIssuance[0] {
		t.Fatalf("isIssuance=%v", fb.isIssuance)
	}

	args := unpackEIL(t, fb.sent[0], "redeemExactSetForERC20")
	if got := args[3].(*big.Int); got.Cmp(ether("0.379487")) != 0 {
		t.Fatalf("minAmountOut=%s", got)
	}

	if fr.requests[0].TradeType != router.ExactOutput || fr.requests[0].Amount.Cmp(big.NewInt(1_500_000_000)) != 0 {
		t.Fatalf("debt request=%+v", fr.requests[0])
	}
	if fr.requests[1].Amount.Cmp(ether("0.39946")) != 0 {
		t.Fatalf("output request=%+v", fr.requests[1])
	}
	if res.Received.Cmp(ether("0.39946")) != 0 {
		t.Fatalf("received=%s", res.Received)
	}
	if res.Spent.Cmp(ether("1")) != 0 {
		t.Fatalf("spent=%s", res.Spent)
	}
}

func TestRedeemInsufficientSetBalance(t *testing.T) {
	fb, _, _, s := eth2xFixture(t)
	fb.tokens[eth2x].balances[s.Signer.From] = ether("0.5")

	_, err := s.Redeem(context.Background(), RedeemRequest{SetToken: "ETH2X-FLI-P", Amount: "1"})
	var be *BalanceError
	if !errors.As(err, &be) || be.Symbol != "ETH2X-FLI-P" {
		t.Fatalf("err=%v", err)
	}
}

func TestQuoteIssueWithoutAccount(t *testing.T) {
	fb, _, console, s := eth2xFixture(t)
	s.Signer = nil

	plan, err := s.QuoteIssue(context.Background(), IssueRequest{SetToken: "ETH2X-FLI-P", Amount: "1"})
	if err != nil {
		t.Fatalf("QuoteIssue: %v", err)
	}
	if plan.InputBalance != nil || plan.Allowance != nil {
		t.Fatal("read holdings without an account")
	}
	if _, ok := console.json["Transaction data"]; !ok {
		t.Fatal("quote not printed")
	}
	if len(fb.sent) != 0 {
		t.Fatalf("sent %d txs", len(fb.sent))
	}
}

func TestIssueWithoutSigner(t *testing.T) {
	_, _, _, s := eth2xFixture(t)
	s.Signer = nil
	_, err := s.Issue(context.Background(), IssueRequest{SetToken: "ETH2X-FLI-P", Amount: "1"})
	if !errors.Is(err, ErrNoSigner) {
		t.Fatalf("err=%v", err)
	}
}

func TestHoldings(t *testing.T) {
	fb, _, _, s := eth2xFixture(t)
	fb.tokens[usdc].allow[s.Signer.From] = big.NewInt(7)

	native, hs, err := s.Holdings(context.Background(), []common.Address{weth, usdc})
	if err != nil {
		t.Fatal(err)
	}
	if native.Cmp(ether("10")) != 0 {
		t.Fatalf("native=%s", native)
	}
	if len(hs) != 2 || hs[1].Token.Symbol != "USDC" || hs[1].Allowance.Int64() != 7 {
		t.Fatalf("holdings=%+v", hs)
	}
	if f := hs[0].Fields(); f["balance"] != "1" {
		t.Fatalf("fields=%v", f)
	}
}

func TestIssuePriceModeWithCollateralInput(t *testing.T) {
	fb, fr, console, s := eth2xFixture(t)
	from := s.Signer.From
	fb.tokens[weth].allow[from] = ether("5")
	console.answers = []bool{true}
	fb.onExecute = issueExecution(fb, from, weth, ether("0.4009"), ether("1"))

	res, err := s.Issue(context.Background(), IssueRequest{
		SetToken:      "ETH2X-FLI-P",
		Amount:        "1",
		MaxPriceUSD:   decimal.RequireFromString("1200"),
		InputPriceUSD: decimal.RequireFromString("2600"),
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(fb.sent) != 1 {
		t.Fatalf("sent %d txs, want only the issue", len(fb.sent))
	}
	args := unpackEIL(t, fb.sent[0], "issueExactSetFromERC20")
	if args[2].(common.Address) != weth {
		t.Fatalf("input=%v", args[2])
	}
	if got := args[3].(*big.Int); got.Cmp(big.NewInt(461_538_461_538_461_538)) != 0 {
		t.Fatalf("maxAmountIn=%s", got)
	}
	debt := swapDataArg(args[5])
	if len(debt.Path) != 2 || debt.Path[0] != usdc || debt.Path[1] != weth {
		t.Fatalf("debt swap=%+v", debt)
	}
	in := swapDataArg(args[6])
	if len(in.Path) != 0 || len(in.Fees) != 0 {
		t.Fatalf("input swap=%+v, want empty", in)
	}
	// the input leg is sized from the price bound, not the shortfall
	last := fr.requests[len(fr.requests)-1]
	if last.TokenIn != weth || last.TokenOut != weth || last.Amount.Cmp(big.NewInt(461_538_461_538_461_538)) != 0 {
		t.Fatalf("input request=%+v", last)
	}
	if res.Spent.Cmp(ether("0.4009")) != 0 {
		t.Fatalf("spent=%s", res.Spent)
	}
	if len(console.warns) != 0 {
		t.Fatalf("warns=%v", console.warns)
	}
}

func TestRedeemFlows(t *testing.T) {
	cases := []struct {
		name      string
		allowance *big.Int
		answers   []bool
		sent      int
		asked     int
		aborted   bool
	}{
		{name: "approve then redeem", allowance: nil, answers: []bool{true, true}, sent: 2, asked: 2},
		{name: "refuse approval", allowance: nil, answers: []bool{false}, sent: 0, asked: 1, aborted: true},
		{name: "approve then refuse redeem", allowance: nil, answers: []bool{true, false}, sent: 1, asked: 2, aborted: true},
		{name: "refuse redeem", allowance: ether("2"), answers: []bool{false}, sent: 0, asked: 1, aborted: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fb, fr, console, s := eth2xFixture(t)
			from := s.Signer.From
			fb.tokens[eth2x].balances[from] = ether("2")
			if tc.allowance != nil {
				fb.tokens[eth2x].allow[from] = tc.allowance
			}
			console.answers = tc.answers
			fb.onExecute = func(*types.Transaction) []*types.Log {
				return []*types.Log{
					fb.move(eth2x, from, common.Address{}, ether("1")),
					fb.move(usdc, eilAddr, from, big.NewInt(1_000_000_000)),
				}
			}

			res, err := s.Redeem(context.Background(), RedeemRequest{
				SetToken:       "ETH2X-FLI-P",
				Amount:         "1",
				OutputToken:    "USDC",
				MinPriceUSD:    decimal.RequireFromString("900"),
				OutputPriceUSD: decimal.RequireFromString("1"),
			})
			if len(fb.sent) != tc.sent {
				t.Fatalf("sent %d txs, want %d", len(fb.sent), tc.sent)
			}
			if len(console.asked) != tc.asked {
				t.Fatalf("asked=%v", console.asked)
			}
			if tc.allowance == nil && !strings.Contains(console.asked[0], "approve") {
				t.Fatalf("first prompt=%q", console.asked[0])
			}
			if tc.aborted {
				if !errors.Is(err, ErrAborted) {
					t.Fatalf("err=%v, want ErrAborted", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Redeem: %v", err)
			}

			approve := fb.sent[0]
			if *approve.To() != eth2x {
				t.Fatalf("approve sent to %s", approve.To().Hex())
			}
			if got := fb.tokens[eth2x].allow[from]; got.Cmp(ether("1")) != 0 {
				t.Fatalf("approved %s", got)
			}
			if !strings.Contains(console.asked[1], "redeem") {
				t.Fatalf("second prompt=%q", console.asked[1])
			}

			args := unpackEIL(t, fb.sent[1], "redeemExactSetForERC20")
			if args[2].(common.Address) != usdc {
				t.Fatalf("output=%v", args[2])
			}
			if got := args[3].(*big.Int); got.Cmp(big.NewInt(900_000_000)) != 0 {
				t.Fatalf("minAmountOut=%s", got)
			}
			debt := swapDataArg(args[5])
			if len(debt.Path) != 2 || debt.Path[0] != weth || debt.Path[1] != usdc {
				t.Fatalf("debt swap=%+v", debt)
			}
			out := swapDataArg(args[6])
			if len(out.Path) != 2 || out.Path[0] != weth || out.Path[1] != usdc || len(out.Fees) != 1 || out.Fees[0].Int64() != 500 {
				t.Fatalf("output swap=%+v", out)
			}
			if last := fr.requests[len(fr.requests)-1]; last.TradeType != router.ExactInput || last.Amount.Cmp(ether("0.39946")) != 0 {
				t.Fatalf("output request=%+v", last)
			}
			if res.Received.Cmp(big.NewInt(1_000_000_000)) != 0 {
				t.Fatalf("received=%s", res.Received)
			}
			if res.Spent.Cmp(ether("1")) != 0 {
				t.Fatalf("spent=%s", res.Spent)
			}
		})
	}
}

func TestQuoteRedeem(t *testing.T) {
	cases := []struct {
		name       string
		account    bool
		balance    *big.Int
		allowance  *big.Int
		wantWarn   string
		wantBudget bool
	}{
		{name: "no account"},
		{name: "needs approval", account: true, balance: ether("2"), wantWarn: "approval"},
		{name: "approved", account: true, balance: ether("2"), allowance: ether("2"), wantBudget: true},
		{name: "short balance", account: true, balance: ether("0.5"), allowance: ether("2"), wantWarn: "not enough", wantBudget: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fb, _, console, s := eth2xFixture(t)
			from := s.Signer.From
			s.Signer = nil
			if tc.account {
				s.From = from
			}
			if tc.balance != nil {
				fb.tokens[eth2x].balances[from] = tc.balance
			}
			if tc.allowance != nil {
				fb.tokens[eth2x].allow[from] = tc.allowance
			}

			plan, err := s.QuoteRedeem(context.Background(), RedeemRequest{SetToken: "ETH2X-FLI-P", Amount: "1"})
			if err != nil {
				t.Fatalf("QuoteRedeem: %v", err)
			}
			if len(fb.sent) != 0 {
				t.Fatalf("sent %d txs", len(fb.sent))
			}
			if len(fb.isIssuance) != 1 || fb.isIssuance[0] {
				t.Fatalf("isIssuance=%v", fb.isIssuance)
			}
			if plan.MinAmountOut.Cmp(ether("0.379487")) != 0 {
				t.Fatalf("minAmountOut=%s", plan.MinAmountOut)
			}
			if tc.account != (plan.SetBalance != nil) {
				t.Fatalf("set balance=%v", plan.SetBalance)
			}
			if tc.wantWarn == "" && len(console.warns) != 0 {
				t.Fatalf("warns=%v", console.warns)
			}
			if tc.wantWarn != "" && (len(console.warns) == 0 || !strings.Contains(strings.ToLower(strings.Join(console.warns, "\n")), tc.wantWarn)) {
				t.Fatalf("warns=%v, want %q", console.warns, tc.wantWarn)
			}
			summary, ok := console.json["Transaction data"].(map[string]any)
			if !ok {
				t.Fatal("quote not printed")
			}
			if _, ok := summary["gasCostEstimate"]; ok != tc.wantBudget {
				t.Fatalf("gas estimate printed=%v, want %v", ok, tc.wantBudget)
			}
		})
	}
}
