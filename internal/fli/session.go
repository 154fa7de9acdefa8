// Package fli plans and executes issuance and redemption of leveraged FLI
// tokens through the ExchangeIssuanceLeveraged contract.
package fli

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"poly-fli/internal/contracts"
	"poly-fli/internal/ethutil"
	"poly-fli/internal/gas"
	"poly-fli/internal/journal"
	"poly-fli/internal/metrics"
	"poly-fli/internal/polygonutil"
	"poly-fli/internal/receipt"
	"poly-fli/internal/router"
)

const defaultCallTimeout = 8 * time.Second

// Backend is the node surface the procedures use. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

type RouteFinder interface {
	FindRoute(ctx context.Context, req router.Request) (*router.Route, error)
}

// Console is the operator surface: prompts and summaries.
type Console interface {
	Confirm(question string) error
	Println(a ...any)
	Warn(format string, a ...any)
	PrintJSON(label string, v any)
	PrintFields(title string, kv map[string]any)
}

type Session struct {
	Backend  Backend
	Router   RouteFinder
	Registry *polygonutil.Registry
	Console  Console

	// Issuance is the ExchangeIssuanceLeveraged address.
	Issuance common.Address

	// Signer is nil for read-only sessions (quotes).
	Signer *bind.TransactOpts
	// From is the account balances and allowances are read for. It
	// defaults to the signer's address.
	From common.Address

	Gas                 gas.Pricing
	GasScalingPct       uint64
	FlashLoanPremiumBps int64

	CallTimeout time.Duration
	WaitTimeout time.Duration

	Journal *journal.Writer
	Metrics *metrics.Run
	Log     zerolog.Logger
}

func (s *Session) init() error {
	if s.Backend == nil {
		return errors.New("fli: backend required")
	}
	if s.Router == nil {
		return errors.New("fli: router required")
	}
	if s.Console == nil {
		return errors.New("fli: console required")
	}
	if s.Registry == nil {
		s.Registry = polygonutil.DefaultRegistry()
	}
	if s.Issuance == (common.Address{}) {
		s.Issuance = polygonutil.ExchangeIssuanceLeveraged
	}
	if s.Signer != nil && s.From == (common.Address{}) {
		s.From = s.Signer.From
	}
	if s.GasScalingPct == 0 {
		s.GasScalingPct = gas.DefaultScalingPct
	}
	if s.CallTimeout <= 0 {
		s.CallTimeout = defaultCallTimeout
	}
	if s.WaitTimeout <= 0 {
		s.WaitTimeout = receipt.DefaultWaitTimeout
	}
	return nil
}

func (s *Session) callOpts(ctx context.Context) (*bind.CallOpts, context.CancelFunc) {
	callCtx, cancel := context.WithTimeout(ctx, s.CallTimeout)
	return &bind.CallOpts{Context: callCtx, From: s.From}, cancel
}

func (s *Session) issuanceCaller() *contracts.ExchangeIssuance {
	return contracts.NewExchangeIssuance(s.Issuance, s.Backend)
}

func (s *Session) tokenInfo(ctx context.Context, addr common.Address) (contracts.TokenInfo, error) {
	opts, cancel := s.callOpts(ctx)
	defer cancel()
	info, err := contracts.ReadTokenInfo(opts, s.Backend, addr)
	if err != nil {
		return contracts.TokenInfo{}, fmt.Errorf("token %s: %w", addr.Hex(), err)
	}
	return info, nil
}

// holdings reads owner's balance of token and its allowance to the issuance
// contract. Both are nil when there is no account to read for.
func (s *Session) holdings(ctx context.Context, token common.Address) (*big.Int, *big.Int, error) {
	if s.From == (common.Address{}) {
		return nil, nil, nil
	}
	opts, cancel := s.callOpts(ctx)
	defer cancel()
	erc20 := contracts.NewERC20Caller(token, s.Backend)
	bal, err := erc20.BalanceOf(opts, s.From)
	if err != nil {
		return nil, nil, err
	}
	allowance, err := erc20.Allowance(opts, s.From, s.Issuance)
	if err != nil {
		return nil, nil, err
	}
	return bal, allowance, nil
}

func (s *Session) balanceOf(ctx context.Context, token common.Address) (*big.Int, error) {
	opts, cancel := s.callOpts(ctx)
	defer cancel()
	return contracts.NewERC20Caller(token, s.Backend).BalanceOf(opts, s.From)
}

func (s *Session) leveragedData(ctx context.Context, set common.Address, amount *big.Int, isIssuance bool) (contracts.LeveragedTokenData, error) {
	opts, cancel := s.callOpts(ctx)
	defer cancel()
	return s.issuanceCaller().GetLeveragedTokenData(opts, set, amount, isIssuance)
}

// checkTokens compares the contract's debt and collateral with what the
// registry expects for the set token.
func (s *Session) checkTokens(set polygonutil.Token, data contracts.LeveragedTokenData) error {
	if !set.IsLeveraged() {
		s.Log.Warn().Str("set", set.String()).Msg("no debt/collateral expectation registered, skipping token check")
		return nil
	}
	if data.DebtToken != set.Debt {
		return &MismatchError{Kind: "Debt", Got: data.DebtToken, Want: set.Debt}
	}
	if data.CollateralToken != set.Collateral {
		return &MismatchError{Kind: "Collateral", Got: data.CollateralToken, Want: set.Collateral}
	}
	return nil
}

func (s *Session) route(ctx context.Context, in, out common.Address, amount *big.Int, tt router.TradeType) (*router.Route, error) {
	r, err := s.Router.FindRoute(ctx, router.Request{TokenIn: in, TokenOut: out, Amount: amount, TradeType: tt})
	if err != nil {
		return nil, fmt.Errorf("route %s -> %s: %w", in.Hex(), out.Hex(), err)
	}
	return r, nil
}

func (s *Session) record(ev journal.Event) {
	if err := s.Journal.Record(ev); err != nil {
		s.Log.Warn().Err(err).Msg("journal write failed")
	}
}

// txCall is one contract transaction: its calldata for estimation and the
// binding call that signs and sends it.
type txCall struct {
	op   string
	to   common.Address
	data []byte
	send func(opts *bind.TransactOpts) (*types.Transaction, error)
}

// prepare estimates gas for c, builds the budget and checks the native
// balance covers it at the gas limit.
func (s *Session) prepare(ctx context.Context, c txCall) (gas.Budget, error) {
	estCtx, cancel := context.WithTimeout(ctx, s.CallTimeout)
	defer cancel()
	est, err := gas.Estimate(estCtx, s.Backend, s.From, c.to, c.data)
	if err != nil {
		return gas.Budget{}, fmt.Errorf("%s: %w", c.op, err)
	}
	b := gas.NewBudget(est, s.GasScalingPct, s.Gas)

	balCtx, cancelBal := context.WithTimeout(ctx, s.CallTimeout)
	defer cancelBal()
	native, err := s.Backend.BalanceAt(balCtx, s.From, nil)
	if err != nil {
		return gas.Budget{}, fmt.Errorf("native balance: %w", err)
	}
	if !b.Covers(native) {
		return b, &BalanceError{Symbol: "MATIC", Decimals: ethutil.EtherDecimals, Have: native, Need: b.CostLimit}
	}
	return b, nil
}

// submit signs and sends c with the budget's gas limit, then waits for it.
func (s *Session) submit(ctx context.Context, c txCall, b gas.Budget) (*types.Transaction, *types.Receipt, error) {
	if s.Signer == nil {
		return nil, nil, ErrNoSigner
	}
	opts := *s.Signer
	opts.Context = ctx
	opts.GasLimit = b.Limit
	s.Gas.Apply(&opts)

	tx, err := c.send(&opts)
	if err != nil {
		return nil, nil, fmt.Errorf("send %s: %w", c.op, err)
	}
	s.Console.Println(c.op+"Tx", tx.Hash().Hex())
	s.Log.Info().Str("tx", tx.Hash().Hex()).Uint64("gas_limit", b.Limit).Msg("sent")
	s.record(journal.Event{Op: c.op, Event: sentKind(c.op), From: s.From.Hex(), TxHash: tx.Hash().Hex(), GasLimit: b.Limit})

	rcpt, err := receipt.Wait(ctx, s.Backend, tx, s.WaitTimeout)
	if rcpt != nil {
		fee := receipt.Fee(rcpt)
		s.Metrics.ObserveTx(c.op, rcpt.GasUsed, fee)
		ev := journal.Event{Op: c.op, Event: minedKind(c.op), TxHash: tx.Hash().Hex(), GasUsed: rcpt.GasUsed, FeeWei: fee.String()}
		if rcpt.BlockNumber != nil {
			ev.Block = rcpt.BlockNumber.Uint64()
		}
		if err != nil {
			ev.Err = err.Error()
		}
		s.record(ev)
	}
	return tx, rcpt, err
}

func sentKind(op string) journal.Kind {
	if op == "approve" {
		return journal.KindApproveSent
	}
	return journal.KindTxSent
}

func minedKind(op string) journal.Kind {
	if op == "approve" {
		return journal.KindApproveMined
	}
	return journal.KindTxMined
}

// EnsureAllowance approves the issuance contract for need when the current
// allowance is lower, after the operator confirms.
func (s *Session) EnsureAllowance(ctx context.Context, token contracts.TokenInfo, allowance, need *big.Int, question string) error {
	if allowance != nil && allowance.Cmp(need) >= 0 {
		return nil
	}
	s.Console.PrintFields("Allowance", map[string]any{
		"token":                    token.Symbol,
		"current":                  ethutil.FormatUnits(allowance, token.Decimals),
		"Amount needed to approve": ethutil.FormatUnits(need, token.Decimals),
	})
	if err := s.Console.Confirm(question); err != nil {
		return err
	}
	if s.Signer == nil {
		return ErrNoSigner
	}

	erc20 := contracts.NewERC20(token.Address, s.Backend)
	data, err := erc20.PackApprove(s.Issuance, need)
	if err != nil {
		return err
	}
	c := txCall{
		op:   "approve",
		to:   token.Address,
		data: data,
		send: func(opts *bind.TransactOpts) (*types.Transaction, error) {
			return erc20.Approve(opts, s.Issuance, need)
		},
	}
	s.Console.Println("Approving")
	b, err := s.prepare(ctx, c)
	if err != nil {
		return err
	}
	if _, _, err := s.submit(ctx, c, b); err != nil {
		return err
	}
	s.Console.Println("Approved")
	return nil
}

// Result is what a mined issue or redeem moved.
type Result struct {
	Op       string          `json:"op"`
	TxHash   common.Hash     `json:"txHash"`
	Block    uint64          `json:"block"`
	GasUsed  uint64          `json:"gasUsed"`
	FeeWei   *big.Int        `json:"feeWei"`
	Deltas   []receipt.Delta `json:"deltas"`
	Spent    *big.Int        `json:"spent,omitempty"`
	Received *big.Int        `json:"received,omitempty"`
}

func newResult(op string, tx *types.Transaction, rcpt *types.Receipt, from common.Address) *Result {
	r := &Result{
		Op:      op,
		TxHash:  tx.Hash(),
		GasUsed: rcpt.GasUsed,
		FeeWei:  receipt.Fee(rcpt),
		Deltas:  receipt.TokenDeltas(rcpt, from),
	}
	if rcpt.BlockNumber != nil {
		r.Block = rcpt.BlockNumber.Uint64()
	}
	return r
}

// fail journals err with the right kind and passes it through.
func (s *Session) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := journal.KindFailed
	if errors.Is(err, ErrAborted) {
		kind = journal.KindAborted
	}
	s.record(journal.Event{Op: op, Event: kind, Err: err.Error()})
	return err
}

func slippageOrDefault(pct decimal.Decimal) decimal.Decimal {
	if pct.IsZero() {
		return DefaultSlippagePct
	}
	return pct
}
