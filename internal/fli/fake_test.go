package fli

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"poly-fli/internal/contracts"
	"poly-fli/internal/gas"
	"poly-fli/internal/polygonutil"
	"poly-fli/internal/router"
)

var (
	eilAddr = polygonutil.ExchangeIssuanceLeveraged
	weth    = polygonutil.WETH
	usdc    = polygonutil.USDC
	eth2x   = common.HexToAddress("0x3Ad707dA309f3845cd602059901E39C4dcd66473")
	amWETH  = common.HexToAddress("0x28424507fefb6f7f8E9D3860F56504E4e5f5f390")

	erc20ABI = mustABI(contracts.ERC20ABI)
	eilABI   = mustABI(contracts.ExchangeIssuanceLeveragedABI)

	transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
)

func mustABI(raw string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return a
}

type tokenState struct {
	symbol   string
	name     string
	decimals uint8
	balances map[common.Address]*big.Int
	allow    map[common.Address]*big.Int // owner -> allowance to EIL
}

// fakeBackend is a tiny in-memory chain: ERC-20 reads, getLeveragedTokenData,
// gas estimation and transactions that are mined on send. Methods the flows
// must not touch fall through to the nil embedded interface and panic.
type fakeBackend struct {
	bind.ContractBackend

	tokens     map[common.Address]*tokenState
	leveraged  contracts.LeveragedTokenData
	isIssuance []bool
	native     *big.Int
	gasByTo    map[common.Address]uint64

	sent      []*types.Transaction
	receipts  map[common.Hash]*types.Receipt
	status    uint64
	onExecute func(tx *types.Transaction) []*types.Log
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		tokens:   map[common.Address]*tokenState{},
		native:   new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18)),
		gasByTo:  map[common.Address]uint64{},
		receipts: map[common.Hash]*types.Receipt{},
		status:   types.ReceiptStatusSuccessful,
	}
}

func (f *fakeBackend) addToken(addr common.Address, symbol string, decimals uint8) *tokenState {
	ts := &tokenState{symbol: symbol, name: symbol + " token", decimals: decimals, balances: map[common.Address]*big.Int{}, allow: map[common.Address]*big.Int{}}
	f.tokens[addr] = ts
	return ts
}

func (f *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func zeroIfNil(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func (f *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	to := *call.To
	if to == eilAddr {
		m, err := eilABI.MethodById(call.Data[:4])
		if err != nil {
			return nil, err
		}
		if m.Name != "getLeveragedTokenData" {
			return nil, fmt.Errorf("unexpected eil call %s", m.Name)
		}
		args, err := m.Inputs.Unpack(call.Data[4:])
		if err != nil {
			return nil, err
		}
		f.isIssuance = append(f.isIssuance, args[2].(bool))
		return m.Outputs.Pack(f.leveraged)
	}

	ts, ok := f.tokens[to]
	if !ok {
		return nil, fmt.Errorf("execution reverted: no token at %s", to.Hex())
	}
	m, err := erc20ABI.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := m.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}
	switch m.Name {
	case "decimals":
		return m.Outputs.Pack(ts.decimals)
	case "symbol":
		return m.Outputs.Pack(ts.symbol)
	case "name":
		return m.Outputs.Pack(ts.name)
	case "balanceOf":
		return m.Outputs.Pack(zeroIfNil(ts.balances[args[0].(common.Address)]))
	case "allowance":
		return m.Outputs.Pack(zeroIfNil(ts.allow[args[0].(common.Address)]))
	}
	return nil, fmt.Errorf("unexpected erc20 call %s", m.Name)
}

func (f *fakeBackend) EstimateGas(_ context.Context, call ethereum.CallMsg) (uint64, error) {
	g, ok := f.gasByTo[*call.To]
	if !ok {
		return 0, fmt.Errorf("execution reverted")
	}
	return g, nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return uint64(len(f.sent)), nil
}

func (f *fakeBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return new(big.Int).Set(f.native), nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.sent = append(f.sent, tx)
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return err
	}

	var logs []*types.Log
	if ts, ok := f.tokens[*tx.To()]; ok {
		m, err := erc20ABI.MethodById(tx.Data()[:4])
		if err != nil {
			return err
		}
		if m.Name == "approve" {
			args, _ := m.Inputs.Unpack(tx.Data()[4:])
			ts.allow[from] = args[1].(*big.Int)
		}
	} else if f.onExecute != nil {
		logs = f.onExecute(tx)
	}

	f.receipts[tx.Hash()] = &types.Receipt{
		Status:            f.status,
		GasUsed:           tx.Gas() * 9 / 10,
		EffectiveGasPrice: tx.GasPrice(),
		BlockNumber:       big.NewInt(int64(100 + len(f.sent))),
		TxHash:            tx.Hash(),
		Logs:              logs,
	}
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	r, ok := f.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

// move updates balances and returns the matching Transfer log.
func (f *fakeBackend) move(token, from, to common.Address, amount *big.Int) *types.Log {
	ts := f.tokens[token]
	if from != (common.Address{}) {
		ts.balances[from] = new(big.Int).Sub(zeroIfNil(ts.balances[from]), amount)
	}
	if to != (common.Address{}) {
		ts.balances[to] = new(big.Int).Add(zeroIfNil(ts.balances[to]), amount)
	}
	return &types.Log{
		Address: token,
		Topics:  []common.Hash{transferTopic, common.BytesToHash(from.Bytes()), common.BytesToHash(to.Bytes())},
		Data:    common.LeftPadBytes(amount.Bytes(), 32),
	}
}

type routeKey struct {
	in, out common.Address
	tt      router.TradeType
}

type fakeRouter struct {
	routes   map[routeKey]*router.Route
	requests []router.Request
}

func (r *fakeRouter) FindRoute(_ context.Context, req router.Request) (*router.Route, error) {
	r.requests = append(r.requests, req)
	if req.TokenIn == req.TokenOut {
		return &router.Route{TradeType: req.TradeType, AmountIn: new(big.Int).Set(req.Amount), AmountOut: new(big.Int).Set(req.Amount)}, nil
	}
	rt, ok := r.routes[routeKey{req.TokenIn, req.TokenOut, req.TradeType}]
	if !ok {
		return nil, router.ErrNoRoute
	}
	out := *rt
	if req.TradeType == router.ExactInput {
		out.AmountIn = new(big.Int).Set(req.Amount)
	} else {
		out.AmountOut = new(big.Int).Set(req.Amount)
	}
	return &out, nil
}

type scriptedConsole struct {
	answers []bool
	asked   []string
	lines   []string
	warns   []string
	json    map[string]any
}

func (c *scriptedConsole) Confirm(q string) error {
	c.asked = append(c.asked, q)
	if len(c.answers) == 0 || !c.answers[0] {
		return ErrAborted
	}
	c.answers = c.answers[1:]
	return nil
}

func (c *scriptedConsole) Println(a ...any) { c.lines = append(c.lines, fmt.Sprintln(a...)) }

func (c *scriptedConsole) Warn(format string, a ...any) {
	c.warns = append(c.warns, fmt.Sprintf(format, a...))
}

func (c *scriptedConsole) PrintJSON(label string, v any) {
	if c.json == nil {
		c.json = map[string]any{}
	}
	c.json[label] = v
}

func (c *scriptedConsole) PrintFields(title string, kv map[string]any) {
	c.json[title] = kv
}

const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testSigner(t *testing.T) *bind.TransactOpts {
	t.Helper()
	pk, err := crypto.HexToECDSA(testKey)
	if err != nil {
		t.Fatal(err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(pk, big.NewInt(137))
	if err != nil {
		t.Fatal(err)
	}
	return opts
}

func ether(s string) *big.Int {
	d := decimal.RequireFromString(s)
	return d.Shift(18).BigInt()
}

// eth2xFixture is ETH2X-FLI-P: WETH collateral, USDC debt. Per set the
// contract reports 1 WETH of collateral against 1500 USDC of debt, which
// swaps into 0.6 WETH.
func eth2xFixture(t *testing.T) (*fakeBackend, *fakeRouter, *scriptedConsole, *Session) {
	t.Helper()
	fb := newFakeBackend()
	signer := testSigner(t)
	fb.addToken(weth, "WETH", 18).balances[signer.From] = ether("1")
	fb.addToken(usdc, "USDC", 6).balances[signer.From] = big.NewInt(500_000_000)
	fb.addToken(eth2x, "ETH2X-FLI-P", 18)
	fb.leveraged = contracts.LeveragedTokenData{
		CollateralAToken: amWETH,
		CollateralToken:  weth,
		CollateralAmount: ether("1"),
		DebtToken:        usdc,
		DebtAmount:       big.NewInt(1_500_000_000),
	}
	fb.gasByTo[weth] = 50_000
	fb.gasByTo[eth2x] = 50_000
	fb.gasByTo[eilAddr] = 1_000_000

	fr := &fakeRouter{routes: map[routeKey]*router.Route{
		{usdc, weth, router.ExactInput}: {
			TradeType: router.ExactInput, Path: []common.Address{usdc, weth}, Fees: []uint32{500},
			AmountOut: ether("0.6"),
		},
		{weth, usdc, router.ExactOutput}: {
			TradeType: router.ExactOutput, Path: []common.Address{weth, usdc}, Fees: []uint32{500},
			AmountIn: ether("0.6"),
		},
		{usdc, weth, router.ExactOutput}: {
			TradeType: router.ExactOutput, Path: []common.Address{usdc, weth}, Fees: []uint32{3000},
			AmountIn: big.NewInt(1_000_000_000),
		},
		{weth, usdc, router.ExactInput}: {
			TradeType: router.ExactInput, Path: []common.Address{weth, usdc}, Fees: []uint32{500},
			AmountOut: big.NewInt(1_000_000_000),
		},
	}}
	console := &scriptedConsole{json: map[string]any{}}
	s := &Session{
		Backend:             fb,
		Router:              fr,
		Console:             console,
		Signer:              signer,
		Gas:                 gas.Pricing{Source: gas.SourceFixed, GasPrice: big.NewInt(60_000_000_000)},
		FlashLoanPremiumBps: DefaultFlashLoanPremiumBps,
	}
	return fb, fr, console, s
}
