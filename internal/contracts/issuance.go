package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Exchange mirrors the ExchangeIssuanceLeveraged.Exchange enum.
type Exchange uint8

const (
	ExchangeNone Exchange = iota
	ExchangeQuickswap
	ExchangeSushiswap
	ExchangeUniV3
)

func (e Exchange) String() string {
	switch e {
	case ExchangeNone:
		return "None"
	case ExchangeQuickswap:
		return "Quickswap"
	case ExchangeSushiswap:
		return "Sushiswap"
	case ExchangeUniV3:
		return "UniV3"
	default:
		return fmt.Sprintf("Exchange(%d)", uint8(e))
	}
}

type LeveragedTokenData struct {
	CollateralAToken common.Address
	CollateralToken  common.Address
	CollateralAmount *big.Int
	DebtToken        common.Address
	DebtAmount       *big.Int
}

// SwapData is one swap leg: token path in trade direction and the uint24 fee
// tier of each hop.
type SwapData struct {
	Path []common.Address `json:"path"`
	Fees []*big.Int       `json:"fees"`
}

// EmptySwapData is passed for legs that need no swap (e.g. paying with the
// collateral token itself).
func EmptySwapData() SwapData {
	return SwapData{Path: []common.Address{}, Fees: []*big.Int{}}
}

type IssueArgs struct {
	SetToken                  common.Address
	SetAmount                 *big.Int
	InputToken                common.Address
	MaxAmountInputToken       *big.Int
	Exchange                  Exchange
	SwapDataDebtForCollateral SwapData
	SwapDataInputToken        SwapData
}

func (a IssueArgs) params() []interface{} {
	return []interface{}{
		a.SetToken,
		a.SetAmount,
		a.InputToken,
		a.MaxAmountInputToken,
		uint8(a.Exchange),
		a.SwapDataDebtForCollateral,
		a.SwapDataInputToken,
	}
}

type RedeemArgs struct {
	SetToken                  common.Address
	SetAmount                 *big.Int
	OutputToken               common.Address
	MinAmountOutputToken      *big.Int
	Exchange                  Exchange
	SwapDataCollateralForDebt SwapData
	SwapDataOutputToken       SwapData
}

func (a RedeemArgs) params() []interface{} {
	return []interface{}{
		a.SetToken,
		a.SetAmount,
		a.OutputToken,
		a.MinAmountOutputToken,
		uint8(a.Exchange),
		a.SwapDataCollateralForDebt,
		a.SwapDataOutputToken,
	}
}

// ExchangeIssuance binds ExchangeIssuanceLeveraged.
type ExchangeIssuance struct {
	binding
}

func NewExchangeIssuance(address common.Address, backend bind.ContractBackend) *ExchangeIssuance {
	return &ExchangeIssuance{newBinding(address, issuanceABI, backend, backend)}
}

func NewExchangeIssuanceCaller(address common.Address, caller bind.ContractCaller) *ExchangeIssuance {
	return &ExchangeIssuance{newBinding(address, issuanceABI, caller, nil)}
}

func (e *ExchangeIssuance) GetLeveragedTokenData(opts *bind.CallOpts, setToken common.Address, setAmount *big.Int, isIssuance bool) (LeveragedTokenData, error) {
	out, err := e.call(opts, "getLeveragedTokenData", setToken, setAmount, isIssuance)
	if err != nil {
		return LeveragedTokenData{}, err
	}
	if len(out) != 1 {
		return LeveragedTokenData{}, fmt.Errorf("getLeveragedTokenData: unexpected result len %d", len(out))
	}
	data := *abi.ConvertType(out[0], new(LeveragedTokenData)).(*LeveragedTokenData)
	return data, nil
}

func (e *ExchangeIssuance) IssueExactSetFromERC20(opts *bind.TransactOpts, args IssueArgs) (*types.Transaction, error) {
	return e.transact(opts, "issueExactSetFromERC20", args.params()...)
}

func (e *ExchangeIssuance) PackIssueExactSetFromERC20(args IssueArgs) ([]byte, error) {
	return e.pack("issueExactSetFromERC20", args.params()...)
}

func (e *ExchangeIssuance) RedeemExactSetForERC20(opts *bind.TransactOpts, args RedeemArgs) (*types.Transaction, error) {
	return e.transact(opts, "redeemExactSetForERC20", args.params()...)
}

func (e *ExchangeIssuance) PackRedeemExactSetForERC20(args RedeemArgs) ([]byte, error) {
	return e.pack("redeemExactSetForERC20", args.params()...)
}
