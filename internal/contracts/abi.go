// Package contracts holds the ABI fragments and typed bindings the tools use:
// ERC-20 tokens, the ExchangeIssuanceLeveraged contract and the Uniswap V3
// factory, pool and QuoterV2.
package contracts

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const ERC20ABI = `[
  {"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"internalType":"address","name":"owner","type":"address"},{"internalType":"address","name":"spender","type":"address"}],"name":"allowance","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"internalType":"address","name":"spender","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"approve","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"symbol","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"name","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"},
  {"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"from","type":"address"},{"indexed":true,"internalType":"address","name":"to","type":"address"},{"indexed":false,"internalType":"uint256","name":"value","type":"uint256"}],"name":"Transfer","type":"event"}
]`

const ExchangeIssuanceLeveragedABI = `[
  {"inputs":[
    {"internalType":"contract ISetToken","name":"_setToken","type":"address"},
    {"internalType":"uint256","name":"_setAmount","type":"uint256"},
    {"internalType":"bool","name":"_isIssuance","type":"bool"}
  ],"name":"getLeveragedTokenData","outputs":[
    {"components":[
      {"internalType":"address","name":"collateralAToken","type":"address"},
      {"internalType":"address","name":"collateralToken","type":"address"},
      {"internalType":"uint256","name":"collateralAmount","type":"uint256"},
      {"internalType":"address","name":"debtToken","type":"address"},
      {"internalType":"uint256","name":"debtAmount","type":"uint256"}
    ],"internalType":"struct ExchangeIssuanceLeveraged.LeveragedTokenData","name":"","type":"tuple"}
  ],"stateMutability":"view","type":"function"},
  {"inputs":[
    {"internalType":"contract ISetToken","name":"_setToken","type":"address"},
    {"internalType":"uint256","name":"_setAmount","type":"uint256"},
    {"internalType":"address","name":"_inputToken","type":"address"},
    {"internalType":"uint256","name":"_maxAmountInputToken","type":"uint256"},
    {"internalType":"enum ExchangeIssuanceLeveraged.Exchange","name":"_exchange","type":"uint8"},
    {"components":[
      {"internalType":"address[]","name":"path","type":"address[]"},
      {"internalType":"uint24[]","name":"fees","type":"uint24[]"}
    ],"internalType":"struct ExchangeIssuanceLeveraged.SwapData","name":"_swapDataDebtForCollateral","type":"tuple"},
    {"components":[
      {"internalType":"address[]","name":"path","type":"address[]"},
      {"internalType":"uint24[]","name":"fees","type":"uint24[]"}
    ],"internalType":"struct ExchangeIssuanceLeveraged.SwapData","name":"_swapDataInputToken","type":"tuple"}
  ],"name":"issueExactSetFromERC20","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[
    {"internalType":"contract ISetToken","name":"_setToken","type":"address"},
    {"internalType":"uint256","name":"_setAmount","type":"uint256"},
    {"internalType":"address","name":"_outputToken","type":"address"},
    {"internalType":"uint256","name":"_minAmountOutputToken","type":"uint256"},
    {"internalType":"enum ExchangeIssuanceLeveraged.Exchange","name":"_exchange","type":"uint8"},
    {"components":[
      {"internalType":"address[]","name":"path","type":"address[]"},
      {"internalType":"uint24[]","name":"fees","type":"uint24[]"}
    ],"internalType":"struct ExchangeIssuanceLeveraged.SwapData","name":"_swapDataCollateralForDebt","type":"tuple"},
    {"components":[
      {"internalType":"address[]","name":"path","type":"address[]"},
      {"internalType":"uint24[]","name":"fees","type":"uint24[]"}
    ],"internalType":"struct ExchangeIssuanceLeveraged.SwapData","name":"_swapDataOutputToken","type":"tuple"}
  ],"name":"redeemExactSetForERC20","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

const UniswapV3FactoryABI = `[
  {"inputs":[{"internalType":"address","name":"tokenA","type":"address"},{"internalType":"address","name":"tokenB","type":"address"},{"internalType":"uint24","name":"fee","type":"uint24"}],"name":"getPool","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

const UniswapV3PoolABI = `[
  {"inputs":[],"name":"fee","outputs":[{"internalType":"uint24","name":"","type":"uint24"}],"stateMutability":"view","type":"function"}
]`

const QuoterV2ABI = `[
  {"inputs":[{"internalType":"bytes","name":"path","type":"bytes"},{"internalType":"uint256","name":"amountIn","type":"uint256"}],"name":"quoteExactInput","outputs":[{"internalType":"uint256","name":"amountOut","type":"uint256"},{"internalType":"uint160[]","name":"sqrtPriceX96AfterList","type":"uint160[]"},{"internalType":"uint32[]","name":"initializedTicksCrossedList","type":"uint32[]"},{"internalType":"uint256","name":"gasEstimate","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[{"internalType":"bytes","name":"path","type":"bytes"},{"internalType":"uint256","name":"amountOut","type":"uint256"}],"name":"quoteExactOutput","outputs":[{"internalType":"uint256","name":"amountIn","type":"uint256"},{"internalType":"uint160[]","name":"sqrtPriceX96AfterList","type":"uint160[]"},{"internalType":"uint32[]","name":"initializedTicksCrossedList","type":"uint32[]"},{"internalType":"uint256","name":"gasEstimate","type":"uint256"}],"stateMutability":"nonpayable","type":"function"}
]`

var (
	erc20ABI    = mustParseABI("erc20", ERC20ABI)
	issuanceABI = mustParseABI("exchange issuance", ExchangeIssuanceLeveragedABI)
	factoryABI  = mustParseABI("uniswap v3 factory", UniswapV3FactoryABI)
	poolABI     = mustParseABI("uniswap v3 pool", UniswapV3PoolABI)
	quoterABI   = mustParseABI("quoter v2", QuoterV2ABI)
)

func mustParseABI(name, raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("%s abi parse: %v", name, err))
	}
	return parsed
}
