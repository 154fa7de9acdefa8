package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

type UniswapV3Factory struct {
	binding
}

func NewUniswapV3Factory(address common.Address, caller bind.ContractCaller) *UniswapV3Factory {
	return &UniswapV3Factory{newBinding(address, factoryABI, caller, nil)}
}

// GetPool returns the zero address when no pool exists for the pair and tier.
func (f *UniswapV3Factory) GetPool(opts *bind.CallOpts, tokenA, tokenB common.Address, fee uint32) (common.Address, error) {
	out, err := f.call(opts, "getPool", tokenA, tokenB, new(big.Int).SetUint64(uint64(fee)))
	if err != nil {
		return common.Address{}, err
	}
	return addressAt(out, 0, "getPool")
}

type UniswapV3Pool struct {
	binding
}

func NewUniswapV3Pool(address common.Address, caller bind.ContractCaller) *UniswapV3Pool {
	return &UniswapV3Pool{newBinding(address, poolABI, caller, nil)}
}

func (p *UniswapV3Pool) Fee(opts *bind.CallOpts) (uint32, error) {
	out, err := p.call(opts, "fee")
	if err != nil {
		return 0, err
	}
	fee, err := bigAt(out, 0, "fee")
	if err != nil {
		return 0, err
	}
	if !fee.IsUint64() || fee.Uint64() > 1<<24-1 {
		return 0, fmt.Errorf("fee: out of uint24 range: %s", fee)
	}
	return uint32(fee.Uint64()), nil
}

// Quote is a QuoterV2 answer: the quoted amount (out for exact input, in for
// exact output) and the quoter's gas estimate for the swap.
type Quote struct {
	Amount      *big.Int
	GasEstimate *big.Int
}

type QuoterV2 struct {
	binding
}

func NewQuoterV2(address common.Address, caller bind.ContractCaller) *QuoterV2 {
	return &QuoterV2{newBinding(address, quoterABI, caller, nil)}
}

// QuoteExactInput expects a path encoded tokenIn -> tokenOut.
func (q *QuoterV2) QuoteExactInput(opts *bind.CallOpts, path []byte, amountIn *big.Int) (Quote, error) {
	return q.quote(opts, "quoteExactInput", path, amountIn)
}

// QuoteExactOutput expects a path encoded tokenOut -> tokenIn.
func (q *QuoterV2) QuoteExactOutput(opts *bind.CallOpts, path []byte, amountOut *big.Int) (Quote, error) {
	return q.quote(opts, "quoteExactOutput", path, amountOut)
}

func (q *QuoterV2) quote(opts *bind.CallOpts, method string, path []byte, amount *big.Int) (Quote, error) {
	out, err := q.call(opts, method, path, amount)
	if err != nil {
		return Quote{}, err
	}
	amt, err := bigAt(out, 0, method)
	if err != nil {
		return Quote{}, err
	}
	gas, err := bigAt(out, 3, method)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Amount: amt, GasEstimate: gas}, nil
}
