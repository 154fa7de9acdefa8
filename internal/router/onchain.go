package router

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"poly-fli/internal/contracts"
)

const defaultCallTimeout = 8 * time.Second

// OnChain implements Chain against the Uniswap V3 factory and QuoterV2.
type OnChain struct {
	caller  bind.ContractCaller
	factory *contracts.UniswapV3Factory
	quoter  *contracts.QuoterV2
	timeout time.Duration
}

func NewOnChain(caller bind.ContractCaller, factory, quoter common.Address) *OnChain {
	return &OnChain{
		caller:  caller,
		factory: contracts.NewUniswapV3Factory(factory, caller),
		quoter:  contracts.NewQuoterV2(quoter, caller),
		timeout: defaultCallTimeout,
	}
}

func (c *OnChain) opts(ctx context.Context) (*bind.CallOpts, context.CancelFunc) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	return &bind.CallOpts{Context: callCtx}, cancel
}

func (c *OnChain) GetPool(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error) {
	opts, cancel := c.opts(ctx)
	defer cancel()
	return c.factory.GetPool(opts, tokenA, tokenB, fee)
}

func (c *OnChain) PoolFee(ctx context.Context, pool common.Address) (uint32, error) {
	opts, cancel := c.opts(ctx)
	defer cancel()
	return contracts.NewUniswapV3Pool(pool, c.caller).Fee(opts)
}

func (c *OnChain) QuoteExactInput(ctx context.Context, path []byte, amountIn *big.Int) (contracts.Quote, error) {
	opts, cancel := c.opts(ctx)
	defer cancel()
	return c.quoter.QuoteExactInput(opts, path, amountIn)
}

func (c *OnChain) QuoteExactOutput(ctx context.Context, path []byte, amountOut *big.Int) (contracts.Quote, error) {
	opts, cancel := c.opts(ctx)
	defer cancel()
	return c.quoter.QuoteExactOutput(opts, path, amountOut)
}
