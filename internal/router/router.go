// Package router picks a single-split Uniswap V3 path for a swap leg by
// quoting candidate paths through QuoterV2.
package router

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"poly-fli/internal/contracts"
)

// ErrNoRoute means no candidate path produced a quote.
var ErrNoRoute = errors.New("router: no route found")

// DefaultFeeTiers are the Uniswap V3 fee tiers tried for every hop.
var DefaultFeeTiers = []uint32{100, 500, 3000, 10000}

type TradeType int

const (
	ExactInput TradeType = iota
	ExactOutput
)

func (t TradeType) String() string {
	if t == ExactOutput {
		return "exact_output"
	}
	return "exact_input"
}

type Request struct {
	TokenIn   common.Address
	TokenOut  common.Address
	Amount    *big.Int
	TradeType TradeType
}

// Route is the selected path. Path and Fees are always in trade direction
// (tokenIn first), whatever the trade type.
type Route struct {
	TradeType   TradeType        `json:"trade_type"`
	Path        []common.Address `json:"path"`
	Fees        []uint32         `json:"fees"`
	Pools       []common.Address `json:"pools"`
	AmountIn    *big.Int         `json:"amount_in"`
	AmountOut   *big.Int         `json:"amount_out"`
	GasEstimate *big.Int         `json:"gas_estimate,omitempty"`
}

func (r *Route) IsEmpty() bool {
	return r == nil || len(r.Path) == 0
}

func (r *Route) Hops() int {
	if r == nil {
		return 0
	}
	return len(r.Fees)
}

// SwapData converts the route into the tuple ExchangeIssuanceLeveraged takes.
func (r *Route) SwapData() contracts.SwapData {
	if r.IsEmpty() {
		return contracts.EmptySwapData()
	}
	fees := make([]*big.Int, 0, len(r.Fees))
	for _, f := range r.Fees {
		fees = append(fees, new(big.Int).SetUint64(uint64(f)))
	}
	return contracts.SwapData{Path: append([]common.Address(nil), r.Path...), Fees: fees}
}

// Chain is the on-chain surface the router needs.
type Chain interface {
	GetPool(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error)
	PoolFee(ctx context.Context, pool common.Address) (uint32, error)
	QuoteExactInput(ctx context.Context, path []byte, amountIn *big.Int) (contracts.Quote, error)
	QuoteExactOutput(ctx context.Context, path []byte, amountOut *big.Int) (contracts.Quote, error)
}

type Router struct {
	chain      Chain
	tiers      []uint32
	connectors []common.Address
	log        zerolog.Logger
}

type Option func(*Router)

func WithFeeTiers(tiers []uint32) Option {
	return func(r *Router) {
		if len(tiers) > 0 {
			r.tiers = append([]uint32(nil), tiers...)
		}
	}
}

// WithConnectors sets the intermediate tokens tried for two-hop paths. An
// empty list restricts the router to direct pools.
func WithConnectors(connectors []common.Address) Option {
	return func(r *Router) {
		r.connectors = append([]common.Address(nil), connectors...)
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Router) { r.log = l }
}

func New(chain Chain, opts ...Option) *Router {
	r := &Router{
		chain: chain,
		tiers: append([]uint32(nil), DefaultFeeTiers...),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type hop struct {
	fee  uint32
	pool common.Address
}

type candidate struct {
	tokens []common.Address
	hops   []hop
}

// FindRoute returns the best single path for req. Identical tokens or a zero
// amount need no swap and yield an empty route.
func (r *Router) FindRoute(ctx context.Context, req Request) (*Route, error) {
	if req.Amount == nil || req.Amount.Sign() < 0 {
		return nil, fmt.Errorf("router: invalid amount %v", req.Amount)
	}
	if req.TokenIn == req.TokenOut || req.Amount.Sign() == 0 {
		return &Route{
			TradeType: req.TradeType,
			AmountIn:  new(big.Int).Set(req.Amount),
			AmountOut: new(big.Int).Set(req.Amount),
		}, nil
	}

	candidates, err := r.candidates(ctx, req.TokenIn, req.TokenOut)
	if err != nil {
		return nil, err
	}

	var best *Route
	for _, c := range candidates {
		route, err := r.quote(ctx, req, c)
		if err != nil {
			r.log.Debug().Err(err).Str("path", describe(c)).Msg("quote failed, skipping")
			continue
		}
		r.log.Debug().
			Str("path", describe(c)).
			Str("amount_in", route.AmountIn.String()).
			Str("amount_out", route.AmountOut.String()).
			Msg("candidate")
		if better(route, best) {
			best = route
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %s -> %s (%d candidates)", ErrNoRoute, req.TokenIn.Hex(), req.TokenOut.Hex(), len(candidates))
	}

	for i, pool := range best.Pools {
		fee, err := r.chain.PoolFee(ctx, pool)
		if err != nil {
			return nil, fmt.Errorf("router: read fee of pool %s: %w", pool.Hex(), err)
		}
		if fee != best.Fees[i] {
			return nil, fmt.Errorf("router: pool %s reports fee %d, expected tier %d", pool.Hex(), fee, best.Fees[i])
		}
	}

	r.log.Info().
		Str("trade", req.TradeType.String()).
		Int("hops", best.Hops()).
		Str("amount_in", best.AmountIn.String()).
		Str("amount_out", best.AmountOut.String()).
		Msg("route selected")
	return best, nil
}

func (r *Router) candidates(ctx context.Context, in, out common.Address) ([]candidate, error) {
	pools := make(map[[2]common.Address][]hop)
	poolsFor := func(a, b common.Address) ([]hop, error) {
		key := [2]common.Address{a, b}
		if hs, ok := pools[key]; ok {
			return hs, nil
		}
		var hs []hop
		for _, fee := range r.tiers {
			pool, err := r.chain.GetPool(ctx, a, b, fee)
			if err != nil {
				return nil, fmt.Errorf("router: getPool(%s,%s,%d): %w", a.Hex(), b.Hex(), fee, err)
			}
			if pool == (common.Address{}) {
				continue
			}
			hs = append(hs, hop{fee: fee, pool: pool})
		}
		pools[key] = hs
		pools[[2]common.Address{b, a}] = hs
		return hs, nil
	}

	var cands []candidate
	direct, err := poolsFor(in, out)
	if err != nil {
		return nil, err
	}
	for _, h := range direct {
		cands = append(cands, candidate{tokens: []common.Address{in, out}, hops: []hop{h}})
	}

	for _, mid := range r.connectors {
		if mid == in || mid == out {
			continue
		}
		first, err := poolsFor(in, mid)
		if err != nil {
			return nil, err
		}
		if len(first) == 0 {
			continue
		}
		second, err := poolsFor(mid, out)
		if err != nil {
			return nil, err
		}
		for _, h1 := range first {
			for _, h2 := range second {
				cands = append(cands, candidate{tokens: []common.Address{in, mid, out}, hops: []hop{h1, h2}})
			}
		}
	}
	return cands, nil
}

func (r *Router) quote(ctx context.Context, req Request, c candidate) (*Route, error) {
	fees := make([]uint32, 0, len(c.hops))
	pools := make([]common.Address, 0, len(c.hops))
	for _, h := range c.hops {
		fees = append(fees, h.fee)
		pools = append(pools, h.pool)
	}

	route := &Route{
		TradeType: req.TradeType,
		Path:      c.tokens,
		Fees:      fees,
		Pools:     pools,
	}

	switch req.TradeType {
	case ExactInput:
		path, err := EncodePath(c.tokens, fees)
		if err != nil {
			return nil, err
		}
		q, err := r.chain.QuoteExactInput(ctx, path, req.Amount)
		if err != nil {
			return nil, err
		}
		route.AmountIn = new(big.Int).Set(req.Amount)
		route.AmountOut = q.Amount
		route.GasEstimate = q.GasEstimate
	case ExactOutput:
		path, err := EncodeReversedPath(c.tokens, fees)
		if err != nil {
			return nil, err
		}
		q, err := r.chain.QuoteExactOutput(ctx, path, req.Amount)
		if err != nil {
			return nil, err
		}
		route.AmountIn = q.Amount
		route.AmountOut = new(big.Int).Set(req.Amount)
		route.GasEstimate = q.GasEstimate
	default:
		return nil, fmt.Errorf("router: unknown trade type %d", req.TradeType)
	}
	if route.AmountIn == nil || route.AmountOut == nil || route.AmountIn.Sign() <= 0 || route.AmountOut.Sign() <= 0 {
		return nil, fmt.Errorf("router: empty quote")
	}
	return route, nil
}

func better(a, b *Route) bool {
	if b == nil {
		return true
	}
	var cmp int
	if a.TradeType == ExactOutput {
		cmp = b.AmountIn.Cmp(a.AmountIn)
	} else {
		cmp = a.AmountOut.Cmp(b.AmountOut)
	}
	if cmp != 0 {
		return cmp > 0
	}
	if a.Hops() != b.Hops() {
		return a.Hops() < b.Hops()
	}
	if a.GasEstimate != nil && b.GasEstimate != nil {
		return a.GasEstimate.Cmp(b.GasEstimate) < 0
	}
	return false
}

func describe(c candidate) string {
	s := ""
	for i, t := range c.tokens {
		if i > 0 {
			s += fmt.Sprintf(" -%d-> ", c.hops[i-1].fee)
		}
		s += t.Hex()
	}
	return s
}
