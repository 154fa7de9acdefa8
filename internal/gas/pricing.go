// Package gas resolves per-gas prices and turns estimates into limits and
// cost budgets.
package gas

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"poly-fli/internal/ethutil"
	"poly-fli/internal/gasoracle"
)

type Source string

const (
	SourceFixed       Source = "fixed"
	SourceNode        Source = "node"
	SourceGasStation  Source = "gasstation"
	SourcePolygonscan Source = "polygonscan"
)

// DefaultFixedGwei is the legacy gas price used when no oracle is asked.
var DefaultFixedGwei = decimal.NewFromInt(60)

func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case "", SourceFixed:
		return SourceFixed, nil
	case SourceNode:
		return SourceNode, nil
	case SourceGasStation, "gas-station", "gas_station":
		return SourceGasStation, nil
	case SourcePolygonscan:
		return SourcePolygonscan, nil
	default:
		return "", fmt.Errorf("unknown gas source %q (fixed|node|gasstation|polygonscan)", s)
	}
}

// Pricing is either a legacy GasPrice or an EIP-1559 FeeCap/TipCap pair.
type Pricing struct {
	Source   Source   `json:"source"`
	GasPrice *big.Int `json:"gas_price,omitempty"`
	FeeCap   *big.Int `json:"fee_cap,omitempty"`
	TipCap   *big.Int `json:"tip_cap,omitempty"`
}

func (p Pricing) IsDynamic() bool {
	return p.FeeCap != nil
}

// MaxPerGas is the most a unit of gas can cost under this pricing.
func (p Pricing) MaxPerGas() *big.Int {
	if p.IsDynamic() {
		return new(big.Int).Set(p.FeeCap)
	}
	if p.GasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(p.GasPrice)
}

func (p Pricing) Apply(opts *bind.TransactOpts) {
	if opts == nil {
		return
	}
	if p.IsDynamic() {
		opts.GasPrice = nil
		opts.GasFeeCap = new(big.Int).Set(p.FeeCap)
		opts.GasTipCap = new(big.Int).Set(p.TipCap)
		return
	}
	opts.GasFeeCap = nil
	opts.GasTipCap = nil
	opts.GasPrice = p.MaxPerGas()
}

func (p Pricing) String() string {
	if p.IsDynamic() {
		return fmt.Sprintf("%s maxFee=%s gwei tip=%s gwei", p.Source, ethutil.FormatGwei(p.FeeCap), ethutil.FormatGwei(p.TipCap))
	}
	return fmt.Sprintf("%s gasPrice=%s gwei", p.Source, ethutil.FormatGwei(p.GasPrice))
}

type NodeSuggester interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

type StationReader interface {
	Get(ctx context.Context) (gasoracle.GasStationResponse, error)
}

type TrackerReader interface {
	GasOracle(ctx context.Context) (gasoracle.GasTracker, error)
}

// Resolver turns the configured source into a Pricing. Only the collaborator
// matching Source needs to be set.
type Resolver struct {
	Source    Source
	FixedGwei decimal.Decimal
	Speed     gasoracle.Speed

	Node    NodeSuggester
	Station StationReader
	Tracker TrackerReader

	Log zerolog.Logger
}

func (r Resolver) Resolve(ctx context.Context) (Pricing, error) {
	switch r.Source {
	case "", SourceFixed:
		gwei := r.FixedGwei
		if gwei.Sign() <= 0 {
			gwei = DefaultFixedGwei
		}
		return Pricing{Source: SourceFixed, GasPrice: ethutil.ToBaseUnits(gwei, ethutil.GweiDecimals)}, nil

	case SourceNode:
		if r.Node == nil {
			return Pricing{}, fmt.Errorf("gas source node: no client")
		}
		price, err := r.Node.SuggestGasPrice(ctx)
		if err != nil {
			return Pricing{}, fmt.Errorf("suggest gas price: %w", err)
		}
		return Pricing{Source: SourceNode, GasPrice: price}, nil

	case SourceGasStation:
		if r.Station == nil {
			return Pricing{}, fmt.Errorf("gas source gasstation: no client")
		}
		res, err := r.Station.Get(ctx)
		if err != nil {
			return Pricing{}, err
		}
		lvl := res.Level(r.Speed)
		p := Pricing{
			Source: SourceGasStation,
			FeeCap: ethutil.ToBaseUnits(lvl.MaxFee, ethutil.GweiDecimals),
			TipCap: ethutil.ToBaseUnits(lvl.MaxPriorityFee, ethutil.GweiDecimals),
		}
		if p.TipCap.Cmp(p.FeeCap) > 0 {
			p.TipCap = new(big.Int).Set(p.FeeCap)
		}
		r.Log.Debug().Str("base_fee_gwei", res.EstimatedBaseFee.String()).Str("speed", string(r.Speed)).Msg("gas station")
		return p, nil

	case SourcePolygonscan:
		if r.Tracker == nil {
			return Pricing{}, fmt.Errorf("gas source polygonscan: no client")
		}
		res, err := r.Tracker.GasOracle(ctx)
		if err != nil {
			return Pricing{}, err
		}
		r.Log.Debug().Str("base_fee_gwei", res.SuggestBaseFee.String()).Str("matic_usd", res.UsdPrice.String()).Msg("polygonscan gas oracle")
		return Pricing{Source: SourcePolygonscan, GasPrice: ethutil.ToBaseUnits(res.Price(r.Speed), ethutil.GweiDecimals)}, nil

	default:
		return Pricing{}, fmt.Errorf("unknown gas source %q", r.Source)
	}
}
