package gasoracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const DefaultGasStationURL = "https://gasstation.polygon.technology"

// Speed selects one tier of a gas oracle answer.
type Speed string

const (
	SpeedSafeLow  Speed = "safeLow"
	SpeedStandard Speed = "standard"
	SpeedFast     Speed = "fast"
)

func ParseSpeed(s string) (Speed, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "propose":
		return SpeedStandard, nil
	case "safelow", "safe", "slow":
		return SpeedSafeLow, nil
	case "fast":
		return SpeedFast, nil
	default:
		return "", fmt.Errorf("unknown gas speed %q (safeLow|standard|fast)", s)
	}
}

// FeeLevel holds EIP-1559 values in gwei.
type FeeLevel struct {
	MaxPriorityFee decimal.Decimal `json:"maxPriorityFee"`
	MaxFee         decimal.Decimal `json:"maxFee"`
}

type GasStationResponse struct {
	SafeLow          FeeLevel        `json:"safeLow"`
	Standard         FeeLevel        `json:"standard"`
	Fast             FeeLevel        `json:"fast"`
	EstimatedBaseFee decimal.Decimal `json:"estimatedBaseFee"`
	BlockTime        int64           `json:"blockTime"`
	BlockNumber      int64           `json:"blockNumber"`
}

func (r GasStationResponse) Level(s Speed) FeeLevel {
	switch s {
	case SpeedSafeLow:
		return r.SafeLow
	case SpeedFast:
		return r.Fast
	default:
		return r.Standard
	}
}

type GasStation struct {
	c httpClient
}

func NewGasStation(host string) (*GasStation, error) {
	c, err := newHTTPClient("gas station", host, DefaultGasStationURL)
	if err != nil {
		return nil, err
	}
	return &GasStation{c: c}, nil
}

func (g *GasStation) Get(ctx context.Context) (GasStationResponse, error) {
	if g == nil {
		return GasStationResponse{}, fmt.Errorf("gas station client nil")
	}
	var out GasStationResponse
	if err := g.c.getJSON(ctx, g.c.host+"/v2", &out); err != nil {
		return GasStationResponse{}, err
	}
	if out.Standard.MaxFee.Sign() <= 0 {
		return GasStationResponse{}, fmt.Errorf("gas station: empty fee data")
	}
	return out, nil
}
