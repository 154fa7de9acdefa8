package gasoracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

const DefaultPolygonscanURL = "https://api.polygonscan.com/api"

// GasTracker is the "result" object of the gastracker/gasoracle action.
// Prices are in gwei; UsdPrice is the native token price in USD.
type GasTracker struct {
	LastBlock       string          `json:"LastBlock"`
	SafeGasPrice    decimal.Decimal `json:"SafeGasPrice"`
	ProposeGasPrice decimal.Decimal `json:"ProposeGasPrice"`
	FastGasPrice    decimal.Decimal `json:"FastGasPrice"`
	SuggestBaseFee  decimal.Decimal `json:"suggestBaseFee"`
	UsdPrice        decimal.Decimal `json:"UsdPrice"`
}

func (g GasTracker) Price(s Speed) decimal.Decimal {
	switch s {
	case SpeedSafeLow:
		return g.SafeGasPrice
	case SpeedFast:
		return g.FastGasPrice
	default:
		return g.ProposeGasPrice
	}
}

type polygonscanEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type Polygonscan struct {
	c      httpClient
	apiKey string
}

func NewPolygonscan(host, apiKey string) (*Polygonscan, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("polygonscan api key required (POLYGONSCAN_API_KEY)")
	}
	c, err := newHTTPClient("polygonscan", host, DefaultPolygonscanURL)
	if err != nil {
		return nil, err
	}
	return &Polygonscan{c: c, apiKey: apiKey}, nil
}

func (p *Polygonscan) GasOracle(ctx context.Context) (GasTracker, error) {
	if p == nil {
		return GasTracker{}, fmt.Errorf("polygonscan client nil")
	}
	q := url.Values{}
	q.Set("module", "gastracker")
	q.Set("action", "gasoracle")
	q.Set("apikey", p.apiKey)

	var env polygonscanEnvelope
	if err := p.c.getJSON(ctx, p.c.host+"?"+q.Encode(), &env); err != nil {
		return GasTracker{}, err
	}
	if env.Status != "1" {
		// On failure "result" carries the reason as a plain string.
		return GasTracker{}, fmt.Errorf("polygonscan: status=%s message=%q result=%s", env.Status, env.Message, env.Result)
	}
	var out GasTracker
	if err := json.Unmarshal(env.Result, &out); err != nil {
		return GasTracker{}, fmt.Errorf("polygonscan decode result: %w", err)
	}
	if out.ProposeGasPrice.Sign() <= 0 {
		return GasTracker{}, fmt.Errorf("polygonscan: empty gas price")
	}
	return out, nil
}
