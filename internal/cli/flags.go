// Package cli wires the operator tools: flags layered over the run profile
// and the environment, the RPC client, signer, gas pricing, router and the
// run journal/metrics outputs.
package cli

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"poly-fli/internal/config"
	"poly-fli/internal/ethutil"
	"poly-fli/internal/fli"
)

// Common are the flags every tool takes.
type Common struct {
	Profile  string
	LogLevel string
	Yes      bool

	GasSource  string
	GasPrice   string
	GasSpeed   string
	GasScaling uint64

	Connectors string
	FeeTiers   string

	Journal string
	Metrics string
}

func (c *Common) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.Profile, "profile", "", "YAML run profile (issue/redeem/gas/router/tokens sections)")
	fs.StringVar(&c.LogLevel, "log-level", "", "Log level (default from LOG_LEVEL or info)")
	fs.BoolVar(&c.Yes, "yes", false, "Answer yes to every confirmation prompt")
	fs.StringVar(&c.GasSource, "gas-source", "", "Gas price source: fixed, node, gasstation, polygonscan (default from profile, GAS_SOURCE or fixed)")
	fs.StringVar(&c.GasPrice, "gas-price", "", "Fixed gas price in gwei (default 60)")
	fs.StringVar(&c.GasSpeed, "gas-speed", "", "Oracle tier: safeLow, standard, fast (default standard)")
	fs.Uint64Var(&c.GasScaling, "gas-scaling", 0, "Gas limit as percent of the estimate (default 110)")
	fs.StringVar(&c.Connectors, "connectors", "", "Comma-separated router connector tokens (symbols or addresses)")
	fs.StringVar(&c.FeeTiers, "fee-tiers", "", "Comma-separated Uniswap V3 fee tiers (default 100,500,3000,10000)")
	fs.StringVar(&c.Journal, "journal", "", "Append a JSONL run journal to this file (default from JOURNAL_PATH)")
	fs.StringVar(&c.Metrics, "metrics", "", "Write a Prometheus textfile here when the run ends (default from METRICS_TEXTFILE)")
}

// Trade are the per-run flags of issue, redeem and quote. Blank values fall
// back to the matching profile section.
type Trade struct {
	SetToken   string
	Amount     string
	Token      string
	Price      string
	TokenPrice string
	Slippage   string
	PremiumBps int64
}

// RegisterIssue names the flags for issuance: -token is the input token and
// -price the max price per set.
func (t *Trade) RegisterIssue(fs *flag.FlagSet) {
	t.register(fs, "Input token (default: the set's collateral)", "Max USD price per set token")
}

// RegisterRedeem names the flags for redemption: -token is the output token
// and -price the min price per set.
func (t *Trade) RegisterRedeem(fs *flag.FlagSet) {
	t.register(fs, "Output token (default: the set's collateral)", "Min USD price per set token")
}

// RegisterQuote names the flags for either direction.
func (t *Trade) RegisterQuote(fs *flag.FlagSet) {
	t.register(fs, "Input token (issue) or output token (redeem), default: the set's collateral", "Max (issue) or min (redeem) USD price per set token")
}

func (t *Trade) register(fs *flag.FlagSet, tokenUsage, priceUsage string) {
	fs.StringVar(&t.SetToken, "set", "", "Set token symbol or address (e.g. ETH2X-FLI-P)")
	fs.StringVar(&t.Amount, "amount", "", "Set token amount")
	fs.StringVar(&t.Token, "token", "", tokenUsage)
	fs.StringVar(&t.Price, "price", "", priceUsage)
	fs.StringVar(&t.TokenPrice, "token-price", "", "USD price of -token (required with -price)")
	fs.StringVar(&t.Slippage, "slippage", "", "Slippage percent for quote-based bounds (default 5)")
	fs.Int64Var(&t.PremiumBps, "premium-bps", -1, "Flash loan premium in bps (default from profile or 9)")
}

// trade holds the merged flag/profile values, parsed.
type trade struct {
	setToken   string
	amount     string
	token      string
	price      decimal.Decimal
	tokenPrice decimal.Decimal
	slippage   decimal.Decimal
}

func (t *Trade) merge(p config.Trade) (trade, error) {
	out := trade{
		setToken: pick(t.SetToken, p.SetToken),
		amount:   pick(t.Amount, p.Amount),
		token:    pick(t.Token, p.Token),
	}
	if out.setToken == "" {
		return out, fmt.Errorf("set token required (-set or profile set_token)")
	}
	if out.amount == "" {
		return out, fmt.Errorf("amount required (-amount or profile amount)")
	}

	var err error
	if out.price, err = config.OptionalDecimal(pick(t.Price, p.PriceUSD)); err != nil {
		return out, fmt.Errorf("price: %w", err)
	}
	if out.tokenPrice, err = config.OptionalDecimal(pick(t.TokenPrice, p.TokenPriceUSD)); err != nil {
		return out, fmt.Errorf("token price: %w", err)
	}
	if out.slippage, err = config.OptionalDecimal(pick(t.Slippage, p.SlippagePct)); err != nil {
		return out, fmt.Errorf("slippage: %w", err)
	}
	if out.slippage.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return out, fmt.Errorf("slippage must be below 100%%, got %s", out.slippage)
	}
	return out, nil
}

// IssueRequest merges the flags over the profile's issue section.
func (t *Trade) IssueRequest(p *config.Profile) (fli.IssueRequest, error) {
	var section config.Trade
	if p != nil {
		section = p.Issue
	}
	m, err := t.merge(section)
	if err != nil {
		return fli.IssueRequest{}, err
	}
	return fli.IssueRequest{
		SetToken:      m.setToken,
		Amount:        m.amount,
		InputToken:    m.token,
		MaxPriceUSD:   m.price,
		InputPriceUSD: m.tokenPrice,
		SlippagePct:   m.slippage,
	}, nil
}

// RedeemRequest merges the flags over the profile's redeem section.
func (t *Trade) RedeemRequest(p *config.Profile) (fli.RedeemRequest, error) {
	var section config.Trade
	if p != nil {
		section = p.Redeem
	}
	m, err := t.merge(section)
	if err != nil {
		return fli.RedeemRequest{}, err
	}
	return fli.RedeemRequest{
		SetToken:       m.setToken,
		Amount:         m.amount,
		OutputToken:    m.token,
		MinPriceUSD:    m.price,
		OutputPriceUSD: m.tokenPrice,
		SlippagePct:    m.slippage,
	}, nil
}

// premiumBps is the flag when set, then the profile, then the default.
func (t *Trade) premiumBps(p *config.Profile) int64 {
	if t != nil && t.PremiumBps >= 0 {
		return t.PremiumBps
	}
	if p != nil && p.FlashLoanPremiumBps != nil {
		return *p.FlashLoanPremiumBps
	}
	return fli.DefaultFlashLoanPremiumBps
}

func pick(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func parseFeeTiers(raw string) ([]uint32, error) {
	var out []uint32
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseUint(part, 10, 32)
		if err != nil || v == 0 || v >= 1_000_000 {
			return nil, fmt.Errorf("invalid fee tier %q", part)
		}
		out = append(out, uint32(v))
	}
	return out, nil
}

// resolveTokens maps symbols or addresses through the registry.
func resolveTokens(items []string, resolve func(string) (common.Address, error)) ([]common.Address, error) {
	out := make([]common.Address, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		addr, err := resolve(it)
		if err != nil {
			return nil, err
		}
		if !ethutil.ContainsAddress(out, addr) {
			out = append(out, addr)
		}
	}
	return out, nil
}
