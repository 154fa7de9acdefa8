package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"poly-fli/internal/ethutil"
	"poly-fli/internal/polygonutil"
)

// Profile is a YAML run profile. It holds the per-run values an operator
// re-checks before every run, so they live in a reviewed file rather than
// in shell history.
type Profile struct {
	Issue  Trade        `yaml:"issue"`
	Redeem Trade        `yaml:"redeem"`
	Gas    Gas          `yaml:"gas"`
	Router Router       `yaml:"router"`
	Tokens []TokenEntry `yaml:"tokens"`

	// FlashLoanPremiumBps overrides the premium used for quote-based budgets.
	FlashLoanPremiumBps *int64 `yaml:"flash_loan_premium_bps"`
}

// Trade describes one issue or redeem run. Decimal values are kept as
// strings and parsed on use so YAML never rounds them through float64.
type Trade struct {
	SetToken string `yaml:"set_token"`
	Amount   string `yaml:"amount"`

	// Token is the input token for issuance and the output token for
	// redemption.
	Token string `yaml:"token"`

	// PriceUSD is the max price per set for issuance and the min price per
	// set for redemption.
	PriceUSD      string `yaml:"price_usd"`
	TokenPriceUSD string `yaml:"token_price_usd"`

	SlippagePct string `yaml:"slippage_pct"`
}

type Gas struct {
	Source     string `yaml:"source"`
	PriceGwei  string `yaml:"price_gwei"`
	Speed      string `yaml:"speed"`
	ScalingPct uint64 `yaml:"scaling_pct"`
}

type Router struct {
	Connectors []string `yaml:"connectors"`
	FeeTiers   []uint32 `yaml:"fee_tiers"`
}

type TokenEntry struct {
	Symbol     string `yaml:"symbol"`
	Address    string `yaml:"address"`
	Collateral string `yaml:"collateral"`
	Debt       string `yaml:"debt"`
}

func LoadProfile(path string) (*Profile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profile: %w", err)
	}
	defer file.Close()

	var p Profile
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", path, err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return &p, nil
}

func (p *Profile) validate() error {
	for name, tr := range map[string]Trade{"issue": p.Issue, "redeem": p.Redeem} {
		for field, v := range map[string]string{
			"price_usd":       tr.PriceUSD,
			"token_price_usd": tr.TokenPriceUSD,
			"slippage_pct":    tr.SlippagePct,
		} {
			if _, err := OptionalDecimal(v); err != nil {
				return fmt.Errorf("%s.%s: %w", name, field, err)
			}
		}
	}
	if _, err := OptionalDecimal(p.Gas.PriceGwei); err != nil {
		return fmt.Errorf("gas.price_gwei: %w", err)
	}
	if p.FlashLoanPremiumBps != nil && (*p.FlashLoanPremiumBps < 0 || *p.FlashLoanPremiumBps > 10_000) {
		return fmt.Errorf("flash_loan_premium_bps out of range: %d", *p.FlashLoanPremiumBps)
	}
	return nil
}

// Registry returns the built-in registry with the profile's token entries
// layered on top. Collateral and debt may name earlier entries by symbol.
func (p *Profile) Registry() (*polygonutil.Registry, error) {
	reg := polygonutil.DefaultRegistry()
	if p == nil {
		return reg, nil
	}
	for i, e := range p.Tokens {
		if strings.TrimSpace(e.Symbol) == "" {
			return nil, fmt.Errorf("tokens[%d]: symbol required", i)
		}
		addr, err := ethutil.ParseAddress(e.Address)
		if err != nil {
			return nil, fmt.Errorf("tokens[%d] %s: %w", i, e.Symbol, err)
		}
		t := polygonutil.Token{Symbol: strings.TrimSpace(e.Symbol), Address: addr}
		if strings.TrimSpace(e.Collateral) != "" {
			c, err := reg.Resolve(e.Collateral)
			if err != nil {
				return nil, fmt.Errorf("tokens[%d] %s collateral: %w", i, e.Symbol, err)
			}
			t.Collateral = c.Address
		}
		if strings.TrimSpace(e.Debt) != "" {
			d, err := reg.Resolve(e.Debt)
			if err != nil {
				return nil, fmt.Errorf("tokens[%d] %s debt: %w", i, e.Symbol, err)
			}
			t.Debt = d.Address
		}
		reg.Add(t)
	}
	return reg, nil
}

// OptionalDecimal parses s, treating blank as "not set" (zero, no error).
func OptionalDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative value %q", s)
	}
	return d, nil
}
