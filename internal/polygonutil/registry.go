package polygonutil

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Token is a registry entry. Leveraged tokens also carry the collateral and
// debt they are expected to report from getLeveragedTokenData.
type Token struct {
	Symbol     string
	Address    common.Address
	Collateral common.Address
	Debt       common.Address
}

func (t Token) IsLeveraged() bool {
	return t.Collateral != (common.Address{}) || t.Debt != (common.Address{})
}

func (t Token) String() string {
	if t.Symbol == "" {
		return t.Address.Hex()
	}
	return t.Symbol + " (" + t.Address.Hex() + ")"
}

var (
	WETH   = common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619")
	USDC   = common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174")
	WBTC   = common.HexToAddress("0x1BFD67037B42Cf73acF2047067bd4F2C47D9BfD6")
	WMATIC = common.HexToAddress("0x0d500B1d8E8eF31e21C99d1Db9A6444d3ADf1270")
	USDT   = common.HexToAddress("0xc2132D05D31c914a87C6611C10748AEb04B58e8F")
	DAI    = common.HexToAddress("0x8f3Cf7ad23Cd3CaDbD9735AFf958023239c6A063")
)

// DefaultConnectors are the intermediate tokens the router may hop through.
var DefaultConnectors = []common.Address{WETH, USDC, WMATIC, WBTC, USDT, DAI}

func defaultTokens() []Token {
	return []Token{
		{Symbol: "WETH", Address: WETH},
		{Symbol: "USDC", Address: USDC},
		{Symbol: "WBTC", Address: WBTC},
		{Symbol: "WMATIC", Address: WMATIC},
		{Symbol: "USDT", Address: USDT},
		{Symbol: "DAI", Address: DAI},
		{Symbol: "ETH2X-FLI-P", Address: common.HexToAddress("0x3Ad707dA309f3845cd602059901E39C4dcd66473"), Collateral: WETH, Debt: USDC},
		{Symbol: "iETH-FLI-P", Address: common.HexToAddress("0x4f025829C4B13dF652f38Abd2AB901185fF1e609"), Collateral: USDC, Debt: WETH},
		{Symbol: "BTC2X-FLI-P", Address: common.HexToAddress("0xd6ca869a4ec9ed2c7e618062cdc45306d8dbbc14"), Collateral: WBTC, Debt: USDC},
		{Symbol: "iBTC-FLI-P", Address: common.HexToAddress("0x130cE4E4F76c2265f94a961D70618562de0bb8d2"), Collateral: USDC, Debt: WBTC},
	}
}

type Registry struct {
	bySymbol  map[string]Token
	byAddress map[common.Address]Token
}

func NewRegistry(tokens ...Token) *Registry {
	r := &Registry{
		bySymbol:  make(map[string]Token, len(tokens)),
		byAddress: make(map[common.Address]Token, len(tokens)),
	}
	for _, t := range tokens {
		r.Add(t)
	}
	return r
}

// DefaultRegistry holds the well-known Polygon tokens and FLI products.
func DefaultRegistry() *Registry {
	return NewRegistry(defaultTokens()...)
}

// Add inserts or replaces an entry. A symbol that moves to a new address drops
// its old address mapping, and an address that takes a new symbol drops its
// old symbol.
func (r *Registry) Add(t Token) {
	key := symbolKey(t.Symbol)
	if prev, ok := r.byAddress[t.Address]; ok {
		if pk := symbolKey(prev.Symbol); pk != "" && pk != key {
			delete(r.bySymbol, pk)
		}
	}
	if key != "" {
		if prev, ok := r.bySymbol[key]; ok && prev.Address != t.Address {
			delete(r.byAddress, prev.Address)
		}
		r.bySymbol[key] = t
	}
	r.byAddress[t.Address] = t
}

func (r *Registry) Lookup(addr common.Address) (Token, bool) {
	t, ok := r.byAddress[addr]
	return t, ok
}

// Resolve accepts a registry symbol (case-insensitive) or a hex address. Unknown
// addresses resolve to a bare entry without symbol or expectations.
func (r *Registry) Resolve(symbolOrAddress string) (Token, error) {
	s := strings.TrimSpace(symbolOrAddress)
	if s == "" {
		return Token{}, fmt.Errorf("empty token")
	}
	if common.IsHexAddress(s) {
		addr := common.HexToAddress(s)
		if addr == (common.Address{}) {
			return Token{}, fmt.Errorf("zero token address")
		}
		if t, ok := r.byAddress[addr]; ok {
			return t, nil
		}
		return Token{Address: addr}, nil
	}
	if t, ok := r.bySymbol[symbolKey(s)]; ok {
		return t, nil
	}
	return Token{}, fmt.Errorf("unknown token %q (known: %s)", s, strings.Join(r.Symbols(), ", "))
}

func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.bySymbol))
	for _, t := range r.bySymbol {
		out = append(out, t.Symbol)
	}
	sort.Strings(out)
	return out
}

func symbolKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Tokens lists the entries ordered by symbol.
func (r *Registry) Tokens() []Token {
	out := make([]Token, 0, len(r.bySymbol))
	for _, sym := range r.Symbols() {
		out = append(out, r.bySymbol[symbolKey(sym)])
	}
	return out
}
