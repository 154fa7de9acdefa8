package polygonutil

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const ChainID int64 = 137

// Contracts the tools talk to on Polygon PoS.
var (
	ExchangeIssuanceLeveraged = common.HexToAddress("0x600d9950c6ecAef98Cc42fa207E92397A6c43416")
	UniswapV3Factory          = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
	UniswapV3QuoterV2         = common.HexToAddress("0x61fFE014bA17989E743c5F6cB21bF9697530B21e")
)

func ValidateRPCURL(rpcURL string) error {
	if !strings.HasPrefix(rpcURL, "ws") && !strings.HasPrefix(rpcURL, "http") {
		return fmt.Errorf("polygon RPC URL must be ws(s)://... or http(s)://..., got %q", rpcURL)
	}
	if strings.Contains(rpcURL, "YOUR_KEY") {
		return fmt.Errorf("polygon RPC URL still contains placeholder YOUR_KEY. Set POLYGON_URL/RPC_URL to your provider URL")
	}
	return nil
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
