package router

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

const (
	addrSize = common.AddressLength
	feeSize  = 3
	maxFee   = 1<<24 - 1
)

// EncodePath packs tokens and fee tiers the way Uniswap V3 expects:
// token0 | fee0 | token1 | fee1 | token2 ...
func EncodePath(tokens []common.Address, fees []uint32) ([]byte, error) {
	if len(tokens) < 2 {
		return nil, fmt.Errorf("path needs at least 2 tokens, got %d", len(tokens))
	}
	if len(fees) != len(tokens)-1 {
		return nil, fmt.Errorf("path has %d tokens but %d fees", len(tokens), len(fees))
	}
	out := make([]byte, 0, len(tokens)*addrSize+len(fees)*feeSize)
	for i, tok := range tokens {
		out = append(out, tok.Bytes()...)
		if i == len(fees) {
			break
		}
		fee := fees[i]
		if fee > maxFee {
			return nil, fmt.Errorf("fee %d exceeds uint24", fee)
		}
		out = append(out, byte(fee>>16), byte(fee>>8), byte(fee))
	}
	return out, nil
}

// EncodeReversedPath encodes tokenOut -> tokenIn, the order exact-output
// quotes and swaps take.
func EncodeReversedPath(tokens []common.Address, fees []uint32) ([]byte, error) {
	rt := make([]common.Address, len(tokens))
	for i, t := range tokens {
		rt[len(tokens)-1-i] = t
	}
	rf := make([]uint32, len(fees))
	for i, f := range fees {
		rf[len(fees)-1-i] = f
	}
	return EncodePath(rt, rf)
}
