// Package receipt waits for transactions and reads what they moved.
package receipt

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultWaitTimeout bounds how long a tool waits for inclusion.
const DefaultWaitTimeout = 5 * time.Minute

var ErrReverted = errors.New("transaction reverted")

var erc20TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// Wait blocks until tx is mined and fails with ErrReverted when its status
// is not successful. The receipt is returned in both cases.
func Wait(ctx context.Context, backend bind.DeployBackend, tx *types.Transaction, timeout time.Duration) (*types.Receipt, error) {
	waitCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	rcpt, err := bind.WaitMined(waitCtx, backend, tx)
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", tx.Hash().Hex(), err)
	}
	if rcpt.Status != types.ReceiptStatusSuccessful {
		return rcpt, fmt.Errorf("%w: tx=%s block=%v gasUsed=%d", ErrReverted, tx.Hash().Hex(), rcpt.BlockNumber, rcpt.GasUsed)
	}
	return rcpt, nil
}

// Fee is gasUsed * effectiveGasPrice.
func Fee(r *types.Receipt) *big.Int {
	if r == nil || r.EffectiveGasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(r.GasUsed), r.EffectiveGasPrice)
}

// Delta is the net ERC-20 movement of one token for the owner.
type Delta struct {
	Token  common.Address `json:"token"`
	Amount *big.Int       `json:"amount"`
}

// TokenDeltas sums every ERC-20 Transfer log into and out of owner. Mints
// and burns count like any other transfer. Tokens that net to zero are
// dropped; the result is ordered by token address.
func TokenDeltas(r *types.Receipt, owner common.Address) []Delta {
	if r == nil {
		return nil
	}
	sums := make(map[common.Address]*big.Int)
	for _, lg := range r.Logs {
		if lg == nil || len(lg.Topics) < 3 || lg.Topics[0] != erc20TransferTopic {
			continue
		}
		// ERC-721 Transfer shares the topic but carries the id as a fourth topic.
		if len(lg.Topics) != 3 || len(lg.Data) < 32 {
			continue
		}
		from := common.BytesToAddress(lg.Topics[1].Bytes())
		to := common.BytesToAddress(lg.Topics[2].Bytes())
		if from == to {
			continue
		}
		value := new(big.Int).SetBytes(lg.Data[:32])
		if value.Sign() == 0 {
			continue
		}

		sum := sums[lg.Address]
		if sum == nil {
			sum = new(big.Int)
			sums[lg.Address] = sum
		}
		switch owner {
		case from:
			sum.Sub(sum, value)
		case to:
			sum.Add(sum, value)
		}
	}

	out := make([]Delta, 0, len(sums))
	for token, sum := range sums {
		if sum.Sign() == 0 {
			continue
		}
		out = append(out, Delta{Token: token, Amount: sum})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Token.Cmp(out[j].Token) < 0
	})
	return out
}

// DeltaOf returns the owner's net movement of token, zero if absent.
func DeltaOf(deltas []Delta, token common.Address) *big.Int {
	for _, d := range deltas {
		if d.Token == token {
			return new(big.Int).Set(d.Amount)
		}
	}
	return new(big.Int)
}
