package receipt

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	owner = common.HexToAddress("0x49226C9a8eae5b040f4aa878369C6ab130985B4C")
	eil   = common.HexToAddress("0x600d9950c6ecAef98Cc42fa207E92397A6c43416")
	weth  = common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619")
	fli   = common.HexToAddress("0x3Ad707dA309f3845cd602059901E39C4dcd66473")
)

func transferLog(token, from, to common.Address, amount int64) *types.Log {
	return &types.Log{
		Address: token,
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)")),
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: big.NewInt(amount).FillBytes(make([]byte, 32)),
	}
}

func TestTokenDeltasIssueLike(t *testing.T) {
	// Owner pays WETH to the issuance contract, part comes back as change,
	// and the set token is minted to the owner.
	rcpt := &types.Receipt{Logs: []*types.Log{
		transferLog(weth, owner, eil, 50_000),
		transferLog(weth, eil, owner, 1_500),
		transferLog(fli, common.Address{}, owner, 1_000_000),
		transferLog(weth, eil, common.HexToAddress("0xdead"), 7),
		nil,
	}}

	deltas := TokenDeltas(rcpt, owner)
	if len(deltas) != 2 {
		t.Fatalf("expected two deltas, got %+v", deltas)
	}
	if got := DeltaOf(deltas, weth).String(); got != "-48500" {
		t.Fatalf("weth delta=%s", got)
	}
	if got := DeltaOf(deltas, fli).String(); got != "1000000" {
		t.Fatalf("fli delta=%s", got)
	}
	if got := DeltaOf(deltas, common.HexToAddress("0x01")); got.Sign() != 0 {
		t.Fatalf("absent token delta=%s", got)
	}
}

func TestTokenDeltasSkipsNettedAndMalformed(t *testing.T) {
	erc721 := transferLog(weth, owner, eil, 1)
	erc721.Topics = append(erc721.Topics, common.BigToHash(big.NewInt(9)))
	short := transferLog(weth, eil, owner, 1)
	short.Data = short.Data[:16]

	rcpt := &types.Receipt{Logs: []*types.Log{
		transferLog(fli, owner, eil, 10),
		transferLog(fli, eil, owner, 10),
		erc721,
		short,
	}}
	if deltas := TokenDeltas(rcpt, owner); len(deltas) != 0 {
		t.Fatalf("expected no deltas, got %+v", deltas)
	}
	if TokenDeltas(nil, owner) != nil {
		t.Fatalf("nil receipt should give nil")
	}
}

func TestFee(t *testing.T) {
	rcpt := &types.Receipt{GasUsed: 21_000, EffectiveGasPrice: big.NewInt(60_000_000_000)}
	if got := Fee(rcpt).String(); got != "1260000000000000" {
		t.Fatalf("fee=%s", got)
	}
	if Fee(&types.Receipt{GasUsed: 1}).Sign() != 0 {
		t.Fatalf("missing price should give zero fee")
	}
}

type stubBackend struct {
	rcpt *types.Receipt
}

func (s stubBackend) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return s.rcpt, nil
}

func (s stubBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return nil, nil
}

func TestWait(t *testing.T) {
	tx := types.NewTx(&types.LegacyTx{Nonce: 1, GasPrice: big.NewInt(1), Gas: 21_000})

	ok := &types.Receipt{Status: types.ReceiptStatusSuccessful, GasUsed: 21_000}
	got, err := Wait(context.Background(), stubBackend{ok}, tx, time.Second)
	if err != nil || got != ok {
		t.Fatalf("Wait: %v", err)
	}

	failed := &types.Receipt{Status: types.ReceiptStatusFailed, GasUsed: 30_000}
	got, err = Wait(context.Background(), stubBackend{failed}, tx, time.Second)
	if !errors.Is(err, ErrReverted) || got != failed {
		t.Fatalf("expected ErrReverted with receipt, got %v %v", got, err)
	}
}
