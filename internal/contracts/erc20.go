package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type ERC20 struct {
	binding
}

func NewERC20(address common.Address, backend bind.ContractBackend) *ERC20 {
	return &ERC20{newBinding(address, erc20ABI, backend, backend)}
}

// NewERC20Caller binds a token for reads only.
func NewERC20Caller(address common.Address, caller bind.ContractCaller) *ERC20 {
	return &ERC20{newBinding(address, erc20ABI, caller, nil)}
}

func (t *ERC20) BalanceOf(opts *bind.CallOpts, owner common.Address) (*big.Int, error) {
	out, err := t.call(opts, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return bigAt(out, 0, "balanceOf")
}

func (t *ERC20) Allowance(opts *bind.CallOpts, owner, spender common.Address) (*big.Int, error) {
	out, err := t.call(opts, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return bigAt(out, 0, "allowance")
}

func (t *ERC20) Decimals(opts *bind.CallOpts) (uint8, error) {
	out, err := t.call(opts, "decimals")
	if err != nil {
		return 0, err
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("decimals: unexpected result len %d", len(out))
	}
	d, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals: unexpected type %T", out[0])
	}
	return d, nil
}

func (t *ERC20) Symbol(opts *bind.CallOpts) (string, error) {
	return t.stringCall(opts, "symbol")
}

func (t *ERC20) Name(opts *bind.CallOpts) (string, error) {
	return t.stringCall(opts, "name")
}

func (t *ERC20) stringCall(opts *bind.CallOpts, method string) (string, error) {
	out, err := t.call(opts, method)
	if err != nil {
		return "", err
	}
	if len(out) != 1 {
		return "", fmt.Errorf("%s: unexpected result len %d", method, len(out))
	}
	s, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected type %T", method, out[0])
	}
	return s, nil
}

func (t *ERC20) Approve(opts *bind.TransactOpts, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	return t.transact(opts, "approve", spender, amount)
}

func (t *ERC20) PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	return t.pack("approve", spender, amount)
}

// TokenInfo is the metadata the tools print next to every amount.
type TokenInfo struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
	Decimals uint8          `json:"decimals"`
}

func ReadTokenInfo(opts *bind.CallOpts, caller bind.ContractCaller, address common.Address) (TokenInfo, error) {
	t := NewERC20Caller(address, caller)
	decimals, err := t.Decimals(opts)
	if err != nil {
		return TokenInfo{}, err
	}
	symbol, err := t.Symbol(opts)
	if err != nil {
		return TokenInfo{}, err
	}
	name, err := t.Name(opts)
	if err != nil {
		return TokenInfo{}, err
	}
	return TokenInfo{Address: address, Symbol: symbol, Name: name, Decimals: decimals}, nil
}
