package contracts

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrReadOnly is returned when a transaction is requested on a binding built
// from a bare ContractCaller.
var ErrReadOnly = errors.New("contracts: binding has no transactor")

type binding struct {
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
	writable bool
}

func newBinding(address common.Address, parsed abi.ABI, caller bind.ContractCaller, transactor bind.ContractTransactor) binding {
	return binding{
		address:  address,
		abi:      parsed,
		contract: bind.NewBoundContract(address, parsed, caller, transactor, nil),
		writable: transactor != nil,
	}
}

func (b binding) Address() common.Address { return b.address }

func (b binding) call(opts *bind.CallOpts, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := b.contract.Call(opts, &out, method, args...); err != nil {
		return nil, fmt.Errorf("%s(%s): %w", method, b.address.Hex(), err)
	}
	return out, nil
}

func (b binding) transact(opts *bind.TransactOpts, method string, args ...interface{}) (*types.Transaction, error) {
	if !b.writable {
		return nil, ErrReadOnly
	}
	tx, err := b.contract.Transact(opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s(%s): %w", method, b.address.Hex(), err)
	}
	return tx, nil
}

func (b binding) pack(method string, args ...interface{}) ([]byte, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data, nil
}

func bigAt(vals []interface{}, i int, method string) (*big.Int, error) {
	if len(vals) <= i {
		return nil, fmt.Errorf("%s: unexpected result len %d", method, len(vals))
	}
	v, ok := vals[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected type %T", method, vals[i])
	}
	return v, nil
}

func addressAt(vals []interface{}, i int, method string) (common.Address, error) {
	if len(vals) <= i {
		return common.Address{}, fmt.Errorf("%s: unexpected result len %d", method, len(vals))
	}
	v, ok := vals[i].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: unexpected type %T", method, vals[i])
	}
	return v, nil
}
