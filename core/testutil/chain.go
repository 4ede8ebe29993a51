package testutil

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrReverted is what unregistered calls fail with.
var ErrReverted = errors.New("execution reverted")

// MethodHandler receives the unpacked call arguments and returns the values
// to pack as outputs.
type MethodHandler func(args []interface{}) ([]interface{}, error)

type route struct {
	method  abi.Method
	handler MethodHandler
}

// FakeChain is an in-memory node. It serves contract reads by dispatching on
// target address and 4-byte selector, plus code, balance and fee reads.
type FakeChain struct {
	mu sync.Mutex

	code     map[common.Address][]byte
	balances map[common.Address]*big.Int
	routes   map[common.Address]map[string]route
	calls    map[string]int
	codeAt   map[common.Address]int

	Tip     *big.Int
	BaseFee *big.Int
}

func NewFakeChain() *FakeChain {
	return &FakeChain{
		code:     map[common.Address][]byte{},
		balances: map[common.Address]*big.Int{},
		routes:   map[common.Address]map[string]route{},
		calls:    map[string]int{},
		codeAt:   map[common.Address]int{},
		Tip:      big.NewInt(1_000_000_000),
		BaseFee:  big.NewInt(10_000_000_000),
	}
}

func (c *FakeChain) SetCode(addr common.Address, code []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.code[addr] = code
}

func (c *FakeChain) SetBalance(addr common.Address, wei *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[addr] = wei
}

// Handle registers fn for method of parsed at contract.
func (c *FakeChain) Handle(contract common.Address, parsed abi.ABI, method string, fn MethodHandler) {
	m, ok := parsed.Methods[method]
	if !ok {
		panic(fmt.Sprintf("unknown method %s", method))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.routes[contract] == nil {
		c.routes[contract] = map[string]route{}
	}
	c.routes[contract][string(m.ID)] = route{method: m, handler: fn}
}

// Returns registers a handler answering with fixed outputs.
func (c *FakeChain) Returns(contract common.Address, parsed abi.ABI, method string, outputs ...interface{}) {
	c.Handle(contract, parsed, method, func([]interface{}) ([]interface{}, error) {
		return outputs, nil
	})
}

// Calls returns how often method was called on contract.
func (c *FakeChain) Calls(contract common.Address, method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[contract.Hex()+"."+method]
}

// CodeAtCalls returns how often the code at addr was read.
func (c *FakeChain) CodeAtCalls(addr common.Address) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codeAt[addr]
}

func (c *FakeChain) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codeAt[contract]++
	return c.code[contract], nil
}

func (c *FakeChain) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if call.To == nil || len(call.Data) < 4 {
		return nil, ErrReverted
	}

	c.mu.Lock()
	r, ok := c.routes[*call.To][string(call.Data[:4])]
	if ok {
		c.calls[call.To.Hex()+"."+r.method.Name]++
	}
	c.mu.Unlock()
	if !ok {
		return nil, ErrReverted
	}

	args, err := r.method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}
	outputs, err := r.handler(args)
	if err != nil {
		return nil, err
	}
	return r.method.Outputs.Pack(outputs...)
}

func (c *FakeChain) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.balances[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (c *FakeChain) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.Tip), nil
}

func (c *FakeChain) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	var baseFee *big.Int
	if c.BaseFee != nil {
		baseFee = new(big.Int).Set(c.BaseFee)
	}
	return &types.Header{Number: big.NewInt(1), BaseFee: baseFee}, nil
}
