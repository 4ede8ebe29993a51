// Package modules keeps the wallet modules the SDK knows how to install and
// remove. Adding a module means registering it, nothing else changes.
package modules

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"

	"github.com/truewallet/truewallet-go/core/walleterr"
	"github.com/truewallet/truewallet-go/pkg/erc4337/bundler"
)

// Wallet is what a module needs from the wallet it is attached to.
type Wallet interface {
	Address() common.Address
	Caller() bind.ContractCaller
	// Execute sends one user operation calling target from the wallet.
	Execute(ctx context.Context, payload []byte, target common.Address, value *big.Int) (*bundler.OperationResponse, error)
}

type Module interface {
	Name() string
	Address() common.Address
	Install(ctx context.Context, data any) (*bundler.OperationResponse, error)
	Remove(ctx context.Context) (*bundler.OperationResponse, error)
}

type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

func NewRegistry(mods ...Module) *Registry {
	r := &Registry{modules: make(map[string]Module, len(mods))}
	for _, m := range mods {
		r.Register(m)
	}
	return r
}

// Register adds m, replacing any module registered under the same name.
func (r *Registry) Register(m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[m.Name()] = m
}

func (r *Registry) Get(name string) (Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[name]
	if !ok {
		return nil, walleterr.New(walleterr.CodeModuleNotSupported,
			"Module "+name+" is not supported",
			map[string]interface{}{"module": name})
	}
	return m, nil
}

// Names returns the registered module names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := lo.Keys(r.modules)
	sort.Strings(names)
	return names
}

func (r *Registry) Install(ctx context.Context, name string, data any) (*bundler.OperationResponse, error) {
	m, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return m.Install(ctx, data)
}

func (r *Registry) Remove(ctx context.Context, name string) (*bundler.OperationResponse, error) {
	m, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return m.Remove(ctx)
}
