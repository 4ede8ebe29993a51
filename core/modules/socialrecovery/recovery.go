// Package socialrecovery drives the social recovery module: guardians approve
// a new owner set, which becomes executable once its delay has passed.
package socialrecovery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/truewallet/truewallet-go/core/chainio/aa"
	"github.com/truewallet/truewallet-go/core/modules"
	"github.com/truewallet/truewallet-go/core/walleterr"
	"github.com/truewallet/truewallet-go/pkg/erc4337/bundler"
	"github.com/truewallet/truewallet-go/pkg/logger"
)

const Name = "SocialRecoveryModule"

// RecoveryEntry is a pending recovery of a wallet.
type RecoveryEntry struct {
	NewOwners    []common.Address
	ExecuteAfter *big.Int
	Nonce        *big.Int
}

type PendingGuardianEntry struct {
	PendingUntil     *big.Int
	PendingThreshold *big.Int
	GuardianHash     common.Hash
	Guardians        []common.Address
}

type Module struct {
	wallet         modules.Wallet
	address        common.Address
	securityModule common.Address

	now    func() time.Time
	logger logger.Logger
}

var _ modules.Module = (*Module)(nil)

type Option func(*Module)

// WithClock sets the time source ExecuteRecovery compares against.
func WithClock(now func() time.Time) Option {
	return func(m *Module) {
		if now != nil {
			m.now = now
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(m *Module) { m.logger = logger.EnsureLogger(l) }
}

func New(wallet modules.Wallet, address, securityModule common.Address, opts ...Option) *Module {
	m := &Module{
		wallet:         wallet,
		address:        address,
		securityModule: securityModule,
		now:            time.Now,
		logger:         logger.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Module) Name() string { return Name }

func (m *Module) Address() common.Address { return m.address }

// Install adds the module through the security control module. data is an
// InstallData, a pointer to one, or a map decoded into one.
func (m *Module) Install(ctx context.Context, data any) (*bundler.OperationResponse, error) {
	install, err := decodeInstallData(data)
	if err != nil {
		return nil, err
	}

	installed, err := m.IsInstalled(ctx)
	if err != nil {
		return nil, err
	}
	if installed {
		return nil, walleterr.New(walleterr.CodeModuleAlreadyInstalled, "Social Recovery Module is already installed.")
	}

	basic, err := m.securityFlag(ctx, "basicInitialized")
	if err != nil {
		return nil, err
	}
	if !basic {
		return nil, walleterr.New(walleterr.CodeWalletNotReady, "Wallet is not initialized.")
	}

	initData, err := InitData(m.address, install)
	if err != nil {
		return nil, err
	}
	addModule, err := aa.PackAddModule(initData)
	if err != nil {
		return nil, err
	}

	full, err := m.securityFlag(ctx, "fullInitialized")
	if err != nil {
		return nil, err
	}
	method := "fullInitAndAddModule"
	if full {
		method = "execute"
	}

	payload, err := aa.SecurityControlModuleABI.Pack(method, m.wallet.Address(), addModule)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	m.logger.Info("installing social recovery module", "wallet", m.wallet.Address().Hex(), "via", method,
		"guardians", len(install.Guardians), "anonymous", install.AnonymousGuardiansSalt != "")
	return m.wallet.Execute(ctx, payload, m.securityModule, nil)
}

func (m *Module) Remove(ctx context.Context) (*bundler.OperationResponse, error) {
	installed, err := m.IsInstalled(ctx)
	if err != nil {
		return nil, err
	}
	if !installed {
		return nil, walleterr.New(walleterr.CodeModuleNotInstalled, "Social Recovery Module is not installed.")
	}

	removeModule, err := aa.PackRemoveModule(m.address)
	if err != nil {
		return nil, err
	}
	payload, err := aa.SecurityControlModuleABI.Pack("execute", m.wallet.Address(), removeModule)
	if err != nil {
		return nil, fmt.Errorf("pack execute: %w", err)
	}
	return m.wallet.Execute(ctx, payload, m.securityModule, nil)
}

func (m *Module) IsInstalled(ctx context.Context) (bool, error) {
	out, err := m.read(ctx, "isInit", m.wallet.Address())
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (m *Module) securityFlag(ctx context.Context, method string) (bool, error) {
	out, err := aa.Call(ctx, m.wallet.Caller(), m.securityModule, aa.SecurityControlModuleABI, method, m.wallet.Address())
	if err != nil {
		return false, walleterr.Wrap(walleterr.CodeCallException, err)
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// read calls the recovery module. Failures become CALL_EXCEPTION.
func (m *Module) read(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	out, err := aa.Call(ctx, m.wallet.Caller(), m.address, aa.SocialRecoveryModuleABI, method, args...)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.CodeCallException, err)
	}
	return out, nil
}

// write sends one user operation calling the recovery module.
func (m *Module) write(ctx context.Context, method string, args ...interface{}) (*bundler.OperationResponse, error) {
	payload, err := aa.SocialRecoveryModuleABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return m.wallet.Execute(ctx, payload, m.address, nil)
}
