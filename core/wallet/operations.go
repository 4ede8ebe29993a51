package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/truewallet/truewallet-go/core/chainio/aa"
	"github.com/truewallet/truewallet-go/core/walleterr"
	"github.com/truewallet/truewallet-go/pkg/erc4337/bundler"
)

const etherDecimals = 18

type SendParams struct {
	To common.Address
	// Amount in ether, e.g. "0.1"
	Amount           string
	PaymasterAndData []byte
}

type SendErc20Params struct {
	Token common.Address
	To    common.Address
	// Amount in token units, scaled by the token's decimals
	Amount           string
	PaymasterAndData []byte
}

// ExecuteParams is a raw call from the wallet. A zero Target calls the
// wallet itself and a nil Value sends nothing.
type ExecuteParams struct {
	Payload          []byte
	Target           common.Address
	Value            *big.Int
	PaymasterAndData []byte
}

type ContractCallParams struct {
	Address common.Address
	ABI     abi.ABI
	Method  string
	Args    []interface{}
	// PayableAmount in ether, empty for none
	PayableAmount    string
	PaymasterAndData []byte
}

type ContractReadParams struct {
	Address common.Address
	ABI     abi.ABI
	Method  string
	Args    []interface{}
}

// GetBalance returns the native balance in ether.
func (w *Wallet) GetBalance(ctx context.Context) (string, error) {
	wei, err := w.node.BalanceAt(ctx, w.address, nil)
	if err != nil {
		return "", err
	}
	return formatUnits(wei, etherDecimals), nil
}

func (w *Wallet) GetNonce(ctx context.Context) (*big.Int, error) {
	if err := w.walletReady(ctx); err != nil {
		return nil, err
	}
	return aa.WalletNonce(ctx, w.node, w.address)
}

// GetERC20Balance returns the wallet's token balance scaled by the token's
// decimals. Any failed read is a CALL_EXCEPTION.
func (w *Wallet) GetERC20Balance(ctx context.Context, token common.Address) (string, error) {
	decimals, err := w.tokenDecimals(ctx, token)
	if err != nil {
		return "", walleterr.Wrap(walleterr.CodeCallException, err)
	}
	balance, err := aa.ERC20Balance(ctx, w.node, token, w.address)
	if err != nil {
		return "", walleterr.Wrap(walleterr.CodeCallException, err)
	}
	return formatUnits(balance, decimals), nil
}

func (w *Wallet) tokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	key := token.Hex()
	if cached, err := w.decimals.Get(key); err == nil && len(cached) == 1 {
		return cached[0], nil
	}

	decimals, err := aa.ERC20Decimals(ctx, w.node, token)
	if err != nil {
		return 0, err
	}
	if err := w.decimals.Set(key, []byte{decimals}); err != nil {
		w.logger.Warn("cannot cache token decimals", "token", key, "error", err)
	}
	return decimals, nil
}

// ContractRead calls a view method and returns its unpacked outputs.
func (w *Wallet) ContractRead(ctx context.Context, params ContractReadParams) ([]interface{}, error) {
	out, err := aa.Call(ctx, w.node, params.Address, params.ABI, params.Method, params.Args...)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.CodeCallException, err)
	}
	return out, nil
}

func (w *Wallet) GetInstalledModules(ctx context.Context) ([]common.Address, error) {
	if err := w.walletReady(ctx); err != nil {
		return nil, err
	}
	return aa.ListModules(ctx, w.node, w.address)
}

func (w *Wallet) IsWalletOwner(ctx context.Context, addr common.Address) (bool, error) {
	if err := w.walletReady(ctx); err != nil {
		return false, err
	}
	return aa.IsOwner(ctx, w.node, w.address, addr)
}

func (w *Wallet) GetModuleAddress(name string) (common.Address, error) {
	m, err := w.registry.Get(name)
	if err != nil {
		return common.Address{}, err
	}
	return m.Address(), nil
}

// IsModuleInstalled reports whether the module registered under name is in
// the wallet's module list.
func (w *Wallet) IsModuleInstalled(ctx context.Context, name string) (bool, error) {
	addr, err := w.GetModuleAddress(name)
	if err != nil {
		return false, err
	}
	installed, err := w.GetInstalledModules(ctx)
	if err != nil {
		return false, err
	}
	return lo.Contains(installed, addr), nil
}

func (w *Wallet) Send(ctx context.Context, params SendParams) (*bundler.OperationResponse, error) {
	if err := w.onlyOwner(ctx); err != nil {
		return nil, err
	}
	value, err := parseUnits(params.Amount, etherDecimals)
	if err != nil {
		return nil, err
	}
	return w.execute(ctx, ExecuteParams{
		Target:           params.To,
		Value:            value,
		PaymasterAndData: params.PaymasterAndData,
	})
}

func (w *Wallet) SendErc20(ctx context.Context, params SendErc20Params) (*bundler.OperationResponse, error) {
	if err := w.onlyOwner(ctx); err != nil {
		return nil, err
	}
	decimals, err := w.tokenDecimals(ctx, params.Token)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.CodeCallException, err)
	}
	amount, err := parseUnits(params.Amount, int32(decimals))
	if err != nil {
		return nil, err
	}
	transfer, err := aa.PackERC20Transfer(params.To, amount)
	if err != nil {
		return nil, err
	}
	return w.execute(ctx, ExecuteParams{
		Payload:          transfer,
		Target:           params.Token,
		PaymasterAndData: params.PaymasterAndData,
	})
}

// DeployWallet sends an operation with empty call data. Its only effect is
// running the init code.
func (w *Wallet) DeployWallet(ctx context.Context, paymasterAndData []byte) (*bundler.OperationResponse, error) {
	if err := w.onlyOwner(ctx); err != nil {
		return nil, err
	}
	return w.builder.BuildAndSend(ctx, w.address, nil, paymasterAndData)
}

func (w *Wallet) Execute(ctx context.Context, params ExecuteParams) (*bundler.OperationResponse, error) {
	if err := w.onlyOwner(ctx); err != nil {
		return nil, err
	}
	if params.Target == (common.Address{}) {
		params.Target = w.address
	}
	return w.execute(ctx, params)
}

func (w *Wallet) ContractCall(ctx context.Context, params ContractCallParams) (*bundler.OperationResponse, error) {
	if err := w.onlyOwner(ctx); err != nil {
		return nil, err
	}

	payload, err := params.ABI.Pack(params.Method, params.Args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", params.Method, err)
	}

	var value *big.Int
	if params.PayableAmount != "" {
		value, err = parseUnits(params.PayableAmount, etherDecimals)
		if err != nil {
			return nil, err
		}
	}
	return w.execute(ctx, ExecuteParams{
		Payload:          payload,
		Target:           params.Address,
		Value:            value,
		PaymasterAndData: params.PaymasterAndData,
	})
}

func (w *Wallet) InstallModule(ctx context.Context, name string, data any) (*bundler.OperationResponse, error) {
	if err := w.onlyOwner(ctx); err != nil {
		return nil, err
	}
	return w.registry.Install(ctx, name, data)
}

func (w *Wallet) RemoveModule(ctx context.Context, name string) (*bundler.OperationResponse, error) {
	if err := w.onlyOwner(ctx); err != nil {
		return nil, err
	}
	return w.registry.Remove(ctx, name)
}

// execute wraps the call in the wallet's execute and submits it. Callers
// have already passed onlyOwner.
func (w *Wallet) execute(ctx context.Context, params ExecuteParams) (*bundler.OperationResponse, error) {
	callData, err := aa.PackExecute(params.Target, params.Value, params.Payload)
	if err != nil {
		return nil, err
	}
	return w.builder.BuildAndSend(ctx, w.address, callData, params.PaymasterAndData)
}

// parseUnits turns a decimal string into an integer amount of the smallest
// unit. More fractional digits than decimals is an error.
func parseUnits(amount string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("invalid amount %q: negative", amount)
	}

	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("invalid amount %q: more than %d decimals", amount, decimals)
	}
	return scaled.BigInt(), nil
}

func formatUnits(v *big.Int, decimals uint8) string {
	return decimal.NewFromBigInt(v, -int32(decimals)).String()
}
