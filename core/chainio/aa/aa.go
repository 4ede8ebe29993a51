// Package aa holds the TrueWallet contract surface: ABI encoding of wallet,
// factory, entrypoint and module calls, and the read calls made against a node.
package aa

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/truewallet/truewallet-go/pkg/erc4337/userop"
)

var uint32Type, _ = abi.NewType("uint32", "", nil)

// WalletArgs are the createWallet / getWalletAddress arguments. The same
// arguments always resolve to the same counterfactual address.
type WalletArgs struct {
	Entrypoint common.Address
	Owner      common.Address
	Modules    [][]byte
	Salt       [32]byte
}

// SecurityModuleInitData is the security control module bootstrap entry every
// wallet is created with: module address ++ abi.encode(uint32(1)).
func SecurityModuleInitData(securityModule common.Address) []byte {
	encoded, err := abi.Arguments{{Type: uint32Type}}.Pack(securityModuleVersion)
	if err != nil {
		panic(fmt.Errorf("encode security module version: %w", err))
	}
	return append(securityModule.Bytes(), encoded...)
}

// WalletSalt is keccak256 of the decimal string of index.
func WalletSalt(index uint64) [32]byte {
	return crypto.Keccak256Hash([]byte(strconv.FormatUint(index, 10)))
}

func CreateWalletArgs(index uint64, entrypoint, owner, securityModule common.Address, extraModules ...[]byte) WalletArgs {
	modules := make([][]byte, 0, len(extraModules)+1)
	modules = append(modules, SecurityModuleInitData(securityModule))
	modules = append(modules, extraModules...)

	return WalletArgs{
		Entrypoint: entrypoint,
		Owner:      owner,
		Modules:    modules,
		Salt:       WalletSalt(index),
	}
}

// InitCode returns factory address ++ createWallet(args).
func InitCode(factory common.Address, args WalletArgs) ([]byte, error) {
	calldata, err := FactoryABI.Pack("createWallet", args.Entrypoint, args.Owner, args.Modules, args.Salt)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, common.AddressLength+len(calldata))
	data = append(data, factory.Bytes()...)
	return append(data, calldata...), nil
}

func WalletAddress(ctx context.Context, caller bind.ContractCaller, factory common.Address, args WalletArgs) (common.Address, error) {
	out, err := Call(ctx, caller, factory, FactoryABI, "getWalletAddress", args.Entrypoint, args.Owner, args.Modules, args.Salt)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// PackExecute generates wallet calldata for a single call.
func PackExecute(target common.Address, value *big.Int, calldata []byte) ([]byte, error) {
	if value == nil {
		value = new(big.Int)
	}
	if calldata == nil {
		calldata = []byte{}
	}
	return TrueWalletABI.Pack("execute", target, value, calldata)
}

func PackAddModule(moduleAndData []byte) ([]byte, error) {
	return TrueWalletABI.Pack("addModule", moduleAndData)
}

func PackRemoveModule(module common.Address) ([]byte, error) {
	return TrueWalletABI.Pack("removeModule", module)
}

// WalletNonce reads the wallet's own nonce().
func WalletNonce(ctx context.Context, caller bind.ContractCaller, wallet common.Address) (*big.Int, error) {
	out, err := Call(ctx, caller, wallet, TrueWalletABI, "nonce")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func IsOwner(ctx context.Context, caller bind.ContractCaller, wallet, addr common.Address) (bool, error) {
	out, err := Call(ctx, caller, wallet, TrueWalletABI, "isOwner", addr)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// ListModules returns the installed module addresses. Selectors are dropped.
func ListModules(ctx context.Context, caller bind.ContractCaller, wallet common.Address) ([]common.Address, error) {
	out, err := Call(ctx, caller, wallet, TrueWalletABI, "listModules")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]common.Address)).(*[]common.Address), nil
}

// userOperationTuple mirrors the EntryPoint v0.6 UserOperation struct.
type userOperationTuple struct {
	Sender               common.Address
	Nonce                *big.Int
	InitCode             []byte
	CallData             []byte
	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	PaymasterAndData     []byte
	Signature            []byte
}

func toTuple(op *userop.UserOperation) userOperationTuple {
	return userOperationTuple{
		Sender:               op.Sender,
		Nonce:                orZero(op.Nonce),
		InitCode:             orEmpty(op.InitCode),
		CallData:             orEmpty(op.CallData),
		CallGasLimit:         orZero(op.CallGasLimit),
		VerificationGasLimit: orZero(op.VerificationGasLimit),
		PreVerificationGas:   orZero(op.PreVerificationGas),
		MaxFeePerGas:         orZero(op.MaxFeePerGas),
		MaxPriorityFeePerGas: orZero(op.MaxPriorityFeePerGas),
		PaymasterAndData:     orEmpty(op.PaymasterAndData),
		Signature:            orEmpty(op.Signature),
	}
}

// UserOpHash asks the entrypoint for the hash the wallet verifies signatures
// against. The signature field does not take part in the hash.
func UserOpHash(ctx context.Context, caller bind.ContractCaller, entrypoint common.Address, op *userop.UserOperation) (common.Hash, error) {
	out, err := Call(ctx, caller, entrypoint, EntrypointABI, "getUserOpHash", toTuple(op))
	if err != nil {
		return common.Hash{}, err
	}
	return common.Hash(*abi.ConvertType(out[0], new([32]byte)).(*[32]byte)), nil
}

// IsContract reports whether code is deployed at addr.
func IsContract(ctx context.Context, caller bind.ContractCaller, addr common.Address) (bool, error) {
	code, err := caller.CodeAt(ctx, addr, nil)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

// Call runs a read-only contract method at the latest block and returns the
// unpacked outputs.
func Call(ctx context.Context, caller bind.ContractCaller, contract common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	bound := bind.NewBoundContract(contract, parsed, caller, nil, nil)

	var out []interface{}
	if err := bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: empty result", method)
	}
	return out, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func orEmpty(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
