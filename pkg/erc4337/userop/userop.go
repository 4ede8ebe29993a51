// Package userop models the ERC-4337 (EntryPoint v0.6) user operation and the
// bundler results built around it.
package userop

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// UserOperation is built fresh for every submission and never persisted.
type UserOperation struct {
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

// wireUserOperation is the JSON shape bundlers accept: checksummed sender, hex
// quantities and hex bytes where empty is "0x".
type wireUserOperation struct {
	Sender               string        `json:"sender"`
	Nonce                *Quantity     `json:"nonce"`
	InitCode             hexutil.Bytes `json:"initCode"`
	CallData             hexutil.Bytes `json:"callData"`
	CallGasLimit         *Quantity     `json:"callGasLimit"`
	VerificationGasLimit *Quantity     `json:"verificationGasLimit"`
	PreVerificationGas   *Quantity     `json:"preVerificationGas"`
	MaxFeePerGas         *Quantity     `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *Quantity     `json:"maxPriorityFeePerGas"`
	PaymasterAndData     hexutil.Bytes `json:"paymasterAndData"`
	Signature            hexutil.Bytes `json:"signature"`
}

func (op UserOperation) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireUserOperation{
		Sender:               op.Sender.Hex(),
		Nonce:                NewQuantity(op.Nonce),
		InitCode:             nonNil(op.InitCode),
		CallData:             nonNil(op.CallData),
		CallGasLimit:         NewQuantity(op.CallGasLimit),
		VerificationGasLimit: NewQuantity(op.VerificationGasLimit),
		PreVerificationGas:   NewQuantity(op.PreVerificationGas),
		MaxFeePerGas:         NewQuantity(op.MaxFeePerGas),
		MaxPriorityFeePerGas: NewQuantity(op.MaxPriorityFeePerGas),
		PaymasterAndData:     nonNil(op.PaymasterAndData),
		Signature:            nonNil(op.Signature),
	})
}

func (op *UserOperation) UnmarshalJSON(data []byte) error {
	var w wireUserOperation
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if !common.IsHexAddress(w.Sender) {
		return fmt.Errorf("invalid sender %q", w.Sender)
	}

	*op = UserOperation{
		Sender:               common.HexToAddress(w.Sender),
		Nonce:                w.Nonce.Int(),
		InitCode:             w.InitCode,
		CallData:             w.CallData,
		CallGasLimit:         w.CallGasLimit.Int(),
		VerificationGasLimit: w.VerificationGasLimit.Int(),
		PreVerificationGas:   w.PreVerificationGas.Int(),
		MaxFeePerGas:         w.MaxFeePerGas.Int(),
		MaxPriorityFeePerGas: w.MaxPriorityFeePerGas.Int(),
		PaymasterAndData:     w.PaymasterAndData,
		Signature:            w.Signature,
	}
	return nil
}

// Copy returns a deep copy so a draft can be mutated without touching the
// caller's operation.
func (op *UserOperation) Copy() *UserOperation {
	return &UserOperation{
		Sender:               op.Sender,
		Nonce:                copyInt(op.Nonce),
		InitCode:             common.CopyBytes(op.InitCode),
		CallData:             common.CopyBytes(op.CallData),
		CallGasLimit:         copyInt(op.CallGasLimit),
		VerificationGasLimit: copyInt(op.VerificationGasLimit),
		PreVerificationGas:   copyInt(op.PreVerificationGas),
		MaxFeePerGas:         copyInt(op.MaxFeePerGas),
		MaxPriorityFeePerGas: copyInt(op.MaxPriorityFeePerGas),
		PaymasterAndData:     common.CopyBytes(op.PaymasterAndData),
		Signature:            common.CopyBytes(op.Signature),
	}
}

// IsDeployment reports whether the operation carries wallet deployment code.
func (op *UserOperation) IsDeployment() bool {
	return len(op.InitCode) > 0
}

func nonNil(b []byte) hexutil.Bytes {
	if b == nil {
		return hexutil.Bytes{}
	}
	return b
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
