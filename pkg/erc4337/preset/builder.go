// Package preset assembles complete, signed user operations: deployment
// resolution, fee pricing, remote gas estimation, hashing and signing.
package preset

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/truewallet/truewallet-go/core/chainio/aa"
	"github.com/truewallet/truewallet-go/core/chainio/signer"
	"github.com/truewallet/truewallet-go/pkg/eip1559"
	"github.com/truewallet/truewallet-go/pkg/erc4337/bundler"
	"github.com/truewallet/truewallet-go/pkg/erc4337/userop"
	"github.com/truewallet/truewallet-go/pkg/logger"
)

var (
	// signed by the owner to fill the signature during estimation, only its shape matters
	dummySignaturePayload = common.FromHex("0xdead")
)

// Node is the chain access the builder needs: code and contract reads plus
// the fee market.
type Node interface {
	bind.ContractCaller
	eip1559.FeeSource
}

// Bundler is the part of the bundler client the builder drives.
type Bundler interface {
	Entrypoint() common.Address
	EstimateUserOperationGas(ctx context.Context, op *userop.UserOperation) (*bundler.GasEstimation, error)
	SendUserOperation(ctx context.Context, op *userop.UserOperation) (*bundler.OperationResponse, error)
}

// InitCodeFunc returns the wallet deployment code. Only called for wallets
// without code.
type InitCodeFunc func(ctx context.Context) ([]byte, error)

// HashFunc returns the hash the owner signs for op.
type HashFunc func(ctx context.Context, op *userop.UserOperation) (common.Hash, error)

type BuilderConfig struct {
	Node     Node
	Bundler  Bundler
	Signer   signer.Signer
	InitCode InitCodeFunc

	// Optional. Defaults: oracle over Node, entrypoint getUserOpHash, owner
	// signature over 0xdead.
	Fees           *eip1559.Oracle
	Hasher         HashFunc
	DummySignature []byte
	Logger         logger.Logger
}

// Builder turns call data into a user operation the bundler accepts.
type Builder struct {
	node     Node
	bundler  Bundler
	signer   signer.Signer
	initCode InitCodeFunc
	fees     *eip1559.Oracle
	hasher   HashFunc
	dummySig []byte
	logger   logger.Logger
}

func NewBuilder(cfg BuilderConfig) (*Builder, error) {
	switch {
	case cfg.Node == nil:
		return nil, errors.New("builder requires a node")
	case cfg.Bundler == nil:
		return nil, errors.New("builder requires a bundler")
	case cfg.Signer == nil:
		return nil, errors.New("builder requires a signer")
	case cfg.InitCode == nil:
		return nil, errors.New("builder requires an init code source")
	}

	b := &Builder{
		node:     cfg.Node,
		bundler:  cfg.Bundler,
		signer:   cfg.Signer,
		initCode: cfg.InitCode,
		fees:     cfg.Fees,
		hasher:   cfg.Hasher,
		dummySig: common.CopyBytes(cfg.DummySignature),
		logger:   logger.EnsureLogger(cfg.Logger),
	}
	if b.fees == nil {
		b.fees = eip1559.NewOracle(cfg.Node)
	}
	if b.hasher == nil {
		entrypoint := cfg.Bundler.Entrypoint()
		b.hasher = func(ctx context.Context, op *userop.UserOperation) (common.Hash, error) {
			return aa.UserOpHash(ctx, cfg.Node, entrypoint, op)
		}
	}
	return b, nil
}

// BuildOperation runs the pipeline for one operation: resolve deployment,
// draft with a placeholder signature, estimate, hash, sign. Errors from
// estimation, hashing and signing are returned as they are.
func (b *Builder) BuildOperation(ctx context.Context, sender common.Address, callData []byte, paymasterAndData []byte) (*userop.UserOperation, error) {
	nonce, initCode, err := b.resolveDeployment(ctx, sender)
	if err != nil {
		return nil, err
	}

	op, err := b.draft(ctx, sender, nonce, initCode, callData, paymasterAndData)
	if err != nil {
		return nil, err
	}

	gas, err := b.bundler.EstimateUserOperationGas(ctx, op)
	if err != nil {
		return nil, err
	}
	gas.Apply(op)

	hash, err := b.hasher(ctx, op)
	if err != nil {
		return nil, err
	}
	signature, err := b.signer.SignMessage(ctx, hash.Bytes())
	if err != nil {
		return nil, err
	}
	op.Signature = signature

	b.logger.Debug("user operation built",
		"sender", sender.Hex(),
		"nonce", op.Nonce,
		"deploy", op.IsDeployment(),
		"callGasLimit", op.CallGasLimit,
		"verificationGasLimit", op.VerificationGasLimit,
		"preVerificationGas", op.PreVerificationGas,
		"userOpHash", hash.Hex(),
	)
	return op, nil
}

// BuildAndSend builds the operation and submits it.
func (b *Builder) BuildAndSend(ctx context.Context, sender common.Address, callData []byte, paymasterAndData []byte) (*bundler.OperationResponse, error) {
	op, err := b.BuildOperation(ctx, sender, callData, paymasterAndData)
	if err != nil {
		return nil, err
	}
	return b.bundler.SendUserOperation(ctx, op)
}

// resolveDeployment returns either (wallet nonce, no init code) for a deployed
// wallet or (0, deployment code) for one that does not exist yet. Never both.
func (b *Builder) resolveDeployment(ctx context.Context, sender common.Address) (*big.Int, []byte, error) {
	deployed, err := aa.IsContract(ctx, b.node, sender)
	if err != nil {
		return nil, nil, fmt.Errorf("check wallet code: %w", err)
	}

	if !deployed {
		initCode, err := b.initCode(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("wallet init code: %w", err)
		}
		return new(big.Int), initCode, nil
	}

	nonce, err := aa.WalletNonce(ctx, b.node, sender)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, err
		}
		// a deployed wallet whose nonce() cannot be read is treated as fresh
		b.logger.Warn("wallet nonce read failed, using 0", "sender", sender.Hex(), "error", err)
		nonce = new(big.Int)
	}
	return nonce, nil, nil
}

func (b *Builder) draft(ctx context.Context, sender common.Address, nonce *big.Int, initCode, callData, paymasterAndData []byte) (*userop.UserOperation, error) {
	fee, err := b.fees.SuggestFee(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas fees: %w", err)
	}

	dummy, err := b.dummySignature(ctx)
	if err != nil {
		return nil, err
	}

	return &userop.UserOperation{
		Sender:   sender,
		Nonce:    nonce,
		InitCode: initCode,
		CallData: callData,

		// placeholders, replaced by the bundler estimate
		CallGasLimit:         new(big.Int),
		VerificationGasLimit: new(big.Int),
		PreVerificationGas:   new(big.Int),

		MaxFeePerGas:         fee.MaxFeePerGas,
		MaxPriorityFeePerGas: fee.MaxPriorityFeePerGas,
		PaymasterAndData:     paymasterAndData,
		Signature:            dummy,
	}, nil
}

func (b *Builder) dummySignature(ctx context.Context) ([]byte, error) {
	if len(b.dummySig) > 0 {
		return common.CopyBytes(b.dummySig), nil
	}
	return b.signer.SignMessage(ctx, dummySignaturePayload)
}
