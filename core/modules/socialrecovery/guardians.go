package socialrecovery

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/truewallet/truewallet-go/core/walleterr"
	"github.com/truewallet/truewallet-go/pkg/erc4337/bundler"
)

func (m *Module) Guardians(ctx context.Context) ([]common.Address, error) {
	out, err := m.read(ctx, "getGuardians", m.wallet.Address())
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]common.Address)).(*[]common.Address), nil
}

func (m *Module) GuardiansCount(ctx context.Context) (*big.Int, error) {
	return m.readInt(ctx, "guardiansCount", m.wallet.Address())
}

func (m *Module) IsGuardian(ctx context.Context, guardian common.Address) (bool, error) {
	out, err := m.read(ctx, "isGuardian", m.wallet.Address(), guardian)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (m *Module) Threshold(ctx context.Context) (*big.Int, error) {
	return m.readInt(ctx, "threshold", m.wallet.Address())
}

// Nonce is the recovery nonce, not the wallet nonce.
func (m *Module) Nonce(ctx context.Context) (*big.Int, error) {
	return m.readInt(ctx, "nonce", m.wallet.Address())
}

func (m *Module) GuardiansHash(ctx context.Context) (common.Hash, error) {
	out, err := m.read(ctx, "getGuardiansHash", m.wallet.Address())
	if err != nil {
		return common.Hash{}, err
	}
	return common.Hash(*abi.ConvertType(out[0], new([32]byte)).(*[32]byte)), nil
}

func (m *Module) PendingGuardian(ctx context.Context) (*PendingGuardianEntry, error) {
	out, err := m.read(ctx, "pendingGuardian", m.wallet.Address())
	if err != nil {
		return nil, err
	}
	return &PendingGuardianEntry{
		PendingUntil:     *abi.ConvertType(out[0], new(*big.Int)).(**big.Int),
		PendingThreshold: *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
		GuardianHash:     common.Hash(*abi.ConvertType(out[2], new([32]byte)).(*[32]byte)),
		Guardians:        *abi.ConvertType(out[3], new([]common.Address)).(*[]common.Address),
	}, nil
}

// RecoveryEntry reads the pending recovery of wallet, which need not be the
// wallet this module is attached to.
func (m *Module) RecoveryEntry(ctx context.Context, wallet common.Address) (*RecoveryEntry, error) {
	out, err := m.read(ctx, "getRecoveryEntry", wallet)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(RecoveryEntry)).(*RecoveryEntry), nil
}

func (m *Module) RecoveryApprovals(ctx context.Context, newOwners []common.Address) (*big.Int, error) {
	return m.readInt(ctx, "getRecoveryApprovals", m.wallet.Address(), newOwners)
}

func (m *Module) HasGuardianApproved(ctx context.Context, guardian common.Address, newOwners []common.Address) (bool, error) {
	out, err := m.read(ctx, "hasGuardianApproved", guardian, m.wallet.Address(), newOwners)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// SocialRecoveryHash is the hash guardians sign off chain for newOwners at the
// current recovery nonce.
func (m *Module) SocialRecoveryHash(ctx context.Context, newOwners []common.Address) (common.Hash, error) {
	nonce, err := m.Nonce(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	out, err := m.read(ctx, "getSocialRecoveryHash", m.wallet.Address(), newOwners, nonce)
	if err != nil {
		return common.Hash{}, err
	}
	return common.Hash(*abi.ConvertType(out[0], new([32]byte)).(*[32]byte)), nil
}

func (m *Module) readInt(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := m.read(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// ApproveRecovery is sent by a guardian wallet for the wallet being restored.
func (m *Module) ApproveRecovery(ctx context.Context, wallet common.Address, newOwners []common.Address) (*bundler.OperationResponse, error) {
	return m.write(ctx, "approveRecovery", wallet, newOwners)
}

func (m *Module) BatchApproveRecovery(ctx context.Context, newOwners []common.Address, signatureCount *big.Int, signatures []byte) (*bundler.OperationResponse, error) {
	return m.write(ctx, "batchApproveRecovery", m.wallet.Address(), newOwners, signatureCount, signatures)
}

func (m *Module) CancelRecovery(ctx context.Context) (*bundler.OperationResponse, error) {
	return m.write(ctx, "cancelRecovery", m.wallet.Address())
}

func (m *Module) CancelSetGuardians(ctx context.Context) (*bundler.OperationResponse, error) {
	return m.write(ctx, "cancelSetGuardians", m.wallet.Address())
}

func (m *Module) ProcessGuardianUpdates(ctx context.Context) (*bundler.OperationResponse, error) {
	return m.write(ctx, "processGuardianUpdates", m.wallet.Address())
}

func (m *Module) RevealAnonymousGuardians(ctx context.Context, guardians []common.Address, salt *big.Int) (*bundler.OperationResponse, error) {
	return m.write(ctx, "revealAnonymousGuardians", m.wallet.Address(), guardians, salt)
}

func (m *Module) UpdatePendingGuardians(ctx context.Context, threshold *big.Int, guardianHash common.Hash) (*bundler.OperationResponse, error) {
	return m.write(ctx, "updatePendingGuardians", m.wallet.Address(), threshold, [32]byte(guardianHash))
}

// ExecuteRecovery hands wallet over to its new owners. It fails with
// RECOVERY_EXECUTE_NOT_READY until the entry's executeAfter has passed.
func (m *Module) ExecuteRecovery(ctx context.Context, wallet common.Address) (*bundler.OperationResponse, error) {
	entry, err := m.RecoveryEntry(ctx, wallet)
	if err != nil {
		return nil, err
	}

	executeAfter := time.Unix(entry.ExecuteAfter.Int64(), 0)
	if !executeAfter.Before(m.now()) {
		return nil, walleterr.New(walleterr.CodeRecoveryNotReady,
			"Execute recovery will be available after "+executeAfter.UTC().Format(time.RFC3339),
			map[string]interface{}{"executeAfter": entry.ExecuteAfter.String()})
	}
	return m.write(ctx, "executeRecovery", wallet)
}
