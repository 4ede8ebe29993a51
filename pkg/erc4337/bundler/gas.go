package bundler

import (
	"encoding/json"
	"math/big"

	"github.com/truewallet/truewallet-go/pkg/erc4337/userop"
)

// GasEstimation is the eth_estimateUserOperationGas result. Older bundlers
// return verificationGas instead of verificationGasLimit; both land in
// VerificationGasLimit.
type GasEstimation struct {
	PreVerificationGas   *big.Int
	VerificationGasLimit *big.Int
	CallGasLimit         *big.Int
}

func (g *GasEstimation) UnmarshalJSON(data []byte) error {
	var w struct {
		PreVerificationGas   *userop.Quantity `json:"preVerificationGas"`
		VerificationGasLimit *userop.Quantity `json:"verificationGasLimit"`
		VerificationGas      *userop.Quantity `json:"verificationGas"`
		CallGasLimit         *userop.Quantity `json:"callGasLimit"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	verification := w.VerificationGasLimit
	if verification == nil {
		verification = w.VerificationGas
	}

	*g = GasEstimation{
		PreVerificationGas:   orZero(w.PreVerificationGas.Int()),
		VerificationGasLimit: orZero(verification.Int()),
		CallGasLimit:         orZero(w.CallGasLimit.Int()),
	}
	return nil
}

// Apply copies the three estimated limits onto op.
func (g *GasEstimation) Apply(op *userop.UserOperation) {
	op.PreVerificationGas = new(big.Int).Set(g.PreVerificationGas)
	op.VerificationGasLimit = new(big.Int).Set(g.VerificationGasLimit)
	op.CallGasLimit = new(big.Int).Set(g.CallGasLimit)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
