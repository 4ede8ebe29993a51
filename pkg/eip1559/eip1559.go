// Package eip1559 derives user operation fee fields from the node's fee
// market.
package eip1559

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"
)

// FeeSource is the subset of ethclient.Client the oracle reads.
type FeeSource interface {
	// SuggestGasTipCap maps to eth_maxPriorityFeePerGas.
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// GasPrice holds the two fee fields of a user operation.
type GasPrice struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

type Oracle struct {
	source FeeSource
}

func NewOracle(source FeeSource) *Oracle {
	return &Oracle{source: source}
}

// SuggestFee reads the tip and the latest header concurrently. The result is
// advisory, the bundler may still reject it once conditions move.
func (o *Oracle) SuggestFee(ctx context.Context) (*GasPrice, error) {
	var (
		tipCap *big.Int
		header *types.Header
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tip, err := o.source.SuggestGasTipCap(gctx)
		if err != nil {
			return fmt.Errorf("eth_maxPriorityFeePerGas: %w", err)
		}
		tipCap = tip
		return nil
	})
	g.Go(func() error {
		h, err := o.source.HeaderByNumber(gctx, nil)
		if err != nil {
			return fmt.Errorf("latest block: %w", err)
		}
		header = h
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var baseFee *big.Int
	if header != nil {
		baseFee = header.BaseFee
	}

	maxPriorityFeePerGas := BufferTip(tipCap)
	return &GasPrice{
		MaxFeePerGas:         MaxFee(baseFee, maxPriorityFeePerGas),
		MaxPriorityFeePerGas: maxPriorityFeePerGas,
	}, nil
}

// BufferTip adds 13% to tip in integer arithmetic: tip + floor(tip*13/100).
func BufferTip(tip *big.Int) *big.Int {
	if tip == nil {
		return new(big.Int)
	}
	buffer := new(big.Int).Mul(tip, big.NewInt(13))
	buffer.Div(buffer, big.NewInt(100))
	return buffer.Add(buffer, tip)
}

// MaxFee is 2*baseFee + priority, which survives one block of base fee
// doubling. Pre EIP-1559 chains have no base fee and pay the priority fee only.
func MaxFee(baseFee, maxPriorityFeePerGas *big.Int) *big.Int {
	if baseFee == nil {
		return new(big.Int).Set(maxPriorityFeePerGas)
	}
	return new(big.Int).Add(
		new(big.Int).Mul(baseFee, big.NewInt(2)),
		maxPriorityFeePerGas,
	)
}
