package aa

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

func ERC20Balance(ctx context.Context, caller bind.ContractCaller, token, account common.Address) (*big.Int, error) {
	out, err := Call(ctx, caller, token, ERC20ABI, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func ERC20Decimals(ctx context.Context, caller bind.ContractCaller, token common.Address) (uint8, error) {
	out, err := Call(ctx, caller, token, ERC20ABI, "decimals")
	if err != nil {
		return 0, err
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

func PackERC20Transfer(to common.Address, amount *big.Int) ([]byte, error) {
	return ERC20ABI.Pack("transfer", to, orZero(amount))
}

func PackERC20Approve(spender common.Address, amount *big.Int) ([]byte, error) {
	return ERC20ABI.Pack("approve", spender, orZero(amount))
}
