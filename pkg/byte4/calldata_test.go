package byte4

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truewallet/truewallet-go/core/chainio/aa"
)

func TestDecode(t *testing.T) {
	to := common.HexToAddress("0x0000000000000000000000000000000000000abc")
	data, err := aa.PackERC20Transfer(to, big.NewInt(5))
	require.NoError(t, err)

	call, err := Decode(aa.ERC20ABI, data)
	require.NoError(t, err)
	assert.Equal(t, "transfer", call.Method.Name)
	assert.Equal(t, to, call.Args[0].(common.Address))
	assert.Equal(t, int64(5), call.Args[1].(*big.Int).Int64())
}

func TestDecodeAnyFallsThrough(t *testing.T) {
	data, err := aa.PackRemoveModule(aa.DefaultSocialRecoveryModuleAddress)
	require.NoError(t, err)

	call, err := DecodeAny(data, aa.ERC20ABI, aa.TrueWalletABI)
	require.NoError(t, err)
	assert.Equal(t, "removeModule", call.Method.Name)

	_, err = DecodeAny(data, aa.ERC20ABI)
	assert.Error(t, err)
}

func TestShortCalldata(t *testing.T) {
	_, err := MethodFromCalldata(aa.ERC20ABI, []byte{0x01})
	assert.Error(t, err)
	_, err = DecodeAny(nil, aa.ERC20ABI)
	assert.Error(t, err)
}
