package aa

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truewallet/truewallet-go/core/testutil"
	"github.com/truewallet/truewallet-go/pkg/erc4337/userop"
)

func TestWalletSaltIsKeccakOfDecimalIndex(t *testing.T) {
	assert.Equal(t, crypto.Keccak256Hash([]byte("0")), common.Hash(WalletSalt(0)))
	assert.Equal(t, crypto.Keccak256Hash([]byte("42")), common.Hash(WalletSalt(42)))
	assert.NotEqual(t, WalletSalt(1), WalletSalt(2))
}

func TestSecurityModuleInitData(t *testing.T) {
	data := SecurityModuleInitData(DefaultSecurityControlModuleAddress)

	require.Len(t, data, 20+32)
	assert.Equal(t, DefaultSecurityControlModuleAddress.Bytes(), data[:20])
	assert.Equal(t, big.NewInt(1), new(big.Int).SetBytes(data[20:]))
}

func TestInitCodeLayout(t *testing.T) {
	factory := testutil.TestFactory()
	owner := testutil.TestOwner()
	extra := common.FromHex("0xabcdef")

	args := CreateWalletArgs(0, DefaultEntrypointAddress, owner, DefaultSecurityControlModuleAddress, extra)
	initCode, err := InitCode(factory, args)
	require.NoError(t, err)

	// factory address ++ createWallet selector ++ args
	assert.Equal(t, factory.Bytes(), initCode[:20])
	method := FactoryABI.Methods["createWallet"]
	assert.Equal(t, method.ID, initCode[20:24])

	decoded, err := method.Inputs.Unpack(initCode[24:])
	require.NoError(t, err)
	require.Len(t, decoded, 4)

	assert.Equal(t, DefaultEntrypointAddress, decoded[0].(common.Address))
	assert.Equal(t, owner, decoded[1].(common.Address))

	modules := decoded[2].([][]byte)
	require.Len(t, modules, 2)
	assert.Equal(t, SecurityModuleInitData(DefaultSecurityControlModuleAddress), modules[0])
	assert.Equal(t, extra, modules[1])

	assert.Equal(t, WalletSalt(0), decoded[3].([32]byte))
}

func TestInitCodeIsDeterministic(t *testing.T) {
	owner := testutil.TestOwner()
	a, err := InitCode(testutil.TestFactory(), CreateWalletArgs(3, DefaultEntrypointAddress, owner, DefaultSecurityControlModuleAddress))
	require.NoError(t, err)
	b, err := InitCode(testutil.TestFactory(), CreateWalletArgs(3, DefaultEntrypointAddress, owner, DefaultSecurityControlModuleAddress))
	require.NoError(t, err)
	c, err := InitCode(testutil.TestFactory(), CreateWalletArgs(4, DefaultEntrypointAddress, owner, DefaultSecurityControlModuleAddress))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c, "a different index changes the salt")
}

func TestPackExecute(t *testing.T) {
	target := common.HexToAddress("0x000000000000000000000000000000000000abc0")
	data, err := PackExecute(target, big.NewInt(1e18), nil)
	require.NoError(t, err)

	method := TrueWalletABI.Methods["execute"]
	assert.Equal(t, method.ID, data[:4])

	args, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, target, args[0].(common.Address))
	assert.Equal(t, big.NewInt(1e18), args[1].(*big.Int))
	assert.Empty(t, args[2].([]byte))
}

func TestWalletReads(t *testing.T) {
	chain := testutil.NewFakeChain()
	wallet := testutil.TestWallet()
	owner := testutil.TestOwner()
	module := DefaultSocialRecoveryModuleAddress

	chain.Returns(wallet, TrueWalletABI, "nonce", big.NewInt(7))
	chain.Handle(wallet, TrueWalletABI, "isOwner", func(args []interface{}) ([]interface{}, error) {
		return []interface{}{args[0].(common.Address) == owner}, nil
	})
	chain.Returns(wallet, TrueWalletABI, "listModules", []common.Address{DefaultSecurityControlModuleAddress, module}, [][][4]byte{{}, {}})

	ctx := context.Background()

	nonce, err := WalletNonce(ctx, chain, wallet)
	require.NoError(t, err)
	assert.Equal(t, int64(7), nonce.Int64())

	isOwner, err := IsOwner(ctx, chain, wallet, owner)
	require.NoError(t, err)
	assert.True(t, isOwner)

	isOwner, err = IsOwner(ctx, chain, wallet, common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.False(t, isOwner)

	modules, err := ListModules(ctx, chain, wallet)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{DefaultSecurityControlModuleAddress, module}, modules)
}

func TestWalletAddressFromFactory(t *testing.T) {
	chain := testutil.NewFakeChain()
	factory := testutil.TestFactory()
	args := CreateWalletArgs(0, DefaultEntrypointAddress, testutil.TestOwner(), DefaultSecurityControlModuleAddress)

	chain.Handle(factory, FactoryABI, "getWalletAddress", func(in []interface{}) ([]interface{}, error) {
		assert.Equal(t, args.Salt, in[3].([32]byte))
		return []interface{}{testutil.TestWallet()}, nil
	})

	addr, err := WalletAddress(context.Background(), chain, factory, args)
	require.NoError(t, err)
	assert.Equal(t, testutil.TestWallet(), addr)
}

func TestUserOpHashSendsTuple(t *testing.T) {
	chain := testutil.NewFakeChain()
	want := crypto.Keccak256Hash([]byte("op"))

	chain.Handle(DefaultEntrypointAddress, EntrypointABI, "getUserOpHash", func(args []interface{}) ([]interface{}, error) {
		op := *abi.ConvertType(args[0], new(userOperationTuple)).(*userOperationTuple)
		assert.Equal(t, testutil.TestWallet(), op.Sender)
		assert.Equal(t, int64(3), op.Nonce.Int64())
		assert.Equal(t, int64(0), op.CallGasLimit.Int64())
		return []interface{}{[32]byte(want)}, nil
	})

	hash, err := UserOpHash(context.Background(), chain, DefaultEntrypointAddress, &userop.UserOperation{
		Sender: testutil.TestWallet(),
		Nonce:  big.NewInt(3),
	})
	require.NoError(t, err)
	assert.Equal(t, want, hash)
}

func TestCallRevertIsError(t *testing.T) {
	chain := testutil.NewFakeChain()
	_, err := WalletNonce(context.Background(), chain, testutil.TestWallet())
	assert.ErrorIs(t, err, testutil.ErrReverted)
}

func TestIsContract(t *testing.T) {
	chain := testutil.NewFakeChain()
	wallet := testutil.TestWallet()

	deployed, err := IsContract(context.Background(), chain, wallet)
	require.NoError(t, err)
	assert.False(t, deployed)

	chain.SetCode(wallet, []byte{0x60, 0x80})
	deployed, err = IsContract(context.Background(), chain, wallet)
	require.NoError(t, err)
	assert.True(t, deployed)
}

func TestERC20(t *testing.T) {
	chain := testutil.NewFakeChain()
	token := common.HexToAddress("0x00000000000000000000000000000000000070c3")
	wallet := testutil.TestWallet()

	chain.Returns(token, ERC20ABI, "decimals", uint8(6))
	chain.Returns(token, ERC20ABI, "balanceOf", big.NewInt(1_500_000))

	decimals, err := ERC20Decimals(context.Background(), chain, token)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), decimals)

	balance, err := ERC20Balance(context.Background(), chain, token, wallet)
	require.NoError(t, err)
	assert.Equal(t, int64(1_500_000), balance.Int64())

	data, err := PackERC20Transfer(wallet, big.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, ERC20ABI.Methods["transfer"].ID, data[:4])
}
