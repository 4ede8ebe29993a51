package testutil

import (
	"crypto/ecdsa"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// Well known hardhat account #0, never funded anywhere that matters.
	TestOwnerPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

	TestFactoryAddress = "0x3e8a6d1a4b0c7d2f5e9b1c0a2d4f6e8b0c2d4f6a"
)

func GetLogger() sdklogging.Logger {
	logger, err := sdklogging.NewZapLogger(sdklogging.Development)
	if err != nil {
		panic(err)
	}
	return logger
}

func TestOwnerKey() *ecdsa.PrivateKey {
	key, err := crypto.HexToECDSA(TestOwnerPrivateKey)
	if err != nil {
		panic(err)
	}
	return key
}

// TestOwner is the address of TestOwnerKey.
func TestOwner() common.Address {
	return crypto.PubkeyToAddress(TestOwnerKey().PublicKey)
}

func TestWallet() common.Address {
	return common.HexToAddress("0x7c3a76086588230c7B3f4839A4c1F5BBafcd57C6")
}

func TestFactory() common.Address {
	return common.HexToAddress(TestFactoryAddress)
}
