package signer

import (
	"fmt"

	"github.com/decred/dcrd/hdkeychain/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/sha3"
)

// m/44'/60'/0'/0/0
var ethereumPath = []uint32{
	hdkeychain.HardenedKeyStart + 44,
	hdkeychain.HardenedKeyStart + 60,
	hdkeychain.HardenedKeyStart,
	0,
	0,
}

// bip32Params only satisfies hdkeychain.NetworkParams. Serialized extended
// keys are never exposed, so the version bytes are irrelevant.
type bip32Params struct{}

func (bip32Params) HDPrivKeyVersion() [4]byte { return [4]byte{0x04, 0x88, 0xad, 0xe4} }
func (bip32Params) HDPubKeyVersion() [4]byte  { return [4]byte{0x04, 0x88, 0xb2, 0x1e} }

// FromSalt derives the owner key deterministically:
// keccak256(salt) as entropy, BIP-39 mnemonic, seed with empty passphrase,
// BIP-32 path m/44'/60'/0'/0/0. The same salt always yields the same key.
func FromSalt(salt string) (*LocalSigner, error) {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(salt))
	entropy := hasher.Sum(nil)

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("mnemonic from salt: %w", err)
	}
	return fromMnemonic(mnemonic)
}

// fromMnemonic derives m/44'/60'/0'/0/0 from mnemonic with an empty passphrase.
func fromMnemonic(mnemonic string) (*LocalSigner, error) {
	seed := bip39.NewSeed(mnemonic, "")

	key, err := hdkeychain.NewMaster(seed, bip32Params{})
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}

	for _, idx := range ethereumPath {
		child, err := key.ChildBIP32Std(idx)
		if err != nil {
			return nil, fmt.Errorf("derive child %d: %w", idx, err)
		}
		key.Zero()
		key = child
	}
	defer key.Zero()

	// SerializedPrivKey aliases the key's own buffer, which Zero wipes.
	raw, err := key.SerializedPrivKey()
	if err != nil {
		return nil, err
	}
	privateKey, err := crypto.ToECDSA(common.CopyBytes(raw))
	if err != nil {
		return nil, err
	}
	return NewLocalSigner(privateKey), nil
}
