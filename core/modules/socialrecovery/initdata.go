package socialrecovery

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mitchellh/mapstructure"

	"github.com/truewallet/truewallet-go/core/walleterr"
)

// InstallData configures the guardians. With AnonymousGuardiansSalt set only
// a hash of the guardians is stored on chain until they are revealed.
type InstallData struct {
	Guardians              []common.Address `mapstructure:"guardians"`
	Threshold              uint64           `mapstructure:"threshold"`
	AnonymousGuardiansSalt string           `mapstructure:"anonymousGuardiansSalt"`
}

var initDataArgs = abi.Arguments{
	{Type: mustType("address[]")},
	{Type: mustType("uint256")},
	{Type: mustType("bytes32")},
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// InitData is the module address followed by
// abi.encode(address[] guardians, uint256 threshold, bytes32 guardianHash).
func InitData(module common.Address, data InstallData) ([]byte, error) {
	guardians := data.Guardians
	var guardianHash common.Hash

	if data.AnonymousGuardiansSalt != "" {
		hash, err := AnonymousGuardiansHash(data.Guardians, data.AnonymousGuardiansSalt)
		if err != nil {
			return nil, err
		}
		guardians = []common.Address{}
		guardianHash = hash
	}
	if guardians == nil {
		guardians = []common.Address{}
	}

	encoded, err := initDataArgs.Pack(guardians, new(big.Int).SetUint64(data.Threshold), [32]byte(guardianHash))
	if err != nil {
		return nil, fmt.Errorf("encode recovery init data: %w", err)
	}
	return append(module.Bytes(), encoded...), nil
}

// AnonymousGuardiansHash is keccak256 over the tightly packed guardian list
// (each address in a 32 byte word) and the salt as a bytes32 string.
func AnonymousGuardiansHash(guardians []common.Address, salt string) (common.Hash, error) {
	saltWord, err := bytes32String(salt)
	if err != nil {
		return common.Hash{}, err
	}

	packed := make([]byte, 0, len(guardians)*32+32)
	for _, g := range guardians {
		packed = append(packed, common.LeftPadBytes(g.Bytes(), 32)...)
	}
	packed = append(packed, saltWord[:]...)
	return crypto.Keccak256Hash(packed), nil
}

// bytes32String right pads s to 32 bytes, keeping one byte for the
// terminating zero.
func bytes32String(s string) ([32]byte, error) {
	var word [32]byte
	if len(s) > 31 {
		return word, walleterr.Newf(walleterr.CodeConfig, "anonymous guardians salt longer than 31 bytes")
	}
	copy(word[:], s)
	return word, nil
}

func decodeInstallData(data any) (InstallData, error) {
	switch v := data.(type) {
	case InstallData:
		return v, nil
	case *InstallData:
		if v != nil {
			return *v, nil
		}
	case nil:
	default:
		var out InstallData
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			DecodeHook:       addressHook,
			Result:           &out,
		})
		if err != nil {
			return out, err
		}
		if err := decoder.Decode(v); err != nil {
			return out, walleterr.Wrap(walleterr.CodeConfig, fmt.Errorf("social recovery install data: %w", err))
		}
		return out, nil
	}
	return InstallData{}, walleterr.New(walleterr.CodeConfig, "social recovery install data is required")
}

var addressType = reflect.TypeOf(common.Address{})

func addressHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != addressType || from.Kind() != reflect.String {
		return data, nil
	}
	s := data.(string)
	if !common.IsHexAddress(s) {
		return nil, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}
