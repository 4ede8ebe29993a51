// Package byte4 decodes call data by its 4-byte selector.
package byte4

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Call is decoded call data.
type Call struct {
	Method *abi.Method
	Args   []interface{}
}

// MethodFromCalldata returns the method of parsed whose selector prefixes data.
func MethodFromCalldata(parsed abi.ABI, data []byte) (*abi.Method, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("invalid selector length: %d", len(data))
	}
	method, err := parsed.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("no matching method found for selector: 0x%x", data[:4])
	}
	return method, nil
}

func Decode(parsed abi.ABI, data []byte) (*Call, error) {
	method, err := MethodFromCalldata(parsed, data)
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method.Name, err)
	}
	return &Call{Method: method, Args: args}, nil
}

// DecodeAny tries each ABI in order and returns the first match.
func DecodeAny(data []byte, abis ...abi.ABI) (*Call, error) {
	for _, parsed := range abis {
		if call, err := Decode(parsed, data); err == nil {
			return call, nil
		}
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("invalid selector length: %d", len(data))
	}
	return nil, fmt.Errorf("no matching method found for selector: 0x%x", data[:4])
}
