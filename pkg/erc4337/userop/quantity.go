package userop

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Quantity is a big integer that bundlers encode inconsistently: as 0x-prefixed
// hex strings, decimal strings or bare JSON numbers. It always marshals to hex.
type Quantity big.Int

func NewQuantity(v *big.Int) *Quantity {
	if v == nil {
		return (*Quantity)(new(big.Int))
	}
	return (*Quantity)(new(big.Int).Set(v))
}

// Int returns a copy as *big.Int. A nil Quantity yields nil.
func (q *Quantity) Int() *big.Int {
	if q == nil {
		return nil
	}
	return new(big.Int).Set((*big.Int)(q))
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(hexutil.EncodeBig((*big.Int)(&q)))
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	raw = strings.TrimSpace(raw)

	v, err := parseQuantity(raw)
	if err != nil {
		return err
	}
	(*big.Int)(q).Set(v)
	return nil
}

func parseQuantity(raw string) (*big.Int, error) {
	v := new(big.Int)
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		digits := raw[2:]
		if digits == "" {
			return v, nil
		}
		if _, ok := v.SetString(digits, 16); !ok {
			return nil, fmt.Errorf("invalid hex quantity %q", raw)
		}
		return v, nil
	}
	if _, ok := v.SetString(raw, 10); !ok {
		return nil, fmt.Errorf("invalid quantity %q", raw)
	}
	return v, nil
}
