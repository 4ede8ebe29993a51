package userop

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
)

// Receipt is the eth_getUserOperationReceipt result. Logs and the enclosing
// transaction receipt are kept raw: bundlers trim fields that go-ethereum's
// decoders treat as required.
type Receipt struct {
	UserOpHash    common.Hash     `json:"userOpHash"`
	EntryPoint    common.Address  `json:"entryPoint"`
	Sender        common.Address  `json:"sender"`
	Nonce         *Quantity       `json:"nonce"`
	Paymaster     common.Address  `json:"paymaster"`
	ActualGasCost *Quantity       `json:"actualGasCost"`
	ActualGasUsed *Quantity       `json:"actualGasUsed"`
	Success       bool            `json:"success"`
	Reason        string          `json:"reason,omitempty"`
	Logs          json.RawMessage `json:"logs,omitempty"`
	Receipt       json.RawMessage `json:"receipt,omitempty"`
}

// TransactionHash digs the bundle transaction hash out of the raw receipt.
func (r *Receipt) TransactionHash() common.Hash {
	if len(r.Receipt) == 0 {
		return common.Hash{}
	}
	var tx struct {
		TransactionHash common.Hash `json:"transactionHash"`
	}
	if err := json.Unmarshal(r.Receipt, &tx); err != nil {
		return common.Hash{}
	}
	return tx.TransactionHash
}

// ByHashResult is the eth_getUserOperationByHash result.
type ByHashResult struct {
	UserOperation   UserOperation  `json:"userOperation"`
	EntryPoint      common.Address `json:"entryPoint"`
	BlockNumber     *Quantity      `json:"blockNumber"`
	BlockHash       common.Hash    `json:"blockHash"`
	TransactionHash common.Hash    `json:"transactionHash"`
}
