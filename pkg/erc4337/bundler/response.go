package bundler

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/truewallet/truewallet-go/pkg/erc4337/userop"
)

// OperationResponse is returned by SendUserOperation.
type OperationResponse struct {
	Hash common.Hash

	client *Client
}

// Wait polls for the receipt. maxRetries defaults to 0, a single attempt that
// returns nil when the receipt is not there yet. Every call polls anew.
func (r *OperationResponse) Wait(ctx context.Context, maxRetries ...uint) (*userop.Receipt, error) {
	var retries uint
	if len(maxRetries) > 0 {
		retries = maxRetries[0]
	}
	return r.client.GetUserOperationReceipt(ctx, r.Hash, retries)
}
