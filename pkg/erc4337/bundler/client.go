// Provide primitive to work with a bundler RPC
// Bundler RPC is stateless, the only client side state is the request id.
package bundler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"

	"github.com/truewallet/truewallet-go/core/walleterr"
	"github.com/truewallet/truewallet-go/metrics"
	"github.com/truewallet/truewallet-go/pkg/erc4337/userop"
	"github.com/truewallet/truewallet-go/pkg/logger"
)

const (
	DefaultPollInterval = 3 * time.Second
	defaultTimeout      = 30 * time.Second

	methodSendUserOperation       = "eth_sendUserOperation"
	methodEstimateUserOpGas       = "eth_estimateUserOperationGas"
	methodGetUserOperationByHash  = "eth_getUserOperationByHash"
	methodGetUserOperationReceipt = "eth_getUserOperationReceipt"
	methodSupportedEntryPoints    = "eth_supportedEntryPoints"
)

// errReceiptPending marks a poll attempt that got a null receipt.
var errReceiptPending = errors.New("user operation receipt not available yet")

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// Client talks to an EIP-4337 bundler for one entrypoint.
type Client struct {
	http         *resty.Client
	url          string
	entrypoint   common.Address
	pollInterval time.Duration

	nextID atomic.Uint64

	logger   logger.Logger
	recorder metrics.Recorder
}

type Option func(*Client)

func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = logger.EnsureLogger(l) }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithPollInterval sets the fixed delay between receipt poll attempts.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.pollInterval = d
		}
	}
}

func WithHTTPClient(h *resty.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient creates a bundler client. The entrypoint is validated here and
// kept checksummed for every request.
func NewClient(url string, entrypoint string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, walleterr.New(walleterr.CodeConfig, "bundler url is required")
	}
	if !common.IsHexAddress(entrypoint) {
		return nil, walleterr.Newf(walleterr.CodeConfig, "invalid entrypoint address %q", entrypoint)
	}

	c := &Client{
		url:          url,
		entrypoint:   common.HexToAddress(entrypoint),
		pollInterval: DefaultPollInterval,
		logger:       logger.NewNoOpLogger(),
		recorder:     metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = resty.New().SetTimeout(defaultTimeout)
	}
	return c, nil
}

func (c *Client) Entrypoint() common.Address {
	return c.entrypoint
}

func (c *Client) URL() string {
	return c.url
}

// SendUserOperation submits a signed operation. The returned handle can wait
// for the receipt.
func (c *Client) SendUserOperation(ctx context.Context, op *userop.UserOperation) (*OperationResponse, error) {
	raw, err := c.call(ctx, methodSendUserOperation, op, c.entrypoint.Hex())
	if err != nil {
		c.recorder.IncUserOperationSent(metrics.StatusRPC)
		return nil, err
	}

	var hash common.Hash
	if err := json.Unmarshal(raw, &hash); err != nil {
		c.recorder.IncUserOperationSent(metrics.StatusRPC)
		return nil, fmt.Errorf("decode %s result: %w", methodSendUserOperation, err)
	}

	c.recorder.IncUserOperationSent(metrics.StatusOK)
	c.logger.Info("user operation submitted", "hash", hash.Hex(), "sender", op.Sender.Hex(), "nonce", op.Nonce)
	return &OperationResponse{Hash: hash, client: c}, nil
}

// EstimateUserOperationGas estimates the gas required for a UserOperation.
// https://eips.ethereum.org/EIPS/eip-4337#rpc-methods-eth-namespace
// The signature only needs to have the right shape.
func (c *Client) EstimateUserOperationGas(ctx context.Context, op *userop.UserOperation) (*GasEstimation, error) {
	raw, err := c.call(ctx, methodEstimateUserOpGas, op, c.entrypoint.Hex())
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, fmt.Errorf("%s returned no estimation", methodEstimateUserOpGas)
	}

	var gas GasEstimation
	if err := json.Unmarshal(raw, &gas); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", methodEstimateUserOpGas, err)
	}
	return &gas, nil
}

// GetUserOperationByHash returns nil, nil when the bundler does not know the hash.
func (c *Client) GetUserOperationByHash(ctx context.Context, hash common.Hash) (*userop.ByHashResult, error) {
	raw, err := c.call(ctx, methodGetUserOperationByHash, hash.Hex(), c.entrypoint.Hex())
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, nil
	}

	var result userop.ByHashResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", methodGetUserOperationByHash, err)
	}
	return &result, nil
}

// MaxReceiptRetries bounds receipt polling. retry-go treats zero attempts as
// unlimited, so maxRetries+1 must not wrap.
const MaxReceiptRetries = 1 << 16

// GetUserOperationReceipt polls for a receipt up to maxRetries+1 times with a
// fixed interval between attempts. With maxRetries == 0 a missing receipt is
// not an error and nil is returned; otherwise running out of attempts yields
// MAX_RETRIES_EXCEEDED. Any other failure ends polling immediately.
func (c *Client) GetUserOperationReceipt(ctx context.Context, hash common.Hash, maxRetries uint) (*userop.Receipt, error) {
	if maxRetries > MaxReceiptRetries {
		return nil, fmt.Errorf("maxRetries %d exceeds limit %d", maxRetries, MaxReceiptRetries)
	}
	var receipt *userop.Receipt

	err := retry.Do(
		func() error {
			r, err := c.fetchReceipt(ctx, hash)
			switch {
			case err != nil:
				c.recorder.IncReceiptPoll(metrics.PollError)
				return err
			case r == nil:
				c.recorder.IncReceiptPoll(metrics.PollPending)
				return errReceiptPending
			}
			c.recorder.IncReceiptPoll(metrics.PollFound)
			receipt = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(maxRetries+1),
		retry.Delay(c.pollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, errReceiptPending)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("receipt not ready", "hash", hash.Hex(), "attempt", n+1, "maxRetries", maxRetries)
		}),
	)

	switch {
	case err == nil:
		return receipt, nil
	case errors.Is(err, errReceiptPending):
		if maxRetries == 0 {
			return nil, nil
		}
		return nil, walleterr.New(walleterr.CodeMaxRetriesExceeded,
			fmt.Sprintf("receipt for %s not found after %d retries", hash.Hex(), maxRetries),
			map[string]interface{}{"hash": hash.Hex(), "maxRetries": maxRetries})
	default:
		return nil, err
	}
}

func (c *Client) fetchReceipt(ctx context.Context, hash common.Hash) (*userop.Receipt, error) {
	raw, err := c.call(ctx, methodGetUserOperationReceipt, hash.Hex(), c.entrypoint.Hex())
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, nil
	}

	var receipt userop.Receipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", methodGetUserOperationReceipt, err)
	}
	return &receipt, nil
}

func (c *Client) GetSupportedEntryPoints(ctx context.Context) ([]common.Address, error) {
	raw, err := c.call(ctx, methodSupportedEntryPoints)
	if err != nil {
		return nil, err
	}

	var entrypoints []common.Address
	if isNull(raw) {
		return entrypoints, nil
	}
	if err := json.Unmarshal(raw, &entrypoints); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", methodSupportedEntryPoints, err)
	}
	return entrypoints, nil
}

// call performs one JSON-RPC round trip and returns the raw result. An error
// envelope becomes BUNDLER_ERROR whatever the HTTP status was.
func (c *Client) call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1) - 1,
		Method:  method,
		Params:  params,
	}

	started := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(c.url)
	if err != nil {
		c.recorder.ObserveBundlerRequest(method, metrics.StatusNetwork, time.Since(started))
		return nil, fmt.Errorf("bundler request %s: %w", method, err)
	}

	c.logger.Debug("bundler response", "method", method, "id", req.ID, "status", resp.StatusCode())

	var envelope rpcResponse
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		c.recorder.ObserveBundlerRequest(method, metrics.StatusNetwork, time.Since(started))
		if resp.IsError() {
			return nil, fmt.Errorf("bundler request %s: unexpected status %d", method, resp.StatusCode())
		}
		return nil, fmt.Errorf("bundler request %s: malformed response: %w", method, err)
	}

	if envelope.Error != nil {
		c.recorder.ObserveBundlerRequest(method, metrics.StatusRPC, time.Since(started))
		details := map[string]interface{}{
			"method": method,
			"code":   envelope.Error.Code,
		}
		if len(envelope.Error.Data) > 0 {
			details["data"] = envelope.Error.Data
		}
		return nil, walleterr.New(walleterr.CodeBundler, envelope.Error.Message, details)
	}

	if resp.IsError() {
		c.recorder.ObserveBundlerRequest(method, metrics.StatusNetwork, time.Since(started))
		return nil, fmt.Errorf("bundler request %s: unexpected status %d", method, resp.StatusCode())
	}

	c.recorder.ObserveBundlerRequest(method, metrics.StatusOK, time.Since(started))
	return envelope.Result, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
