package bundler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truewallet/truewallet-go/core/walleterr"
	"github.com/truewallet/truewallet-go/pkg/erc4337/userop"
)

const testEntrypoint = "0x5ff137d4b0fdcd49dca30c7cf57e578a026d2789"

type recordedCall struct {
	ID     uint64            `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeBundler answers each request with handler's result or error payload.
type fakeBundler struct {
	mu      sync.Mutex
	calls   []recordedCall
	handler func(call recordedCall) (status int, body string)
}

func (f *fakeBundler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var call recordedCall
	_ = json.Unmarshal(raw, &call)

	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	status, body := f.handler(call)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (f *fakeBundler) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func newTestClient(t *testing.T, handler func(recordedCall) (int, string)) (*Client, *fakeBundler) {
	t.Helper()
	fake := &fakeBundler{handler: handler}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, testEntrypoint, WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	return c, fake
}

func result(v string) string {
	return `{"jsonrpc":"2.0","id":0,"result":` + v + `}`
}

func sampleOp() *userop.UserOperation {
	return &userop.UserOperation{
		Sender:               common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Nonce:                big.NewInt(0),
		MaxFeePerGas:         big.NewInt(1),
		MaxPriorityFeePerGas: big.NewInt(1),
		Signature:            common.FromHex("0xdead"),
	}
}

func TestNewClientRejectsMalformedEntrypoint(t *testing.T) {
	_, err := NewClient("http://localhost:4337", "0x1234")
	require.Error(t, err)
	assert.True(t, errors.Is(err, walleterr.ErrConfig))
}

func TestEntrypointIsChecksummed(t *testing.T) {
	c, err := NewClient("http://localhost:4337", testEntrypoint)
	require.NoError(t, err)
	assert.Equal(t, "0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789", c.Entrypoint().Hex())
}

func TestSendUserOperationEnvelope(t *testing.T) {
	hash := common.HexToHash("0xab").Hex()
	c, fake := newTestClient(t, func(call recordedCall) (int, string) {
		return http.StatusOK, result(`"` + hash + `"`)
	})

	resp, err := c.SendUserOperation(context.Background(), sampleOp())
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash(hash), resp.Hash)

	require.Len(t, fake.calls, 1)
	call := fake.calls[0]
	assert.Equal(t, "eth_sendUserOperation", call.Method)
	assert.Equal(t, uint64(0), call.ID)
	require.Len(t, call.Params, 2)
	assert.JSONEq(t, `"0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"`, string(call.Params[1]))

	var wire map[string]string
	require.NoError(t, json.Unmarshal(call.Params[0], &wire))
	assert.Equal(t, "0x0", wire["nonce"])
	assert.Equal(t, "0xdead", wire["signature"])
}

// Scenario: the bundler rejects the operation on submission.
func TestSendUserOperationRejected(t *testing.T) {
	c, _ := newTestClient(t, func(call recordedCall) (int, string) {
		return http.StatusOK, `{"jsonrpc":"2.0","id":0,"error":{"code":-32507,"message":"invalid signature"}}`
	})

	resp, err := c.SendUserOperation(context.Background(), sampleOp())
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, walleterr.ErrBundler))
	assert.Equal(t, "invalid signature", err.Error())
}

func TestRequestIDsIncrease(t *testing.T) {
	c, fake := newTestClient(t, func(call recordedCall) (int, string) {
		return http.StatusOK, result(`["` + testEntrypoint + `"]`)
	})

	for i := 0; i < 3; i++ {
		_, err := c.GetSupportedEntryPoints(context.Background())
		require.NoError(t, err)
	}

	require.Len(t, fake.calls, 3)
	for i, call := range fake.calls {
		assert.Equal(t, uint64(i), call.ID)
	}
}

func TestEstimateAcceptsLegacyVerificationGas(t *testing.T) {
	c, _ := newTestClient(t, func(call recordedCall) (int, string) {
		return http.StatusOK, result(`{"preVerificationGas":"0xbb80","verificationGas":"0x186a0","callGasLimit":21000}`)
	})

	gas, err := c.EstimateUserOperationGas(context.Background(), sampleOp())
	require.NoError(t, err)
	assert.Equal(t, int64(48000), gas.PreVerificationGas.Int64())
	assert.Equal(t, int64(100000), gas.VerificationGasLimit.Int64())
	assert.Equal(t, int64(21000), gas.CallGasLimit.Int64())
}

func TestEstimatePrefersVerificationGasLimit(t *testing.T) {
	c, _ := newTestClient(t, func(call recordedCall) (int, string) {
		return http.StatusOK, result(`{"preVerificationGas":"0x1","verificationGasLimit":"0x2","verificationGas":"0x3","callGasLimit":"0x4"}`)
	})

	gas, err := c.EstimateUserOperationGas(context.Background(), sampleOp())
	require.NoError(t, err)
	assert.Equal(t, int64(2), gas.VerificationGasLimit.Int64())
}

// A JSON-RPC error is a bundler error no matter the HTTP status.
func TestRPCErrorEnvelope(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusBadRequest, http.StatusInternalServerError} {
		c, _ := newTestClient(t, func(call recordedCall) (int, string) {
			return status, `{"jsonrpc":"2.0","id":0,"error":{"code":-32500,"message":"AA21 didn't pay prefund"}}`
		})

		_, err := c.EstimateUserOperationGas(context.Background(), sampleOp())
		require.Error(t, err)
		assert.True(t, errors.Is(err, walleterr.ErrBundler), "status %d", status)
		assert.Equal(t, "AA21 didn't pay prefund", err.Error())

		var werr *walleterr.Error
		require.True(t, errors.As(err, &werr))
		assert.Equal(t, -32500, werr.Details["code"])
	}
}

func TestNon2xxWithoutEnvelopeIsTransportError(t *testing.T) {
	c, _ := newTestClient(t, func(call recordedCall) (int, string) {
		return http.StatusBadGateway, `<html>bad gateway</html>`
	})

	_, err := c.GetSupportedEntryPoints(context.Background())
	require.Error(t, err)
	assert.Equal(t, walleterr.CodeUnspecified, walleterr.CodeOf(err))
	assert.Contains(t, err.Error(), "502")
}

func TestGetUserOperationByHashNull(t *testing.T) {
	c, fake := newTestClient(t, func(call recordedCall) (int, string) {
		return http.StatusOK, result(`null`)
	})

	res, err := c.GetUserOperationByHash(context.Background(), common.HexToHash("0x01"))
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, 1, fake.count("eth_getUserOperationByHash"))
}

func TestReceiptPollingExhaustsAttempts(t *testing.T) {
	c, fake := newTestClient(t, func(call recordedCall) (int, string) {
		return http.StatusOK, result(`null`)
	})

	receipt, err := c.GetUserOperationReceipt(context.Background(), common.HexToHash("0x01"), 3)
	assert.Nil(t, receipt)
	require.Error(t, err)
	assert.True(t, errors.Is(err, walleterr.ErrMaxRetriesExceeded))
	assert.Equal(t, 4, fake.count("eth_getUserOperationReceipt"))
}

func TestReceiptSingleAttemptMiss(t *testing.T) {
	c, fake := newTestClient(t, func(call recordedCall) (int, string) {
		return http.StatusOK, result(`null`)
	})

	receipt, err := c.GetUserOperationReceipt(context.Background(), common.HexToHash("0x01"), 0)
	require.NoError(t, err)
	assert.Nil(t, receipt)
	assert.Equal(t, 1, fake.count("eth_getUserOperationReceipt"))
}

func TestReceiptRejectsUnboundedRetries(t *testing.T) {
	c, fake := newTestClient(t, func(call recordedCall) (int, string) {
		return http.StatusOK, result(`null`)
	})

	_, err := c.GetUserOperationReceipt(context.Background(), common.HexToHash("0x01"), ^uint(0))
	require.Error(t, err)
	assert.Equal(t, 0, fake.count("eth_getUserOperationReceipt"))
}

// Scenario: the receipt shows up on the third poll.
func TestReceiptFoundAfterRetries(t *testing.T) {
	var mu sync.Mutex
	polls := 0
	c, fake := newTestClient(t, func(call recordedCall) (int, string) {
		mu.Lock()
		defer mu.Unlock()
		polls++
		if polls < 3 {
			return http.StatusOK, result(`null`)
		}
		return http.StatusOK, result(`{"userOpHash":"0x0000000000000000000000000000000000000000000000000000000000000001","success":true,"actualGasUsed":"0x5208"}`)
	})

	receipt, err := c.GetUserOperationReceipt(context.Background(), common.HexToHash("0x01"), 5)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.True(t, receipt.Success)
	assert.Equal(t, 3, fake.count("eth_getUserOperationReceipt"))
}

// Scenario: the bundler fails mid-poll and polling stops right there.
func TestReceiptPollingStopsOnError(t *testing.T) {
	c, fake := newTestClient(t, func(call recordedCall) (int, string) {
		return http.StatusOK, `{"jsonrpc":"2.0","id":0,"error":{"code":-32601,"message":"method not found"}}`
	})

	_, err := c.GetUserOperationReceipt(context.Background(), common.HexToHash("0x01"), 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, walleterr.ErrBundler))
	assert.Equal(t, 1, fake.count("eth_getUserOperationReceipt"))
}

func TestReceiptPollingHonoursContext(t *testing.T) {
	fake := &fakeBundler{handler: func(call recordedCall) (int, string) {
		return http.StatusOK, result(`null`)
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c, err := NewClient(srv.URL, testEntrypoint, WithPollInterval(time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.GetUserOperationReceipt(ctx, common.HexToHash("0x01"), 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, fake.count("eth_getUserOperationReceipt"))
}

func TestOperationResponseWaitPollsAgain(t *testing.T) {
	c, fake := newTestClient(t, func(call recordedCall) (int, string) {
		if call.Method == "eth_sendUserOperation" {
			return http.StatusOK, result(`"0x0000000000000000000000000000000000000000000000000000000000000001"`)
		}
		return http.StatusOK, result(`null`)
	})

	resp, err := c.SendUserOperation(context.Background(), sampleOp())
	require.NoError(t, err)

	receipt, err := resp.Wait(context.Background())
	require.NoError(t, err)
	assert.Nil(t, receipt)

	_, err = resp.Wait(context.Background(), 2)
	assert.True(t, errors.Is(err, walleterr.ErrMaxRetriesExceeded))
	assert.Equal(t, 4, fake.count("eth_getUserOperationReceipt"))
}
