package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSDKMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSDKMetrics(reg)

	m.ObserveBundlerRequest("eth_sendUserOperation", StatusOK, 20*time.Millisecond)
	m.ObserveBundlerRequest("eth_sendUserOperation", StatusRPC, 5*time.Millisecond)
	m.IncReceiptPoll(PollPending)
	m.IncReceiptPoll(PollPending)
	m.IncReceiptPoll(PollFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.bundlerRequests.WithLabelValues("eth_sendUserOperation", StatusOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.receiptPolls.WithLabelValues(PollPending)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.receiptPolls.WithLabelValues(PollFound)))
}

func TestNoopRecorderSatisfiesRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveBundlerRequest("eth_chainId", StatusOK, time.Second)
	r.IncReceiptPoll(PollError)
	r.IncUserOperationSent(StatusOK)
}
