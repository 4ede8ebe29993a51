package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives instrumentation events from the bundler client. The
// client holds a NoopRecorder unless one is configured.
type Recorder interface {
	ObserveBundlerRequest(method, status string, elapsed time.Duration)
	IncReceiptPoll(outcome string)
	IncUserOperationSent(status string)
}

// Receipt poll outcomes.
const (
	PollFound   = "found"
	PollPending = "pending"
	PollError   = "error"
)

// Bundler request statuses.
const (
	StatusOK      = "ok"
	StatusRPC     = "rpc_error"
	StatusNetwork = "network_error"
)

// SDKMetrics contains instrumented metrics for the wallet client.
type SDKMetrics struct {
	bundlerRequests   *prometheus.CounterVec
	bundlerDuration   *prometheus.HistogramVec
	receiptPolls      *prometheus.CounterVec
	userOperationSent *prometheus.CounterVec
}

const walletNamespace = "truewallet"

func NewSDKMetrics(reg prometheus.Registerer) *SDKMetrics {
	return &SDKMetrics{
		bundlerRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: walletNamespace,
				Name:      "bundler_requests_total",
				Help:      "The number of JSON-RPC requests sent to the bundler",
			}, []string{"method", "status"}),

		bundlerDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: walletNamespace,
				Name:      "bundler_request_duration_seconds",
				Help:      "Round trip time of bundler requests",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),

		receiptPolls: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: walletNamespace,
				Name:      "receipt_poll_attempts_total",
				Help:      "The number of eth_getUserOperationReceipt attempts by outcome",
			}, []string{"outcome"}),

		userOperationSent: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: walletNamespace,
				Name:      "user_operations_sent_total",
				Help:      "The number of user operations submitted to the bundler",
			}, []string{"status"}),
	}
}

func (m *SDKMetrics) ObserveBundlerRequest(method, status string, elapsed time.Duration) {
	m.bundlerRequests.WithLabelValues(method, status).Inc()
	m.bundlerDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *SDKMetrics) IncReceiptPoll(outcome string) {
	m.receiptPolls.WithLabelValues(outcome).Inc()
}

func (m *SDKMetrics) IncUserOperationSent(status string) {
	m.userOperationSent.WithLabelValues(status).Inc()
}

type NoopRecorder struct{}

func (NoopRecorder) ObserveBundlerRequest(string, string, time.Duration) {}
func (NoopRecorder) IncReceiptPoll(string)                               {}
func (NoopRecorder) IncUserOperationSent(string)                         {}
