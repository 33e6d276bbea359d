package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// Verify outcomes recorded by CheckoutMetrics.
const (
	OutcomePaid              = "paid"
	OutcomePending           = "pending"
	OutcomeReplayed          = "replayed"
	OutcomeVerificationFail  = "verification_failed"
	OutcomeGatewayDown       = "gateway_unavailable"
	OutcomeEmptyCart         = "empty_cart"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeRefundFailed      = "refund_failed"
	OutcomeError             = "error"
)

type CheckoutMetrics struct {
	Verifications *prometheus.CounterVec
	VerifyLatency prometheus.Histogram
	Refunds       *prometheus.CounterVec
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "verify_total",
		Help:      "Checkout verify calls by terminal outcome.",
	}, []string{"outcome"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "verify_duration_seconds",
		Help:      "End-to-end latency of checkout verify.",
		Buckets:   prometheus.DefBuckets,
	})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "refunds_total",
		Help:      "Refunds issued after a stock shortfall, by result.",
	}, []string{"result"})

	reg.MustRegister(verifications, latency, refunds)
	return &CheckoutMetrics{Verifications: verifications, VerifyLatency: latency, Refunds: refunds}
}

// ObserveVerify is safe to call on a nil receiver.
func (m *CheckoutMetrics) ObserveVerify(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
	m.VerifyLatency.Observe(d.Seconds())
}

func (m *CheckoutMetrics) ObserveRefund(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.Refunds.WithLabelValues(result).Inc()
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
