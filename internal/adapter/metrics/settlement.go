// Package metrics exposes settlement metrics to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"ebook-marketplace/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SettlementMetrics implements ports.SettlementRecorder on a dedicated registry.
type SettlementMetrics struct {
	registry        *prometheus.Registry
	checkouts       *prometheus.CounterVec
	webhooks        *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
}

// NewSettlementMetrics registers the settlement collectors plus the Go runtime
// and process collectors.
func NewSettlementMetrics() *SettlementMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &SettlementMetrics{
		registry: reg,
		checkouts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ebm_checkouts_total",
				Help: "Checkout attempts by outcome",
			},
			[]string{"outcome"},
		),
		webhooks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ebm_webhooks_total",
				Help: "Processor webhook deliveries by outcome",
			},
			[]string{"outcome"},
		),
		gatewayDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ebm_gateway_request_duration_seconds",
				Help:    "Duration of outbound payment gateway calls",
				Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 15},
			},
			[]string{"operation", "result"},
		),
	}
}

func (m *SettlementMetrics) CheckoutResult(outcome string) {
	m.checkouts.WithLabelValues(outcome).Inc()
}

func (m *SettlementMetrics) WebhookResult(outcome string) {
	m.webhooks.WithLabelValues(outcome).Inc()
}

// GatewayCall records one outbound call. result is ok, timeout or error.
func (m *SettlementMetrics) GatewayCall(operation string, err error, elapsed time.Duration) {
	m.gatewayDuration.WithLabelValues(operation, gatewayResult(err)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *SettlementMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *SettlementMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func gatewayResult(err error) string {
	if err == nil {
		return "ok"
	}
	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) && gwErr.Timeout() {
		return "timeout"
	}
	return "error"
}
