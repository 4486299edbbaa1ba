package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"ebook-marketplace/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlementMetrics_Counters(t *testing.T) {
	m := NewSettlementMetrics()

	m.CheckoutResult("created")
	m.CheckoutResult("created")
	m.CheckoutResult("gateway_error")
	m.WebhookResult(string(domain.SettlementApplied))
	m.WebhookResult("rejected")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.checkouts.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkouts.WithLabelValues("gateway_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhooks.WithLabelValues("applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhooks.WithLabelValues("rejected")))
}

func TestSettlementMetrics_GatewayResult(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ok", nil, "ok"},
		{"timeout", &domain.GatewayError{Op: "ping", Err: context.DeadlineExceeded}, "timeout"},
		{"processor error", &domain.GatewayError{Op: "ping", StatusCode: 500}, "error"},
		{"plain error", errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gatewayResult(tt.err))
		})
	}
}

func TestSettlementMetrics_Handler(t *testing.T) {
	m := NewSettlementMetrics()
	m.GatewayCall("create_payment", nil, 120*time.Millisecond)
	m.CheckoutResult("created")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `ebm_checkouts_total{outcome="created"} 1`)
	assert.Contains(t, string(body), `ebm_gateway_request_duration_seconds_count{operation="create_payment",result="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
