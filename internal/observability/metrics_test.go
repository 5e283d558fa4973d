package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.OperationCompleted("authorize", "APPROVED", 20*time.Millisecond)
	m.OperationCompleted("authorize", "APPROVED", 10*time.Millisecond)
	m.CacheDegraded("get")
	m.LedgerRetry()
	m.LedgerRetry()
	m.LedgerExhausted()
	m.AuditDropped("buffer_full")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("authorize", "APPROVED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheDegraded.WithLabelValues("get")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ledgerRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ledgerExhausted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.auditDropped.WithLabelValues("buffer_full")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.OperationCompleted("capture", "DECLINED", time.Millisecond)
		m.GatewayCall("capture", "NETWORK")
		m.CacheReplay("capture")
		m.AuditPublished()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.GatewayCall("refund", "APPROVED")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `orchestrator_gateway_calls_total{operation="refund",result="APPROVED"} 1`)
}
