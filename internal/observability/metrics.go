// Package observability holds the Prometheus collectors and the tracer
// bootstrap. A nil *Metrics is valid and records nothing.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "orchestrator"

type Metrics struct {
	registry *prometheus.Registry

	operations      *prometheus.CounterVec
	operationTime   *prometheus.HistogramVec
	gatewayCalls    *prometheus.CounterVec
	cacheDegraded   *prometheus.CounterVec
	cacheReplays    *prometheus.CounterVec
	ledgerRetries   prometheus.Counter
	ledgerExhausted prometheus.Counter
	auditPublished  prometheus.Counter
	auditDropped    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Payment operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		operationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "End to end pipeline duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_calls_total",
			Help:      "Gateway routing calls by operation and result class.",
		}, []string{"operation", "result"}),
		cacheDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_degraded_total",
			Help:      "Idempotency cache failures that were degraded instead of failing the request.",
		}, []string{"action"}),
		cacheReplays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_replays_total",
			Help:      "Requests answered from a cached outcome.",
		}, []string{"operation"}),
		ledgerRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_retries_total",
			Help:      "Failed ledger write attempts that were retried or exhausted.",
		}),
		ledgerExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_retry_exhausted_total",
			Help:      "Ledger writes that failed after every attempt.",
		}),
		auditPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_published_total",
			Help:      "Audit events written to the sink.",
		}),
		auditDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_dropped_total",
			Help:      "Audit events dropped by reason.",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		m.operations,
		m.operationTime,
		m.gatewayCalls,
		m.cacheDegraded,
		m.cacheReplays,
		m.ledgerRetries,
		m.ledgerExhausted,
		m.auditPublished,
		m.auditDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry for /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) OperationCompleted(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.operationTime.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) GatewayCall(operation, result string) {
	if m == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) CacheDegraded(action string) {
	if m == nil {
		return
	}
	m.cacheDegraded.WithLabelValues(action).Inc()
}

func (m *Metrics) CacheReplay(operation string) {
	if m == nil {
		return
	}
	m.cacheReplays.WithLabelValues(operation).Inc()
}

func (m *Metrics) LedgerRetry() {
	if m == nil {
		return
	}
	m.ledgerRetries.Inc()
}

func (m *Metrics) LedgerExhausted() {
	if m == nil {
		return
	}
	m.ledgerExhausted.Inc()
}

func (m *Metrics) AuditPublished() {
	if m == nil {
		return
	}
	m.auditPublished.Inc()
}

func (m *Metrics) AuditDropped(reason string) {
	if m == nil {
		return
	}
	m.auditDropped.WithLabelValues(reason).Inc()
}
