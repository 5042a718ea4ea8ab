package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "freelance_escrow"

// Metrics owns a private registry. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	registry          *prometheus.Registry
	escrowTransitions *prometheus.CounterVec
	ledgerAmount      *prometheus.CounterVec
	gatewayCalls      *prometheus.HistogramVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	wsConnections     prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		escrowTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escrow_transitions_total",
			Help:      "Escrow status transitions.",
		}, []string{"from", "to"}),
		ledgerAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_amount_minor_total",
			Help:      "Money booked in the escrow ledger, in minor units.",
		}, []string{"kind", "currency"}),
		gatewayCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_call_duration_seconds",
			Help:      "Latency of calls to external gateways.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"gateway", "operation", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Open websocket connections.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.escrowTransitions,
		m.ledgerAmount,
		m.gatewayCalls,
		m.httpRequests,
		m.httpDuration,
		m.wsConnections,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) EscrowTransition(from, to string) {
	if m == nil {
		return
	}
	m.escrowTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) LedgerBooked(kind, currency string, amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.ledgerAmount.WithLabelValues(kind, currency).Add(float64(amount))
}

func (m *Metrics) GatewayCall(gateway, operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.gatewayCalls.WithLabelValues(gateway, operation, outcome).Observe(time.Since(started).Seconds())
}

func (m *Metrics) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) WSConnections(delta int) {
	if m == nil {
		return
	}
	m.wsConnections.Add(float64(delta))
}
