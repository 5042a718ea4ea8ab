package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, m *Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestMetrics_CountersAccumulate(t *testing.T) {
	m := New()

	m.EscrowTransition("pending", "funded")
	m.EscrowTransition("funded", "in_progress")
	m.LedgerBooked("fund", "NGN", 300000)
	m.LedgerBooked("refund", "NGN", 0)
	m.HTTPRequest(http.MethodGet, "", http.StatusOK, time.Millisecond)

	assert.Equal(t, 2.0, counterValue(t, m, "freelance_escrow_escrow_transitions_total"))
	assert.Equal(t, 300000.0, counterValue(t, m, "freelance_escrow_ledger_amount_minor_total"))
	assert.Equal(t, 1.0, counterValue(t, m, "freelance_escrow_http_requests_total"))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.EscrowTransition("pending", "funded")
		m.LedgerBooked("fund", "NGN", 1)
		m.GatewayCall("paystack", "verify", time.Now(), errors.New("boom"))
		m.HTTPRequest(http.MethodPost, "/x", 500, time.Second)
		m.WSConnections(1)
	})
}

func TestMetrics_HandlerExposesFamilies(t *testing.T) {
	m := New()
	m.GatewayCall("dojah", "nin_lookup", time.Now(), nil)
	m.WSConnections(2)
	m.WSConnections(-1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "freelance_escrow_gateway_call_duration_seconds")
	assert.Contains(t, rec.Body.String(), "freelance_escrow_ws_connections 1")
}
