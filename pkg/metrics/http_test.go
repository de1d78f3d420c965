package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsCountsByRouteAndStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Observe("/api/v1/vendor/payouts/request", "POST", 201, 20*time.Millisecond)
	m.Observe("/api/v1/vendor/payouts/request", "POST", 201, 30*time.Millisecond)
	m.Observe("/api/v1/vendor/payouts/request", "POST", 400, time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	created, err := fetchCounterValue(mfs, "vendorledger_http_requests_total", "status", "201")
	require.NoError(t, err)
	assert.Equal(t, float64(2), created)

	sum, err := fetchHistogramSum(mfs, "vendorledger_http_request_duration_seconds", "method", "POST")
	require.NoError(t, err)
	assert.InDelta(t, 0.051, sum, 0.0001)
}

func TestHTTPMetricsNilSafe(t *testing.T) {
	var m *HTTPMetrics
	m.Observe("/", "GET", 200, time.Millisecond)
	NewHTTPMetrics(nil).Observe("/", "GET", 200, time.Millisecond)
}
