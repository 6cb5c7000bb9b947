package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSegmentMetrics(reg)

	m.ObserveCreate("A", 100)
	m.ObserveCreate("B", 200)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.created))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.mapped))
	assert.Equal(t, float64(300), testutil.ToFloat64(m.mappedBytes))

	m.ObserveRemove("B", 200)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.removed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.mapped))
	assert.Equal(t, float64(100), testutil.ToFloat64(m.mappedBytes))
}

func TestServerReadiness(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer(0, reg)

	// Not ready until the whole batch is mapped.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ready", nil)
	s.srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, 503, rec.Code)

	s.SetReady(true)

	rec = httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, 200, rec.Code)
}

func TestServerLiveness(t *testing.T) {
	s := NewServer(0, prometheus.NewRegistry())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/live", nil)
	s.srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, 200, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSegmentMetrics(reg)
	m.ObserveCreate("A", 820)

	s := NewServer(0, reg)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	s.srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "shmbridge_segments_created_total 1")
	assert.Contains(t, body, "shmbridge_mapped_bytes 820")
}
