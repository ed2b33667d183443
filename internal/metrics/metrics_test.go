package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveConversion(t *testing.T) {
	m := New()
	m.ObserveConversion(SourceHTTP, OutcomeSuccess, 20*time.Millisecond)
	m.ObserveConversion(SourceHTTP, OutcomeSuccess, 30*time.Millisecond)
	m.ObserveConversion(SourceBatch, OutcomeError, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.conversions.WithLabelValues(SourceHTTP, OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conversions.WithLabelValues(SourceBatch, OutcomeError)))
}

func TestObserveOutput(t *testing.T) {
	m := New()
	m.ObserveOutput(10, 2, 3, 1)
	m.ObserveOutput(5, 1, 0, 0)

	assert.Equal(t, 15.0, testutil.ToFloat64(m.records))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sheets))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.skipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.collisions))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveConversion(SourceCLI, OutcomeSuccess, time.Second)
		m.ObserveOutput(1, 1, 1, 1)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveOutput(7, 1, 0, 0)

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "estoque_records_total 7")
	assert.Contains(t, string(body), "go_goroutines")
}
