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

func TestRecordHTTPRequest(t *testing.T) {
	m := New(false)
	m.RecordHTTPRequest("POST", "/embed", 200, 20*time.Millisecond)
	m.RecordHTTPRequest("POST", "/embed", 200, 30*time.Millisecond)
	m.RecordHTTPRequest("POST", "/embed", 400, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/embed", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/embed", "400")))
}

func TestEmbeddedTexts(t *testing.T) {
	m := New(false)
	m.AddEmbeddedTexts(3)
	m.AddEmbeddedTexts(0)
	m.AddEmbeddedTexts(-1)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.embeddedTexts))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New(false)
	m.ObserveUpstream("ok", 100*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `embedding_service_upstream_request_duration_seconds_count{outcome="ok"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)
	m.ObserveUpstream("ok", time.Millisecond)
	m.AddEmbeddedTexts(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
