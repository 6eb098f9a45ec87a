package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/manyblack/studio/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New()
	m.Operation("automations", "add")
	m.Operation("automations", "add")
	m.Failure("automations", "add", "duplicate")
	m.Records("automations", 7)
	m.Request(http.MethodGet, "/api/catalog/{catalog}", http.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, `studio_catalog_operations_total{catalog="automations",op="add"} 2`)
	assert.Contains(t, body, `studio_catalog_failures_total{catalog="automations",op="add",reason="duplicate"} 1`)
	assert.Contains(t, body, `studio_catalog_records{catalog="automations"} 7`)
	assert.Contains(t, body, "studio_http_request_duration_seconds_bucket")
}

func TestMetrics_Gather(t *testing.T) {
	m := metrics.New()
	m.Streamed()
	m.Streamed()

	expected := `
# HELP studio_stream_events_total Catalog events pushed to SSE subscribers
# TYPE studio_stream_events_total counter
studio_stream_events_total 2
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "studio_stream_events_total"))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.Operation("x", "y")
		m.Failure("x", "y", "z")
		m.Records("x", 1)
		m.Streamed()
	})
}
