package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jdroaster/internal/config"
	"jdroaster/internal/errors"
	"jdroaster/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func sampleReport() *types.Report {
	return &types.Report{
		ID:        "r-1",
		Sentences: []types.Sentence{{ID: "s_0"}, {ID: "s_1"}, {ID: "s_2"}},
		Insights: []types.Finding{
			{ID: "in_a", Severity: types.SeverityWarn},
			{ID: "in_b", Severity: types.SeverityHigh},
		},
		GreenFlags: []types.Finding{{ID: "gf_c"}},
	}
}

func newCollectingManager(t *testing.T) (*ObservabilityManager, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	om, err := newObservabilityManager(ObservabilityConfig{
		Enabled:            true,
		ServiceName:        "jdroaster",
		ServiceVersion:     "test",
		CollectionInterval: time.Second,
	}, errors.Discard(), []sdkmetric.Reader{reader})
	require.NoError(t, err)
	t.Cleanup(func() { _ = om.Shutdown(context.Background()) })
	return om, reader
}

// sumInt64 adds up every data point of a counter, optionally filtered by
// one attribute
func sumInt64(t *testing.T, reader *sdkmetric.ManualReader, name string, filter ...attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				if len(filter) > 0 {
					if v, found := dp.Attributes.Value(filter[0].Key); !found || v.Emit() != filter[0].Value.Emit() {
						continue
					}
				}
				total += dp.Value
			}
		}
	}
	return total
}

func TestGetObservabilityConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Observability.Enabled = true
	cfg.Observability.ServiceName = "jdroaster"
	cfg.Observability.Tracing.SampleRate = 0.5
	cfg.Observability.Prometheus.Enabled = true
	cfg.Observability.Prometheus.Endpoint = "/prom"

	obs := GetObservabilityConfig(cfg, "1.2.3")
	assert.Equal(t, "1.2.3", obs.ServiceVersion)
	assert.Equal(t, 0.5, obs.SampleRate)
	assert.Equal(t, 15*time.Second, obs.CollectionInterval)
	assert.Equal(t, PrometheusConfig{Enabled: true, Endpoint: "/prom"}, obs.Prometheus)

	fallback := GetObservabilityConfig(nil, "dev")
	assert.False(t, fallback.Enabled)
	assert.Equal(t, "jdroaster", fallback.ServiceName)
}

func TestDisabledManagerIsNoop(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{ServiceName: "jdroaster"}, errors.Discard())
	require.NoError(t, err)

	assert.Nil(t, om.PrometheusHandler())
	assert.Equal(t, "/metrics", om.PrometheusEndpoint())

	report := om.TrackAnalysis(context.Background(), "cli", func(context.Context) *types.Report {
		return sampleReport()
	})
	assert.Equal(t, "r-1", report.ID)
	assert.NoError(t, om.Shutdown(context.Background()))
}

func TestNilManagerIsSafe(t *testing.T) {
	var om *ObservabilityManager

	report := om.TrackAnalysis(context.Background(), "cli", func(context.Context) *types.Report {
		return sampleReport()
	})
	assert.NotNil(t, report)

	om.GetMetrics().RecordHTTPRequest(context.Background(), "GET", "/health", 200, time.Millisecond)
	om.GetMetrics().RecordCertReload(context.Background(), "file", true)
	assert.Nil(t, om.PrometheusHandler())
	assert.NoError(t, om.Shutdown(context.Background()))

	handler := om.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTrackAnalysisRecordsMetrics(t *testing.T) {
	om, reader := newCollectingManager(t)

	om.TrackAnalysis(context.Background(), "http", func(context.Context) *types.Report {
		return sampleReport()
	})

	assert.Equal(t, int64(1), sumInt64(t, reader, "jdroaster_analyses_total"))
	assert.Equal(t, int64(3), sumInt64(t, reader, "jdroaster_findings_total"))
	assert.Equal(t, int64(2), sumInt64(t, reader, "jdroaster_findings_total", attribute.String("kind", "insight")))
	assert.Equal(t, int64(1), sumInt64(t, reader, "jdroaster_findings_total", attribute.String("kind", "greenFlag")))
}

func TestRouteMetricsCapturesStatus(t *testing.T) {
	om, reader := newCollectingManager(t)

	handler := om.RouteMetrics("/api/analyze-text", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.WriteHeader(http.StatusInternalServerError) // ignored, header already written
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze-text", nil))

	assert.Equal(t, int64(1), sumInt64(t, reader, "jdroaster_http_requests_total", attribute.String("status", "400")))
	assert.Equal(t, int64(0), sumInt64(t, reader, "jdroaster_http_requests_total", attribute.String("status", "500")))
}

func TestRateLimitAndCertMetrics(t *testing.T) {
	om, reader := newCollectingManager(t)
	metrics := om.GetMetrics()

	metrics.RecordRateLimited(context.Background(), "/api/analyze-text")
	metrics.RecordRateLimited(context.Background(), "/api/analyze-text")
	metrics.RecordCertReload(context.Background(), "vault", true)
	metrics.RecordCertExpiry(context.Background(), time.Now().Add(time.Hour))

	assert.Equal(t, int64(2), sumInt64(t, reader, "jdroaster_rate_limited_total"))
	assert.Equal(t, int64(1), sumInt64(t, reader, "jdroaster_cert_reloads_total", attribute.String("source", "vault")))
}

func TestPrometheusHandlerServesMetrics(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{
		Enabled:            true,
		MetricsEnabled:     true,
		ServiceName:        "jdroaster",
		ServiceVersion:     "test",
		CollectionInterval: time.Second,
		Prometheus:         PrometheusConfig{Enabled: true, Endpoint: "/prom"},
	}, errors.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = om.Shutdown(context.Background()) })

	require.NotNil(t, om.PrometheusHandler())
	assert.Equal(t, "/prom", om.PrometheusEndpoint())

	om.GetMetrics().RecordHTTPRequest(context.Background(), http.MethodGet, "/health", 200, time.Millisecond)

	server := httptest.NewServer(om.PrometheusHandler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "jdroaster_http_requests")
	assert.Contains(t, string(body), `route="/health"`)
}
