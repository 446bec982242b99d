package observability

import (
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// PrometheusConfig holds Prometheus-specific configuration
type PrometheusConfig struct {
	Enabled  bool
	Endpoint string
}

// SetupPrometheusExporter creates a Prometheus metrics reader backed by its
// own registry, plus the scrape handler serving that registry. The handler
// is mounted on the API server rather than a dedicated listener.
func SetupPrometheusExporter(config PrometheusConfig) (metric.Reader, http.Handler, error) {
	if !config.Enabled {
		return nil, nil, nil
	}

	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})

	return exporter, handler, nil
}
